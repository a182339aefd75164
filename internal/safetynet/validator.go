package safetynet

import (
	"sort"
	"strings"

	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

// FallbackRoute is the safe default every invalid action is redirected to.
const FallbackRoute = "/today"

// FallbackAction replaces any resolved action whose href is not a known route.
var FallbackAction = types.ResolvedAction{
	Href:   FallbackRoute,
	Label:  "Back to Today",
	Reason: types.ReasonNoPlanFallback,
	Type:   string(types.ItemTypeFocus),
}

// IsValidItem reports whether a plan item is actionable: it needs a non-empty
// id and actionUrl.
func IsValidItem(item types.PlanItem) bool {
	return strings.TrimSpace(item.ID) != "" && strings.TrimSpace(item.ActionURL) != ""
}

// SanitizePlan drops invalid items from an already typed plan. A plan that
// passes every check is returned unchanged; otherwise a cleaned copy is
// returned and the input is left untouched.
func SanitizePlan(plan *types.DailyPlan) *types.DailyPlan {
	if plan == nil {
		return nil
	}
	clean := true
	for _, item := range plan.Items {
		if !IsValidItem(item) {
			clean = false
			break
		}
	}
	if clean {
		return plan
	}

	cp := *plan
	cp.Items = make([]types.PlanItem, 0, len(plan.Items))
	for _, item := range plan.Items {
		if IsValidItem(item) {
			cp.Items = append(cp.Items, item)
		}
	}
	recount(&cp)
	return &cp
}

// Validator checks resolved actions against the set of known routes.
type Validator struct {
	routes map[string]bool
}

// NewValidator builds a validator accepting the given routes. The fallback
// route is always accepted.
func NewValidator(routes []string) *Validator {
	v := &Validator{routes: map[string]bool{FallbackRoute: true}}
	for _, r := range routes {
		r = strings.TrimRight(strings.TrimSpace(r), "/")
		if r != "" {
			v.routes[r] = true
		}
	}
	return v
}

// IsKnownRoute reports whether href is a known route or a sub-path of one.
// Query strings and fragments are ignored.
func (v *Validator) IsKnownRoute(href string) bool {
	path := href
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	if !strings.HasPrefix(path, "/") || strings.Contains(path, "//") || strings.Contains(path, "..") {
		return false
	}
	for path != "" {
		if v.routes[path] {
			return true
		}
		i := strings.LastIndex(path, "/")
		if i <= 0 {
			break
		}
		path = path[:i]
	}
	return false
}

// ValidateAction returns a unchanged when its href is a known route, and
// FallbackAction otherwise.
func (v *Validator) ValidateAction(a types.ResolvedAction) types.ResolvedAction {
	if v.IsKnownRoute(a.Href) {
		return a
	}
	return FallbackAction
}

// Routes returns the accepted routes in sorted order.
func (v *Validator) Routes() []string {
	out := make([]string, 0, len(v.routes))
	for r := range v.routes {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
