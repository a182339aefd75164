// Package resolver picks the single next action a returning user should be
// nudged towards.
//
// Resolution is a pure priority cascade over the daily plan, personalization
// and current route:
//
//  1. onboarding override
//  2. lowest-priority incomplete plan item
//  3. personalized fallback chain (module weights, highest first)
//  4. fixed default chain
//
// Every result is passed through the safety net validator, so callers always
// get a routable action.
package resolver

import (
	"sort"
	"strings"

	"github.com/jvetere1999/passion-os-sub013/internal/config"
	"github.com/jvetere1999/passion-os-sub013/internal/safetynet"
	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

// State is the input of a resolution call.
type State struct {
	Plan            *types.DailyPlan
	Personalization *types.UserPersonalization
	CurrentRoute    string
}

// Options configures a Resolver.
type Options struct {
	// ModuleRoutes maps module keys to dashboard routes.
	ModuleRoutes map[string]string
	// DefaultChain lists module keys consulted when nothing else applies.
	DefaultChain []string
	// Labels overrides the display label per module key.
	Labels map[string]string
	// Validator checks every result. Nil builds one from ModuleRoutes.
	Validator *safetynet.Validator
}

// Resolver resolves next actions. It is immutable after New and safe for
// concurrent use.
type Resolver struct {
	routes    map[string]string
	chain     []string
	labels    map[string]string
	validator *safetynet.Validator
}

var defaultLabels = map[string]string{
	"focus":    "Start Focus",
	"quests":   "Check your quests",
	"learn":    "Continue learning",
	"spark":    "Pick a spark",
	"ideas":    "Capture an idea",
	"habits":   "Check in on habits",
	"goals":    "Review your goals",
	"exercise": "Log a workout",
	"workout":  "Log a workout",
	"books":    "Read a chapter",
	"infobase": "Browse the infobase",
	"market":   "Visit the market",
	"calendar": "Open the planner",
}

// New creates a Resolver. Chain entries without a route are ignored.
func New(opts Options) *Resolver {
	r := &Resolver{
		routes: make(map[string]string, len(opts.ModuleRoutes)),
		labels: make(map[string]string, len(defaultLabels)+len(opts.Labels)),
	}
	for k, v := range opts.ModuleRoutes {
		r.routes[k] = v
	}
	for k, v := range defaultLabels {
		r.labels[k] = v
	}
	for k, v := range opts.Labels {
		r.labels[k] = v
	}
	for _, key := range opts.DefaultChain {
		if _, ok := r.routes[key]; ok {
			r.chain = append(r.chain, key)
		}
	}

	r.validator = opts.Validator
	if r.validator == nil {
		known := make([]string, 0, len(r.routes))
		for _, route := range r.routes {
			known = append(known, route)
		}
		r.validator = safetynet.NewValidator(known)
	}
	return r
}

// FromConfig builds a Resolver from the resolver section of the config. The
// validator accepts every module route plus the configured extra routes.
func FromConfig(cfg config.ResolverConfig) *Resolver {
	known := append([]string(nil), cfg.ExtraRoutes...)
	for _, route := range cfg.ModuleRoutes {
		known = append(known, route)
	}
	return New(Options{
		ModuleRoutes: cfg.ModuleRoutes,
		DefaultChain: cfg.DefaultChain,
		Validator:    safetynet.NewValidator(known),
	})
}

var defaultResolver = FromConfig(config.DefaultConfig().Resolver)

// Default returns the resolver built from the default configuration.
func Default() *Resolver {
	return defaultResolver
}

// ResolveNextAction resolves with the default resolver.
func ResolveNextAction(state State) types.ResolvedAction {
	return defaultResolver.ResolveNextAction(state)
}

// ResolveStarterAction resolves with the default resolver.
func ResolveStarterAction(plan *types.DailyPlan) types.ResolvedAction {
	return defaultResolver.ResolveStarterAction(plan)
}

// Validator returns the validator results are checked against.
func (r *Resolver) Validator() *safetynet.Validator {
	return r.validator
}

// ResolveNextAction returns exactly one action for state. It never fails:
// malformed input degrades to the fallback chain or the safety net fallback.
func (r *Resolver) ResolveNextAction(state State) types.ResolvedAction {
	return r.validator.ValidateAction(r.resolve(state))
}

// ResolveStarterAction resolves for a plan alone, without personalization or
// route-aware noop detection.
func (r *Resolver) ResolveStarterAction(plan *types.DailyPlan) types.ResolvedAction {
	return r.ResolveNextAction(State{Plan: plan})
}

func (r *Resolver) resolve(state State) types.ResolvedAction {
	p := state.Personalization

	if p != nil && p.OnboardingActive {
		if route := strings.TrimSpace(p.OnboardingRoute); route != "" {
			return types.ResolvedAction{
				Href:   route,
				Label:  "Continue onboarding",
				Reason: types.ReasonNoPlanFallback,
				Type:   "onboarding",
			}
		}
	}

	if item, ok := nextPlanItem(state.Plan); ok {
		action := types.ResolvedAction{
			Href:      item.ActionURL,
			Label:     item.Title,
			Reason:    types.ReasonPlanIncompleteItem,
			Type:      string(item.Type),
			EntityID:  item.ID,
			ItemTitle: item.Title,
		}
		if action.Label == "" {
			action.Label = "Continue your plan"
		}
		if state.CurrentRoute != "" && state.CurrentRoute == item.ActionURL {
			action.Reason = types.ReasonNoop
			action.Label = "Continue: " + item.Title
		}
		return action
	}

	reason := types.ReasonNoPlanFallback
	if state.Plan.HasItems() {
		reason = types.ReasonPlanCompleteFallback
	}

	candidates := r.candidates(p, reason)
	for _, c := range candidates {
		if c.Href != state.CurrentRoute {
			return c
		}
	}
	if len(candidates) > 0 {
		c := candidates[0]
		c.Reason = types.ReasonNoop
		return c
	}
	// Empty chain only happens with a misconfigured resolver.
	return safetynet.FallbackAction
}

// nextPlanItem returns the incomplete item with the lowest priority. Ties keep
// plan order.
func nextPlanItem(plan *types.DailyPlan) (types.PlanItem, bool) {
	if !plan.HasItems() {
		return types.PlanItem{}, false
	}
	pending := make([]types.PlanItem, 0, len(plan.Items))
	for _, item := range plan.Items {
		if !item.Completed {
			pending = append(pending, item)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Priority < pending[j].Priority
	})
	for _, item := range pending {
		if safetynet.IsValidItem(item) {
			return item, true
		}
	}
	return types.PlanItem{}, false
}

// Candidates returns the ranked fallback chain for p, as offered when no plan
// item applies. Each entry is validated.
func (r *Resolver) Candidates(p *types.UserPersonalization) []types.ResolvedAction {
	out := r.candidates(p, types.ReasonNoPlanFallback)
	for i := range out {
		out[i] = r.validator.ValidateAction(out[i])
	}
	return out
}

func (r *Resolver) candidates(p *types.UserPersonalization, reason types.ActionReason) []types.ResolvedAction {
	seen := make(map[string]bool)
	var out []types.ResolvedAction
	add := func(key string) {
		route, ok := r.routes[key]
		if !ok || seen[route] {
			return
		}
		seen[route] = true
		out = append(out, types.ResolvedAction{
			Href:   route,
			Label:  r.label(key),
			Reason: reason,
			Type:   key,
		})
	}

	if p != nil {
		for _, key := range rankModules(p.ModuleWeights) {
			add(key)
		}
	}
	for _, key := range r.chain {
		add(key)
	}
	return out
}

// rankModules returns module keys with positive weight, heaviest first. Equal
// weights order by key.
func rankModules(weights map[string]float64) []string {
	keys := make([]string, 0, len(weights))
	for k, w := range weights {
		if w > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		wi, wj := weights[keys[i]], weights[keys[j]]
		if wi != wj {
			return wi > wj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (r *Resolver) label(key string) string {
	if l, ok := r.labels[key]; ok {
		return l
	}
	return "Open " + key
}
