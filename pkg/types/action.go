package types

// ActionReason explains why the resolver picked an action.
type ActionReason string

const (
	ReasonPlanIncompleteItem   ActionReason = "plan_incomplete_item"
	ReasonPlanCompleteFallback ActionReason = "plan_complete_fallback"
	ReasonNoPlanFallback       ActionReason = "no_plan_fallback"
	// ReasonNoop marks an action whose href equals the current route. Advisory
	// only; callers decide whether to suppress the navigation.
	ReasonNoop ActionReason = "noop"
)

// ResolvedAction is the single recommendation produced per resolution call.
type ResolvedAction struct {
	Href      string       `json:"href"`
	Label     string       `json:"label"`
	Reason    ActionReason `json:"reason"`
	Type      string       `json:"type"`
	EntityID  string       `json:"entityId,omitempty"`
	ItemTitle string       `json:"itemTitle,omitempty"`
}

// IsNoop reports whether the action targets the route the user is already on.
func (a ResolvedAction) IsNoop() bool {
	return a.Reason == ReasonNoop
}
