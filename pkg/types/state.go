package types

// UserStateType is the closed classification of a returning user. It is the
// sole input of the visibility engine.
type UserStateType string

const (
	StateFirstDay             UserStateType = "first_day"
	StateReturningAfterGap    UserStateType = "returning_after_gap"
	StateFocusActive          UserStateType = "focus_active"
	StatePlanExistsIncomplete UserStateType = "plan_exists_incomplete"
	StatePlanComplete         UserStateType = "plan_complete"
	StateSteadyState          UserStateType = "steady_state"
)

// AllUserStates lists every UserStateType. Tables keyed by state are checked
// against it at initialization.
var AllUserStates = []UserStateType{
	StateFirstDay,
	StateReturningAfterGap,
	StateFocusActive,
	StatePlanExistsIncomplete,
	StatePlanComplete,
	StateSteadyState,
}

// Valid reports whether s is a member of the enumeration.
func (s UserStateType) Valid() bool {
	for _, known := range AllUserStates {
		if s == known {
			return true
		}
	}
	return false
}

// UserSignals are the raw facts the user state is computed from.
type UserSignals struct {
	PlanExists             bool `json:"planExists"`
	HasIncompletePlanItems bool `json:"hasIncompletePlanItems"`
	ReturningAfterGap      bool `json:"returningAfterGap"`
	FirstDay               bool `json:"firstDay"`
	FocusActive            bool `json:"focusActive"`
	ActiveStreak           bool `json:"activeStreak"`
}

// TodayVisibility is the fixed set of section flags for the Today dashboard.
type TodayVisibility struct {
	ShowStarterBlock        bool `json:"showStarterBlock"`
	ShowDailyPlan           bool `json:"showDailyPlan"`
	ShowExplore             bool `json:"showExplore"`
	HideExplore             bool `json:"hideExplore"`
	ShowRewards             bool `json:"showRewards"`
	ForceDailyPlanCollapsed bool `json:"forceDailyPlanCollapsed"`
	ForceExploreCollapsed   bool `json:"forceExploreCollapsed"`
}

// MomentumState is the session-scoped momentum feedback flag pair.
type MomentumState struct {
	Shown     bool `json:"shown"`
	Dismissed bool `json:"dismissed"`
}

// SoftLandingState is the session-scoped reduced-mode flag.
type SoftLandingState struct {
	Active bool `json:"active"`
	// Source names what activated soft landing, nil when inactive.
	Source *string `json:"source"`
	// NoopStreak counts consecutive resolver noops while active.
	NoopStreak int `json:"noopStreak,omitempty"`
}

// SourceOr returns the source tag or def when unset.
func (s SoftLandingState) SourceOr(def string) string {
	if s.Source == nil {
		return def
	}
	return *s.Source
}
