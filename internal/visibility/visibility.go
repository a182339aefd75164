// Package visibility maps the user state classification onto the Today
// dashboard section flags.
//
// The mapping is a static table, one complete entry per UserStateType, checked
// for coverage when the package initializes. A floor is applied after lookup
// so at least one primary section is always visible.
package visibility

import (
	"fmt"

	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

// MinimumVisibility is ORed into every lookup result.
var MinimumVisibility = types.TodayVisibility{
	ShowStarterBlock: true,
}

var table = buildTable(map[types.UserStateType]types.TodayVisibility{
	types.StateFirstDay: {
		ShowStarterBlock: true,
		HideExplore:      true,
	},
	types.StateReturningAfterGap: {
		ShowStarterBlock:        true,
		ShowDailyPlan:           true,
		ShowExplore:             true,
		ForceDailyPlanCollapsed: true,
		ForceExploreCollapsed:   true,
	},
	types.StateFocusActive: {
		ShowStarterBlock:        true,
		ShowDailyPlan:           true,
		HideExplore:             true,
		ForceDailyPlanCollapsed: true,
	},
	types.StatePlanExistsIncomplete: {
		ShowStarterBlock:      true,
		ShowDailyPlan:         true,
		ShowExplore:           true,
		ShowRewards:           true,
		ForceExploreCollapsed: true,
	},
	types.StatePlanComplete: {
		ShowStarterBlock:        true,
		ShowDailyPlan:           true,
		ShowExplore:             true,
		ShowRewards:             true,
		ForceDailyPlanCollapsed: true,
	},
	types.StateSteadyState: {
		ShowStarterBlock: true,
		ShowDailyPlan:    true,
		ShowExplore:      true,
		ShowRewards:      true,
	},
})

// buildTable panics when an enumeration member has no entry or an entry is
// keyed by an unknown state. A missing row is a programmer error.
func buildTable(entries map[types.UserStateType]types.TodayVisibility) map[types.UserStateType]types.TodayVisibility {
	for _, state := range types.AllUserStates {
		if _, ok := entries[state]; !ok {
			panic(fmt.Sprintf("visibility: no table entry for user state %q", state))
		}
	}
	for state := range entries {
		if !state.Valid() {
			panic(fmt.Sprintf("visibility: table entry for unknown user state %q", state))
		}
	}
	return entries
}

// ResolveUserState classifies raw signals. Precedence, highest first:
// focus active, first day, returning after a gap, incomplete plan, complete
// plan, steady state.
func ResolveUserState(s types.UserSignals) types.UserStateType {
	switch {
	case s.FocusActive:
		return types.StateFocusActive
	case s.FirstDay:
		return types.StateFirstDay
	case s.ReturningAfterGap:
		return types.StateReturningAfterGap
	case s.PlanExists && s.HasIncompletePlanItems:
		return types.StatePlanExistsIncomplete
	case s.PlanExists:
		return types.StatePlanComplete
	default:
		return types.StateSteadyState
	}
}

// GetTodayVisibility looks up the flags for state and applies the floor.
// Values outside the enumeration (from decoded input) use the steady-state row.
func GetTodayVisibility(state types.UserStateType) types.TodayVisibility {
	flags, ok := table[state]
	if !ok {
		flags = table[types.StateSteadyState]
	}
	return EnsureMinimumVisibility(flags)
}

// EnsureMinimumVisibility ORs MinimumVisibility into flags. HideExplore wins
// over ShowExplore so the two never disagree.
func EnsureMinimumVisibility(flags types.TodayVisibility) types.TodayVisibility {
	out := types.TodayVisibility{
		ShowStarterBlock:        flags.ShowStarterBlock || MinimumVisibility.ShowStarterBlock,
		ShowDailyPlan:           flags.ShowDailyPlan || MinimumVisibility.ShowDailyPlan,
		ShowExplore:             flags.ShowExplore || MinimumVisibility.ShowExplore,
		HideExplore:             flags.HideExplore || MinimumVisibility.HideExplore,
		ShowRewards:             flags.ShowRewards || MinimumVisibility.ShowRewards,
		ForceDailyPlanCollapsed: flags.ForceDailyPlanCollapsed || MinimumVisibility.ForceDailyPlanCollapsed,
		ForceExploreCollapsed:   flags.ForceExploreCollapsed || MinimumVisibility.ForceExploreCollapsed,
	}
	if out.HideExplore {
		out.ShowExplore = false
	}
	return out
}

// PrimaryVisible reports whether any primary content section is shown.
func PrimaryVisible(flags types.TodayVisibility) bool {
	return flags.ShowStarterBlock || flags.ShowDailyPlan || (flags.ShowExplore && !flags.HideExplore)
}

// ApplyPersonalization hides the rewards section for users who opted out of
// gamification.
func ApplyPersonalization(flags types.TodayVisibility, p types.UserPersonalization) types.TodayVisibility {
	if !p.GamificationVisible {
		flags.ShowRewards = false
	}
	return flags
}

// ApplySoftLanding collapses the plan and explore sections while reduced mode
// is active.
func ApplySoftLanding(flags types.TodayVisibility, s types.SoftLandingState) types.TodayVisibility {
	if s.Active {
		flags.ForceDailyPlanCollapsed = true
		flags.ForceExploreCollapsed = true
	}
	return flags
}
