package visibility

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

func TestEveryStateHasTableEntry(t *testing.T) {
	for _, state := range types.AllUserStates {
		if _, ok := table[state]; !ok {
			t.Errorf("no visibility entry for %q", state)
		}
	}
}

func TestMinimumVisibilityFloor(t *testing.T) {
	states := append([]types.UserStateType{}, types.AllUserStates...)
	states = append(states, "unheard_of", "")

	for _, state := range states {
		flags := GetTodayVisibility(state)
		if !PrimaryVisible(flags) {
			t.Errorf("GetTodayVisibility(%q) = %+v has no visible primary section", state, flags)
		}
		if flags.ShowExplore && flags.HideExplore {
			t.Errorf("GetTodayVisibility(%q) shows and hides explore at once", state)
		}
	}
}

func TestEnsureMinimumVisibilityOnEmptyFlags(t *testing.T) {
	got := EnsureMinimumVisibility(types.TodayVisibility{})
	if !got.ShowStarterBlock {
		t.Errorf("EnsureMinimumVisibility(empty) = %+v, want starter block shown", got)
	}
}

func TestEnsureMinimumVisibilityIsIdempotent(t *testing.T) {
	for _, state := range types.AllUserStates {
		once := GetTodayVisibility(state)
		twice := EnsureMinimumVisibility(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("floor not idempotent for %q (-once +twice):\n%s", state, diff)
		}
	}
}

func TestBuildTablePanicsOnMissingState(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("buildTable with a missing state did not panic")
		}
	}()
	buildTable(map[types.UserStateType]types.TodayVisibility{
		types.StateSteadyState: {ShowStarterBlock: true},
	})
}

func TestBuildTablePanicsOnUnknownState(t *testing.T) {
	entries := make(map[types.UserStateType]types.TodayVisibility)
	for _, s := range types.AllUserStates {
		entries[s] = types.TodayVisibility{ShowStarterBlock: true}
	}
	entries["mystery"] = types.TodayVisibility{}

	defer func() {
		if recover() == nil {
			t.Error("buildTable with an unknown state did not panic")
		}
	}()
	buildTable(entries)
}

func TestResolveUserState(t *testing.T) {
	tests := []struct {
		name    string
		signals types.UserSignals
		want    types.UserStateType
	}{
		{"nothing", types.UserSignals{}, types.StateSteadyState},
		{"streak only", types.UserSignals{ActiveStreak: true}, types.StateSteadyState},
		{"plan incomplete", types.UserSignals{PlanExists: true, HasIncompletePlanItems: true}, types.StatePlanExistsIncomplete},
		{"plan complete", types.UserSignals{PlanExists: true}, types.StatePlanComplete},
		{"gap beats plan", types.UserSignals{PlanExists: true, HasIncompletePlanItems: true, ReturningAfterGap: true}, types.StateReturningAfterGap},
		{"first day beats gap", types.UserSignals{FirstDay: true, ReturningAfterGap: true}, types.StateFirstDay},
		{"focus beats all", types.UserSignals{FocusActive: true, FirstDay: true, PlanExists: true}, types.StateFocusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveUserState(tt.signals); got != tt.want {
				t.Errorf("ResolveUserState(%+v) = %q, want %q", tt.signals, got, tt.want)
			}
		})
	}
}

func TestReturningAfterGapCollapses(t *testing.T) {
	flags := GetTodayVisibility(types.StateReturningAfterGap)
	if !flags.ForceDailyPlanCollapsed || !flags.ForceExploreCollapsed {
		t.Errorf("returning after gap = %+v, want both sections collapsed", flags)
	}
}

func TestOverlays(t *testing.T) {
	base := GetTodayVisibility(types.StateSteadyState)

	hidden := types.DefaultPersonalization()
	hidden.GamificationVisible = false
	if got := ApplyPersonalization(base, hidden); got.ShowRewards {
		t.Error("ApplyPersonalization kept rewards for a user who hid gamification")
	}
	if got := ApplyPersonalization(base, types.DefaultPersonalization()); !got.ShowRewards {
		t.Error("ApplyPersonalization hid rewards for a default user")
	}

	source := "inactivity_gap"
	got := ApplySoftLanding(base, types.SoftLandingState{Active: true, Source: &source})
	if !got.ForceDailyPlanCollapsed || !got.ForceExploreCollapsed {
		t.Errorf("ApplySoftLanding(active) = %+v, want collapsed sections", got)
	}
	if got := ApplySoftLanding(base, types.SoftLandingState{}); got != base {
		t.Errorf("ApplySoftLanding(inactive) changed flags: %+v", got)
	}
}
