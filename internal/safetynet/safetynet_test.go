package safetynet

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

func TestDecodePlanDropsInvalidItems(t *testing.T) {
	raw := []byte(`{
		"id": "plan-1",
		"date": "2026-10-16",
		"items": [
			{"id": "a", "type": "focus", "title": "Focus", "actionUrl": "/focus", "completed": false, "priority": 2},
			{"id": "", "type": "quest", "title": "No id", "actionUrl": "/quests"},
			{"id": "c", "type": "habit", "title": "No url", "actionUrl": ""},
			{"id": "d", "type": "habit", "title": "Numeric url", "actionUrl": 42},
			"not an object",
			{"id": "e", "type": "learning", "title": "Bad priority", "actionUrl": "/learn", "priority": "high"},
			{"id": "f", "type": "workout", "title": "Done", "actionUrl": "/exercise", "completed": true, "priority": 1}
		],
		"completedCount": 17,
		"totalCount": 99
	}`)

	got := DecodePlan(raw)
	want := &types.DailyPlan{
		ID:   "plan-1",
		Date: "2026-10-16",
		Items: []types.PlanItem{
			{ID: "a", Type: types.ItemTypeFocus, Title: "Focus", ActionURL: "/focus", Priority: 2},
			{ID: "e", Type: types.ItemTypeLearning, Title: "Bad priority", ActionURL: "/learn", Priority: types.LowestPriority},
			{ID: "f", Type: types.ItemTypeWorkout, Title: "Done", ActionURL: "/exercise", Completed: true, Priority: 1},
		},
		CompletedCount: 1,
		TotalCount:     3,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodePlan mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodePlanMalformedInputs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"null", "null"},
		{"array", "[1,2,3]"},
		{"garbage", "{not json"},
		{"wrapped null", `{"plan": null}`},
		{"wrapped string", `{"plan": "nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodePlan([]byte(tt.raw)); got != nil {
				t.Errorf("DecodePlan(%q) = %+v, want nil", tt.raw, got)
			}
		})
	}
}

func TestDecodePlanWrapper(t *testing.T) {
	got := DecodePlan([]byte(`{"plan": {"id": "p", "items": [{"id": "x", "actionUrl": "/focus"}]}}`))
	if got == nil || len(got.Items) != 1 {
		t.Fatalf("DecodePlan(wrapper) = %+v, want one item", got)
	}
	if got.Items[0].Priority != types.LowestPriority {
		t.Errorf("missing priority = %d, want %d", got.Items[0].Priority, types.LowestPriority)
	}
}

func TestDecodePersonalizationDefaults(t *testing.T) {
	for _, raw := range []string{"", "null", "[]", "{bad"} {
		got := DecodePersonalization([]byte(raw))
		if diff := cmp.Diff(types.DefaultPersonalization(), got); diff != "" {
			t.Errorf("DecodePersonalization(%q) mismatch (-want +got):\n%s", raw, diff)
		}
	}
}

func TestDecodePersonalizationFields(t *testing.T) {
	raw := []byte(`{
		"interests": ["music", 3, ""],
		"moduleWeights": {"learn": 5, "focus": 1, "quests": -2, "habits": "lots"},
		"nudgeIntensity": "gentle",
		"focusDuration": 50,
		"gamificationVisible": false,
		"onboardingActive": true,
		"onboardingRoute": " /onboarding/step-2 "
	}`)

	got := DecodePersonalization(raw)
	want := types.UserPersonalization{
		Interests:           []string{"music"},
		ModuleWeights:       map[string]float64{"learn": 5, "focus": 1},
		NudgeIntensity:      types.NudgeGentle,
		FocusDuration:       50,
		GamificationVisible: false,
		OnboardingActive:    true,
		OnboardingRoute:     "/onboarding/step-2",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodePersonalization mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSignals(t *testing.T) {
	got := DecodeSignals([]byte(`{"planExists": true, "firstDay": "yes", "focusActive": 1}`))
	want := types.UserSignals{PlanExists: true}
	if got != want {
		t.Errorf("DecodeSignals = %+v, want %+v", got, want)
	}
}

func TestSanitizeVisibility(t *testing.T) {
	got := SanitizeVisibility(map[string]any{
		"showDailyPlan": true,
		"showExplore":   "true",
		"showRewards":   nil,
	})
	want := types.TodayVisibility{ShowDailyPlan: true}
	if got != want {
		t.Errorf("SanitizeVisibility = %+v, want %+v", got, want)
	}
}

func TestSanitizePlan(t *testing.T) {
	valid := &types.DailyPlan{Items: []types.PlanItem{{ID: "a", ActionURL: "/focus"}}, TotalCount: 1}
	if got := SanitizePlan(valid); got != valid {
		t.Error("SanitizePlan should return a valid plan unchanged")
	}

	dirty := &types.DailyPlan{Items: []types.PlanItem{
		{ID: "a", ActionURL: "/focus", Completed: true},
		{ID: "b", ActionURL: " "},
	}}
	got := SanitizePlan(dirty)
	if len(got.Items) != 1 || got.TotalCount != 1 || got.CompletedCount != 1 {
		t.Errorf("SanitizePlan = %+v, want one completed item", got)
	}
	if len(dirty.Items) != 2 {
		t.Error("SanitizePlan mutated its input")
	}
	if SanitizePlan(nil) != nil {
		t.Error("SanitizePlan(nil) should be nil")
	}
}

func TestValidatorKnownRoutes(t *testing.T) {
	v := NewValidator([]string{"/focus", "/quests/", "/onboarding"})

	tests := []struct {
		href string
		want bool
	}{
		{"/focus", true},
		{"/focus?mode=deep", true},
		{"/quests", true},
		{"/quests/123", true},
		{"/onboarding/step-abc", true},
		{"/today", true},
		{"/today#plan", true},
		{"/admin", false},
		{"/focusing", false},
		{"focus", false},
		{"https://evil.example/focus", false},
		{"//evil.example", false},
		{"/focus/../admin", false},
		{"", false},
		{"/", false},
	}

	for _, tt := range tests {
		if got := v.IsKnownRoute(tt.href); got != tt.want {
			t.Errorf("IsKnownRoute(%q) = %v, want %v", tt.href, got, tt.want)
		}
	}
}

func TestValidateActionSubstitutesFallback(t *testing.T) {
	v := NewValidator([]string{"/focus"})

	ok := types.ResolvedAction{Href: "/focus", Label: "Start Focus", Reason: types.ReasonNoPlanFallback, Type: "focus"}
	if got := v.ValidateAction(ok); got != ok {
		t.Errorf("ValidateAction(valid) = %+v, want unchanged", got)
	}

	bad := types.ResolvedAction{Href: "/nowhere", Label: "Broken", Reason: types.ReasonPlanIncompleteItem}
	if got := v.ValidateAction(bad); got != FallbackAction {
		t.Errorf("ValidateAction(invalid) = %+v, want FallbackAction", got)
	}
}
