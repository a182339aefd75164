// Package safetynet sanitizes untrusted upstream data before the resolver and
// visibility engine see it. Nothing in this package returns an error: every
// input maps to the value itself or a documented fallback.
package safetynet

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

// DecodePlan decodes a daily plan from collaborator JSON. It accepts either the
// bare plan object or the {"plan": ...} wrapper of the daily-plan route.
// Empty input, null, or anything that is not an object yields nil.
func DecodePlan(raw []byte) *types.DailyPlan {
	obj, ok := decodeObject(raw)
	if !ok {
		return nil
	}
	if inner, wrapped := obj["plan"]; wrapped {
		if _, hasItems := obj["items"]; !hasItems {
			m, ok := inner.(map[string]any)
			if !ok {
				return nil
			}
			obj = m
		}
	}

	plan := &types.DailyPlan{
		ID:   stringField(obj, "id"),
		Date: stringField(obj, "date"),
	}

	rawItems, _ := obj["items"].([]any)
	for _, ri := range rawItems {
		m, ok := ri.(map[string]any)
		if !ok {
			continue
		}
		item, ok := decodeItem(m)
		if !ok {
			continue
		}
		plan.Items = append(plan.Items, item)
	}
	recount(plan)
	return plan
}

// decodeItem converts one raw item. Items without a non-empty string id and
// actionUrl are rejected.
func decodeItem(m map[string]any) (types.PlanItem, bool) {
	id, idOK := m["id"].(string)
	url, urlOK := m["actionUrl"].(string)
	if !idOK || !urlOK || strings.TrimSpace(id) == "" || strings.TrimSpace(url) == "" {
		return types.PlanItem{}, false
	}
	completed, _ := m["completed"].(bool)
	return types.PlanItem{
		ID:        id,
		Type:      types.ItemType(stringField(m, "type")),
		Title:     stringField(m, "title"),
		ActionURL: url,
		Completed: completed,
		Priority:  priorityField(m["priority"]),
	}, true
}

// priorityField returns the numeric priority or LowestPriority when the value
// is missing, non-numeric, or not finite.
func priorityField(v any) int {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return types.LowestPriority
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	if f < math.MinInt32 {
		return math.MinInt32
	}
	return int(f)
}

// DecodePersonalization decodes the personalization snapshot. Absent or
// malformed input yields DefaultPersonalization; malformed fields fall back
// individually.
func DecodePersonalization(raw []byte) types.UserPersonalization {
	p := types.DefaultPersonalization()
	obj, ok := decodeObject(raw)
	if !ok {
		return p
	}

	if list, ok := obj["interests"].([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok && s != "" {
				p.Interests = append(p.Interests, s)
			}
		}
	}
	if weights, ok := obj["moduleWeights"].(map[string]any); ok {
		for key, v := range weights {
			w, ok := v.(float64)
			if !ok || math.IsNaN(w) || math.IsInf(w, 0) || w < 0 || key == "" {
				continue
			}
			p.ModuleWeights[key] = w
		}
	}
	if s, ok := obj["nudgeIntensity"].(string); ok && s != "" {
		p.NudgeIntensity = types.NudgeIntensity(s)
	}
	if f, ok := obj["focusDuration"].(float64); ok && f > 0 && f <= 24*60 {
		p.FocusDuration = int(f)
	}
	if b, ok := obj["gamificationVisible"].(bool); ok {
		p.GamificationVisible = b
	}
	if b, ok := obj["onboardingActive"].(bool); ok {
		p.OnboardingActive = b
	}
	if s, ok := obj["onboardingRoute"].(string); ok {
		p.OnboardingRoute = strings.TrimSpace(s)
	}
	return p
}

// DecodeSignals decodes the user state signals; non-bool fields read as false.
func DecodeSignals(raw []byte) types.UserSignals {
	obj, ok := decodeObject(raw)
	if !ok {
		return types.UserSignals{}
	}
	return types.UserSignals{
		PlanExists:             boolField(obj, "planExists"),
		HasIncompletePlanItems: boolField(obj, "hasIncompletePlanItems"),
		ReturningAfterGap:      boolField(obj, "returningAfterGap"),
		FirstDay:               boolField(obj, "firstDay"),
		FocusActive:            boolField(obj, "focusActive"),
		ActiveStreak:           boolField(obj, "activeStreak"),
	}
}

// SanitizeVisibility converts a raw flag record into TodayVisibility.
// Non-bool values read as false.
func SanitizeVisibility(raw map[string]any) types.TodayVisibility {
	return types.TodayVisibility{
		ShowStarterBlock:        boolField(raw, "showStarterBlock"),
		ShowDailyPlan:           boolField(raw, "showDailyPlan"),
		ShowExplore:             boolField(raw, "showExplore"),
		HideExplore:             boolField(raw, "hideExplore"),
		ShowRewards:             boolField(raw, "showRewards"),
		ForceDailyPlanCollapsed: boolField(raw, "forceDailyPlanCollapsed"),
		ForceExploreCollapsed:   boolField(raw, "forceExploreCollapsed"),
	}
}

func decodeObject(raw []byte) (map[string]any, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func recount(plan *types.DailyPlan) {
	plan.TotalCount = len(plan.Items)
	plan.CompletedCount = 0
	for _, item := range plan.Items {
		if item.Completed {
			plan.CompletedCount++
		}
	}
}
