// Package types contains the data model shared by the next-action and sync core.
package types

import "time"

// LowestPriority is the rank given to plan items whose priority is missing or
// malformed, so they sink to the back of the queue.
const LowestPriority = 999

// ItemType is the kind of work a plan item points at.
type ItemType string

const (
	ItemTypeFocus    ItemType = "focus"
	ItemTypeQuest    ItemType = "quest"
	ItemTypeWorkout  ItemType = "workout"
	ItemTypeLearning ItemType = "learning"
	ItemTypeHabit    ItemType = "habit"
)

// PlanItem is a single entry of the daily plan. Owned by the daily-plan
// collaborator and read-only here.
type PlanItem struct {
	ID        string   `json:"id"`
	Type      ItemType `json:"type"`
	Title     string   `json:"title"`
	ActionURL string   `json:"actionUrl"`
	Completed bool     `json:"completed"`
	Priority  int      `json:"priority"`
}

// DailyPlan is the plan for one day. A missing plan is a nil *DailyPlan.
type DailyPlan struct {
	ID             string     `json:"id"`
	Date           string     `json:"date"` // YYYY-MM-DD
	Items          []PlanItem `json:"items"`
	CompletedCount int        `json:"completedCount"`
	TotalCount     int        `json:"totalCount"`
}

// HasItems reports whether the plan exists and carries at least one item.
// A plan with zero items is treated the same as no plan.
func (p *DailyPlan) HasItems() bool {
	return p != nil && len(p.Items) > 0
}

// NudgeIntensity controls how insistent nudges are.
type NudgeIntensity string

const (
	NudgeGentle    NudgeIntensity = "gentle"
	NudgeStandard  NudgeIntensity = "standard"
	NudgeEnergetic NudgeIntensity = "energetic"
)

// UserPersonalization is a read-only snapshot derived from settings and
// interest tables.
type UserPersonalization struct {
	Interests           []string           `json:"interests"`
	ModuleWeights       map[string]float64 `json:"moduleWeights"`
	NudgeIntensity      NudgeIntensity     `json:"nudgeIntensity"`
	FocusDuration       int                `json:"focusDuration"` // minutes
	GamificationVisible bool               `json:"gamificationVisible"`
	OnboardingActive    bool               `json:"onboardingActive"`
	OnboardingRoute     string             `json:"onboardingRoute,omitempty"`
}

// DefaultPersonalization returns the documented defaults used whenever the
// personalization collaborator returns nothing usable.
func DefaultPersonalization() UserPersonalization {
	return UserPersonalization{
		Interests:           []string{},
		ModuleWeights:       map[string]float64{},
		NudgeIntensity:      NudgeStandard,
		FocusDuration:       25,
		GamificationVisible: true,
	}
}

// RefreshContext is the per-registration staleness bookkeeping of the sync
// scheduler.
type RefreshContext struct {
	LastFetchTime time.Time `json:"lastFetchTime"`
	StalenessMs   int64     `json:"stalenessMs"`
	PersistedKey  string    `json:"persistedKey,omitempty"`
}
