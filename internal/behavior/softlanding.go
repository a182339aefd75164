package behavior

import (
	"time"

	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

// Soft landing source tags.
const (
	SourceInactivityGap  = "inactivity_gap"
	SourceOnboardingSkip = "onboarding_skip"
)

const (
	DefaultGapThreshold    = 48 * time.Hour
	DefaultNoopClearStreak = 3
)

// SoftLandingEvent is an input to the soft landing state machine.
type SoftLandingEvent interface {
	softLandingEvent()
}

// GapObserved reports the time since the previous visit.
type GapObserved struct {
	Gap time.Duration
}

// OnboardingSkipped reports that the user skipped onboarding.
type OnboardingSkipped struct{}

// PrimaryAction reports that the user took any primary action.
type PrimaryAction struct{}

// ResolverOutcome reports one resolution result as seen by the caller.
type ResolverOutcome struct {
	Noop bool
}

// Dismiss is an explicit dismissal of reduced mode.
type Dismiss struct{}

func (GapObserved) softLandingEvent()       {}
func (OnboardingSkipped) softLandingEvent() {}
func (PrimaryAction) softLandingEvent()     {}
func (ResolverOutcome) softLandingEvent()   {}
func (Dismiss) softLandingEvent()           {}

// SoftLanding holds the thresholds of the soft landing state machine.
type SoftLanding struct {
	// GapThreshold is the inactivity after which soft landing activates.
	// Only gaps strictly longer than it count.
	GapThreshold time.Duration
	// NoopClearStreak is the number of consecutive resolver noops that
	// signal re-engagement and clear soft landing.
	NoopClearStreak int
}

// DefaultSoftLanding returns the 48h / 3 noop configuration.
func DefaultSoftLanding() SoftLanding {
	return SoftLanding{GapThreshold: DefaultGapThreshold, NoopClearStreak: DefaultNoopClearStreak}
}

// Apply advances the soft landing state. Unknown events leave it unchanged.
func (sl SoftLanding) Apply(s types.SoftLandingState, ev SoftLandingEvent) types.SoftLandingState {
	switch e := ev.(type) {
	case GapObserved:
		if !s.Active && sl.GapThreshold > 0 && e.Gap > sl.GapThreshold {
			return activate(SourceInactivityGap)
		}
	case OnboardingSkipped:
		if !s.Active {
			return activate(SourceOnboardingSkip)
		}
	case PrimaryAction, Dismiss:
		return types.SoftLandingState{}
	case ResolverOutcome:
		if !s.Active {
			return s
		}
		if !e.Noop {
			s.NoopStreak = 0
			return s
		}
		s.NoopStreak++
		streak := sl.NoopClearStreak
		if streak < 1 {
			streak = DefaultNoopClearStreak
		}
		if s.NoopStreak >= streak {
			return types.SoftLandingState{}
		}
	}
	return s
}

func activate(source string) types.SoftLandingState {
	return types.SoftLandingState{Active: true, Source: &source}
}

// DetectGap returns the time since lastVisit. A zero lastVisit (first visit)
// or a clock that went backwards yields zero.
func DetectGap(lastVisit, now time.Time) time.Duration {
	if lastVisit.IsZero() || now.Before(lastVisit) {
		return 0
	}
	return now.Sub(lastVisit)
}
