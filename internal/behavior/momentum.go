// Package behavior holds the session-scoped overlays layered on top of the
// resolver's output: momentum feedback and soft landing.
//
// Transitions are pure (state, event) -> state functions. Persistence is the
// caller's job; Store is the one this module ships for session.Storage.
package behavior

import "github.com/jvetere1999/passion-os-sub013/pkg/types"

// MomentumEvent is an input to the momentum state machine.
type MomentumEvent int

const (
	// MomentumCompletion is a qualifying completion; shows the prompt once.
	MomentumCompletion MomentumEvent = iota
	// MomentumDismiss is an explicit dismissal by the user.
	MomentumDismiss
	// MomentumTimeout is the automatic dismissal after the display delay.
	MomentumTimeout
)

var momentumEventNames = map[MomentumEvent]string{
	MomentumCompletion: "completion",
	MomentumDismiss:    "dismiss",
	MomentumTimeout:    "timeout",
}

func (e MomentumEvent) String() string {
	if s, ok := momentumEventNames[e]; ok {
		return s
	}
	return "unknown"
}

// ParseMomentumEvent maps an event name back to its value.
func ParseMomentumEvent(s string) (MomentumEvent, bool) {
	for e, name := range momentumEventNames {
		if name == s {
			return e, true
		}
	}
	return 0, false
}

// ApplyMomentum advances the momentum state. Flags only ever flip to true, so
// nothing re-arms the prompt within a session.
func ApplyMomentum(s types.MomentumState, ev MomentumEvent) types.MomentumState {
	switch ev {
	case MomentumCompletion:
		if MomentumEligible(s) {
			s.Shown = true
		}
	case MomentumDismiss, MomentumTimeout:
		s.Dismissed = true
	}
	return s
}

// MomentumEligible reports whether a completion may still show the prompt.
func MomentumEligible(s types.MomentumState) bool {
	return !s.Shown && !s.Dismissed
}

// MomentumVisible reports whether the prompt is currently on screen.
func MomentumVisible(s types.MomentumState) bool {
	return s.Shown && !s.Dismissed
}
