package today

import (
	"context"
	"time"

	"github.com/jvetere1999/passion-os-sub013/internal/behavior"
)

// Session composes views against the overlays persisted for one session.
type Session struct {
	Composer    *Composer
	Store       *behavior.Store
	SoftLanding behavior.SoftLanding
}

// Compose records the visit at now, activates soft landing after a long gap,
// composes the view with the persisted overlays and counts the resolver
// outcome toward clearing soft landing. A soft landing cleared by this
// outcome is already lifted in the returned view. The Momentum and
// SoftLanding fields of in are replaced by the persisted state.
func (s *Session) Compose(ctx context.Context, in Input, now time.Time) View {
	st := s.Store.Load(ctx)
	gap := s.Store.Touch(ctx, now)
	st.SoftLanding = s.SoftLanding.Apply(st.SoftLanding, behavior.GapObserved{Gap: gap})

	in.Momentum = st.Momentum
	in.SoftLanding = st.SoftLanding
	view := s.Composer.Compose(in)

	st.SoftLanding = s.SoftLanding.Apply(st.SoftLanding, behavior.ResolverOutcome{Noop: view.Action.IsNoop()})
	s.Store.SaveSoftLanding(ctx, st.SoftLanding)
	if view.SoftLanding.Active && !st.SoftLanding.Active {
		view = view.withSoftLanding(st.SoftLanding)
	}
	return view
}
