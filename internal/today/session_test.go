package today

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jvetere1999/passion-os-sub013/internal/behavior"
	"github.com/jvetere1999/passion-os-sub013/internal/session"
	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

func newSession(t *testing.T) *Session {
	t.Helper()
	mem, err := session.NewMemory(0)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Session{
		Composer:    &Composer{Logger: logger},
		Store:       behavior.NewStore(mem, logger),
		SoftLanding: behavior.DefaultSoftLanding(),
	}
}

func TestSessionSoftLandingLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	view := s.Compose(ctx, Input{PlanJSON: []byte(planJSON)}, start)
	if view.SoftLanding.Active {
		t.Fatal("first visit activated soft landing")
	}

	// Back after three days, sitting on the page the resolver points at.
	back := start.Add(72 * time.Hour)
	view = s.Compose(ctx, Input{PlanJSON: []byte(planJSON), CurrentRoute: "/quests"}, back)
	if !view.SoftLanding.Active || view.SoftLanding.SourceOr("") != behavior.SourceInactivityGap {
		t.Fatalf("SoftLanding = %+v, want active from inactivity_gap", view.SoftLanding)
	}
	if view.Action.Reason != types.ReasonNoop {
		t.Fatalf("Action = %+v, want noop", view.Action)
	}

	// Two more noops reach the streak of three.
	view = s.Compose(ctx, Input{PlanJSON: []byte(planJSON), CurrentRoute: "/quests"}, back.Add(time.Minute))
	if !view.SoftLanding.Active || !view.Visibility.ForceDailyPlanCollapsed {
		t.Fatalf("second noop: SoftLanding = %+v, Visibility = %+v", view.SoftLanding, view.Visibility)
	}
	view = s.Compose(ctx, Input{PlanJSON: []byte(planJSON), CurrentRoute: "/quests"}, back.Add(2*time.Minute))
	if st := s.Store.Load(ctx); st.SoftLanding.Active {
		t.Errorf("soft landing still active after noop streak: %+v", st.SoftLanding)
	}
	if view.SoftLanding.Active || view.Visibility.ForceDailyPlanCollapsed {
		t.Errorf("view still in soft landing after the streak cleared it: %+v %+v", view.SoftLanding, view.Visibility)
	}
}

func TestSessionUsesPersistedMomentum(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	s.Store.SaveMomentum(ctx, types.MomentumState{Shown: true})

	view := s.Compose(ctx, Input{Momentum: types.MomentumState{Dismissed: true}}, time.Now())
	if !view.ShowMomentum {
		t.Error("persisted momentum state was not used")
	}
}
