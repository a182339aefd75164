package behavior

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jvetere1999/passion-os-sub013/internal/session"
	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

func TestMomentumShownOnce(t *testing.T) {
	var s types.MomentumState
	if !MomentumEligible(s) {
		t.Fatal("fresh state should be eligible")
	}

	s = ApplyMomentum(s, MomentumCompletion)
	if !MomentumVisible(s) {
		t.Fatalf("after completion: %+v, want visible", s)
	}

	s = ApplyMomentum(s, MomentumTimeout)
	if MomentumVisible(s) || MomentumEligible(s) {
		t.Fatalf("after timeout: %+v, want hidden and not eligible", s)
	}

	again := ApplyMomentum(s, MomentumCompletion)
	if again != s {
		t.Errorf("completion re-armed momentum: %+v", again)
	}
}

func TestMomentumDismissBeforeShown(t *testing.T) {
	s := ApplyMomentum(types.MomentumState{}, MomentumDismiss)
	s = ApplyMomentum(s, MomentumCompletion)
	if s.Shown {
		t.Errorf("completion after dismissal showed momentum: %+v", s)
	}
}

func TestParseMomentumEvent(t *testing.T) {
	for _, ev := range []MomentumEvent{MomentumCompletion, MomentumDismiss, MomentumTimeout} {
		got, ok := ParseMomentumEvent(ev.String())
		if !ok || got != ev {
			t.Errorf("ParseMomentumEvent(%q) = %v, %v", ev.String(), got, ok)
		}
	}
	if _, ok := ParseMomentumEvent("celebrate"); ok {
		t.Error("ParseMomentumEvent accepted an unknown name")
	}
}

func TestSoftLandingGapThreshold(t *testing.T) {
	sl := DefaultSoftLanding()

	tests := []struct {
		gap  time.Duration
		want bool
	}{
		{0, false},
		{47 * time.Hour, false},
		{48 * time.Hour, false},
		{48*time.Hour + time.Millisecond, true},
		{10 * 24 * time.Hour, true},
	}
	for _, tt := range tests {
		got := sl.Apply(types.SoftLandingState{}, GapObserved{Gap: tt.gap})
		if got.Active != tt.want {
			t.Errorf("gap %s: active = %v, want %v", tt.gap, got.Active, tt.want)
		}
		if got.Active && got.SourceOr("") != SourceInactivityGap {
			t.Errorf("gap %s: source = %q", tt.gap, got.SourceOr(""))
		}
	}
}

func TestSoftLandingKeepsOriginalSource(t *testing.T) {
	sl := DefaultSoftLanding()
	s := sl.Apply(types.SoftLandingState{}, OnboardingSkipped{})
	s = sl.Apply(s, GapObserved{Gap: 100 * time.Hour})
	if s.SourceOr("") != SourceOnboardingSkip {
		t.Errorf("source = %q, want %q", s.SourceOr(""), SourceOnboardingSkip)
	}
}

func TestSoftLandingClears(t *testing.T) {
	sl := DefaultSoftLanding()
	active := sl.Apply(types.SoftLandingState{}, GapObserved{Gap: 72 * time.Hour})

	for _, ev := range []SoftLandingEvent{PrimaryAction{}, Dismiss{}} {
		if got := sl.Apply(active, ev); got.Active || got.Source != nil {
			t.Errorf("%T: got %+v, want cleared", ev, got)
		}
	}
}

func TestSoftLandingNoopStreak(t *testing.T) {
	sl := DefaultSoftLanding()
	s := sl.Apply(types.SoftLandingState{}, GapObserved{Gap: 72 * time.Hour})

	s = sl.Apply(s, ResolverOutcome{Noop: true})
	s = sl.Apply(s, ResolverOutcome{Noop: true})
	s = sl.Apply(s, ResolverOutcome{Noop: false})
	if !s.Active || s.NoopStreak != 0 {
		t.Fatalf("after broken streak: %+v, want active with streak 0", s)
	}

	for i := 0; i < 2; i++ {
		s = sl.Apply(s, ResolverOutcome{Noop: true})
	}
	if !s.Active {
		t.Fatal("cleared before the third noop")
	}
	s = sl.Apply(s, ResolverOutcome{Noop: true})
	if diff := cmp.Diff(types.SoftLandingState{}, s); diff != "" {
		t.Errorf("after three noops (-want +got):\n%s", diff)
	}
}

func TestSoftLandingInactiveIgnoresOutcomes(t *testing.T) {
	sl := DefaultSoftLanding()
	s := sl.Apply(types.SoftLandingState{}, ResolverOutcome{Noop: true})
	if s.NoopStreak != 0 || s.Active {
		t.Errorf("inactive state changed: %+v", s)
	}
}

func TestDetectGap(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	if got := DetectGap(time.Time{}, now); got != 0 {
		t.Errorf("first visit gap = %s, want 0", got)
	}
	if got := DetectGap(now.Add(time.Hour), now); got != 0 {
		t.Errorf("future last visit gap = %s, want 0", got)
	}
	if got := DetectGap(now.Add(-50*time.Hour), now); got != 50*time.Hour {
		t.Errorf("gap = %s, want 50h", got)
	}
}

func newStore(t *testing.T) (*Store, session.Storage) {
	t.Helper()
	mem, err := session.NewMemory(16)
	if err != nil {
		t.Fatal(err)
	}
	return NewStore(mem, slog.New(slog.NewTextHandler(io.Discard, nil))), mem
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	if diff := cmp.Diff(State{}, store.Load(ctx)); diff != "" {
		t.Fatalf("empty store (-want +got):\n%s", diff)
	}

	sl := DefaultSoftLanding().Apply(types.SoftLandingState{}, OnboardingSkipped{})
	store.Save(ctx, State{Momentum: types.MomentumState{Shown: true}, SoftLanding: sl})

	got := store.Load(ctx)
	if !got.Momentum.Shown || !got.SoftLanding.Active || got.SoftLanding.SourceOr("") != SourceOnboardingSkip {
		t.Errorf("Load = %+v", got)
	}

	store.Clear(ctx)
	if diff := cmp.Diff(State{}, store.Load(ctx)); diff != "" {
		t.Errorf("after Clear (-want +got):\n%s", diff)
	}
}

func TestStoreTouch(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	t0 := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

	if gap := store.Touch(ctx, t0); gap != 0 {
		t.Errorf("first Touch gap = %s, want 0", gap)
	}
	if gap := store.Touch(ctx, t0.Add(49*time.Hour)); gap != 49*time.Hour {
		t.Errorf("second Touch gap = %s, want 49h", gap)
	}
	if got := store.Load(ctx).LastVisit; !got.Equal(t0.Add(49 * time.Hour)) {
		t.Errorf("LastVisit = %s", got)
	}
}

func TestStoreIgnoresCorruptEntries(t *testing.T) {
	ctx := context.Background()
	store, mem := newStore(t)

	_ = mem.Set(ctx, KeyMomentum, `{"shown": "yes"}`)
	_ = mem.Set(ctx, KeySoftLanding, `not json`)
	_ = mem.Set(ctx, KeyLastVisit, `yesterday`)

	if diff := cmp.Diff(State{}, store.Load(ctx)); diff != "" {
		t.Errorf("corrupt entries (-want +got):\n%s", diff)
	}
}

type failingStorage struct{}

var errDown = errors.New("storage down")

func (failingStorage) Get(context.Context, string) (string, bool, error) { return "", false, errDown }
func (failingStorage) Set(context.Context, string, string) error         { return errDown }
func (failingStorage) Delete(context.Context, string) error              { return errDown }
func (failingStorage) Clear(context.Context) error                       { return errDown }
func (failingStorage) Close() error                                      { return nil }

func TestStoreDegradesOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	store := NewStore(failingStorage{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	store.Save(ctx, State{Momentum: types.MomentumState{Shown: true}})
	store.Clear(ctx)
	if gap := store.Touch(ctx, time.Now()); gap != 0 {
		t.Errorf("Touch gap = %s, want 0", gap)
	}
	if diff := cmp.Diff(State{}, store.Load(ctx)); diff != "" {
		t.Errorf("Load on failing storage (-want +got):\n%s", diff)
	}
}
