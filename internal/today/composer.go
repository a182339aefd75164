// Package today composes the Today dashboard decision from raw collaborator
// snapshots: sanitize, classify, resolve, then layer the session overlays.
package today

import (
	"log/slog"

	"github.com/jvetere1999/passion-os-sub013/internal/behavior"
	"github.com/jvetere1999/passion-os-sub013/internal/resolver"
	"github.com/jvetere1999/passion-os-sub013/internal/safetynet"
	"github.com/jvetere1999/passion-os-sub013/internal/visibility"
	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

// Input is one composition request.
type Input struct {
	PlanJSON            []byte
	PersonalizationJSON []byte
	SignalsJSON         []byte

	CurrentRoute string

	Momentum    types.MomentumState
	SoftLanding types.SoftLandingState

	// JustCompletedHref is the href of the action the user finished a moment
	// ago, if any.
	JustCompletedHref string
}

// View is the composed dashboard decision. SuppressPrimary hides the rank-1
// slot because its action was just completed.
type View struct {
	UserState       types.UserStateType    `json:"userState"`
	Visibility      types.TodayVisibility  `json:"visibility"`
	Action          types.ResolvedAction   `json:"action"`
	Candidates      []types.ResolvedAction `json:"candidates"`
	SuppressPrimary bool                   `json:"suppressPrimary"`
	ShowMomentum    bool                   `json:"showMomentum"`
	SoftLanding     types.SoftLandingState `json:"softLanding"`

	// baseVisibility is Visibility before the soft landing overlay.
	baseVisibility types.TodayVisibility
}

// withSoftLanding re-layers the soft landing overlay for s.
func (v View) withSoftLanding(s types.SoftLandingState) View {
	v.SoftLanding = s
	v.Visibility = visibility.ApplySoftLanding(v.baseVisibility, s)
	return v
}

// ResolutionRecorder receives every resolved action, e.g. a metrics observer.
type ResolutionRecorder interface {
	RecordResolution(types.ResolvedAction)
}

// Composer composes Today views. The zero value uses the default resolver.
type Composer struct {
	Resolver *resolver.Resolver
	Logger   *slog.Logger
	Recorder ResolutionRecorder
}

// Compose never fails: malformed snapshots degrade to documented defaults.
func (c *Composer) Compose(in Input) View {
	r := c.Resolver
	if r == nil {
		r = resolver.Default()
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	plan := safetynet.DecodePlan(in.PlanJSON)
	personalization := safetynet.DecodePersonalization(in.PersonalizationJSON)
	signals := safetynet.DecodeSignals(in.SignalsJSON)

	// Signals the plan itself can answer are filled in so callers may omit
	// them.
	if plan.HasItems() {
		signals.PlanExists = true
		if plan.CompletedCount < plan.TotalCount {
			signals.HasIncompletePlanItems = true
		}
	}

	state := visibility.ResolveUserState(signals)
	flags := visibility.GetTodayVisibility(state)
	flags = visibility.ApplyPersonalization(flags, personalization)

	action := r.ResolveNextAction(resolver.State{
		Plan:            plan,
		Personalization: &personalization,
		CurrentRoute:    in.CurrentRoute,
	})
	if c.Recorder != nil {
		c.Recorder.RecordResolution(action)
	}

	view := View{
		UserState:       state,
		Action:          action,
		Candidates:      r.Candidates(&personalization),
		SuppressPrimary: in.JustCompletedHref != "" && in.JustCompletedHref == action.Href,
		ShowMomentum:    behavior.MomentumVisible(in.Momentum),
		baseVisibility:  flags,
	}.withSoftLanding(in.SoftLanding)

	logger.Debug("composed today view",
		"state", state,
		"href", action.Href,
		"reason", action.Reason,
		"suppress_primary", view.SuppressPrimary,
	)
	return view
}
