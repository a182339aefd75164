// Package mcp exposes the Today decision core as an MCP server.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jvetere1999/passion-os-sub013/internal/behavior"
	"github.com/jvetere1999/passion-os-sub013/internal/resolver"
	"github.com/jvetere1999/passion-os-sub013/internal/safetynet"
	"github.com/jvetere1999/passion-os-sub013/internal/session"
	"github.com/jvetere1999/passion-os-sub013/internal/today"
	"github.com/jvetere1999/passion-os-sub013/internal/visibility"
	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// Server implements the MCP server.
type Server struct {
	mcpServer   *server.MCPServer
	resolver    *resolver.Resolver
	composer    *today.Session
	store       *behavior.Store
	softLanding behavior.SoftLanding
	momentumTTL time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// Config contains server configuration.
type Config struct {
	Resolver *resolver.Resolver
	// Store holds the session overlays. Nil keeps them in process memory.
	Store       *behavior.Store
	SoftLanding behavior.SoftLanding
	Recorder    today.ResolutionRecorder
	Logger      *slog.Logger
	Clock       func() time.Time
	// MomentumTimeout is reported to clients so they can send the timeout
	// event once the prompt has been on screen that long.
	MomentumTimeout time.Duration
}

// New creates a new MCP server.
func New(cfg Config) (*Server, error) {
	s := &Server{
		resolver:    cfg.Resolver,
		store:       cfg.Store,
		softLanding: cfg.SoftLanding,
		momentumTTL: cfg.MomentumTimeout,
		logger:      cfg.Logger,
		now:         cfg.Clock,
	}
	if s.resolver == nil {
		s.resolver = resolver.Default()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.softLanding == (behavior.SoftLanding{}) {
		s.softLanding = behavior.DefaultSoftLanding()
	}
	if s.store == nil {
		mem, err := session.NewMemory(0)
		if err != nil {
			return nil, err
		}
		s.store = behavior.NewStore(mem, s.logger)
	}
	s.composer = &today.Session{
		Composer: &today.Composer{
			Resolver: s.resolver,
			Logger:   s.logger,
			Recorder: cfg.Recorder,
		},
		Store:       s.store,
		SoftLanding: s.softLanding,
	}

	mcpServer := server.NewMCPServer(
		"passion-core",
		Version,
		server.WithLogging(),
	)

	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s, nil
}

// ServeStdio starts the server on stdio.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// registerTools registers all MCP tools.
func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.NewTool("resolve_next_action",
		mcp.WithDescription(`Resolve the single primary action for the Today dashboard.

Cascade: onboarding override, first incomplete plan item by priority, personalized module chain, default chain (Focus, Quests, Learn, spark). The result always points at a known route.`),
		mcp.WithString("plan", mcp.Description("Daily plan JSON as returned by the planner (raw or wrapped in {\"plan\": ...})")),
		mcp.WithString("personalization", mcp.Description("Personalization JSON (moduleWeights, onboardingActive, ...)")),
		mcp.WithString("current_route", mcp.Description("Route the user is on, used for noop detection")),
	), s.handleResolveNextAction)

	mcpServer.AddTool(mcp.NewTool("resolve_starter_action",
		mcp.WithDescription("Resolve the starter block action from the plan alone, without personalization or noop detection"),
		mcp.WithString("plan", mcp.Description("Daily plan JSON")),
	), s.handleResolveStarterAction)

	mcpServer.AddTool(mcp.NewTool("resolve_user_state",
		mcp.WithDescription("Classify the user from raw signals: focus_active, first_day, returning_after_gap, plan_exists_incomplete, plan_complete or steady_state"),
		mcp.WithString("signals", mcp.Description("Signals JSON (planExists, hasIncompletePlanItems, returningAfterGap, firstDay, focusActive, activeStreak)")),
	), s.handleResolveUserState)

	mcpServer.AddTool(mcp.NewTool("get_today_visibility",
		mcp.WithDescription("Section visibility flags for a user state. At least one primary section is always visible."),
		mcp.WithString("state", mcp.Description("User state; unknown values are treated as steady_state")),
		mcp.WithString("signals", mcp.Description("Signals JSON, used when state is omitted")),
	), s.handleGetTodayVisibility)

	mcpServer.AddTool(mcp.NewTool("compose_today",
		mcp.WithDescription(`Compose the full Today decision: user state, visibility, primary action, quick picks and session overlays.

Records the visit, activates soft landing after a long gap and counts resolver noops.`),
		mcp.WithString("plan", mcp.Description("Daily plan JSON")),
		mcp.WithString("personalization", mcp.Description("Personalization JSON")),
		mcp.WithString("signals", mcp.Description("Signals JSON")),
		mcp.WithString("current_route", mcp.Description("Route the user is on")),
		mcp.WithString("just_completed", mcp.Description("Href of the action the user just finished, suppresses the primary slot")),
	), s.handleComposeToday)

	mcpServer.AddTool(mcp.NewTool("momentum_event",
		mcp.WithDescription("Advance the session momentum prompt: completion shows it once, dismiss or timeout hides it for the session"),
		mcp.WithString("event", mcp.Required(), mcp.Description("completion|dismiss|timeout")),
	), s.handleMomentumEvent)

	mcpServer.AddTool(mcp.NewTool("soft_landing_event",
		mcp.WithDescription("Advance the session soft landing mode"),
		mcp.WithString("event", mcp.Required(), mcp.Description("gap|onboarding_skip|primary_action|resolved|noop|dismiss")),
		mcp.WithNumber("gap_hours", mcp.Description("Inactivity gap in hours for event=gap")),
	), s.handleSoftLandingEvent)

	mcpServer.AddTool(mcp.NewTool("get_session_state",
		mcp.WithDescription("Show the persisted momentum, soft landing and last visit of this session"),
	), s.handleGetSessionState)

	mcpServer.AddTool(mcp.NewTool("clear_session_state",
		mcp.WithDescription("Forget the session overlays, as when the tab closes"),
	), s.handleClearSessionState)

	s.registerRouterTools(mcpServer)
}

// Tool handlers

func (s *Server) handleResolveNextAction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plan := safetynet.DecodePlan([]byte(req.GetString("plan", "")))
	personalization := safetynet.DecodePersonalization([]byte(req.GetString("personalization", "")))

	action := s.resolver.ResolveNextAction(resolver.State{
		Plan:            plan,
		Personalization: &personalization,
		CurrentRoute:    req.GetString("current_route", ""),
	})
	return jsonResult(action)
}

func (s *Server) handleResolveStarterAction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	plan := safetynet.DecodePlan([]byte(req.GetString("plan", "")))
	return jsonResult(s.resolver.ResolveStarterAction(plan))
}

func (s *Server) handleResolveUserState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	signals := safetynet.DecodeSignals([]byte(req.GetString("signals", "")))
	return jsonResult(map[string]interface{}{
		"state": visibility.ResolveUserState(signals),
	})
}

func (s *Server) handleGetTodayVisibility(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state := types.UserStateType(req.GetString("state", ""))
	if state == "" {
		state = visibility.ResolveUserState(safetynet.DecodeSignals([]byte(req.GetString("signals", ""))))
	}
	flags := visibility.GetTodayVisibility(state)
	return jsonResult(map[string]interface{}{
		"state":          state,
		"visibility":     flags,
		"primaryVisible": visibility.PrimaryVisible(flags),
	})
}

func (s *Server) handleComposeToday(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view := s.composer.Compose(ctx, today.Input{
		PlanJSON:            []byte(req.GetString("plan", "")),
		PersonalizationJSON: []byte(req.GetString("personalization", "")),
		SignalsJSON:         []byte(req.GetString("signals", "")),
		CurrentRoute:        req.GetString("current_route", ""),
		JustCompletedHref:   req.GetString("just_completed", ""),
	}, s.now())
	return jsonResult(view)
}

func (s *Server) handleMomentumEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("event", "")
	ev, ok := behavior.ParseMomentumEvent(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown momentum event: %q (expected completion, dismiss or timeout)", name)), nil
	}

	st := s.store.Load(ctx)
	st.Momentum = behavior.ApplyMomentum(st.Momentum, ev)
	s.store.SaveMomentum(ctx, st.Momentum)

	result := map[string]interface{}{
		"momentum": st.Momentum,
		"visible":  behavior.MomentumVisible(st.Momentum),
	}
	if behavior.MomentumVisible(st.Momentum) && s.momentumTTL > 0 {
		result["timeoutMs"] = s.momentumTTL.Milliseconds()
	}
	return jsonResult(result)
}

func (s *Server) handleSoftLandingEvent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("event", "")
	var ev behavior.SoftLandingEvent
	switch name {
	case "gap":
		hours := req.GetFloat("gap_hours", 0)
		if hours < 0 {
			return mcp.NewToolResultError("gap_hours must not be negative"), nil
		}
		ev = behavior.GapObserved{Gap: time.Duration(hours * float64(time.Hour))}
	case "onboarding_skip":
		ev = behavior.OnboardingSkipped{}
	case "primary_action":
		ev = behavior.PrimaryAction{}
	case "resolved":
		ev = behavior.ResolverOutcome{}
	case "noop":
		ev = behavior.ResolverOutcome{Noop: true}
	case "dismiss":
		ev = behavior.Dismiss{}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown soft landing event: %q", name)), nil
	}

	st := s.store.Load(ctx)
	st.SoftLanding = s.softLanding.Apply(st.SoftLanding, ev)
	s.store.SaveSoftLanding(ctx, st.SoftLanding)

	return jsonResult(st.SoftLanding)
}

func (s *Server) handleGetSessionState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.store.Load(ctx))
}

func (s *Server) handleClearSessionState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.store.Clear(ctx)
	s.logger.Info("session state cleared")
	return mcp.NewToolResultText(`{"cleared": true}`), nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
