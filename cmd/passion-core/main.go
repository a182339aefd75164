// passion-core resolves the Today dashboard's next action and keeps its data
// fresh.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvetere1999/passion-os-sub013/internal/behavior"
	"github.com/jvetere1999/passion-os-sub013/internal/config"
	"github.com/jvetere1999/passion-os-sub013/internal/mcp"
	"github.com/jvetere1999/passion-os-sub013/internal/resolver"
	"github.com/jvetere1999/passion-os-sub013/internal/safetynet"
	"github.com/jvetere1999/passion-os-sub013/internal/session"
	"github.com/jvetere1999/passion-os-sub013/internal/snapshot"
	"github.com/jvetere1999/passion-os-sub013/internal/visibility"
	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

var (
	version   = "0.1.0"
	logLevel  string
	logFormat string
	sessionID string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "passion-core",
	Short: "Next-action resolution and adaptive sync for the Today dashboard",
	Long: `passion-core decides what the Today dashboard shows and keeps it fresh.

It provides:
- A next-action resolver over the daily plan and personalization
- Visibility flags per user state with a guaranteed primary section
- Session overlays (momentum prompt, soft landing)
- A staleness-gated refresh scheduler driven by lifecycle events
- An MCP server exposing all of the above`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(logLevel, logFormat)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("passion-core %s\n", version)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the next action",
	Long: `Resolve the single primary action from a daily plan and personalization.
Missing or malformed files fall back to the documented defaults.

Examples:
  passion-core resolve --plan plan.json
  passion-core resolve --plan plan.json --personalization prefs.json --route /focus
  passion-core resolve --starter --plan plan.json`,
	Run: func(cmd *cobra.Command, args []string) {
		planPath, _ := cmd.Flags().GetString("plan")
		personalizationPath, _ := cmd.Flags().GetString("personalization")
		route, _ := cmd.Flags().GetString("route")
		starter, _ := cmd.Flags().GetBool("starter")
		candidates, _ := cmd.Flags().GetBool("candidates")
		runResolve(planPath, personalizationPath, route, starter, candidates)
	},
}

var visibilityCmd = &cobra.Command{
	Use:   "visibility",
	Short: "Show section visibility for a user state",
	Long: `Show the Today section flags. The state is taken from --state, or
classified from a signals file.`,
	Run: func(cmd *cobra.Command, args []string) {
		signalsPath, _ := cmd.Flags().GetString("signals")
		state, _ := cmd.Flags().GetString("state")
		runVisibility(signalsPath, state)
	},
}

var todayCmd = &cobra.Command{
	Use:   "today <snapshot-dir>",
	Short: "Compose the Today view from a snapshot directory",
	Long: `Compose the full Today decision from plan.json, personalization.json and
signals.json in a directory, applying and updating this session's overlays.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		route, _ := cmd.Flags().GetString("route")
		justCompleted, _ := cmd.Flags().GetString("just-completed")
		runToday(args[0], route, justCompleted)
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show or clear the session overlays",
	Run: func(cmd *cobra.Command, args []string) {
		clearState, _ := cmd.Flags().GetBool("clear")
		runState(clearState)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server",
	Run: func(cmd *cobra.Command, args []string) {
		stdio, _ := cmd.Flags().GetBool("stdio")
		runServe(stdio)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <snapshot-dir>",
	Short: "Keep the Today view fresh while snapshots change",
	Long: `Run the refresh scheduler over a snapshot directory. Process signals stand
in for page lifecycle events:

  SIGUSR1          focus
  SIGUSR2          hidden
  SIGCONT          visible
  SIGINT/SIGTERM   pagehide, then shut down

Changes to the snapshot files invalidate the last fetch so the next trigger
refreshes.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := watchOptions{dir: args[0]}
		opts.poll, _ = cmd.Flags().GetDuration("poll")
		opts.staleness, _ = cmd.Flags().GetDuration("staleness")
		opts.metricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		opts.pollSet = cmd.Flags().Changed("poll")
		opts.stalenessSet = cmd.Flags().Changed("staleness")
		opts.metricsSet = cmd.Flags().Changed("metrics-addr")
		runWatch(opts)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration",
	Run: func(cmd *cobra.Command, args []string) {
		runConfigInit()
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Run: func(cmd *cobra.Command, args []string) {
		runConfigValidate()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); default from config")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json); default from config")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "cli", "session identifier for persistent storage backends")

	resolveCmd.Flags().String("plan", "", "daily plan JSON file")
	resolveCmd.Flags().String("personalization", "", "personalization JSON file")
	resolveCmd.Flags().String("route", "", "current route, for noop detection")
	resolveCmd.Flags().Bool("starter", false, "resolve the starter action (plan only)")
	resolveCmd.Flags().Bool("candidates", false, "also print the ranked quick picks")

	visibilityCmd.Flags().String("signals", "", "user signals JSON file")
	visibilityCmd.Flags().String("state", "", "user state (overrides --signals)")

	todayCmd.Flags().String("route", "", "current route")
	todayCmd.Flags().String("just-completed", "", "href of the action just completed")

	stateCmd.Flags().Bool("clear", false, "clear the session overlays")

	serveCmd.Flags().Bool("stdio", false, "use stdio transport (for MCP)")

	watchCmd.Flags().Duration("poll", 0, "polling interval (0 disables; default from config)")
	watchCmd.Flags().Duration("staleness", 0, "staleness window (default from config)")
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(visibilityCmd)
	rootCmd.AddCommand(todayCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}

func setupLogging(levelName, format string) {
	var level slog.Level
	switch levelName {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// loadConfig loads the project config from the working directory and applies
// its logging section unless the flags overrode it.
func loadConfig() (string, *config.Config) {
	cwd, _ := os.Getwd()
	cfg, warnings, err := config.Load(cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level, format := logLevel, logFormat
	if level == "" {
		level = cfg.Logging.Level
	}
	if format == "" {
		format = cfg.Logging.Format
	}
	setupLogging(level, format)

	for _, w := range warnings {
		slog.Warn(w)
	}
	return cwd, cfg
}

// openStore opens the configured session storage and wraps it in a behavior
// store. The returned storage must be closed by the caller.
func openStore(ctx context.Context, cfg *config.Config) (session.Storage, *behavior.Store) {
	storage, err := session.Open(ctx, cfg.Storage, sessionID)
	if err != nil {
		slog.Error("failed to open session storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	return storage, behavior.NewStore(storage, slog.Default())
}

func softLandingFromConfig(cfg *config.Config) behavior.SoftLanding {
	return behavior.SoftLanding{
		GapThreshold:    cfg.Behavior.SoftLandingGap,
		NoopClearStreak: cfg.Behavior.NoopClearStreak,
	}
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		slog.Error("failed to encode output", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func readInput(path string) []byte {
	data, err := snapshot.ReadFile(path)
	if err != nil {
		slog.Error("failed to read input", "path", path, "error", err)
		os.Exit(1)
	}
	return data
}

func runResolve(planPath, personalizationPath, route string, starter, withCandidates bool) {
	_, cfg := loadConfig()
	r := resolver.FromConfig(cfg.Resolver)

	plan := safetynet.DecodePlan(readInput(planPath))
	personalization := safetynet.DecodePersonalization(readInput(personalizationPath))

	var action types.ResolvedAction
	if starter {
		action = r.ResolveStarterAction(plan)
	} else {
		action = r.ResolveNextAction(resolver.State{
			Plan:            plan,
			Personalization: &personalization,
			CurrentRoute:    route,
		})
	}

	if !withCandidates {
		printJSON(action)
		return
	}
	printJSON(map[string]interface{}{
		"action":     action,
		"candidates": r.Candidates(&personalization),
	})
}

func runVisibility(signalsPath, state string) {
	loadConfig()

	userState := types.UserStateType(state)
	if userState == "" {
		userState = visibility.ResolveUserState(safetynet.DecodeSignals(readInput(signalsPath)))
	} else if !userState.Valid() {
		slog.Warn("unknown user state, using steady_state flags", "state", state)
	}

	printJSON(map[string]interface{}{
		"state":      userState,
		"visibility": visibility.GetTodayVisibility(userState),
	})
}

func runState(clearState bool) {
	_, cfg := loadConfig()
	ctx := context.Background()

	storage, store := openStore(ctx, cfg)
	defer storage.Close()

	if clearState {
		store.Clear(ctx)
		fmt.Println("Session state cleared")
		return
	}
	printJSON(store.Load(ctx))
}

func runServe(stdio bool) {
	_, cfg := loadConfig()
	slog.Info("starting MCP server", "stdio", stdio)

	if !stdio {
		slog.Error("only the stdio transport is supported; pass --stdio")
		os.Exit(1)
	}

	ctx := context.Background()
	storage, store := openStore(ctx, cfg)
	defer storage.Close()

	srv, err := mcp.New(mcp.Config{
		Resolver:        resolver.FromConfig(cfg.Resolver),
		Store:           store,
		SoftLanding:     softLandingFromConfig(cfg),
		Logger:          slog.Default(),
		MomentumTimeout: cfg.Behavior.MomentumTimeout,
	})
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := srv.ServeStdio(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func runConfigInit() {
	cwd, _ := os.Getwd()
	cfg := config.DefaultConfig()

	if err := config.Save(cwd, cfg); err != nil {
		slog.Error("failed to save config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Created config at %s\n", config.ConfigPath(cwd))
}

func runConfigValidate() {
	cwd, _ := os.Getwd()

	cfg, warnings, err := config.Load(cwd)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	for _, w := range warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	errs := config.Validate(cfg)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Printf("Error: %v\n", e)
		}
		os.Exit(1)
	}

	routes := resolver.FromConfig(cfg.Resolver).Validator().Routes()
	fmt.Printf("[ok] %d known routes: %s\n", len(routes), strings.Join(routes, " "))

	if cfg.Storage.Backend != "memory" {
		ctx := context.Background()
		storage, err := session.Open(ctx, cfg.Storage, session.NewID())
		if err != nil {
			fmt.Printf("[fail] storage (%s): %v\n", cfg.Storage.Backend, err)
			os.Exit(1)
		}
		storage.Close()
		fmt.Printf("[ok] storage (%s)\n", cfg.Storage.Backend)
	}

	fmt.Println("\nConfiguration is valid")
}
