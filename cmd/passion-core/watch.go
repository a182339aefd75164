package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jvetere1999/passion-os-sub013/internal/metrics"
	"github.com/jvetere1999/passion-os-sub013/internal/refresh"
	"github.com/jvetere1999/passion-os-sub013/internal/resolver"
	"github.com/jvetere1999/passion-os-sub013/internal/snapshot"
	"github.com/jvetere1999/passion-os-sub013/internal/today"
)

// todayRefreshKey names the persisted last-fetch timestamp of the Today view.
const todayRefreshKey = "today"

type watchOptions struct {
	dir         string
	poll        time.Duration
	staleness   time.Duration
	metricsAddr string

	pollSet      bool
	stalenessSet bool
	metricsSet   bool
}

func runToday(dir, route, justCompleted string) {
	_, cfg := loadConfig()
	ctx := context.Background()

	snap, err := snapshot.Load(dir)
	if err != nil {
		slog.Error("failed to load snapshot", "dir", dir, "error", err)
		os.Exit(1)
	}

	storage, store := openStore(ctx, cfg)
	defer storage.Close()

	sess := &today.Session{
		Composer:    &today.Composer{Resolver: resolver.FromConfig(cfg.Resolver), Logger: slog.Default()},
		Store:       store,
		SoftLanding: softLandingFromConfig(cfg),
	}
	printJSON(sess.Compose(ctx, today.Input{
		PlanJSON:            snap.Plan,
		PersonalizationJSON: snap.Personalization,
		SignalsJSON:         snap.Signals,
		CurrentRoute:        route,
		JustCompletedHref:   justCompleted,
	}, time.Now()))
}

func runWatch(opts watchOptions) {
	absDir, _ := filepath.Abs(opts.dir)
	_, cfg := loadConfig()

	syncCfg := cfg.Sync
	if opts.pollSet {
		syncCfg.PollingInterval = opts.poll
	}
	if opts.stalenessSet {
		syncCfg.Staleness = opts.staleness
	}
	metricsAddr := cfg.Metrics.Addr
	if opts.metricsSet {
		metricsAddr = opts.metricsAddr
	}
	slog.Info("watching snapshots", "dir", absDir, "staleness", syncCfg.Staleness, "poll", syncCfg.PollingInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage, store := openStore(ctx, cfg)
	defer storage.Close()

	var (
		observer refresh.Observer
		recorder today.ResolutionRecorder
	)
	if metricsAddr != "" {
		registry := prometheus.NewRegistry()
		obs, err := metrics.NewObserver(metrics.DefaultNamespace, registry)
		if err != nil {
			slog.Error("failed to create metrics", "error", err)
			os.Exit(1)
		}
		observer, recorder = obs, obs

		srv := serveMetrics(metricsAddr, registry)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("failed to stop metrics server", "error", err)
			}
		}()
	}

	sess := &today.Session{
		Composer: &today.Composer{
			Resolver: resolver.FromConfig(cfg.Resolver),
			Logger:   slog.Default(),
			Recorder: recorder,
		},
		Store:       store,
		SoftLanding: softLandingFromConfig(cfg),
	}
	refreshToday := func(ctx context.Context) error {
		snap, err := snapshot.Load(absDir)
		if err != nil {
			return err
		}
		view := sess.Compose(ctx, today.Input{
			PlanJSON:            snap.Plan,
			PersonalizationJSON: snap.Personalization,
			SignalsJSON:         snap.Signals,
		}, time.Now())
		fmt.Printf("[today] %s: %s -> %s (%s)\n", view.UserState, view.Action.Label, view.Action.Href, view.Action.Reason)
		return nil
	}

	// Initial fetch, recorded so the mount check does not repeat it.
	if err := refreshToday(ctx); err != nil {
		slog.Warn("initial load failed", "error", err)
	} else if err := refresh.MarkFetched(ctx, storage, todayRefreshKey, time.Now()); err != nil {
		slog.Warn("failed to record initial load", "error", err)
	}

	page := refresh.NewPage()
	reg := refresh.Register(page, refresh.Options{
		OnRefresh:              refreshToday,
		RefreshKey:             todayRefreshKey,
		Storage:                storage,
		Staleness:              syncCfg.Staleness,
		RefreshOnMount:         syncCfg.RefreshOnMount,
		RefetchOnFocus:         syncCfg.RefetchOnFocus,
		RefetchOnVisible:       syncCfg.RefetchOnVisible,
		PollingInterval:        syncCfg.PollingInterval,
		PausePollingWhenHidden: syncCfg.PausePollingWhenHidden,
		Enabled:                true,
		Logger:                 slog.Default(),
		Observer:               observer,
	})
	defer reg.Close()

	watcher, err := snapshot.NewWatcher(snapshot.WatcherConfig{
		Dir:          absDir,
		DebounceTime: syncCfg.Debounce,
		Logger:       slog.Default(),
		OnChange: func(files []string) {
			reg.Invalidate()
			slog.Info("snapshot changed, next trigger refreshes", "files", files)
		},
	})
	if err != nil {
		slog.Error("failed to create watcher", "error", err)
		os.Exit(1)
	}
	watchDone := make(chan error, 1)
	go func() { watchDone <- watcher.Watch(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, append(lifecycleSignals(), syscall.SIGINT, syscall.SIGTERM)...)
	defer signal.Stop(sigChan)

	fmt.Printf("Watching %s for changes (press Ctrl+C to stop)\n", absDir)

	for {
		select {
		case sig := <-sigChan:
			if kind, ok := lifecycleEvent(sig); ok {
				slog.Debug("lifecycle signal", "signal", sig, "event", kind)
				page.Emit(refresh.Event{Kind: kind})
				continue
			}
			slog.Info("received shutdown signal", "signal", sig)
			page.Emit(refresh.Event{Kind: refresh.EventPageHide})
			reg.Close()
			cancel()
			if err := <-watchDone; err != nil {
				slog.Warn("watcher stopped with error", "error", err)
			}
			return

		case err := <-watchDone:
			if err != nil {
				slog.Error("watcher failed", "error", err)
			}
			return
		}
	}
}

func serveMetrics(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(gatherer))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}
