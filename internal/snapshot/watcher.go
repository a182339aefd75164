package snapshot

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a snapshot directory and reports settled changes.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	onChange func(files []string)
	logger   *slog.Logger

	// Debouncing
	pendingMu    sync.Mutex
	pendingFiles map[string]time.Time
	debounceTime time.Duration
}

// WatcherConfig contains watcher configuration.
type WatcherConfig struct {
	Dir string
	// OnChange receives the base names of the snapshot files that changed.
	OnChange     func(files []string)
	DebounceTime time.Duration // Default: 500ms
	Logger       *slog.Logger
}

// NewWatcher creates a new snapshot watcher.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounceTime := cfg.DebounceTime
	if debounceTime == 0 {
		debounceTime = 500 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		dir:          cfg.Dir,
		watcher:      watcher,
		onChange:     cfg.OnChange,
		logger:       logger,
		pendingFiles: make(map[string]time.Time),
		debounceTime: debounceTime,
	}, nil
}

// Watch starts watching for snapshot changes.
// It blocks until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	// Editors replace files by rename, so the directory is watched rather
	// than the files.
	if err := w.watcher.Add(w.dir); err != nil {
		w.watcher.Close()
		return err
	}

	w.logger.Info("watching snapshots", "dir", w.dir)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.processDebounced(ctx)
	}()
	defer wg.Wait()

	// Event loop
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping snapshot watcher")
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// handleEvent records a change to a snapshot file.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	name := filepath.Base(event.Name)
	if !isSnapshotFile(name) {
		return
	}

	w.pendingMu.Lock()
	w.pendingFiles[name] = time.Now()
	w.pendingMu.Unlock()

	w.logger.Debug("snapshot changed", "file", name, "op", event.Op.String())
}

func isSnapshotFile(name string) bool {
	for _, f := range Files {
		if f == name {
			return true
		}
	}
	return false
}

// processDebounced flushes pending changes after the debounce period.
func (w *Watcher) processDebounced(ctx context.Context) {
	interval := w.debounceTime / 5
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

// flush reports files that have been stable for the debounce period.
func (w *Watcher) flush() {
	w.pendingMu.Lock()
	now := time.Now()
	var settled []string
	for name, changedAt := range w.pendingFiles {
		if now.Sub(changedAt) >= w.debounceTime {
			settled = append(settled, name)
			delete(w.pendingFiles, name)
		}
	}
	w.pendingMu.Unlock()

	if len(settled) == 0 || w.onChange == nil {
		return
	}
	sort.Strings(settled)
	w.logger.Info("snapshot files changed", "files", settled)
	w.onChange(settled)
}
