package snapshot

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, PlanFile), []byte(`{"items": []}`), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(s.Plan) != `{"items": []}` {
		t.Errorf("Plan = %q", s.Plan)
	}
	if s.Personalization != nil || s.Signals != nil {
		t.Errorf("missing files should be nil, got %q / %q", s.Personalization, s.Signals)
	}
}

func TestLoadMissingDir(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Load of a missing dir failed: %v", err)
	}
	if s.Plan != nil {
		t.Error("expected empty snapshot")
	}
}

func TestReadFile(t *testing.T) {
	if data, err := ReadFile(""); data != nil || err != nil {
		t.Errorf("ReadFile(\"\") = %q, %v", data, err)
	}
	path := filepath.Join(t.TempDir(), "x.json")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if data, err := ReadFile(path); err != nil || string(data) != "{}" {
		t.Errorf("ReadFile = %q, %v", data, err)
	}
}

func TestWatcherReportsSnapshotChanges(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var got []string
	changed := make(chan struct{}, 8)

	w, err := NewWatcher(WatcherConfig{
		Dir:          dir,
		DebounceTime: 20 * time.Millisecond,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		OnChange: func(files []string) {
			mu.Lock()
			got = append(got, files...)
			mu.Unlock()
			changed <- struct{}{}
		},
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, PlanFile), []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, f := range got {
		if f != PlanFile {
			t.Errorf("changed files = %v, want only %s", got, PlanFile)
		}
	}
}
