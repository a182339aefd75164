// Package snapshot reads collaborator snapshots (daily plan, personalization,
// user signals) from a directory and watches it for changes.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Snapshot file names inside a snapshot directory.
const (
	PlanFile            = "plan.json"
	PersonalizationFile = "personalization.json"
	SignalsFile         = "signals.json"
)

// Files lists every file a snapshot directory may contain.
var Files = []string{PlanFile, PersonalizationFile, SignalsFile}

// Snapshot is the raw collaborator data. Missing files leave nil bytes, which
// the safety net decodes to the documented defaults.
type Snapshot struct {
	Plan            []byte
	Personalization []byte
	Signals         []byte
}

// Load reads the snapshot files in dir. Only I/O failures other than a missing
// file are errors.
func Load(dir string) (Snapshot, error) {
	var s Snapshot
	var err error
	if s.Plan, err = readOptional(filepath.Join(dir, PlanFile)); err != nil {
		return Snapshot{}, err
	}
	if s.Personalization, err = readOptional(filepath.Join(dir, PersonalizationFile)); err != nil {
		return Snapshot{}, err
	}
	if s.Signals, err = readOptional(filepath.Join(dir, SignalsFile)); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// ReadFile reads a single optional snapshot file. An empty path or a missing
// file yields nil.
func ReadFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return readOptional(path)
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
