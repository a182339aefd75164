// Package session provides tab-scoped key/value storage for staleness
// timestamps and behavioral flags.
//
// A Storage instance belongs to exactly one session (one browser tab in the
// dashboard, one process in the CLI). Writes are last-write-wins; no backend
// takes locks across sessions.
package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jvetere1999/passion-os-sub013/internal/config"
	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

// Storage is session-scoped key/value storage.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key of the session, as on tab close.
	Clear(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// Open creates the storage backend selected by cfg for sessionID. An empty
// sessionID gets a fresh one.
func Open(ctx context.Context, cfg config.StorageConfig, sessionID string) (Storage, error) {
	if sessionID == "" {
		sessionID = NewID()
	}

	var (
		s   Storage
		err error
	)
	switch cfg.Backend {
	case "", "memory":
		s, err = NewMemory(cfg.MemorySize)
	case "sqlite":
		s, err = OpenSQLite(ctx, cfg.Path, sessionID)
	case "redis":
		s, err = OpenRedis(ctx, RedisOptions{
			Addr:      cfg.RedisAddr,
			DB:        cfg.RedisDB,
			SessionID: sessionID,
			TTL:       cfg.SessionTTL,
		})
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
