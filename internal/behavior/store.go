package behavior

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/jvetere1999/passion-os-sub013/internal/session"
	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

// Session storage keys owned by the behavior store.
const (
	KeyMomentum    = "passion:momentum"
	KeySoftLanding = "passion:soft_landing"
	KeyLastVisit   = "passion:last_visit"
)

// State is everything the behavior store persists for one session.
type State struct {
	Momentum    types.MomentumState    `json:"momentum"`
	SoftLanding types.SoftLandingState `json:"softLanding"`
	LastVisit   time.Time              `json:"lastVisit"`
}

// Store persists behavioral state in session storage. Storage failures are
// logged and read as zero-value state; nothing is returned to the caller.
type Store struct {
	storage session.Storage
	logger  *slog.Logger
}

// NewStore creates a store over storage. A nil logger uses slog.Default().
func NewStore(storage session.Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{storage: storage, logger: logger}
}

// Load reads the session state. Missing or corrupt entries read as zero.
func (s *Store) Load(ctx context.Context) State {
	var st State
	if !s.loadJSON(ctx, KeyMomentum, &st.Momentum) {
		st.Momentum = types.MomentumState{}
	}
	if !s.loadJSON(ctx, KeySoftLanding, &st.SoftLanding) {
		st.SoftLanding = types.SoftLandingState{}
	}
	if raw, ok := s.get(ctx, KeyLastVisit); ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
			st.LastVisit = time.UnixMilli(ms)
		} else {
			s.logger.Warn("ignoring corrupt session entry", "key", KeyLastVisit, "value", raw)
		}
	}
	return st
}

// Save writes the momentum and soft landing flags.
func (s *Store) Save(ctx context.Context, st State) {
	s.saveJSON(ctx, KeyMomentum, st.Momentum)
	s.saveJSON(ctx, KeySoftLanding, st.SoftLanding)
}

// SaveMomentum writes the momentum flags only.
func (s *Store) SaveMomentum(ctx context.Context, m types.MomentumState) {
	s.saveJSON(ctx, KeyMomentum, m)
}

// SaveSoftLanding writes the soft landing flag only.
func (s *Store) SaveSoftLanding(ctx context.Context, sl types.SoftLandingState) {
	s.saveJSON(ctx, KeySoftLanding, sl)
}

// Touch records a visit at now and returns the gap since the previous one.
func (s *Store) Touch(ctx context.Context, now time.Time) time.Duration {
	prev := s.Load(ctx).LastVisit
	if err := s.storage.Set(ctx, KeyLastVisit, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		s.logger.Warn("failed to record visit", "error", err)
	}
	return DetectGap(prev, now)
}

// Clear removes the behavior keys, as on tab close.
func (s *Store) Clear(ctx context.Context) {
	for _, key := range []string{KeyMomentum, KeySoftLanding, KeyLastVisit} {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to clear session entry", "key", key, "error", err)
		}
	}
}

func (s *Store) get(ctx context.Context, key string) (string, bool) {
	raw, ok, err := s.storage.Get(ctx, key)
	if err != nil {
		s.logger.Warn("failed to read session entry", "key", key, "error", err)
		return "", false
	}
	return raw, ok
}

// loadJSON decodes key into v. It reports false when the entry was present
// but corrupt, so the caller can discard a partial decode.
func (s *Store) loadJSON(ctx context.Context, key string, v any) bool {
	raw, ok := s.get(ctx, key)
	if !ok {
		return true
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Warn("ignoring corrupt session entry", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) saveJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("failed to encode session entry", "key", key, "error", err)
		return
	}
	if err := s.storage.Set(ctx, key, string(data)); err != nil {
		s.logger.Warn("failed to write session entry", "key", key, "error", err)
	}
}
