package session

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

// DefaultMemorySize bounds the in-memory backend when no size is configured.
const DefaultMemorySize = 1024

// Memory is an in-process Storage bounded by an LRU cache. It lives as long as
// the process, which is the CLI's notion of a tab.
type Memory struct {
	cache  *lru.Cache[string, string]
	closed atomic.Bool
}

// NewMemory creates a memory backend holding at most size keys.
func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory storage: %w", err)
	}
	return &Memory{cache: cache}, nil
}

// Get returns the value for key.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	if m.closed.Load() {
		return "", false, types.ErrClosed
	}
	v, ok := m.cache.Get(key)
	return v, ok, nil
}

// Set stores value under key.
func (m *Memory) Set(_ context.Context, key, value string) error {
	if m.closed.Load() {
		return types.ErrClosed
	}
	m.cache.Add(key, value)
	return nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	if m.closed.Load() {
		return types.ErrClosed
	}
	m.cache.Remove(key)
	return nil
}

// Clear removes every key.
func (m *Memory) Clear(_ context.Context) error {
	if m.closed.Load() {
		return types.ErrClosed
	}
	m.cache.Purge()
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	return m.cache.Len()
}

// Close drops all keys. Further calls return ErrClosed.
func (m *Memory) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	m.cache.Purge()
	return nil
}
