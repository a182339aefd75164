package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

// KeyPrefix namespaces every redis key written by this package.
const KeyPrefix = "passion"

// RedisOptions configures the redis backend.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	SessionID string
	// TTL expires idle sessions, standing in for tab close. Zero keeps keys
	// until Clear.
	TTL time.Duration
}

// Redis stores session keys as passion:<session>:<key> with a sliding TTL.
type Redis struct {
	client    *redis.Client
	sessionID string
	ttl       time.Duration
}

// OpenRedis connects to redis and verifies the connection.
func OpenRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("%w: redis address is empty", types.ErrStorageUnavailable)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to ping redis at %s: %v", types.ErrStorageUnavailable, opts.Addr, err)
	}
	return NewRedis(client, opts.SessionID, opts.TTL), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, sessionID string, ttl time.Duration) *Redis {
	return &Redis{client: client, sessionID: sessionID, ttl: ttl}
}

func (r *Redis) key(k string) string {
	return fmt.Sprintf("%s:%s:%s", KeyPrefix, r.sessionID, k)
}

// Get returns the value for key.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key and refreshes its TTL.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every key of this session.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.key("*"), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan session keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
