// Package redisclient wraps the go-redis client with the small set of
// primitives the briefing engine's components share: a plain client
// handle for package-specific key access, and the NX+TTL lock
// primitives named in spec §5. Pipelined writes are built by each
// package directly on the C handle.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/newsbrief/engine/internal/config"
	"github.com/redis/go-redis/v9"
)

// Client is a thin wrapper around *redis.Client.
type Client struct {
	C *redis.Client
}

// New creates a Redis client from the provided config. Returns an error
// if the Redis URL cannot be parsed.
func New(cfg *config.Config) (*Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return &Client{C: redis.NewClient(opt)}, nil
}

// Ping verifies connectivity with a bounded deadline.
func (r *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.C.Ping(ctx).Err()
}

// AcquireLock attempts to set key with NX semantics and the given TTL.
// Returns true if the lock was acquired by this call.
func (r *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.C.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return ok, nil
}

// ReleaseLock deletes the lock key unconditionally. Per spec §4.5/§5,
// releasing a lock held by someone else (e.g. after expiry and
// re-acquisition by a successor) is an accepted race — locks are
// advisory and bounded by TTL regardless.
func (r *Client) ReleaseLock(ctx context.Context, key string) error {
	if err := r.C.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}
