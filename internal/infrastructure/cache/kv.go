// Package cache holds the key/value layer shared by the read cache, token
// revocation, one-time tokens and webhook idempotency. Redis backs it in
// production; the in-memory implementation serves single instances and tests.
package cache

import (
	"context"
	"time"
)

// KV is a minimal string key/value store with expiry.
type KV interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value; a zero ttl keeps it forever.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Incr increments an integer counter, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, keys ...string) error
	Close() error
}
