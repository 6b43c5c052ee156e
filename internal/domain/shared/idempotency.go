package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers delivery keys (webhook ids, event ids) that were
// already handled.
type IdempotencyStore interface {
	// MarkProcessed returns true if the key was newly marked and false if it
	// had already been seen within the TTL.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Forget removes a key so a failed delivery can be retried.
	Forget(ctx context.Context, key string) error
	Close() error
}

// DefaultIdempotencyTTL is how long a delivery key is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour
