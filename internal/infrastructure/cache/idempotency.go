package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/b2bmarket/backend/internal/domain/shared"
)

const idempotencyPrefix = "idempotency:"

// IdempotencyStore records processed delivery ids on a KV with SETNX.
type IdempotencyStore struct {
	kv KV
}

// NewIdempotencyStore creates a store over kv
func NewIdempotencyStore(kv KV) *IdempotencyStore {
	return &IdempotencyStore{kv: kv}
}

// MarkProcessed returns true if key was newly marked
func (s *IdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.kv.SetNX(ctx, idempotencyPrefix+key, "1", ttl)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s as processed: %w", key, err)
	}
	return ok, nil
}

// IsProcessed reports whether key was marked and has not expired
func (s *IdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.kv.Get(ctx, idempotencyPrefix+key)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return ok, nil
}

// Forget removes the mark so a failed delivery can be retried
func (s *IdempotencyStore) Forget(ctx context.Context, key string) error {
	return s.kv.Del(ctx, idempotencyPrefix+key)
}

// Close is a no-op; the KV is owned by the caller.
func (s *IdempotencyStore) Close() error {
	return nil
}

var _ shared.IdempotencyStore = (*IdempotencyStore)(nil)
