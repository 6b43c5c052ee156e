package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/b2bmarket/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// RevisionKey holds the store revision. Every write increments it, which
// retires all cached reads at once: cached entries embed the revision in their
// key and are simply never read again.
const RevisionKey = "docstore:rev"

// CachedStore is a read-through cache in front of another Store. Cache
// failures never fail a request; the read goes to the backend instead.
type CachedStore struct {
	next   Store
	kv     cache.KV
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedStore wraps next with a cache on kv
func NewCachedStore(next Store, kv cache.KV, ttl time.Duration, logger *zap.Logger) *CachedStore {
	return &CachedStore{next: next, kv: kv, ttl: ttl, logger: logger.Named("docstore.cache")}
}

func (c *CachedStore) revision(ctx context.Context) (string, bool) {
	rev, ok, err := c.kv.Get(ctx, RevisionKey)
	if err != nil {
		c.logger.Warn("Failed to read cache revision", zap.Error(err))
		return "", false
	}
	if !ok {
		return "0", true
	}
	return rev, true
}

func (c *CachedStore) key(rev, kind, body string) string {
	sum := sha256.Sum256([]byte(body))
	return "docstore:" + rev + ":" + kind + ":" + hex.EncodeToString(sum[:12])
}

func (c *CachedStore) load(ctx context.Context, key string, out any) bool {
	raw, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		c.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CachedStore) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.kv.Set(ctx, key, string(raw), c.ttl); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate retires every cached read. Writes that reached the backend
// around this store, from another process or the operator backoffice, are
// visible to the next read.
func (c *CachedStore) Invalidate(ctx context.Context) error {
	if _, err := c.kv.Incr(ctx, RevisionKey); err != nil {
		return fmt.Errorf("failed to bump cache revision: %w", err)
	}
	return nil
}

func (c *CachedStore) bust(ctx context.Context) {
	if err := c.Invalidate(ctx); err != nil {
		c.logger.Error("Cached reads may be stale until they expire", zap.Error(err))
	}
}

// Get implements Store
func (c *CachedStore) Get(ctx context.Context, id string) (Document, error) {
	rev, ok := c.revision(ctx)
	if !ok {
		return c.next.Get(ctx, id)
	}
	key := c.key(rev, "get", id)
	var doc Document
	if c.load(ctx, key, &doc) {
		return doc, nil
	}
	doc, err := c.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, doc)
	return doc, nil
}

// GetMany implements Store. Batched lookups are not cached.
func (c *CachedStore) GetMany(ctx context.Context, ids []string) (map[string]Document, error) {
	return c.next.GetMany(ctx, ids)
}

// Query implements Store
func (c *CachedStore) Query(ctx context.Context, q Query) ([]Document, error) {
	rev, ok := c.revision(ctx)
	if !ok {
		return c.next.Query(ctx, q)
	}
	key := c.key(rev, "query", q.Key())
	var docs []Document
	if c.load(ctx, key, &docs) {
		return docs, nil
	}
	docs, err := c.next.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, docs)
	return docs, nil
}

// Count implements Store
func (c *CachedStore) Count(ctx context.Context, q Query) (int64, error) {
	rev, ok := c.revision(ctx)
	if !ok {
		return c.next.Count(ctx, q)
	}
	key := c.key(rev, "count", q.CountQuery().Key())
	var raw string
	if c.load(ctx, key, &raw) {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n, nil
		}
	}
	n, err := c.next.Count(ctx, q)
	if err != nil {
		return 0, err
	}
	c.store(ctx, key, strconv.FormatInt(n, 10))
	return n, nil
}

// Create implements Store
func (c *CachedStore) Create(ctx context.Context, doc Document) (Document, error) {
	out, err := c.next.Create(ctx, doc)
	if err != nil {
		return nil, err
	}
	c.bust(ctx)
	return out, nil
}

// Patch implements Store
func (c *CachedStore) Patch(ctx context.Context, id string, p Patch) (Document, error) {
	out, err := c.next.Patch(ctx, id, p)
	if err != nil {
		return nil, err
	}
	c.bust(ctx)
	return out, nil
}

// Delete implements Store
func (c *CachedStore) Delete(ctx context.Context, id string) error {
	if err := c.next.Delete(ctx, id); err != nil {
		return err
	}
	c.bust(ctx)
	return nil
}

// Ping implements Store
func (c *CachedStore) Ping(ctx context.Context) error {
	return c.next.Ping(ctx)
}

// Close closes the wrapped store. The KV belongs to the caller.
func (c *CachedStore) Close() error {
	return c.next.Close()
}

var (
	_ Store       = (*CachedStore)(nil)
	_ Invalidator = (*CachedStore)(nil)
)
