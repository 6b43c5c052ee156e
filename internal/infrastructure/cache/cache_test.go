package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/b2bmarket/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestKV(t *testing.T) (*MemoryKV, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	kv := newMemoryKV(clock.Now, time.Hour)
	t.Cleanup(func() { _ = kv.Close() })
	return kv, clock
}

func TestMemoryKV_GetSet(t *testing.T) {
	ctx := context.Background()
	kv, clock := newTestKV(t)

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "k", "v", time.Minute))
	v, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	clock.Advance(time.Minute)
	_, ok, _ = kv.Get(ctx, "k")
	assert.False(t, ok, "entry expires at its ttl")
}

func TestMemoryKV_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	kv, clock := newTestKV(t)

	require.NoError(t, kv.Set(ctx, "k", "v", 0))
	clock.Advance(24 * 365 * time.Hour)
	_, ok, _ := kv.Get(ctx, "k")
	assert.True(t, ok)
}

func TestMemoryKV_SetNX(t *testing.T) {
	ctx := context.Background()
	kv, clock := newTestKV(t)

	ok, err := kv.SetNX(ctx, "k", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = kv.SetNX(ctx, "k", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	v, _, _ := kv.Get(ctx, "k")
	assert.Equal(t, "first", v)

	clock.Advance(2 * time.Minute)
	ok, _ = kv.SetNX(ctx, "k", "third", time.Minute)
	assert.True(t, ok, "expired key can be set again")
}

func TestMemoryKV_Incr(t *testing.T) {
	ctx := context.Background()
	kv, _ := newTestKV(t)

	n, err := kv.Incr(ctx, "rev")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = kv.Incr(ctx, "rev")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, kv.Set(ctx, "text", "abc", 0))
	_, err = kv.Incr(ctx, "text")
	assert.Error(t, err)
}

func TestMemoryKV_ConcurrentIncr(t *testing.T) {
	ctx := context.Background()
	kv, _ := newTestKV(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = kv.Incr(ctx, "rev")
		}()
	}
	wg.Wait()

	v, _, _ := kv.Get(ctx, "rev")
	assert.Equal(t, "50", v)
}

func TestMemoryKV_DelAndSweep(t *testing.T) {
	ctx := context.Background()
	kv, clock := newTestKV(t)

	require.NoError(t, kv.Set(ctx, "a", "1", time.Second))
	require.NoError(t, kv.Set(ctx, "b", "2", 0))
	require.NoError(t, kv.Set(ctx, "c", "3", 0))
	require.NoError(t, kv.Del(ctx, "c"))
	assert.Equal(t, 2, kv.Len())

	clock.Advance(time.Minute)
	kv.sweep()
	assert.Equal(t, 1, kv.Len())
}

func TestMemoryKV_CloseTwice(t *testing.T) {
	kv := NewMemoryKV()
	assert.NoError(t, kv.Close())
	assert.NoError(t, kv.Close())
}

func TestIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	kv, _ := newTestKV(t)
	store := NewIdempotencyStore(kv)

	processed, err := store.IsProcessed(ctx, "delivery-1")
	require.NoError(t, err)
	assert.False(t, processed)

	first, err := store.MarkProcessed(ctx, "delivery-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkProcessed(ctx, "delivery-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, store.Forget(ctx, "delivery-1"))
	retry, err := store.MarkProcessed(ctx, "delivery-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, retry)
}

func TestNewKV_DisabledUsesMemory(t *testing.T) {
	kv := NewKV(config.RedisConfig{Enabled: false}, zap.NewNop())
	defer kv.Close()
	_, isMemory := kv.(*MemoryKV)
	assert.True(t, isMemory)
}

func TestNewKV_UnreachableFallsBack(t *testing.T) {
	kv := NewKV(config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}, zap.NewNop())
	defer kv.Close()
	_, isMemory := kv.(*MemoryKV)
	assert.True(t, isMemory)
}
