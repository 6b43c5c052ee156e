package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "test", "agg-1", "company-1")}
}

type recordingHandler struct {
	mu      sync.Mutex
	types   []string
	handled []string
	err     error
}

func (h *recordingHandler) Handle(_ context.Context, e shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, e.EventType())
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	sent := &recordingHandler{types: []string{"MessageSent"}}
	all := &recordingHandler{}
	bus.Subscribe(sent)
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(ctx, newTestEvent("MessageSent"), newTestEvent("CompanyActivated")))
	assert.Equal(t, []string{"MessageSent"}, sent.handled)
	assert.Equal(t, []string{"MessageSent", "CompanyActivated"}, all.handled)

	bus.Unsubscribe(sent)
	require.NoError(t, bus.Publish(ctx, newTestEvent("MessageSent")))
	assert.Len(t, sent.handled, 1)
}

func TestInMemoryEventBus_FailuresDoNotStopOtherHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	boom := errors.New("boom")

	failing := &recordingHandler{types: []string{"X"}, err: boom}
	panicking := &HandlerFunc{Types: []string{"X"}, Fn: func(context.Context, shared.DomainEvent) error {
		panic("oops")
	}}
	ok := &recordingHandler{types: []string{"X"}}
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(ok)

	err := bus.Publish(context.Background(), newTestEvent("X"))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.handled, 1)
}

func TestInMemoryEventBus_SubscribeWithExplicitTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{types: []string{"A"}}
	bus.Subscribe(h, "B")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("A"), newTestEvent("B")))
	assert.Equal(t, []string{"B"}, h.handled)
}

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Forget(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockIdempotencyStore) Close() error { return nil }

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("runs once per event id", func(t *testing.T) {
		kv := cache.NewMemoryKV()
		defer kv.Close()
		inner := &recordingHandler{types: []string{"X"}}
		h := NewIdempotentHandler(inner, cache.NewIdempotencyStore(kv), zap.NewNop())
		e := newTestEvent("X")

		require.NoError(t, h.Handle(ctx, e))
		require.NoError(t, h.Handle(ctx, e))
		require.NoError(t, h.Handle(ctx, newTestEvent("X")))

		assert.Len(t, inner.handled, 2)
		assert.Equal(t, int64(1), h.Metrics().EventsDuplicate.Load())
		assert.Equal(t, []string{"X"}, h.EventTypes())
	})

	t.Run("failure releases the key", func(t *testing.T) {
		kv := cache.NewMemoryKV()
		defer kv.Close()
		inner := &recordingHandler{types: []string{"X"}, err: errors.New("smtp down")}
		h := NewIdempotentHandler(inner, cache.NewIdempotencyStore(kv), zap.NewNop())
		e := newTestEvent("X")

		assert.Error(t, h.Handle(ctx, e))
		inner.err = nil
		require.NoError(t, h.Handle(ctx, e))
		assert.Len(t, inner.handled, 2)
	})

	t.Run("store errors still process", func(t *testing.T) {
		store := new(mockIdempotencyStore)
		store.On("MarkProcessed", mock.Anything, mock.Anything, shared.DefaultIdempotencyTTL).
			Return(false, errors.New("redis down"))
		inner := &recordingHandler{types: []string{"X"}}
		h := NewIdempotentHandler(inner, store, zap.NewNop())

		require.NoError(t, h.Handle(ctx, newTestEvent("X")))
		assert.Len(t, inner.handled, 1)
		store.AssertExpectations(t)
	})
}
