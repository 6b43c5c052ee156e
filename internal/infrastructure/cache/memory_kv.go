package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryKV implements KV with a map. Expired keys are dropped lazily on read
// and by a background sweep.
type MemoryKV struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryKV creates an in-memory store and starts its sweeper
func NewMemoryKV() *MemoryKV {
	return newMemoryKV(time.Now, 5*time.Minute)
}

func newMemoryKV(now func() time.Time, sweepEvery time.Duration) *MemoryKV {
	kv := &MemoryKV{
		entries:  make(map[string]memoryEntry),
		now:      now,
		stopChan: make(chan struct{}),
	}
	kv.wg.Add(1)
	go kv.sweepLoop(sweepEvery)
	return kv
}

func (kv *MemoryKV) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return kv.now().Add(ttl)
}

// Get implements KV
func (kv *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	e, ok := kv.entries[key]
	if !ok {
		return "", false, nil
	}
	if e.expired(kv.now()) {
		delete(kv.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

// Set implements KV
func (kv *MemoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	kv.entries[key] = memoryEntry{value: value, expiresAt: kv.expiry(ttl)}
	return nil
}

// SetNX implements KV
func (kv *MemoryKV) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if e, ok := kv.entries[key]; ok && !e.expired(kv.now()) {
		return false, nil
	}
	kv.entries[key] = memoryEntry{value: value, expiresAt: kv.expiry(ttl)}
	return true, nil
}

// Incr implements KV
func (kv *MemoryKV) Incr(_ context.Context, key string) (int64, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	var n int64
	e, ok := kv.entries[key]
	if ok && !e.expired(kv.now()) {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	} else {
		e = memoryEntry{}
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	kv.entries[key] = e
	return n, nil
}

// Del implements KV
func (kv *MemoryKV) Del(_ context.Context, keys ...string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	for _, k := range keys {
		delete(kv.entries, k)
	}
	return nil
}

// Close stops the sweeper. Safe to call more than once.
func (kv *MemoryKV) Close() error {
	kv.closeOnce.Do(func() {
		close(kv.stopChan)
		kv.wg.Wait()
	})
	return nil
}

// Len returns the number of stored keys, expired ones included
func (kv *MemoryKV) Len() int {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	return len(kv.entries)
}

func (kv *MemoryKV) sweepLoop(every time.Duration) {
	defer kv.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-kv.stopChan:
			return
		case <-ticker.C:
			kv.sweep()
		}
	}
}

func (kv *MemoryKV) sweep() {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	now := kv.now()
	for k, e := range kv.entries {
		if e.expired(now) {
			delete(kv.entries, k)
		}
	}
}

var _ KV = (*MemoryKV)(nil)
