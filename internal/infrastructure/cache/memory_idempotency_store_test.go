package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock
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

func newTestStore(t *testing.T) (*MemoryIdempotencyStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
	store := NewMemoryIdempotencyStore(0, WithClock(clock.Now))
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	ctx := context.Background()

	t.Run("first mark wins", func(t *testing.T) {
		store, _ := newTestStore(t)

		isNew, err := store.MarkProcessed(ctx, "k1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "k1", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("expired key can be marked again", func(t *testing.T) {
		store, clock := newTestStore(t)

		_, err := store.MarkProcessed(ctx, "k2", time.Minute)
		require.NoError(t, err)
		clock.Advance(time.Minute)

		isNew, err := store.MarkProcessed(ctx, "k2", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("concurrent marks let exactly one through", func(t *testing.T) {
		store, _ := newTestStore(t)

		var winners atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := store.MarkProcessed(ctx, "contended", time.Hour); ok {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), winners.Load())
	})
}

func TestMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t)

	processed, err := store.IsProcessed(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "known", 10*time.Second)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "known")
	require.NoError(t, err)
	assert.True(t, processed)

	clock.Advance(10 * time.Second)
	processed, err = store.IsProcessed(ctx, "known")
	require.NoError(t, err)
	assert.False(t, processed, "expired key should read as unprocessed")
}

func TestMemoryIdempotencyStore_Sweep(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := store.MarkProcessed(ctx, fmt.Sprintf("short-%d", i), time.Second)
		require.NoError(t, err)
	}
	_, err := store.MarkProcessed(ctx, "long", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 6, store.Len())

	clock.Advance(2 * time.Second)
	store.sweep()

	assert.Equal(t, 1, store.Len())
}

func TestMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Millisecond)

	require.NoError(t, store.Close())
	assert.NoError(t, store.Close(), "second close should be a no-op")
}

func TestMemoryIdempotencyStore_WriteEvictsDueKeys(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t)

	_, err := store.MarkProcessed(ctx, "old", time.Second)
	require.NoError(t, err)
	_, err = store.MarkProcessed(ctx, "newer", time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = store.MarkProcessed(ctx, "latest", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
	processed, err := store.IsProcessed(ctx, "old")
	require.NoError(t, err)
	assert.False(t, processed)
}
