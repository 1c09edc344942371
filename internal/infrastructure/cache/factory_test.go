package cache

import (
	"context"
	"testing"

	"github.com/erp/stockcore/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRedis points at a port nothing listens on
var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestIdempotencyStoreFactory_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("memory backend", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(unreachableRedis).Create(ctx, BackendMemory)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &MemoryIdempotencyStore{}, store)
	})

	t.Run("empty backend defaults to memory", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(unreachableRedis).Create(ctx, "")
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &MemoryIdempotencyStore{}, store)
	})

	t.Run("unreachable redis falls back to memory", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(unreachableRedis).Create(ctx, BackendRedis)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &MemoryIdempotencyStore{}, store)
	})

	t.Run("unreachable redis without fallback fails", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(unreachableRedis, WithInMemoryFallback(false)).Create(ctx, BackendRedis)
		assert.ErrorContains(t, err, "redis idempotency store unavailable")
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(unreachableRedis).Create(ctx, "memcached")
		assert.ErrorContains(t, err, "unknown idempotency backend")
	})
}
