package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Idempotency backends accepted in ledger.idempotency_backend
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// sweepInterval is how often the in-memory store drops expired keys
const sweepInterval = 5 * time.Minute

// IdempotencyStoreFactory creates the transition idempotency store from configuration
type IdempotencyStoreFactory struct {
	redis                 config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption configures the factory
type FactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to memory.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(redis config.RedisConfig, opts ...FactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redis:                 redis,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the store for the backend named in the ledger configuration
func (f *IdempotencyStoreFactory) Create(ctx context.Context, backend string) (shared.IdempotencyStore, error) {
	switch backend {
	case "", BackendMemory:
		f.logger.Info("using in-memory idempotency store")
		return NewMemoryIdempotencyStore(sweepInterval), nil
	case BackendRedis:
		store, err := DialRedisIdempotencyStore(ctx, f.redis)
		if err == nil {
			f.logger.Info("using Redis idempotency store", zap.String("addr", f.redis.Addr()))
			return store, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis idempotency store unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
			"replayed transitions are only detected on this instance",
			zap.Error(err),
		)
		return NewMemoryIdempotencyStore(sweepInterval), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", backend)
	}
}
