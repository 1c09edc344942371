package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "stockcore:idempotency:"
	redisDialTimeout = 5 * time.Second
)

// RedisIdempotencyStore shares processed keys between every instance through Redis.
// Each key holds the time it was marked and expires with its TTL.
type RedisIdempotencyStore struct {
	client redis.UniversalClient
	prefix string
}

// RedisOption configures a RedisIdempotencyStore
type RedisOption func(*RedisIdempotencyStore)

// WithKeyPrefix namespaces the keys, e.g. per environment sharing one Redis
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisIdempotencyStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// DialRedisIdempotencyStore connects to cfg and fails when Redis does not answer a ping
func DialRedisIdempotencyStore(ctx context.Context, cfg config.RedisConfig, opts ...RedisOption) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping redis at %s: %w", cfg.Addr(), err), client.Close())
	}
	return NewRedisIdempotencyStore(client, opts...), nil
}

// NewRedisIdempotencyStore uses an existing client. Close closes it.
func NewRedisIdempotencyStore(client redis.UniversalClient, opts ...RedisOption) *RedisIdempotencyStore {
	s := &RedisIdempotencyStore{client: client, prefix: redisKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MarkProcessed sets the key only if absent (SET NX PX) and reports whether this
// call set it
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	marked := time.Now().UTC().Format(time.RFC3339Nano)
	err := s.client.SetArgs(ctx, s.prefix+key, marked, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("mark idempotency key: %w", err)
	}
	return true, nil
}

func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("check idempotency key: %w", err)
	}
	return n == 1, nil
}

func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
