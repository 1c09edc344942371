package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdempotencyStore remembers the caller keys of order transitions that already
// committed, so a retried request returns the current order instead of running
// stage effects twice.
type IdempotencyStore interface {
	// MarkProcessed records key for ttl. It reports false when key was already recorded.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}

// IdempotencyConfig controls transition replay protection
type IdempotencyConfig struct {
	// TTL is how long a key is remembered; afterwards the same key runs again
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig remembers keys for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}

// TransitionKey scopes a caller key to one order of one tenant. Two orders may
// reuse the same caller key without replaying each other.
func TransitionKey(tenantID, orderID uuid.UUID, key string) string {
	return "order-transition:" + tenantID.String() + ":" + orderID.String() + ":" + key
}
