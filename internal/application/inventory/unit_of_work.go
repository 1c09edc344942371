package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RetryConfig controls how conflicting units of work are retried
type RetryConfig struct {
	// MaxRetries is the number of extra attempts after the first one
	MaxRetries int
	// BaseDelay is the first backoff interval; it doubles per attempt
	BaseDelay time.Duration
	// OperationTimeout bounds a whole call, retries included
	OperationTimeout time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:       3,
		BaseDelay:        20 * time.Millisecond,
		OperationTimeout: 5 * time.Second,
	}
}

// UnitOfWork runs a function in a tenant transaction, re-running it from scratch
// on TRANSACTION_CONFLICT with exponential backoff.
type UnitOfWork struct {
	scope   TransactionScope
	cfg     RetryConfig
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
}

// NewUnitOfWork creates a UnitOfWork
func NewUnitOfWork(scope TransactionScope, cfg RetryConfig, logger *zap.Logger) *UnitOfWork {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig().BaseDelay
	}
	return &UnitOfWork{scope: scope, cfg: cfg, logger: logger}
}

// SetMetrics sets the ledger metrics used to count conflicts and retries
func (u *UnitOfWork) SetMetrics(metrics *telemetry.LedgerMetrics) {
	u.metrics = metrics
}

// Run executes fn inside a transaction for the tenant. The operation timeout applies
// unless ctx already carries an earlier deadline. A retryable error that survives
// every attempt is returned as is.
func (u *UnitOfWork) Run(ctx context.Context, tenantID uuid.UUID, operation string, fn func(ctx context.Context, repos TransactionalRepositories) error) error {
	if err := shared.RequireTenant(tenantID); err != nil {
		return err
	}
	ctx = logger.WithOperation(ctx, operation)

	if u.cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.cfg.OperationTimeout)
		defer cancel()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = u.cfg.BaseDelay
	policy.Multiplier = 2
	policy.MaxElapsedTime = 0
	retryPolicy := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(u.cfg.MaxRetries)), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := u.scope.Execute(ctx, tenantID, func(repos TransactionalRepositories) error {
			return fn(ctx, repos)
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, shared.ErrTransactionConflict) {
			u.metrics.RecordConflict(ctx, tenantID, operation)
		}
		if shared.IsRetryable(err) && ctx.Err() == nil {
			return err
		}
		return backoff.Permanent(err)
	}, retryPolicy, func(err error, wait time.Duration) {
		u.metrics.RecordRetry(ctx, tenantID, operation)
		logger.WithLogger(ctx, u.logger).Warn("retrying unit of work",
			zap.String("operation", operation),
			zap.String("tenant_id", tenantID.String()),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})

	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) && !shared.IsRetryable(err) {
		return shared.NewDomainError(shared.CodeTransactionTimeout, operation+" exceeded its deadline: "+err.Error())
	}
	return err
}
