package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/persistence/tenant"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *shared.DomainError
	}{
		{name: "record not found", err: gorm.ErrRecordNotFound, want: shared.ErrNotFound},
		{name: "duplicated key", err: gorm.ErrDuplicatedKey, want: shared.ErrAlreadyExists},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: shared.ErrTransactionConflict},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, want: shared.ErrTransactionConflict},
		{name: "lock not available", err: &pgconn.PgError{Code: "55P03"}, want: shared.ErrTransactionConflict},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: shared.ErrAlreadyExists},
		{name: "statement timeout", err: &pgconn.PgError{Code: "57014"}, want: shared.ErrTransactionTimeout},
		{name: "wrapped deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), want: shared.ErrTransactionTimeout},
		{name: "sqlite busy", err: errors.New("database is locked"), want: shared.ErrTransactionConflict},
		{name: "missing tenant", err: tenant.ErrTenantIDRequired, want: shared.ErrTenantRequired},
		{name: "cross tenant write", err: tenant.ErrCrossTenantWrite, want: shared.ErrInvariantViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.Equal(t, tt.want.Code, shared.ErrorCode(got))
		})
	}
}

func TestTranslateError_PassThrough(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, translateError(nil))
	})

	t.Run("domain errors are unchanged", func(t *testing.T) {
		err := fmt.Errorf("reserve: %w", shared.ErrInsufficientAvailable)
		assert.Same(t, err, translateError(err))
	})

	t.Run("other postgres errors keep their cause", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "23503"}
		got := translateError(pgErr)
		assert.Empty(t, shared.ErrorCode(got))
		assert.ErrorIs(t, got, pgErr)
	})

	t.Run("translated errors keep the driver cause", func(t *testing.T) {
		pgErr := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
		got := translateError(pgErr)
		assert.True(t, shared.IsRetryable(got))

		var cause *pgconn.PgError
		assert.ErrorAs(t, got, &cause)
		assert.Contains(t, got.Error(), "could not serialize access")
	})
}
