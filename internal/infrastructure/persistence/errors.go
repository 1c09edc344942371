package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/persistence/tenant"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the ledger reacts to
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
	pgQueryCanceled        = "57014"
)

// translateError maps driver errors onto domain errors so the unit of work can
// decide whether to retry. Domain errors pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return wrap(shared.ErrAlreadyExists, err)
	case errors.Is(err, context.DeadlineExceeded):
		return wrap(shared.ErrTransactionTimeout, err)
	case errors.Is(err, tenant.ErrTenantIDRequired):
		return wrap(shared.ErrTenantRequired, err)
	case errors.Is(err, tenant.ErrCrossTenantWrite):
		return wrap(shared.ErrInvariantViolation, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return wrap(shared.ErrTransactionConflict, err)
		case pgUniqueViolation:
			return wrap(shared.ErrAlreadyExists, err)
		case pgQueryCanceled:
			return wrap(shared.ErrTransactionTimeout, err)
		}
		return err
	}

	// sqlite reports writer contention as SQLITE_BUSY
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") {
		return wrap(shared.ErrTransactionConflict, err)
	}
	return err
}

// wrap keeps the domain code for errors.Is and the driver error for logs
func wrap(domainErr *shared.DomainError, cause error) error {
	return &translatedError{domain: domainErr, cause: cause}
}

type translatedError struct {
	domain *shared.DomainError
	cause  error
}

func (e *translatedError) Error() string {
	return e.domain.Message + ": " + e.cause.Error()
}

func (e *translatedError) Unwrap() []error {
	return []error{e.domain, e.cause}
}
