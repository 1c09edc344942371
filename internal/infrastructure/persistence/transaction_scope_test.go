package persistence

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	appinv "github.com/erp/stockcore/internal/application/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockPostgres creates a GORM postgres connection backed by sqlmock
func newMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func TestGormTransactionScope_Postgres(t *testing.T) {
	tenantID := uuid.New()
	itemID, locationID := uuid.New(), uuid.New()
	setTenant := regexp.QuoteMeta(`SELECT set_config('app.current_tenant', $1, true)`)

	t.Run("publishes the tenant and locks the level row", func(t *testing.T) {
		db, mock, mockDB := newMockPostgres(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(setTenant).WithArgs(tenantID.String()).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT \* FROM "inventory_levels" WHERE .*item_id = .*"inventory_levels"\."tenant_id" = .*FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "item_id", "location_id", "quantity", "reserved_quantity", "average_cost", "version"}).
				AddRow(uuid.New(), tenantID, itemID, locationID, "5", "0", "2", 1))
		mock.ExpectCommit()

		scope := NewGormTransactionScope(db, DriverPostgres, nil)
		err := scope.Execute(context.Background(), tenantID, func(repos appinv.TransactionalRepositories) error {
			level, err := repos.Levels().FindForUpdate(context.Background(), itemID, locationID)
			if err != nil {
				return err
			}
			assert.Equal(t, "5", level.Quantity.String())
			return nil
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("serialization failure becomes a retryable conflict", func(t *testing.T) {
		db, mock, mockDB := newMockPostgres(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(setTenant).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT \* FROM "inventory_levels"`).
			WillReturnError(&pgconn.PgError{Code: "40001", Message: "could not serialize access"})
		mock.ExpectRollback()

		scope := NewGormTransactionScope(db, DriverPostgres, nil)
		err := scope.Execute(context.Background(), tenantID, func(repos appinv.TransactionalRepositories) error {
			_, err := repos.Levels().FindForUpdate(context.Background(), itemID, locationID)
			return err
		})

		assert.ErrorIs(t, err, shared.ErrTransactionConflict)
		assert.True(t, shared.IsRetryable(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit failure is translated", func(t *testing.T) {
		db, mock, mockDB := newMockPostgres(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(setTenant).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: "40001"})

		scope := NewGormTransactionScope(db, DriverPostgres, nil)
		err := scope.Execute(context.Background(), tenantID, func(appinv.TransactionalRepositories) error {
			return nil
		})

		assert.ErrorIs(t, err, shared.ErrTransactionConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("business errors roll back untouched", func(t *testing.T) {
		db, mock, mockDB := newMockPostgres(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectExec(setTenant).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		scope := NewGormTransactionScope(db, DriverPostgres, nil)
		err := scope.Execute(context.Background(), tenantID, func(appinv.TransactionalRepositories) error {
			return shared.ErrInsufficientAvailable
		})

		assert.Same(t, shared.ErrInsufficientAvailable, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
