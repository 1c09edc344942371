package persistence

import (
	"context"
	"database/sql"

	appinv "github.com/erp/stockcore/internal/application/inventory"
	"github.com/erp/stockcore/internal/domain/catalog"
	"github.com/erp/stockcore/internal/domain/finance"
	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/pipeline"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/erp/stockcore/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// On postgres each transaction runs SERIALIZABLE and publishes its tenant to the
// row level security policies through app.current_tenant.
type GormTransactionScope struct {
	db     *gorm.DB
	driver string
	logger *zap.Logger
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB, driver string, l *zap.Logger) *GormTransactionScope {
	if l == nil {
		l = zap.NewNop()
	}
	if driver == "" {
		driver = DriverPostgres
	}
	return &GormTransactionScope{db: db, driver: driver, logger: l}
}

// Execute runs fn within a database transaction bound to tenantID.
// If fn returns an error, the transaction is rolled back.
// Driver errors are translated so callers can tell conflicts from failures.
func (s *GormTransactionScope) Execute(ctx context.Context, tenantID uuid.UUID, fn func(repos appinv.TransactionalRepositories) error) error {
	if err := shared.RequireTenant(tenantID); err != nil {
		return err
	}
	ctx = tenant.WithTenant(ctx, tenantID)

	var opts []*sql.TxOptions
	if s.driver == DriverPostgres {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.driver == DriverPostgres {
			if err := tx.Exec("SELECT set_config('app.current_tenant', ?, true)", tenantID.String()).Error; err != nil {
				return err
			}
		}
		return fn(newGormTransactionalRepositories(tx, tenantID))
	}, opts...)

	err = translateError(err)
	if err != nil && shared.IsRetryable(err) {
		logger.WithLogger(ctx, s.logger).Debug("transaction aborted",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	}
	return err
}

// gormTransactionalRepositories provides access to all repositories within a transaction
type gormTransactionalRepositories struct {
	tx       *gorm.DB
	tenantID uuid.UUID
}

func newGormTransactionalRepositories(tx *gorm.DB, tenantID uuid.UUID) *gormTransactionalRepositories {
	return &gormTransactionalRepositories{tx: tx, tenantID: tenantID}
}

func (r *gormTransactionalRepositories) TenantID() uuid.UUID { return r.tenantID }

func (r *gormTransactionalRepositories) Levels() inventory.LevelRepository {
	return NewGormLevelRepository(r.tx, r.tenantID)
}

func (r *gormTransactionalRepositories) Batches() inventory.BatchRepository {
	return NewGormBatchRepository(r.tx, r.tenantID)
}

func (r *gormTransactionalRepositories) Movements() inventory.MovementRepository {
	return NewGormMovementRepository(r.tx, r.tenantID)
}

func (r *gormTransactionalRepositories) Reservations() inventory.ReservationRepository {
	return NewGormReservationRepository(r.tx, r.tenantID)
}

func (r *gormTransactionalRepositories) Items() catalog.ItemRepository {
	return NewGormItemRepository(r.tx, r.tenantID)
}

func (r *gormTransactionalRepositories) Compositions() catalog.CompositionRepository {
	return NewGormCompositionRepository(r.tx, r.tenantID)
}

func (r *gormTransactionalRepositories) Locations() catalog.LocationRepository {
	return NewGormLocationRepository(r.tx, r.tenantID)
}

func (r *gormTransactionalRepositories) Pipelines() pipeline.PipelineRepository {
	return NewGormPipelineRepository(r.tx, r.tenantID)
}

func (r *gormTransactionalRepositories) Orders() pipeline.OrderRepository {
	return NewGormOrderRepository(r.tx, r.tenantID)
}

func (r *gormTransactionalRepositories) Titles() finance.TitleRepository {
	return NewGormTitleRepository(r.tx, r.tenantID)
}

func (r *gormTransactionalRepositories) TriggerRecords() finance.TriggerRecordRepository {
	return NewGormTriggerRecordRepository(r.tx, r.tenantID)
}

var (
	_ appinv.TransactionScope          = (*GormTransactionScope)(nil)
	_ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
