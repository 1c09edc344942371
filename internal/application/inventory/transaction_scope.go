package inventory

import (
	"context"

	"github.com/erp/stockcore/internal/domain/catalog"
	"github.com/erp/stockcore/internal/domain/finance"
	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/pipeline"
	"github.com/google/uuid"
)

// TransactionScope runs a unit of work inside one database transaction bound to one tenant.
// Execute rejects uuid.Nil. If fn returns an error the transaction is rolled back,
// otherwise it is committed.
type TransactionScope interface {
	Execute(ctx context.Context, tenantID uuid.UUID, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to every repository inside the current
// transaction. Each repository is already bound to the transaction tenant.
type TransactionalRepositories interface {
	// TenantID returns the tenant the transaction is bound to
	TenantID() uuid.UUID

	Levels() inventory.LevelRepository
	Batches() inventory.BatchRepository
	// Movements is append-only
	Movements() inventory.MovementRepository
	Reservations() inventory.ReservationRepository

	Items() catalog.ItemRepository
	Compositions() catalog.CompositionRepository
	Locations() catalog.LocationRepository

	Pipelines() pipeline.PipelineRepository
	Orders() pipeline.OrderRepository

	Titles() finance.TitleRepository
	TriggerRecords() finance.TriggerRecordRepository
}
