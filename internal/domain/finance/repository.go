package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FinancialTrigger raises financial titles for orders. It runs inside the caller's
// transaction so a failed transition never leaves a title behind.
type FinancialTrigger interface {
	CreateTitle(ctx context.Context, tenantID, orderID uuid.UUID, amount decimal.Decimal, kind TitleKind) (uuid.UUID, error)
}

// TitleRepository defines the interface for title persistence.
// Implementations are bound to one tenant.
type TitleRepository interface {
	// Save creates or updates a title
	Save(ctx context.Context, title *Title) error

	// FindByID returns a title
	FindByID(ctx context.Context, id uuid.UUID) (*Title, error)

	// ListByOrder returns the titles raised for an order
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Title, error)

	// ExistsForOrder reports whether a title of the kind exists for the order
	ExistsForOrder(ctx context.Context, orderID uuid.UUID, kind TitleKind) (bool, error)
}

// TriggerRecordRepository defines the interface for trigger record persistence
type TriggerRecordRepository interface {
	// Exists reports whether the stage already triggered for the order
	Exists(ctx context.Context, orderID, stageID uuid.UUID) (bool, error)

	// Create inserts a record; a duplicate key fails with ALREADY_EXISTS
	Create(ctx context.Context, record *TriggerRecord) error
}
