package catalog

import (
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
)

// Location is a place where stock is held. Every location belongs to exactly one
// stock pool, the grouping of locations that share inventory context.
type Location struct {
	shared.TenantAggregateRoot
	Name        string    `gorm:"type:varchar(100);not null"`
	StockPoolID uuid.UUID `gorm:"type:uuid;not null;index"`
	IsWarehouse bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (Location) TableName() string {
	return "locations"
}

// NewLocation creates a location inside a stock pool
func NewLocation(tenantID uuid.UUID, name string, stockPoolID uuid.UUID, isWarehouse bool) (*Location, error) {
	if err := shared.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	if name == "" || len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_NAME", "Location name must be 1 to 100 characters")
	}
	if stockPoolID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STOCK_POOL", "Location must belong to a stock pool")
	}

	return &Location{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		StockPoolID:         stockPoolID,
		IsWarehouse:         isWarehouse,
	}, nil
}
