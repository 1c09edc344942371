package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemSnapshot is the read-only catalog view frozen onto an order line
type ItemSnapshot struct {
	ItemID     uuid.UUID
	SKU        string
	Name       string
	Kind       ItemKind
	CategoryID *uuid.UUID
	BaseUnit   string
	SalePrice  decimal.Decimal
	CostPrice  decimal.Decimal
}

// Lookup resolves items for order-line snapshots. It never mutates the catalog.
type Lookup interface {
	Snapshot(ctx context.Context, itemID uuid.UUID) (ItemSnapshot, error)
}

// ItemRepository defines the interface for item persistence. Implementations are
// bound to one tenant.
type ItemRepository interface {
	Lookup

	// FindByID finds an item by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)

	// FindBySKU finds an item by its SKU
	FindBySKU(ctx context.Context, sku string) (*Item, error)

	// FindByIDs finds multiple items by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Item, error)

	// ExistsBySKU checks if an item with the given SKU exists
	ExistsBySKU(ctx context.Context, sku string) (bool, error)

	// Save creates or updates an item
	Save(ctx context.Context, item *Item) error
}

// CompositionRepository defines the interface for composition persistence
type CompositionRepository interface {
	// ListByParent returns the children of an item
	ListByParent(ctx context.Context, parentID uuid.UUID) ([]Composition, error)

	// Save creates or updates a composition
	Save(ctx context.Context, composition *Composition) error

	// Delete removes a parent/child link
	Delete(ctx context.Context, parentID, childID uuid.UUID) error
}

// LocationRepository defines the interface for location persistence
type LocationRepository interface {
	// FindByID finds a location by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Location, error)

	// FirstWarehouse returns the earliest created warehouse of the tenant
	FirstWarehouse(ctx context.Context) (*Location, error)

	// Save creates or updates a location
	Save(ctx context.Context, location *Location) error
}
