package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Repositories in this package are bound to one tenant when they are constructed.
// None of their methods accept a tenant, so no query path can omit the tenant filter.

// LevelRepository defines the interface for inventory level persistence
type LevelRepository interface {
	// Find returns the level for an item at a location, ErrNotFound if it was never moved
	Find(ctx context.Context, itemID, locationID uuid.UUID) (*InventoryLevel, error)

	// FindForUpdate is Find with a row lock held until the transaction ends
	FindForUpdate(ctx context.Context, itemID, locationID uuid.UUID) (*InventoryLevel, error)

	// GetOrCreateForUpdate returns the locked level, creating an empty one on first use
	GetOrCreateForUpdate(ctx context.Context, itemID, locationID uuid.UUID) (*InventoryLevel, error)

	// Save persists level changes
	Save(ctx context.Context, level *InventoryLevel) error

	// List returns every level of the tenant
	List(ctx context.Context) ([]InventoryLevel, error)
}

// BatchRepository defines the interface for inventory batch persistence
type BatchRepository interface {
	// FindByKeyForUpdate returns the locked batch with the given key, ErrNotFound if missing
	FindByKeyForUpdate(ctx context.Context, itemID, locationID uuid.UUID, key BatchKey) (*InventoryBatch, error)

	// ListAvailableForUpdate returns locked batches with positive quantity ordered by creation
	ListAvailableForUpdate(ctx context.Context, itemID, locationID uuid.UUID) ([]InventoryBatch, error)

	// ListByItemLocation returns every batch, including empty ones
	ListByItemLocation(ctx context.Context, itemID, locationID uuid.UUID) ([]InventoryBatch, error)

	// Save creates or updates a batch
	Save(ctx context.Context, batch *InventoryBatch) error
}

// MovementRepository is the append-only ledger store. It has no update or delete.
type MovementRepository interface {
	// Append writes one immutable movement
	Append(ctx context.Context, movement *StockMovement) error

	// FindByID returns a movement
	FindByID(ctx context.Context, id uuid.UUID) (*StockMovement, error)

	// ListByItemLocation returns the movements of an item at a location in ledger order
	ListByItemLocation(ctx context.Context, itemID, locationID uuid.UUID) ([]StockMovement, error)

	// ListByOrder returns the movements linked to an order
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]StockMovement, error)

	// ListKeys returns every (item, location) pair that has movements
	ListKeys(ctx context.Context) ([]LevelKey, error)
}

// ReservationRepository defines the interface for reservation persistence
type ReservationRepository interface {
	// FindForUpdate returns the locked reservation
	FindForUpdate(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// ListByOrder returns every reservation of an order, resolved ones included
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Reservation, error)

	// Save creates or updates a reservation
	Save(ctx context.Context, reservation *Reservation) error
}

// LevelKey identifies an (item, location) pair
type LevelKey struct {
	ItemID     uuid.UUID
	LocationID uuid.UUID
}
