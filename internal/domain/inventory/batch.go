package inventory

import (
	"strings"
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// DefaultBatchNumber is used when an incoming movement names no batch
	DefaultBatchNumber = "DEFAULT"
	// DefaultPosition is used when an incoming movement names no bin/shelf
	DefaultPosition = "GENERAL"
	// MultiplePositions is recorded on movements that consumed more than one batch
	MultiplePositions = "MULTIPLE"
)

// BatchKey identifies a batch within an (item, location)
type BatchKey struct {
	Number   string
	Position string
}

// DefaultBatchKey returns the key of the catch-all batch
func DefaultBatchKey() BatchKey {
	return BatchKey{Number: DefaultBatchNumber, Position: DefaultPosition}
}

// Normalize fills empty parts with their defaults
func (k BatchKey) Normalize() BatchKey {
	k.Number = strings.TrimSpace(k.Number)
	k.Position = strings.TrimSpace(k.Position)
	if k.Number == "" {
		k.Number = DefaultBatchNumber
	}
	if k.Position == "" {
		k.Position = DefaultPosition
	}
	return k
}

// String returns number@position
func (k BatchKey) String() string {
	return k.Number + "@" + k.Position
}

// InventoryBatch is a traceable lot of an item at a location with its own cost and
// optional expiration. Rows are kept at zero quantity for audit.
type InventoryBatch struct {
	shared.TenantAggregateRoot
	ItemID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_batch_key,priority:1"`
	LocationID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_batch_key,priority:2"`
	BatchNumber string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_inventory_batch_key,priority:3"`
	Position    string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_inventory_batch_key,priority:4"`
	ExpiresAt   *time.Time      `gorm:"index"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryBatch) TableName() string {
	return "inventory_batches"
}

// NewInventoryBatch creates an empty batch; quantity arrives through Add
func NewInventoryBatch(tenantID, itemID, locationID uuid.UUID, key BatchKey, expiresAt *time.Time) (*InventoryBatch, error) {
	if err := shared.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	if itemID == uuid.Nil || locationID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Item and location are required for a batch")
	}
	key = key.Normalize()

	return &InventoryBatch{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ItemID:              itemID,
		LocationID:          locationID,
		BatchNumber:         key.Number,
		Position:            key.Position,
		ExpiresAt:           expiresAt,
		Quantity:            decimal.Zero,
		UnitCost:            decimal.Zero,
	}, nil
}

// Key returns the batch key
func (b *InventoryBatch) Key() BatchKey {
	return BatchKey{Number: b.BatchNumber, Position: b.Position}
}

// Add receives quantity into the batch, re-averaging the batch cost
func (b *InventoryBatch) Add(quantity, unitCost decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Batch quantity to add must be positive")
	}
	if unitCost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}
	b.UnitCost = WeightedAverage(b.Quantity, b.UnitCost, quantity, unitCost)
	b.Quantity = b.Quantity.Add(quantity)
	b.Touch()
	return nil
}

// Deduct removes quantity from the batch. force lets a correction take the batch
// below zero; everything else fails with INSUFFICIENT_BATCH_QUANTITY.
func (b *InventoryBatch) Deduct(quantity decimal.Decimal, force bool) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Batch quantity to deduct must be positive")
	}
	if !force && quantity.GreaterThan(b.Quantity) {
		return shared.NewDomainError(shared.CodeInsufficientBatchQuantity,
			"Batch "+b.Key().String()+" holds "+b.Quantity.String()+", cannot deduct "+quantity.String())
	}
	b.Quantity = b.Quantity.Sub(quantity)
	b.Touch()
	return nil
}

// IsExpired returns true if the batch expired before the given time
func (b *InventoryBatch) IsExpired(at time.Time) bool {
	return b.ExpiresAt != nil && b.ExpiresAt.Before(at)
}

// ToStrategyBatch converts to the selection strategy view
func (b *InventoryBatch) ToStrategyBatch() strategy.Batch {
	return strategy.Batch{
		ID:          b.ID,
		BatchNumber: b.BatchNumber,
		Position:    b.Position,
		Quantity:    b.Quantity,
		UnitCost:    b.UnitCost,
		ExpiresAt:   b.ExpiresAt,
		CreatedAt:   b.CreatedAt,
	}
}

// State returns a snapshot of the batch
func (b *InventoryBatch) State() BatchState {
	return BatchState{
		BatchID:   b.ID,
		Key:       b.Key(),
		Quantity:  b.Quantity,
		UnitCost:  b.UnitCost,
		ExpiresAt: b.ExpiresAt,
	}
}

// BatchState is the observable result of a batch adjustment
type BatchState struct {
	BatchID   uuid.UUID
	Key       BatchKey
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
	ExpiresAt *time.Time
	// Delta is the signed quantity applied to this batch by the adjustment
	Delta decimal.Decimal
}
