package inventory

import (
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryLevel is the per (item, location) aggregate of on-hand quantity,
// reserved quantity and weighted-average cost.
// Quantity always equals the sum of the location's batch quantities and the sum of
// its ledger movements; ReservedQuantity never exceeds Quantity.
type InventoryLevel struct {
	shared.TenantAggregateRoot
	ItemID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_level_item_location,priority:1"`
	LocationID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_level_item_location,priority:2"`
	Quantity         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AverageCost      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryLevel) TableName() string {
	return "inventory_levels"
}

// NewInventoryLevel creates an empty level for an item at a location
func NewInventoryLevel(tenantID, itemID, locationID uuid.UUID) (*InventoryLevel, error) {
	if err := shared.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	if itemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item ID cannot be empty")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}

	return &InventoryLevel{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ItemID:              itemID,
		LocationID:          locationID,
		Quantity:            decimal.Zero,
		ReservedQuantity:    decimal.Zero,
		AverageCost:         decimal.Zero,
	}, nil
}

// Available returns the quantity that is neither reserved nor missing
func (l *InventoryLevel) Available() decimal.Decimal {
	return l.Quantity.Sub(l.ReservedQuantity)
}

// ApplyMovement changes the on-hand quantity by a signed amount and re-averages the
// cost for incoming reasons. unitCost is only read when the reason re-averages.
func (l *InventoryLevel) ApplyMovement(quantityChanged decimal.Decimal, reason MovementReason, unitCost decimal.Decimal) error {
	if err := ValidateMovement(quantityChanged, reason); err != nil {
		return err
	}
	if unitCost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}

	newQuantity := l.Quantity.Add(quantityChanged)
	if !reason.AllowsForce() {
		if newQuantity.IsNegative() {
			return shared.NewDomainError(shared.CodeInvariantViolation,
				"Movement would drive quantity negative: on hand "+l.Quantity.String()+", change "+quantityChanged.String())
		}
		if newQuantity.LessThan(l.ReservedQuantity) {
			return shared.NewDomainError(shared.CodeInsufficientAvailable,
				"Only "+l.Available().String()+" units are not reserved")
		}
	}

	if reason.ReAverages(quantityChanged) {
		l.AverageCost = WeightedAverage(l.Quantity, l.AverageCost, quantityChanged, unitCost)
	}
	l.Quantity = newQuantity
	l.Touch()
	return nil
}

// Reserve commits a quantity against available stock
func (l *InventoryLevel) Reserve(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}
	if quantity.GreaterThan(l.Available()) {
		return shared.NewDomainError(shared.CodeInsufficientAvailable,
			"Cannot reserve "+quantity.String()+", only "+l.Available().String()+" available")
	}
	l.ReservedQuantity = l.ReservedQuantity.Add(quantity)
	l.Touch()
	return nil
}

// ReleaseReserved returns reserved units to available
func (l *InventoryLevel) ReleaseReserved(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}
	if quantity.GreaterThan(l.ReservedQuantity) {
		return shared.NewDomainError(shared.CodeInvariantViolation,
			"Cannot release "+quantity.String()+", only "+l.ReservedQuantity.String()+" reserved")
	}
	l.ReservedQuantity = l.ReservedQuantity.Sub(quantity)
	l.Touch()
	return nil
}

// IsBelowThreshold reports whether on-hand stock is at or under the threshold
func (l *InventoryLevel) IsBelowThreshold(threshold decimal.Decimal) bool {
	return threshold.IsPositive() && l.Quantity.LessThanOrEqual(threshold)
}
