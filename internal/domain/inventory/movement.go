package inventory

import (
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementReason classifies a ledger entry
type MovementReason string

const (
	ReasonInitialStock MovementReason = "INITIAL_STOCK"
	ReasonPurchase     MovementReason = "PURCHASE"
	ReasonSale         MovementReason = "SALE"
	ReasonReturn       MovementReason = "RETURN"
	ReasonDelivery     MovementReason = "DELIVERY"
	ReasonSpoilage     MovementReason = "SPOILAGE"
	ReasonCorrection   MovementReason = "CORRECTION"
	ReasonTransferOut  MovementReason = "TRANSFER_OUT"
	ReasonTransferIn   MovementReason = "TRANSFER_IN"
)

// String returns the string representation of MovementReason
func (r MovementReason) String() string {
	return string(r)
}

// IsValid returns true if the reason is known
func (r MovementReason) IsValid() bool {
	switch r {
	case ReasonInitialStock, ReasonPurchase, ReasonSale, ReasonReturn, ReasonDelivery,
		ReasonSpoilage, ReasonCorrection, ReasonTransferOut, ReasonTransferIn:
		return true
	}
	return false
}

// IsIncoming returns true if the reason always adds stock
func (r MovementReason) IsIncoming() bool {
	switch r {
	case ReasonInitialStock, ReasonPurchase, ReasonReturn, ReasonTransferIn:
		return true
	}
	return false
}

// IsOutgoing returns true if the reason always removes stock
func (r MovementReason) IsOutgoing() bool {
	switch r {
	case ReasonSale, ReasonDelivery, ReasonSpoilage, ReasonTransferOut:
		return true
	}
	return false
}

// AllowsForce returns true if the reason may push balances past their invariants.
// Only corrections can, and they must carry a note.
func (r MovementReason) AllowsForce() bool {
	return r == ReasonCorrection
}

// ReAverages reports whether a movement of this reason and signed quantity
// participates in weighted-average costing.
func (r MovementReason) ReAverages(quantityChanged decimal.Decimal) bool {
	if r.IsIncoming() {
		return true
	}
	return r == ReasonCorrection && quantityChanged.IsPositive()
}

// AllReasons returns every movement reason
func AllReasons() []MovementReason {
	return []MovementReason{
		ReasonInitialStock, ReasonPurchase, ReasonSale, ReasonReturn, ReasonDelivery,
		ReasonSpoilage, ReasonCorrection, ReasonTransferOut, ReasonTransferIn,
	}
}

// StockMovement is one immutable entry of the append-only stock ledger.
// Replaying every movement of an (item, location) from zero yields the level quantity.
type StockMovement struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID        `gorm:"type:uuid;not null;index:idx_stock_movement_key,priority:1"`
	ItemID          uuid.UUID        `gorm:"type:uuid;not null;index:idx_stock_movement_key,priority:2"`
	LocationID      uuid.UUID        `gorm:"type:uuid;not null;index:idx_stock_movement_key,priority:3"`
	QuantityChanged decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Reason          MovementReason   `gorm:"type:varchar(32);not null"`
	UnitCost        *decimal.Decimal `gorm:"type:decimal(18,4)"`
	UnitPrice       *decimal.Decimal `gorm:"type:decimal(18,4)"`
	Position        *string          `gorm:"type:varchar(100)"`
	Notes           *string          `gorm:"type:text"`
	OrderID         *uuid.UUID       `gorm:"type:uuid;index"`
	ReservationID   *uuid.UUID       `gorm:"type:uuid"`
	CreatedAt       time.Time        `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement validates and builds a ledger entry
func NewStockMovement(
	tenantID, itemID, locationID uuid.UUID,
	quantityChanged decimal.Decimal,
	reason MovementReason,
) (*StockMovement, error) {
	if err := shared.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	if itemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item ID cannot be empty")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	if err := ValidateMovement(quantityChanged, reason); err != nil {
		return nil, err
	}

	return &StockMovement{
		ID:              uuid.New(),
		TenantID:        tenantID,
		ItemID:          itemID,
		LocationID:      locationID,
		QuantityChanged: quantityChanged,
		Reason:          reason,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// ValidateMovement checks that the signed quantity agrees with the reason
func ValidateMovement(quantityChanged decimal.Decimal, reason MovementReason) error {
	if !reason.IsValid() {
		return shared.NewDomainError("INVALID_REASON", "Invalid movement reason: "+string(reason))
	}
	if quantityChanged.IsZero() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity changed cannot be zero")
	}
	if reason.IsIncoming() && quantityChanged.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Reason "+string(reason)+" requires a positive quantity")
	}
	if reason.IsOutgoing() && quantityChanged.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Reason "+string(reason)+" requires a negative quantity")
	}
	return nil
}

// WithUnitCost sets the unit cost
func (m *StockMovement) WithUnitCost(cost decimal.Decimal) *StockMovement {
	m.UnitCost = &cost
	return m
}

// WithUnitPrice sets the unit price
func (m *StockMovement) WithUnitPrice(price decimal.Decimal) *StockMovement {
	m.UnitPrice = &price
	return m
}

// WithPosition sets the bin/shelf the movement touched
func (m *StockMovement) WithPosition(position string) *StockMovement {
	if position != "" {
		m.Position = &position
	}
	return m
}

// WithNotes sets free-form notes
func (m *StockMovement) WithNotes(notes string) *StockMovement {
	if notes != "" {
		m.Notes = &notes
	}
	return m
}

// WithOrder links the movement to an order
func (m *StockMovement) WithOrder(orderID uuid.UUID) *StockMovement {
	m.OrderID = &orderID
	return m
}

// WithReservation links the movement to the reservation it committed
func (m *StockMovement) WithReservation(reservationID uuid.UUID) *StockMovement {
	m.ReservationID = &reservationID
	return m
}

// IsIncrease returns true if the movement added stock
func (m *StockMovement) IsIncrease() bool {
	return m.QuantityChanged.IsPositive()
}
