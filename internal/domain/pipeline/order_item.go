package pipeline

import (
	"time"

	"github.com/erp/stockcore/internal/domain/catalog"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockState tracks what the pipeline has done to stock for an order line
type StockState string

const (
	StockStateNone     StockState = "NONE"
	StockStateReserved StockState = "RESERVED"
	StockStateDeducted StockState = "DEDUCTED"
)

// OrderItem is an order line. UnitPrice, UnitCost and ItemKind are frozen from the
// catalog when the line is created and never follow later catalog changes.
type OrderItem struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID        `gorm:"type:uuid;not null;index"`
	OrderID       uuid.UUID        `gorm:"type:uuid;not null;index"`
	ItemID        uuid.UUID        `gorm:"type:uuid;not null"`
	ItemKind      catalog.ItemKind `gorm:"type:varchar(20);not null"`
	SKU           string           `gorm:"column:sku;type:varchar(50);not null"`
	Name          string           `gorm:"type:varchar(200);not null"`
	Quantity      decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	UnitPrice     decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	UnitCost      decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Discount      decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	StockState    StockState       `gorm:"type:varchar(20);not null;default:'NONE'"`
	ReservationID *uuid.UUID       `gorm:"type:uuid"`
	CreatedAt     time.Time        `gorm:"not null"`
	UpdatedAt     time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// NewOrderItem snapshots a catalog item onto a new order line.
// unitPrice overrides the catalog sale price when set.
func NewOrderItem(tenantID, orderID uuid.UUID, snap catalog.ItemSnapshot, quantity decimal.Decimal, unitPrice *decimal.Decimal, discount decimal.Decimal) (*OrderItem, error) {
	if snap.ItemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item ID cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	price := snap.SalePrice
	if unitPrice != nil {
		price = *unitPrice
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	now := time.Now().UTC()
	line := &OrderItem{
		ID:         uuid.New(),
		TenantID:   tenantID,
		OrderID:    orderID,
		ItemID:     snap.ItemID,
		ItemKind:   snap.Kind,
		SKU:        snap.SKU,
		Name:       snap.Name,
		Quantity:   quantity,
		UnitPrice:  price,
		UnitCost:   snap.CostPrice,
		Discount:   decimal.Zero,
		StockState: StockStateNone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := line.setDiscount(discount); err != nil {
		return nil, err
	}
	return line, nil
}

// Gross returns quantity times unit price
func (i *OrderItem) Gross() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// Amount returns the line total after discount
func (i *OrderItem) Amount() decimal.Decimal {
	return i.Gross().Sub(i.Discount)
}

// UpdateQuantity changes the line quantity; the discount must still fit
func (i *OrderItem) UpdateQuantity(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if i.Discount.GreaterThan(quantity.Mul(i.UnitPrice)) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed line amount")
	}
	i.Quantity = quantity
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkReserved records the reservation that holds stock for this line.
// Bundle lines reserve per component and pass nil.
func (i *OrderItem) MarkReserved(reservationID *uuid.UUID) {
	i.StockState = StockStateReserved
	i.ReservationID = reservationID
	i.UpdatedAt = time.Now().UTC()
}

// MarkDeducted records that stock for this line left the ledger
func (i *OrderItem) MarkDeducted() {
	i.StockState = StockStateDeducted
	i.UpdatedAt = time.Now().UTC()
}

// MarkReleased returns the line to no stock effect
func (i *OrderItem) MarkReleased() {
	i.StockState = StockStateNone
	i.ReservationID = nil
	i.UpdatedAt = time.Now().UTC()
}

// MovesStock returns true if the line itself or its components move stock
func (i *OrderItem) MovesStock() bool {
	return i.ItemKind == catalog.ItemKindProduct || i.ItemKind == catalog.ItemKindBundle
}

func (i *OrderItem) setDiscount(discount decimal.Decimal) error {
	if discount.IsNegative() {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	if discount.GreaterThan(i.Gross()) {
		return shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot exceed line amount")
	}
	i.Discount = discount
	return nil
}
