package inventory

import (
	"time"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationStatus is the lifecycle state of a reservation
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationReleased  ReservationStatus = "RELEASED"
	ReservationCommitted ReservationStatus = "COMMITTED"
)

// Reservation is a commitment against available quantity that has not yet become
// a stock deduction. It resolves exactly once, by release or by commit.
type Reservation struct {
	shared.TenantAggregateRoot
	ItemID      uuid.UUID         `gorm:"type:uuid;not null;index:idx_reservation_item_location,priority:1"`
	LocationID  uuid.UUID         `gorm:"type:uuid;not null;index:idx_reservation_item_location,priority:2"`
	Quantity    decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Status      ReservationStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	OrderID     *uuid.UUID        `gorm:"type:uuid;index"`
	OrderItemID *uuid.UUID        `gorm:"type:uuid"`
	MovementID  *uuid.UUID        `gorm:"type:uuid"`
	ResolvedAt  *time.Time
}

// TableName returns the table name for GORM
func (Reservation) TableName() string {
	return "stock_reservations"
}

// NewReservation creates an active reservation
func NewReservation(tenantID, itemID, locationID uuid.UUID, quantity decimal.Decimal) (*Reservation, error) {
	if err := shared.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	if itemID == uuid.Nil || locationID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Item and location are required for a reservation")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Reservation quantity must be positive")
	}

	return &Reservation{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ItemID:              itemID,
		LocationID:          locationID,
		Quantity:            quantity,
		Status:              ReservationActive,
	}, nil
}

// ForOrder scopes the reservation to an order line
func (r *Reservation) ForOrder(orderID, orderItemID uuid.UUID) *Reservation {
	r.OrderID = &orderID
	r.OrderItemID = &orderItemID
	return r
}

// IsActive returns true until the reservation is released or committed
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationActive
}

// Release marks the reservation released
func (r *Reservation) Release() error {
	if !r.IsActive() {
		return r.alreadyResolved()
	}
	r.resolve(ReservationReleased)
	return nil
}

// Commit marks the reservation converted into the given movement
func (r *Reservation) Commit(movementID uuid.UUID) error {
	if !r.IsActive() {
		return r.alreadyResolved()
	}
	r.MovementID = &movementID
	r.resolve(ReservationCommitted)
	return nil
}

func (r *Reservation) resolve(status ReservationStatus) {
	now := time.Now().UTC()
	r.Status = status
	r.ResolvedAt = &now
	r.Touch()
}

func (r *Reservation) alreadyResolved() error {
	return shared.NewDomainError(shared.CodeAlreadyResolved,
		"Reservation "+r.ID.String()+" is already "+string(r.Status))
}
