package pipeline

import (
	"strings"
	"time"

	"github.com/erp/stockcore/internal/domain/catalog"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order moves through the stages of one pipeline. It occupies exactly one stage at
// a time and carries cached totals over its lines.
type Order struct {
	shared.TenantAggregateRoot
	DisplayID     int64           `gorm:"not null;index"`
	PipelineID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	StageID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	LocationID    uuid.UUID       `gorm:"type:uuid;not null"`
	CustomerID    *uuid.UUID      `gorm:"type:uuid;index"`
	Notes         string          `gorm:"type:text"`
	Tags          []string        `gorm:"serializer:json;type:text"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalDiscount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ClosedAt      *time.Time
	Items         []OrderItem `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates an order in its entry stage
func NewOrder(tenantID uuid.UUID, displayID int64, pipelineID uuid.UUID, stage *Stage, locationID uuid.UUID) (*Order, error) {
	if err := shared.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	if stage == nil || stage.PipelineID != pipelineID {
		return nil, shared.NewDomainError("INVALID_STAGE", "Initial stage must belong to the order pipeline")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Order location cannot be empty")
	}
	if displayID <= 0 {
		return nil, shared.NewDomainError("INVALID_DISPLAY_ID", "Display ID must be positive")
	}

	order := &Order{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		DisplayID:           displayID,
		PipelineID:          pipelineID,
		StageID:             stage.ID,
		LocationID:          locationID,
		Tags:                make([]string, 0),
		TotalAmount:         decimal.Zero,
		TotalDiscount:       decimal.Zero,
		Items:               make([]OrderItem, 0),
	}
	if stage.IsTerminal() {
		now := order.CreatedAt
		order.ClosedAt = &now
	}
	return order, nil
}

// SetCustomer sets the optional customer reference
func (o *Order) SetCustomer(customerID *uuid.UUID) {
	o.CustomerID = customerID
}

// SetNotes sets free-form notes and tags
func (o *Order) SetNotes(notes string, tags []string) {
	o.Notes = notes
	o.Tags = o.Tags[:0]
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			o.Tags = append(o.Tags, tag)
		}
	}
}

// IsClosed returns true once the order entered a DONE or CANCELLED stage
func (o *Order) IsClosed() bool {
	return o.ClosedAt != nil
}

// EnsureEditable rejects content changes while the current stage is locked or terminal
func (o *Order) EnsureEditable(current *Stage) error {
	if current.Trigger.IsLocked {
		return shared.NewDomainError(shared.CodeStageLocked, "Order is in locked stage "+current.Name)
	}
	if current.IsTerminal() {
		return shared.NewDomainError(shared.CodeTerminalStage, "Order is closed in stage "+current.Name)
	}
	return nil
}

// AddItem snapshots an item onto a new line
func (o *Order) AddItem(current *Stage, snap catalog.ItemSnapshot, quantity decimal.Decimal, unitPrice *decimal.Decimal, discount decimal.Decimal) (*OrderItem, error) {
	if err := o.EnsureEditable(current); err != nil {
		return nil, err
	}
	line, err := NewOrderItem(o.TenantID, o.ID, snap, quantity, unitPrice, discount)
	if err != nil {
		return nil, err
	}
	o.Items = append(o.Items, *line)
	o.recalculateTotals()
	o.Touch()
	return &o.Items[len(o.Items)-1], nil
}

// UpdateItemQuantity changes a line quantity. Lines whose stock already left the
// ledger cannot change.
func (o *Order) UpdateItemQuantity(current *Stage, lineID uuid.UUID, quantity decimal.Decimal) (*OrderItem, error) {
	if err := o.EnsureEditable(current); err != nil {
		return nil, err
	}
	line := o.Item(lineID)
	if line == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Order item not found")
	}
	if line.StockState == StockStateDeducted {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Stock for this line was already deducted")
	}
	if err := line.UpdateQuantity(quantity); err != nil {
		return nil, err
	}
	o.recalculateTotals()
	o.Touch()
	return line, nil
}

// RemoveItem drops a line and returns it so the caller can undo its reservation
func (o *Order) RemoveItem(current *Stage, lineID uuid.UUID) (*OrderItem, error) {
	if err := o.EnsureEditable(current); err != nil {
		return nil, err
	}
	for idx := range o.Items {
		if o.Items[idx].ID != lineID {
			continue
		}
		removed := o.Items[idx]
		if removed.StockState == StockStateDeducted {
			return nil, shared.NewDomainError(shared.CodeInvalidState, "Stock for this line was already deducted")
		}
		o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
		o.recalculateTotals()
		o.Touch()
		return &removed, nil
	}
	return nil, shared.NewDomainError(shared.CodeNotFound, "Order item not found")
}

// Item returns the line with the given id, or nil
func (o *Order) Item(lineID uuid.UUID) *OrderItem {
	for idx := range o.Items {
		if o.Items[idx].ID == lineID {
			return &o.Items[idx]
		}
	}
	return nil
}

// MoveTo points the order at the target stage. closed_at is set the first time the
// order enters a terminal stage and never moved afterwards.
func (o *Order) MoveTo(current, target *Stage, at time.Time) error {
	if target.PipelineID != o.PipelineID {
		return shared.NewDomainError("INVALID_STAGE", "Target stage belongs to another pipeline")
	}
	if current.IsTerminal() {
		return shared.NewDomainError(shared.CodeTerminalStage, "Order is closed in stage "+current.Name+"; reopen it first")
	}
	o.StageID = target.ID
	if target.IsTerminal() && o.ClosedAt == nil {
		closed := at.UTC()
		o.ClosedAt = &closed
	}
	o.Touch()
	return nil
}

// Reopen moves a closed order out of its terminal stage. closed_at is cleared when
// the target is not terminal and kept when it is.
func (o *Order) Reopen(target *Stage, reason string, at time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("REOPEN_REASON_REQUIRED", "Reopening an order requires a reason")
	}
	if target.PipelineID != o.PipelineID {
		return shared.NewDomainError("INVALID_STAGE", "Target stage belongs to another pipeline")
	}
	if !o.IsClosed() {
		return shared.NewDomainError(shared.CodeInvalidState, "Only closed orders can be reopened")
	}
	o.StageID = target.ID
	if !target.IsTerminal() {
		o.ClosedAt = nil
	} else if o.ClosedAt == nil {
		closed := at.UTC()
		o.ClosedAt = &closed
	}
	o.Touch()
	return nil
}

// recalculateTotals recalculates the order totals
func (o *Order) recalculateTotals() {
	total := decimal.Zero
	discount := decimal.Zero
	for _, line := range o.Items {
		total = total.Add(line.Amount())
		discount = discount.Add(line.Discount)
	}
	o.TotalAmount = total
	o.TotalDiscount = discount
}
