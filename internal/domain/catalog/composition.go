package catalog

import (
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompositionType describes how a child item relates to its parent
type CompositionType string

const (
	// CompositionComponent children are consumed from stock when the parent is sold
	CompositionComponent  CompositionType = "COMPONENT"
	CompositionAccessory  CompositionType = "ACCESSORY"
	CompositionSubstitute CompositionType = "SUBSTITUTE"
)

// IsValid returns true if the type is known
func (t CompositionType) IsValid() bool {
	switch t {
	case CompositionComponent, CompositionAccessory, CompositionSubstitute:
		return true
	}
	return false
}

// Composition links a parent item to a child item with a per-unit quantity
type Composition struct {
	shared.TenantAggregateRoot
	ParentItemID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_composition_parent_child,priority:1"`
	ChildItemID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_composition_parent_child,priority:2"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Type         CompositionType `gorm:"type:varchar(20);not null;default:'COMPONENT'"`
}

// TableName returns the table name for GORM
func (Composition) TableName() string {
	return "item_compositions"
}

// NewComposition creates a parent/child link
func NewComposition(tenantID, parentID, childID uuid.UUID, quantity decimal.Decimal, compType CompositionType) (*Composition, error) {
	if err := shared.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	if parentID == uuid.Nil || childID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Parent and child items are required")
	}
	if parentID == childID {
		return nil, shared.NewDomainError("SELF_COMPOSITION", "An item cannot contain itself")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Composition quantity must be positive")
	}
	if !compType.IsValid() {
		return nil, shared.NewDomainError("INVALID_COMPOSITION_TYPE", "Invalid composition type: "+string(compType))
	}

	return &Composition{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ParentItemID:        parentID,
		ChildItemID:         childID,
		Quantity:            quantity,
		Type:                compType,
	}, nil
}

// ConsumesStock returns true if selling the parent deducts this child
func (c *Composition) ConsumesStock() bool {
	return c.Type == CompositionComponent
}

// RequiredFor returns the child quantity needed for the given parent quantity
func (c *Composition) RequiredFor(parentQuantity decimal.Decimal) decimal.Decimal {
	return c.Quantity.Mul(parentQuantity)
}
