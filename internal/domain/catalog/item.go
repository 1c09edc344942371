package catalog

import (
	"strings"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemKind classifies what an item is and whether it carries stock
type ItemKind string

const (
	ItemKindProduct  ItemKind = "PRODUCT"
	ItemKindService  ItemKind = "SERVICE"
	ItemKindResource ItemKind = "RESOURCE"
	ItemKindBundle   ItemKind = "BUNDLE"
)

// IsValid returns true if the kind is known
func (k ItemKind) IsValid() bool {
	switch k {
	case ItemKindProduct, ItemKindService, ItemKindResource, ItemKindBundle:
		return true
	}
	return false
}

// TracksStock returns true if sales of this kind move stock of the item itself
func (k ItemKind) TracksStock() bool {
	return k == ItemKindProduct
}

// Item is a sellable catalog entry. Its identity and SKU are immutable;
// prices and category may change without touching existing order lines.
type Item struct {
	shared.TenantAggregateRoot
	SKU               string           `gorm:"column:sku;type:varchar(50);not null;index"`
	Name              string           `gorm:"type:varchar(200);not null"`
	Kind              ItemKind         `gorm:"type:varchar(20);not null;default:'PRODUCT'"`
	CategoryID        *uuid.UUID       `gorm:"type:uuid;index"`
	BaseUnit          string           `gorm:"type:varchar(20);not null"`
	SalePrice         *decimal.Decimal `gorm:"type:decimal(18,4)"`
	CostPrice         *decimal.Decimal `gorm:"type:decimal(18,4)"`
	LowStockThreshold decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "items"
}

// NewItem creates a new catalog item
func NewItem(tenantID uuid.UUID, sku, name string, kind ItemKind, baseUnit string) (*Item, error) {
	if err := shared.RequireTenant(tenantID); err != nil {
		return nil, err
	}
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if err := validateItemName(name); err != nil {
		return nil, err
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Invalid item kind: "+string(kind))
	}
	if err := validateUnit(baseUnit); err != nil {
		return nil, err
	}

	item := &Item{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SKU:                 strings.ToUpper(sku),
		Name:                name,
		Kind:                kind,
		BaseUnit:            baseUnit,
		LowStockThreshold:   decimal.Zero,
	}
	return item, nil
}

// SetPrices updates the default sale price and the reference cost price.
// Nil leaves a price unset.
func (i *Item) SetPrices(salePrice, costPrice *decimal.Decimal) error {
	if salePrice != nil && salePrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Sale price cannot be negative")
	}
	if costPrice != nil && costPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Cost price cannot be negative")
	}
	i.SalePrice = salePrice
	i.CostPrice = costPrice
	i.Touch()
	return nil
}

// SetCategory sets the item category
func (i *Item) SetCategory(categoryID *uuid.UUID) {
	i.CategoryID = categoryID
	i.Touch()
}

// SetLowStockThreshold sets the quantity at or under which the item is reported as low
func (i *Item) SetLowStockThreshold(threshold decimal.Decimal) error {
	if threshold.IsNegative() {
		return shared.NewDomainError("INVALID_THRESHOLD", "Low stock threshold cannot be negative")
	}
	i.LowStockThreshold = threshold
	i.Touch()
	return nil
}

// Snapshot returns the values an order line freezes at creation time
func (i *Item) Snapshot() ItemSnapshot {
	snap := ItemSnapshot{
		ItemID:     i.ID,
		SKU:        i.SKU,
		Name:       i.Name,
		Kind:       i.Kind,
		CategoryID: i.CategoryID,
		BaseUnit:   i.BaseUnit,
		SalePrice:  decimal.Zero,
		CostPrice:  decimal.Zero,
	}
	if i.SalePrice != nil {
		snap.SalePrice = *i.SalePrice
	}
	if i.CostPrice != nil {
		snap.CostPrice = *i.CostPrice
	}
	return snap
}

// validateSKU validates the item SKU
func validateSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > 50 {
		return shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 50 characters")
	}
	for _, r := range sku {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_SKU", "SKU can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateItemName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Item name cannot exceed 200 characters")
	}
	return nil
}

func validateUnit(unit string) error {
	if unit == "" {
		return shared.NewDomainError("INVALID_UNIT", "Unit cannot be empty")
	}
	if len(unit) > 20 {
		return shared.NewDomainError("INVALID_UNIT", "Unit cannot exceed 20 characters")
	}
	return nil
}
