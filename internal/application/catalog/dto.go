package catalog

import (
	"time"

	"github.com/erp/stockcore/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateItemRequest represents a request to create a catalog item
type CreateItemRequest struct {
	SKU               string           `json:"sku" validate:"required,min=1,max=50"`
	Name              string           `json:"name" validate:"required,min=1,max=200"`
	Kind              string           `json:"kind" validate:"omitempty,oneof=PRODUCT SERVICE RESOURCE BUNDLE"`
	CategoryID        *uuid.UUID       `json:"category_id"`
	BaseUnit          string           `json:"base_unit" validate:"required,min=1,max=20"`
	SalePrice         *decimal.Decimal `json:"sale_price" validate:"omitempty,scale=4"`
	CostPrice         *decimal.Decimal `json:"cost_price" validate:"omitempty,scale=4"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold" validate:"omitempty,scale=4"`
	InitialStock      *InitialStock    `json:"initial_stock"`
}

// InitialStock seeds the first INITIAL_STOCK movement of a new item.
// LocationID defaults to the tenant's first warehouse.
type InitialStock struct {
	LocationID *uuid.UUID      `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity" validate:"scale=4"`
	UnitCost   decimal.Decimal `json:"unit_cost" validate:"scale=4"`
}

// CreateLocationRequest represents a request to create a stock location
type CreateLocationRequest struct {
	Name        string     `json:"name" validate:"required,min=1,max=100"`
	StockPoolID *uuid.UUID `json:"stock_pool_id"`
	IsWarehouse bool       `json:"is_warehouse"`
}

// AddCompositionRequest links a child item to a parent item
type AddCompositionRequest struct {
	ParentItemID uuid.UUID       `json:"parent_item_id" validate:"required"`
	ChildItemID  uuid.UUID       `json:"child_item_id" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity" validate:"scale=4"`
	Type         string          `json:"type" validate:"omitempty,oneof=COMPONENT ACCESSORY SUBSTITUTE"`
}

// UpdatePriceRequest represents a request to change the catalog prices of an item
type UpdatePriceRequest struct {
	SalePrice *decimal.Decimal `json:"sale_price" validate:"omitempty,scale=4"`
	CostPrice *decimal.Decimal `json:"cost_price" validate:"omitempty,scale=4"`
}

// ItemResponse represents a catalog item in responses
type ItemResponse struct {
	ID                uuid.UUID             `json:"id"`
	TenantID          uuid.UUID             `json:"tenant_id"`
	SKU               string                `json:"sku"`
	Name              string                `json:"name"`
	Kind              string                `json:"kind"`
	CategoryID        *uuid.UUID            `json:"category_id,omitempty"`
	BaseUnit          string                `json:"base_unit"`
	SalePrice         *decimal.Decimal      `json:"sale_price,omitempty"`
	CostPrice         *decimal.Decimal      `json:"cost_price,omitempty"`
	LowStockThreshold decimal.Decimal       `json:"low_stock_threshold"`
	Components        []CompositionResponse `json:"components,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	Version           int                   `json:"version"`
}

// ToItemResponse converts a domain item to a response
func ToItemResponse(item *catalog.Item) ItemResponse {
	return ItemResponse{
		ID:                item.ID,
		TenantID:          item.TenantID,
		SKU:               item.SKU,
		Name:              item.Name,
		Kind:              string(item.Kind),
		CategoryID:        item.CategoryID,
		BaseUnit:          item.BaseUnit,
		SalePrice:         item.SalePrice,
		CostPrice:         item.CostPrice,
		LowStockThreshold: item.LowStockThreshold,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
		Version:           item.Version,
	}
}

// CompositionResponse represents a parent/child link in responses
type CompositionResponse struct {
	ID           uuid.UUID       `json:"id"`
	ParentItemID uuid.UUID       `json:"parent_item_id"`
	ChildItemID  uuid.UUID       `json:"child_item_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Type         string          `json:"type"`
}

// ToCompositionResponse converts a domain composition to a response
func ToCompositionResponse(c *catalog.Composition) CompositionResponse {
	return CompositionResponse{
		ID:           c.ID,
		ParentItemID: c.ParentItemID,
		ChildItemID:  c.ChildItemID,
		Quantity:     c.Quantity,
		Type:         string(c.Type),
	}
}

// LocationResponse represents a stock location in responses
type LocationResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	StockPoolID uuid.UUID `json:"stock_pool_id"`
	IsWarehouse bool      `json:"is_warehouse"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToLocationResponse converts a domain location to a response
func ToLocationResponse(l *catalog.Location) LocationResponse {
	return LocationResponse{
		ID:          l.ID,
		Name:        l.Name,
		StockPoolID: l.StockPoolID,
		IsWarehouse: l.IsWarehouse,
		CreatedAt:   l.CreatedAt,
	}
}
