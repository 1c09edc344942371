package pipeline

import (
	"time"

	"github.com/erp/stockcore/internal/domain/pipeline"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StageRequest describes one stage and the automation attached to it
type StageRequest struct {
	Name                string `json:"name" validate:"required,min=1,max=100"`
	Position            int    `json:"position" validate:"min=0"`
	Category            string `json:"category" validate:"required,oneof=DRAFT ACTIVE DONE CANCELLED"`
	StockAction         string `json:"stock_action" validate:"omitempty,oneof=NONE RESERVE DEDUCT"`
	GeneratesReceivable bool   `json:"generates_receivable"`
	IsLocked            bool   `json:"is_locked"`
}

func (r StageRequest) trigger() pipeline.StageTrigger {
	return pipeline.StageTrigger{
		StockAction:         pipeline.StockAction(r.StockAction),
		GeneratesReceivable: r.GeneratesReceivable,
		IsLocked:            r.IsLocked,
	}
}

// CreatePipelineRequest represents a request to create a pipeline with its stages.
// The first pipeline of a tenant becomes the default even when IsDefault is false.
type CreatePipelineRequest struct {
	Name      string         `json:"name" validate:"required,min=1,max=100"`
	IsDefault bool           `json:"is_default"`
	Stages    []StageRequest `json:"stages" validate:"dive"`
}

// PipelineResponse represents a pipeline in responses
type PipelineResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	IsDefault bool            `json:"is_default"`
	Stages    []StageResponse `json:"stages"`
	CreatedAt time.Time       `json:"created_at"`
	Version   int             `json:"version"`
}

// StageResponse represents a stage in responses
type StageResponse struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Position            int       `json:"position"`
	Category            string    `json:"category"`
	StockAction         string    `json:"stock_action"`
	GeneratesReceivable bool      `json:"generates_receivable"`
	IsLocked            bool      `json:"is_locked"`
}

// ToPipelineResponse converts a domain pipeline to a response
func ToPipelineResponse(p *pipeline.Pipeline) PipelineResponse {
	stages := make([]StageResponse, len(p.Stages))
	for i := range p.Stages {
		stages[i] = ToStageResponse(&p.Stages[i])
	}
	return PipelineResponse{
		ID:        p.ID,
		Name:      p.Name,
		IsDefault: p.IsDefault,
		Stages:    stages,
		CreatedAt: p.CreatedAt,
		Version:   p.Version,
	}
}

// ToStageResponse converts a domain stage to a response
func ToStageResponse(s *pipeline.Stage) StageResponse {
	return StageResponse{
		ID:                  s.ID,
		Name:                s.Name,
		Position:            s.Position,
		Category:            string(s.Category),
		StockAction:         string(s.Trigger.StockAction),
		GeneratesReceivable: s.Trigger.GeneratesReceivable,
		IsLocked:            s.Trigger.IsLocked,
	}
}

// CreateOrderRequest represents a request to open an order.
// PipelineID defaults to the tenant default pipeline, StageID to its entry stage and
// LocationID to the tenant's first warehouse.
type CreateOrderRequest struct {
	PipelineID *uuid.UUID `json:"pipeline_id"`
	StageID    *uuid.UUID `json:"stage_id"`
	LocationID *uuid.UUID `json:"location_id"`
	CustomerID *uuid.UUID `json:"customer_id"`
	Notes      string     `json:"notes" validate:"max=2000"`
	Tags       []string   `json:"tags" validate:"max=20,dive,max=50"`
}

// AddOrderItemRequest adds a catalog item to an order.
// UnitPrice overrides the catalog sale price when set.
type AddOrderItemRequest struct {
	ItemID    uuid.UUID        `json:"item_id" validate:"required"`
	Quantity  decimal.Decimal  `json:"quantity" validate:"scale=4"`
	UnitPrice *decimal.Decimal `json:"unit_price" validate:"omitempty,scale=4"`
	Discount  decimal.Decimal  `json:"discount" validate:"scale=4"`
}

// UpdateOrderItemRequest changes the quantity of an order line
type UpdateOrderItemRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"scale=4"`
}

// TransitionRequest moves an order to another stage of its pipeline.
// A repeated IdempotencyKey returns the current order without side effects.
type TransitionRequest struct {
	TargetStageID  uuid.UUID `json:"target_stage_id" validate:"required"`
	IdempotencyKey string    `json:"idempotency_key" validate:"max=128"`
}

// ReopenRequest moves a closed order out of its terminal stage
type ReopenRequest struct {
	TargetStageID uuid.UUID `json:"target_stage_id" validate:"required"`
	Reason        string    `json:"reason" validate:"required,min=1,max=500"`
}

// OrderResponse represents an order in responses
type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	TenantID      uuid.UUID           `json:"tenant_id"`
	DisplayID     int64               `json:"display_id"`
	PipelineID    uuid.UUID           `json:"pipeline_id"`
	StageID       uuid.UUID           `json:"stage_id"`
	LocationID    uuid.UUID           `json:"location_id"`
	CustomerID    *uuid.UUID          `json:"customer_id,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	Tags          []string            `json:"tags,omitempty"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	TotalDiscount decimal.Decimal     `json:"total_discount"`
	ClosedAt      *time.Time          `json:"closed_at,omitempty"`
	Items         []OrderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Version       int                 `json:"version"`
}

// OrderItemResponse represents an order line in responses
type OrderItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	ItemID        uuid.UUID       `json:"item_id"`
	ItemKind      string          `json:"item_kind"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Discount      decimal.Decimal `json:"discount"`
	Amount        decimal.Decimal `json:"amount"`
	StockState    string          `json:"stock_state"`
	ReservationID *uuid.UUID      `json:"reservation_id,omitempty"`
}

// ToOrderResponse converts a domain order to a response
func ToOrderResponse(o *pipeline.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i := range o.Items {
		line := &o.Items[i]
		items[i] = OrderItemResponse{
			ID:            line.ID,
			ItemID:        line.ItemID,
			ItemKind:      string(line.ItemKind),
			SKU:           line.SKU,
			Name:          line.Name,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			UnitCost:      line.UnitCost,
			Discount:      line.Discount,
			Amount:        line.Amount(),
			StockState:    string(line.StockState),
			ReservationID: line.ReservationID,
		}
	}
	return OrderResponse{
		ID:            o.ID,
		TenantID:      o.TenantID,
		DisplayID:     o.DisplayID,
		PipelineID:    o.PipelineID,
		StageID:       o.StageID,
		LocationID:    o.LocationID,
		CustomerID:    o.CustomerID,
		Notes:         o.Notes,
		Tags:          o.Tags,
		TotalAmount:   o.TotalAmount,
		TotalDiscount: o.TotalDiscount,
		ClosedAt:      o.ClosedAt,
		Items:         items,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Version:       o.Version,
	}
}

// TransitionResponse is the outcome of a stage transition or reopen
type TransitionResponse struct {
	Order       OrderResponse `json:"order"`
	FromStageID uuid.UUID     `json:"from_stage_id"`
	ToStageID   uuid.UUID     `json:"to_stage_id"`
	// Replayed is true when the idempotency key was already processed or the order
	// was already in the target stage; nothing changed.
	Replayed bool       `json:"replayed"`
	TitleID  *uuid.UUID `json:"title_id,omitempty"`
}
