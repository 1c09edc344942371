package inventory

import (
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordMovementRequest represents a request to append a stock movement
type RecordMovementRequest struct {
	ItemID          uuid.UUID        `json:"item_id" validate:"required"`
	LocationID      uuid.UUID        `json:"location_id" validate:"required"`
	QuantityChanged decimal.Decimal  `json:"quantity_changed" validate:"scale=4"`
	Reason          string           `json:"reason" validate:"required,oneof=INITIAL_STOCK PURCHASE SALE RETURN DELIVERY SPOILAGE CORRECTION TRANSFER_OUT TRANSFER_IN"`
	UnitCost        *decimal.Decimal `json:"unit_cost" validate:"omitempty,scale=4"`
	UnitPrice       *decimal.Decimal `json:"unit_price" validate:"omitempty,scale=4"`
	BatchNumber     string           `json:"batch_number" validate:"max=100"`
	Position        string           `json:"position" validate:"max=100"`
	ExpiresAt       *time.Time       `json:"expires_at"`
	Notes           string           `json:"notes" validate:"max=2000"`
	OrderID         *uuid.UUID       `json:"order_id"`
}

// command converts the request into a ledger command. Naming either a batch number or
// a position pins the batch.
func (r RecordMovementRequest) command() MovementCommand {
	cmd := MovementCommand{
		ItemID:          r.ItemID,
		LocationID:      r.LocationID,
		QuantityChanged: r.QuantityChanged,
		Reason:          inventory.MovementReason(r.Reason),
		UnitCost:        r.UnitCost,
		UnitPrice:       r.UnitPrice,
		ExpiresAt:       r.ExpiresAt,
		Notes:           r.Notes,
		OrderID:         r.OrderID,
	}
	if r.BatchNumber != "" || r.Position != "" {
		key := inventory.BatchKey{Number: r.BatchNumber, Position: r.Position}.Normalize()
		cmd.Batch = &key
	}
	return cmd
}

// ReserveRequest represents a request to reserve available stock
type ReserveRequest struct {
	ItemID      uuid.UUID       `json:"item_id" validate:"required"`
	LocationID  uuid.UUID       `json:"location_id" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity" validate:"scale=4"`
	OrderID     *uuid.UUID      `json:"order_id"`
	OrderItemID *uuid.UUID      `json:"order_item_id"`
}

// CommitReservationRequest represents a request to turn a reservation into a sale
type CommitReservationRequest struct {
	ReservationID uuid.UUID        `json:"reservation_id" validate:"required"`
	UnitPrice     *decimal.Decimal `json:"unit_price" validate:"omitempty,scale=4"`
	UnitCost      *decimal.Decimal `json:"unit_cost" validate:"omitempty,scale=4"`
}

// LevelResponse represents an inventory level in responses
type LevelResponse struct {
	ID                uuid.UUID       `json:"id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	ItemID            uuid.UUID       `json:"item_id"`
	LocationID        uuid.UUID       `json:"location_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	ReservedQuantity  decimal.Decimal `json:"reserved_quantity"`
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	AverageCost       decimal.Decimal `json:"average_cost"`
	TotalValue        decimal.Decimal `json:"total_value"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// ToLevelResponse converts a domain level to a response
func ToLevelResponse(level *inventory.InventoryLevel) LevelResponse {
	return LevelResponse{
		ID:                level.ID,
		TenantID:          level.TenantID,
		ItemID:            level.ItemID,
		LocationID:        level.LocationID,
		Quantity:          level.Quantity,
		ReservedQuantity:  level.ReservedQuantity,
		AvailableQuantity: level.Available(),
		AverageCost:       level.AverageCost,
		TotalValue:        level.Quantity.Mul(level.AverageCost).Round(2),
		UpdatedAt:         level.UpdatedAt,
		Version:           level.Version,
	}
}

// MovementResponse represents a ledger entry in responses
type MovementResponse struct {
	ID              uuid.UUID        `json:"id"`
	ItemID          uuid.UUID        `json:"item_id"`
	LocationID      uuid.UUID        `json:"location_id"`
	QuantityChanged decimal.Decimal  `json:"quantity_changed"`
	Reason          string           `json:"reason"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty"`
	UnitPrice       *decimal.Decimal `json:"unit_price,omitempty"`
	Position        *string          `json:"position,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	OrderID         *uuid.UUID       `json:"order_id,omitempty"`
	ReservationID   *uuid.UUID       `json:"reservation_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ToMovementResponse converts a domain movement to a response
func ToMovementResponse(m *inventory.StockMovement) MovementResponse {
	return MovementResponse{
		ID:              m.ID,
		ItemID:          m.ItemID,
		LocationID:      m.LocationID,
		QuantityChanged: m.QuantityChanged,
		Reason:          string(m.Reason),
		UnitCost:        m.UnitCost,
		UnitPrice:       m.UnitPrice,
		Position:        m.Position,
		Notes:           m.Notes,
		OrderID:         m.OrderID,
		ReservationID:   m.ReservationID,
		CreatedAt:       m.CreatedAt,
	}
}

// ToMovementResponses converts a slice of movements
func ToMovementResponses(movements []inventory.StockMovement) []MovementResponse {
	responses := make([]MovementResponse, len(movements))
	for i := range movements {
		responses[i] = ToMovementResponse(&movements[i])
	}
	return responses
}

// BatchResponse represents a batch in responses
type BatchResponse struct {
	ID          uuid.UUID       `json:"id"`
	BatchNumber string          `json:"batch_number"`
	Position    string          `json:"position"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Delta       decimal.Decimal `json:"delta"`
}

// ToBatchResponses converts batch states to responses
func ToBatchResponses(states []inventory.BatchState) []BatchResponse {
	responses := make([]BatchResponse, len(states))
	for i, s := range states {
		responses[i] = BatchResponse{
			ID:          s.BatchID,
			BatchNumber: s.Key.Number,
			Position:    s.Key.Position,
			Quantity:    s.Quantity,
			UnitCost:    s.UnitCost,
			ExpiresAt:   s.ExpiresAt,
			Delta:       s.Delta,
		}
	}
	return responses
}

// MovementResultResponse is returned after a movement has been recorded
type MovementResultResponse struct {
	Movement MovementResponse `json:"movement"`
	Level    LevelResponse    `json:"level"`
	Batches  []BatchResponse  `json:"batches"`
}

func toMovementResultResponse(result *MovementResult) *MovementResultResponse {
	return &MovementResultResponse{
		Movement: ToMovementResponse(result.Movement),
		Level:    ToLevelResponse(result.Level),
		Batches:  ToBatchResponses(result.Batches),
	}
}

// ReservationResponse represents a reservation in responses
type ReservationResponse struct {
	ID          uuid.UUID       `json:"id"`
	ItemID      uuid.UUID       `json:"item_id"`
	LocationID  uuid.UUID       `json:"location_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Status      string          `json:"status"`
	OrderID     *uuid.UUID      `json:"order_id,omitempty"`
	OrderItemID *uuid.UUID      `json:"order_item_id,omitempty"`
	MovementID  *uuid.UUID      `json:"movement_id,omitempty"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToReservationResponse converts a domain reservation to a response
func ToReservationResponse(r *inventory.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:          r.ID,
		ItemID:      r.ItemID,
		LocationID:  r.LocationID,
		Quantity:    r.Quantity,
		Status:      string(r.Status),
		OrderID:     r.OrderID,
		OrderItemID: r.OrderItemID,
		MovementID:  r.MovementID,
		ResolvedAt:  r.ResolvedAt,
		CreatedAt:   r.CreatedAt,
	}
}

// ReservationResultResponse is returned by release and commit. AlreadyResolved is set
// when the reservation had been resolved before the call, in which case nothing changed.
type ReservationResultResponse struct {
	Reservation     ReservationResponse `json:"reservation"`
	AlreadyResolved bool                `json:"already_resolved"`
	Movement        *MovementResponse   `json:"movement,omitempty"`
}

// LowStockResponse is a level at or below its item threshold
type LowStockResponse struct {
	Level     LevelResponse   `json:"level"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Threshold decimal.Decimal `json:"threshold"`
}
