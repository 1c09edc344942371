package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/domain/shared/strategy"
	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MovementCommand describes one stock change to append to the ledger
type MovementCommand struct {
	ItemID          uuid.UUID
	LocationID      uuid.UUID
	QuantityChanged decimal.Decimal
	Reason          inventory.MovementReason
	UnitCost        *decimal.Decimal
	UnitPrice       *decimal.Decimal
	// Batch pins the batch to receive into or consume from. Nil means the default batch
	// for incoming movements and the selection policy for outgoing ones.
	Batch         *inventory.BatchKey
	ExpiresAt     *time.Time
	Notes         string
	OrderID       *uuid.UUID
	ReservationID *uuid.UUID
}

// MovementResult is the outcome of a recorded movement
type MovementResult struct {
	Movement *inventory.StockMovement
	Level    *inventory.InventoryLevel
	Batches  []inventory.BatchState
}

// ReserveCommand describes a reservation request
type ReserveCommand struct {
	ItemID      uuid.UUID
	LocationID  uuid.UUID
	Quantity    decimal.Decimal
	OrderID     *uuid.UUID
	OrderItemID *uuid.UUID
}

// Ledger applies stock changes to the movement ledger, the batches and the level
// of an (item, location). It never opens or commits a transaction: every method runs
// on the repositories of the caller's transaction.
type Ledger struct {
	selector strategy.BatchSelector
	logger   *zap.Logger
	now      func() time.Time
}

// NewLedger creates a Ledger that consumes unpinned outgoing quantity with the given policy
func NewLedger(selector strategy.BatchSelector, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		selector: selector,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Policy returns the name of the batch selection policy
func (l *Ledger) Policy() string {
	return l.selector.Name()
}

// Record appends one movement and updates the level and batches it touches
func (l *Ledger) Record(ctx context.Context, repos TransactionalRepositories, cmd MovementCommand) (*MovementResult, error) {
	if err := inventory.ValidateMovement(cmd.QuantityChanged, cmd.Reason); err != nil {
		return nil, err
	}
	if cmd.Reason == inventory.ReasonCorrection && cmd.Notes == "" {
		return nil, shared.ErrCorrectionNoteRequired
	}
	if cmd.UnitCost == nil && (cmd.Reason == inventory.ReasonPurchase || cmd.Reason == inventory.ReasonInitialStock) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Reason "+string(cmd.Reason)+" requires a unit cost")
	}

	level, err := repos.Levels().GetOrCreateForUpdate(ctx, cmd.ItemID, cmd.LocationID)
	if err != nil {
		return nil, fmt.Errorf("lock inventory level: %w", err)
	}
	return l.recordOnLevel(ctx, repos, level, cmd)
}

// recordOnLevel applies a validated command to an already locked level
func (l *Ledger) recordOnLevel(ctx context.Context, repos TransactionalRepositories, level *inventory.InventoryLevel, cmd MovementCommand) (*MovementResult, error) {
	// Costless incoming movements enter at the current average and leave it unchanged
	unitCost := level.AverageCost
	if cmd.UnitCost != nil {
		unitCost = *cmd.UnitCost
	}

	if err := level.ApplyMovement(cmd.QuantityChanged, cmd.Reason, unitCost); err != nil {
		return nil, err
	}

	states, err := l.ApplyToBatch(ctx, repos, BatchAdjustment{
		ItemID:     cmd.ItemID,
		LocationID: cmd.LocationID,
		Key:        cmd.Batch,
		Delta:      cmd.QuantityChanged,
		UnitCost:   unitCost,
		ExpiresAt:  cmd.ExpiresAt,
		Force:      cmd.Reason.AllowsForce(),
	})
	if err != nil {
		return nil, err
	}

	movement, err := inventory.NewStockMovement(repos.TenantID(), cmd.ItemID, cmd.LocationID, cmd.QuantityChanged, cmd.Reason)
	if err != nil {
		return nil, err
	}
	movement.CreatedAt = l.now()
	movement.WithUnitCost(unitCost).WithNotes(cmd.Notes).WithPosition(movementPosition(states))
	if cmd.UnitPrice != nil {
		movement.WithUnitPrice(*cmd.UnitPrice)
	}
	if cmd.OrderID != nil {
		movement.WithOrder(*cmd.OrderID)
	}
	if cmd.ReservationID != nil {
		movement.WithReservation(*cmd.ReservationID)
	}

	if err := repos.Movements().Append(ctx, movement); err != nil {
		return nil, fmt.Errorf("append stock movement: %w", err)
	}
	if err := repos.Levels().Save(ctx, level); err != nil {
		return nil, fmt.Errorf("save inventory level: %w", err)
	}

	if cmd.Reason == inventory.ReasonCorrection {
		logger.WithLogger(ctx, l.logger).Warn("stock correction recorded",
			zap.String("tenant_id", repos.TenantID().String()),
			zap.String("item_id", cmd.ItemID.String()),
			zap.String("location_id", cmd.LocationID.String()),
			zap.String("quantity_changed", cmd.QuantityChanged.String()),
			zap.String("resulting_quantity", level.Quantity.String()),
			zap.String("note", cmd.Notes),
		)
	}

	return &MovementResult{Movement: movement, Level: level, Batches: states}, nil
}

// movementPosition returns the position of the only touched batch, or MULTIPLE
func movementPosition(states []inventory.BatchState) string {
	switch len(states) {
	case 0:
		return ""
	case 1:
		return states[0].Key.Position
	default:
		return inventory.MultiplePositions
	}
}

// BatchAdjustment is a signed quantity change for the batches of an (item, location)
type BatchAdjustment struct {
	ItemID     uuid.UUID
	LocationID uuid.UUID
	Key        *inventory.BatchKey
	Delta      decimal.Decimal
	UnitCost   decimal.Decimal
	ExpiresAt  *time.Time
	// Force lets a correction take a batch below zero
	Force bool
}

// ApplyToBatch changes batch quantities and returns the state of every touched batch.
// A positive delta lands in the pinned or default batch, creating it on first use.
// A negative delta consumes the pinned batch or, without one, the batches chosen by the
// selection policy.
func (l *Ledger) ApplyToBatch(ctx context.Context, repos TransactionalRepositories, adj BatchAdjustment) ([]inventory.BatchState, error) {
	if adj.Delta.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Batch delta cannot be zero")
	}
	if adj.Delta.IsPositive() {
		key := inventory.DefaultBatchKey()
		if adj.Key != nil {
			key = adj.Key.Normalize()
		}
		return l.receive(ctx, repos, adj, key)
	}
	if adj.Key != nil {
		return l.consumePinned(ctx, repos, adj, adj.Key.Normalize())
	}
	return l.consumeSelected(ctx, repos, adj)
}

func (l *Ledger) receive(ctx context.Context, repos TransactionalRepositories, adj BatchAdjustment, key inventory.BatchKey) ([]inventory.BatchState, error) {
	batch, err := l.lockOrCreateBatch(ctx, repos, adj, key)
	if err != nil {
		return nil, err
	}
	if err := batch.Add(adj.Delta, adj.UnitCost); err != nil {
		return nil, err
	}
	if batch.ExpiresAt == nil && adj.ExpiresAt != nil {
		batch.ExpiresAt = adj.ExpiresAt
	}
	if err := repos.Batches().Save(ctx, batch); err != nil {
		return nil, fmt.Errorf("save batch %s: %w", key, err)
	}
	return []inventory.BatchState{stateWithDelta(batch, adj.Delta)}, nil
}

func (l *Ledger) consumePinned(ctx context.Context, repos TransactionalRepositories, adj BatchAdjustment, key inventory.BatchKey) ([]inventory.BatchState, error) {
	quantity := adj.Delta.Neg()

	batch, err := repos.Batches().FindByKeyForUpdate(ctx, adj.ItemID, adj.LocationID, key)
	switch {
	case errors.Is(err, shared.ErrNotFound) && adj.Force:
		batch, err = l.lockOrCreateBatch(ctx, repos, adj, key)
		if err != nil {
			return nil, err
		}
	case errors.Is(err, shared.ErrNotFound):
		return nil, shared.NewDomainError(shared.CodeInsufficientBatchQuantity, "Batch "+key.String()+" does not exist")
	case err != nil:
		return nil, fmt.Errorf("lock batch %s: %w", key, err)
	}

	if err := batch.Deduct(quantity, adj.Force); err != nil {
		return nil, err
	}
	if err := repos.Batches().Save(ctx, batch); err != nil {
		return nil, fmt.Errorf("save batch %s: %w", key, err)
	}
	return []inventory.BatchState{stateWithDelta(batch, adj.Delta)}, nil
}

func (l *Ledger) consumeSelected(ctx context.Context, repos TransactionalRepositories, adj BatchAdjustment) ([]inventory.BatchState, error) {
	quantity := adj.Delta.Neg()

	available, err := repos.Batches().ListAvailableForUpdate(ctx, adj.ItemID, adj.LocationID)
	if err != nil {
		return nil, fmt.Errorf("lock batches: %w", err)
	}

	byID := make(map[uuid.UUID]*inventory.InventoryBatch, len(available))
	candidates := make([]strategy.Batch, 0, len(available))
	for i := range available {
		byID[available[i].ID] = &available[i]
		candidates = append(candidates, available[i].ToStrategyBatch())
	}

	result, err := l.selector.Select(ctx, strategy.SelectionRequest{Quantity: quantity, AsOf: l.now()}, candidates)
	if err != nil {
		return nil, fmt.Errorf("select batches with %s: %w", l.selector.Name(), err)
	}
	if !result.Satisfied() && !adj.Force {
		return nil, shared.NewDomainError(shared.CodeInsufficientBatchQuantity,
			"Batches hold "+result.Taken.String()+", cannot consume "+quantity.String())
	}

	states := make([]inventory.BatchState, 0, len(result.Picks)+1)
	for _, pick := range result.Picks {
		batch, ok := byID[pick.BatchID]
		if !ok {
			return nil, shared.NewDomainError(shared.CodeInvalidState, "Selection policy returned unknown batch "+pick.BatchID.String())
		}
		if err := batch.Deduct(pick.Quantity, false); err != nil {
			return nil, err
		}
		if err := repos.Batches().Save(ctx, batch); err != nil {
			return nil, fmt.Errorf("save batch %s: %w", batch.Key(), err)
		}
		states = append(states, stateWithDelta(batch, pick.Quantity.Neg()))
	}

	if result.Shortfall.IsPositive() {
		// Forced corrections take what the batches cannot cover from the default batch
		forced, err := l.consumePinned(ctx, repos, BatchAdjustment{
			ItemID:     adj.ItemID,
			LocationID: adj.LocationID,
			Delta:      result.Shortfall.Neg(),
			UnitCost:   adj.UnitCost,
			Force:      true,
		}, inventory.DefaultBatchKey())
		if err != nil {
			return nil, err
		}
		states = append(states, forced...)
	}
	return states, nil
}

func (l *Ledger) lockOrCreateBatch(ctx context.Context, repos TransactionalRepositories, adj BatchAdjustment, key inventory.BatchKey) (*inventory.InventoryBatch, error) {
	batch, err := repos.Batches().FindByKeyForUpdate(ctx, adj.ItemID, adj.LocationID, key)
	if err == nil {
		return batch, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("lock batch %s: %w", key, err)
	}
	batch, err = inventory.NewInventoryBatch(repos.TenantID(), adj.ItemID, adj.LocationID, key, adj.ExpiresAt)
	if err != nil {
		return nil, err
	}
	batch.CreatedAt = l.now()
	return batch, nil
}

func stateWithDelta(batch *inventory.InventoryBatch, delta decimal.Decimal) inventory.BatchState {
	state := batch.State()
	state.Delta = delta
	return state
}

// Reserve holds quantity of an (item, location) against its available stock
func (l *Ledger) Reserve(ctx context.Context, repos TransactionalRepositories, cmd ReserveCommand) (*inventory.Reservation, error) {
	reservation, err := inventory.NewReservation(repos.TenantID(), cmd.ItemID, cmd.LocationID, cmd.Quantity)
	if err != nil {
		return nil, err
	}

	level, err := repos.Levels().FindForUpdate(ctx, cmd.ItemID, cmd.LocationID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError(shared.CodeInsufficientAvailable,
			"Cannot reserve "+cmd.Quantity.String()+", item has no stock at this location")
	}
	if err != nil {
		return nil, fmt.Errorf("lock inventory level: %w", err)
	}

	if err := level.Reserve(cmd.Quantity); err != nil {
		return nil, err
	}
	if err := repos.Levels().Save(ctx, level); err != nil {
		return nil, fmt.Errorf("save inventory level: %w", err)
	}

	if cmd.OrderID != nil && cmd.OrderItemID != nil {
		reservation.ForOrder(*cmd.OrderID, *cmd.OrderItemID)
	} else if cmd.OrderID != nil {
		reservation.OrderID = cmd.OrderID
	}
	if err := repos.Reservations().Save(ctx, reservation); err != nil {
		return nil, fmt.Errorf("save reservation: %w", err)
	}
	return reservation, nil
}

// Release returns the reserved units to available. On a reservation that is no longer
// active it changes nothing and returns the reservation with an ALREADY_RESOLVED error.
func (l *Ledger) Release(ctx context.Context, repos TransactionalRepositories, reservationID uuid.UUID) (*inventory.Reservation, error) {
	reservation, err := repos.Reservations().FindForUpdate(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("lock reservation: %w", err)
	}
	if !reservation.IsActive() {
		return reservation, reservation.Release()
	}

	level, err := repos.Levels().FindForUpdate(ctx, reservation.ItemID, reservation.LocationID)
	if err != nil {
		return nil, fmt.Errorf("lock inventory level: %w", err)
	}
	if err := level.ReleaseReserved(reservation.Quantity); err != nil {
		return nil, err
	}
	if err := reservation.Release(); err != nil {
		return nil, err
	}

	if err := repos.Levels().Save(ctx, level); err != nil {
		return nil, fmt.Errorf("save inventory level: %w", err)
	}
	if err := repos.Reservations().Save(ctx, reservation); err != nil {
		return nil, fmt.Errorf("save reservation: %w", err)
	}
	return reservation, nil
}

// SaleTerms are the optional price and cost a committed reservation records on its
// SALE. A nil cost records the level average.
type SaleTerms struct {
	UnitPrice *decimal.Decimal
	UnitCost  *decimal.Decimal
}

// Commit converts an active reservation into a SALE movement. Reserved and on-hand
// quantity both drop by the reserved amount. On a reservation that is no longer active
// it changes nothing and returns the reservation with an ALREADY_RESOLVED error.
func (l *Ledger) Commit(ctx context.Context, repos TransactionalRepositories, reservationID uuid.UUID, terms SaleTerms) (*MovementResult, *inventory.Reservation, error) {
	reservation, err := repos.Reservations().FindForUpdate(ctx, reservationID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock reservation: %w", err)
	}
	if !reservation.IsActive() {
		return nil, reservation, reservation.Commit(uuid.Nil)
	}

	level, err := repos.Levels().FindForUpdate(ctx, reservation.ItemID, reservation.LocationID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock inventory level: %w", err)
	}
	if err := level.ReleaseReserved(reservation.Quantity); err != nil {
		return nil, nil, err
	}

	result, err := l.recordOnLevel(ctx, repos, level, MovementCommand{
		ItemID:          reservation.ItemID,
		LocationID:      reservation.LocationID,
		QuantityChanged: reservation.Quantity.Neg(),
		Reason:          inventory.ReasonSale,
		UnitCost:        terms.UnitCost,
		UnitPrice:       terms.UnitPrice,
		OrderID:         reservation.OrderID,
		ReservationID:   &reservation.ID,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := reservation.Commit(result.Movement.ID); err != nil {
		return nil, nil, err
	}
	if err := repos.Reservations().Save(ctx, reservation); err != nil {
		return nil, nil, fmt.Errorf("save reservation: %w", err)
	}
	return result, reservation, nil
}
