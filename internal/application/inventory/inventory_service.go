package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/stockcore/internal/application/validation"
	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryService exposes the ledger, the level cache and reservations to callers.
// Every call runs as one unit of work for one tenant.
type InventoryService struct {
	uow     *UnitOfWork
	ledger  *Ledger
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(uow *UnitOfWork, ledger *Ledger, logger *zap.Logger) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{
		uow:    uow,
		ledger: ledger,
		logger: logger,
	}
}

// SetMetrics sets the ledger metrics (optional)
func (s *InventoryService) SetMetrics(metrics *telemetry.LedgerMetrics) {
	s.metrics = metrics
}

// RecordMovement appends one movement and updates the level and batches it touches
func (s *InventoryService) RecordMovement(ctx context.Context, tenantID uuid.UUID, req RecordMovementRequest) (*MovementResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, tenantID, "inventory", "record_movement")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrItemID, req.ItemID.String(),
		telemetry.SpanAttrLocationID, req.LocationID.String(),
		telemetry.SpanAttrReason, req.Reason,
		telemetry.SpanAttrQuantity, req.QuantityChanged.String(),
	)

	start := time.Now()
	var result *MovementResult
	err := s.run(ctx, tenantID, "record_movement", req, func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		result, err = s.ledger.Record(ctx, repos, req.command())
		return err
	})
	s.metrics.RecordDuration(ctx, "record_movement", time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordMovement(ctx, tenantID, req.Reason)
	logger.WithLogger(ctx, s.logger).Info("stock movement recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("movement_id", result.Movement.ID.String()),
		zap.String("reason", req.Reason),
		zap.String("quantity_changed", req.QuantityChanged.String()),
		zap.String("quantity", result.Level.Quantity.String()),
	)
	return toMovementResultResponse(result), nil
}

// GetLevel returns the committed level of an item at a location
func (s *InventoryService) GetLevel(ctx context.Context, tenantID, itemID, locationID uuid.UUID) (*LevelResponse, error) {
	var level *inventory.InventoryLevel
	err := s.uow.Run(ctx, tenantID, "get_level", func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		level, err = repos.Levels().Find(ctx, itemID, locationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToLevelResponse(level)
	return &resp, nil
}

// Reserve holds available quantity, failing with INSUFFICIENT_AVAILABLE when
// the request exceeds quantity minus reserved
func (s *InventoryService) Reserve(ctx context.Context, tenantID uuid.UUID, req ReserveRequest) (*ReservationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, tenantID, "inventory", "reserve")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrItemID, req.ItemID.String(),
		telemetry.SpanAttrQuantity, req.Quantity.String(),
	)

	var reservation *inventory.Reservation
	err := s.run(ctx, tenantID, "reserve", req, func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		reservation, err = s.ledger.Reserve(ctx, repos, ReserveCommand(req))
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, shared.ErrInsufficientAvailable) {
			s.metrics.RecordReservation(ctx, tenantID, telemetry.ReservationRejected)
		}
		return nil, err
	}

	s.metrics.RecordReservation(ctx, tenantID, telemetry.ReservationReserved)
	resp := ToReservationResponse(reservation)
	return &resp, nil
}

// Release returns reserved units to available. Releasing a resolved reservation
// changes nothing and reports AlreadyResolved.
func (s *InventoryService) Release(ctx context.Context, tenantID, reservationID uuid.UUID) (*ReservationResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, tenantID, "inventory", "release")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrReservationID, reservationID.String())

	var reservation *inventory.Reservation
	alreadyResolved := false
	err := s.uow.Run(ctx, tenantID, "release", func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		reservation, err = s.ledger.Release(ctx, repos, reservationID)
		if errors.Is(err, shared.ErrAlreadyResolved) {
			alreadyResolved = true
			return nil
		}
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	outcome := telemetry.ReservationReleased
	if alreadyResolved {
		outcome = telemetry.ReservationAlreadyResolved
	}
	s.metrics.RecordReservation(ctx, tenantID, outcome)
	return &ReservationResultResponse{
		Reservation:     ToReservationResponse(reservation),
		AlreadyResolved: alreadyResolved,
	}, nil
}

// CommitReservation turns a reservation into a SALE movement. Committing a resolved
// reservation changes nothing and reports AlreadyResolved.
func (s *InventoryService) CommitReservation(ctx context.Context, tenantID uuid.UUID, req CommitReservationRequest) (*ReservationResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, tenantID, "inventory", "commit_reservation")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrReservationID, req.ReservationID.String())

	var (
		result          *MovementResult
		reservation     *inventory.Reservation
		alreadyResolved bool
	)
	err := s.run(ctx, tenantID, "commit_reservation", req, func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		result, reservation, err = s.ledger.Commit(ctx, repos, req.ReservationID, SaleTerms{UnitPrice: req.UnitPrice, UnitCost: req.UnitCost})
		if errors.Is(err, shared.ErrAlreadyResolved) {
			alreadyResolved = true
			return nil
		}
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := &ReservationResultResponse{
		Reservation:     ToReservationResponse(reservation),
		AlreadyResolved: alreadyResolved,
	}
	if alreadyResolved {
		s.metrics.RecordReservation(ctx, tenantID, telemetry.ReservationAlreadyResolved)
		return resp, nil
	}

	s.metrics.RecordReservation(ctx, tenantID, telemetry.ReservationCommitted)
	s.metrics.RecordMovement(ctx, tenantID, string(inventory.ReasonSale))
	movement := ToMovementResponse(result.Movement)
	resp.Movement = &movement
	return resp, nil
}

// ListMovements returns the ledger history of an item at a location
func (s *InventoryService) ListMovements(ctx context.Context, tenantID, itemID, locationID uuid.UUID) ([]MovementResponse, error) {
	var movements []inventory.StockMovement
	err := s.uow.Run(ctx, tenantID, "list_movements", func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		movements, err = repos.Movements().ListByItemLocation(ctx, itemID, locationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToMovementResponses(movements), nil
}

// ListBatches returns every batch of an item at a location, empty ones included
func (s *InventoryService) ListBatches(ctx context.Context, tenantID, itemID, locationID uuid.UUID) ([]BatchResponse, error) {
	var batches []inventory.InventoryBatch
	err := s.uow.Run(ctx, tenantID, "list_batches", func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		batches, err = repos.Batches().ListByItemLocation(ctx, itemID, locationID)
		return err
	})
	if err != nil {
		return nil, err
	}

	states := make([]inventory.BatchState, len(batches))
	for i := range batches {
		states[i] = batches[i].State()
	}
	return ToBatchResponses(states), nil
}

// ListLowStock returns levels whose quantity is at or below the item threshold
func (s *InventoryService) ListLowStock(ctx context.Context, tenantID uuid.UUID) ([]LowStockResponse, error) {
	var lowStock []LowStockResponse
	err := s.uow.Run(ctx, tenantID, "list_low_stock", func(ctx context.Context, repos TransactionalRepositories) error {
		lowStock = nil

		levels, err := repos.Levels().List(ctx)
		if err != nil {
			return err
		}
		if len(levels) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(levels))
		for _, level := range levels {
			ids = append(ids, level.ItemID)
		}
		items, err := repos.Items().FindByIDs(ctx, ids)
		if err != nil {
			return err
		}

		for i := range items {
			for j := range levels {
				if levels[j].ItemID != items[i].ID || !levels[j].IsBelowThreshold(items[i].LowStockThreshold) {
					continue
				}
				lowStock = append(lowStock, LowStockResponse{
					Level:     ToLevelResponse(&levels[j]),
					SKU:       items[i].SKU,
					Name:      items[i].Name,
					Threshold: items[i].LowStockThreshold,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLowStockCount(ctx, tenantID, int64(len(lowStock)))
	return lowStock, nil
}

// run validates the request and executes fn as a unit of work
func (s *InventoryService) run(ctx context.Context, tenantID uuid.UUID, operation string, req any, fn func(ctx context.Context, repos TransactionalRepositories) error) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if err := s.uow.Run(ctx, tenantID, operation, fn); err != nil {
		if !isBusinessRejection(err) {
			logger.WithLogger(ctx, s.logger).Error("inventory operation failed",
				zap.String("operation", operation),
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

// isBusinessRejection reports expected rejections that are not worth an error log
func isBusinessRejection(err error) bool {
	return shared.ErrorCode(err) != "" && !shared.IsRetryable(err)
}
