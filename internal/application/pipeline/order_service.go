package pipeline

import (
	"context"
	"fmt"
	"time"

	appcatalog "github.com/erp/stockcore/internal/application/catalog"
	appfinance "github.com/erp/stockcore/internal/application/finance"
	appinv "github.com/erp/stockcore/internal/application/inventory"
	"github.com/erp/stockcore/internal/application/validation"
	"github.com/erp/stockcore/internal/domain/finance"
	"github.com/erp/stockcore/internal/domain/pipeline"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TriggerFactory builds the financial trigger for the repositories of one transaction
type TriggerFactory func(repos appinv.TransactionalRepositories) finance.FinancialTrigger

// OrderService edits orders and moves them through their pipeline. A transition runs its
// stock action, its receivable trigger and the stage change in one transaction.
type OrderService struct {
	uow         *appinv.UnitOfWork
	effects     *stageEffects
	logger      *zap.Logger
	metrics     *telemetry.LedgerMetrics
	idempotency shared.IdempotencyStore
	idemCfg     shared.IdempotencyConfig
	now         func() time.Time
}

// OrderServiceOption configures an OrderService
type OrderServiceOption func(*OrderService)

// WithIdempotencyStore enables request-level idempotency keys on transitions
func WithIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) OrderServiceOption {
	return func(s *OrderService) {
		s.idempotency = store
		s.idemCfg = cfg
	}
}

// WithTriggerFactory replaces the default TitleTrigger
func WithTriggerFactory(factory TriggerFactory) OrderServiceOption {
	return func(s *OrderService) {
		s.effects.triggers = factory
	}
}

// WithMetrics sets the ledger metrics
func WithMetrics(metrics *telemetry.LedgerMetrics) OrderServiceOption {
	return func(s *OrderService) {
		s.metrics = metrics
	}
}

// WithClock overrides the clock used for closed_at
func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) {
		s.now = now
	}
}

// NewOrderService creates a new OrderService
func NewOrderService(uow *appinv.UnitOfWork, ledger *appinv.Ledger, logger *zap.Logger, opts ...OrderServiceOption) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &OrderService{
		uow: uow,
		effects: &stageEffects{
			ledger: ledger,
			logger: logger,
			triggers: func(repos appinv.TransactionalRepositories) finance.FinancialTrigger {
				return appfinance.NewTitleTrigger(repos.TenantID(), repos.Titles(), repos.Orders(), appfinance.WithLogger(logger))
			},
		},
		logger:  logger,
		idemCfg: shared.DefaultIdempotencyConfig(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder opens an order in the entry stage of its pipeline. Entering the first
// stage runs no stage effects since the order has no lines yet.
func (s *OrderService) CreateOrder(ctx context.Context, tenantID uuid.UUID, req CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, tenantID, "order", "create_order")
	defer span.End()

	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var order *pipeline.Order
	err := s.uow.Run(ctx, tenantID, "create_order", func(ctx context.Context, repos appinv.TransactionalRepositories) error {
		var (
			p   *pipeline.Pipeline
			err error
		)
		if req.PipelineID != nil {
			p, err = repos.Pipelines().FindByID(ctx, *req.PipelineID)
		} else {
			p, err = repos.Pipelines().FindDefault(ctx)
		}
		if err != nil {
			return fmt.Errorf("resolve pipeline: %w", err)
		}

		var stage *pipeline.Stage
		if req.StageID != nil {
			if stage = p.Stage(*req.StageID); stage == nil {
				return shared.NewDomainError("INVALID_STAGE", "Stage does not belong to pipeline "+p.Name)
			}
		} else if stage, err = p.EntryStage(); err != nil {
			return err
		}

		locationID, err := appcatalog.ResolveLocation(ctx, repos, req.LocationID)
		if err != nil {
			return err
		}
		displayID, err := repos.Orders().NextDisplayID(ctx)
		if err != nil {
			return err
		}

		order, err = pipeline.NewOrder(repos.TenantID(), displayID, p.ID, stage, locationID)
		if err != nil {
			return err
		}
		order.SetCustomer(req.CustomerID)
		order.SetNotes(req.Notes, req.Tags)
		return repos.Orders().Save(ctx, order)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("create order: %w", err)
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, order.ID.String(), telemetry.SpanAttrOrderNumber, order.DisplayID)
	logger.WithLogger(ctx, s.logger).Info("order created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("order_id", order.ID.String()),
		zap.Int64("display_id", order.DisplayID),
		zap.String("stage_id", order.StageID.String()),
	)
	resp := ToOrderResponse(order)
	return &resp, nil
}

// GetOrder returns an order with its lines
func (s *OrderService) GetOrder(ctx context.Context, tenantID, orderID uuid.UUID) (*OrderResponse, error) {
	var resp OrderResponse
	err := s.uow.Run(ctx, tenantID, "get_order", func(ctx context.Context, repos appinv.TransactionalRepositories) error {
		order, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		resp = ToOrderResponse(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddItem snapshots a catalog item onto a new order line
func (s *OrderService) AddItem(ctx context.Context, tenantID, orderID uuid.UUID, req AddOrderItemRequest) (*OrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.editOrder(ctx, tenantID, orderID, "add_order_item", func(ctx context.Context, repos appinv.TransactionalRepositories, order *pipeline.Order, current *pipeline.Stage) error {
		snap, err := repos.Items().Snapshot(ctx, req.ItemID)
		if err != nil {
			return fmt.Errorf("snapshot item: %w", err)
		}
		_, err = order.AddItem(current, snap, req.Quantity, req.UnitPrice, req.Discount)
		return err
	})
}

// UpdateItemQuantity changes a line quantity. A line holding a reservation is
// re-reserved for the new quantity.
func (s *OrderService) UpdateItemQuantity(ctx context.Context, tenantID, orderID, lineID uuid.UUID, req UpdateOrderItemRequest) (*OrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.editOrder(ctx, tenantID, orderID, "update_order_item", func(ctx context.Context, repos appinv.TransactionalRepositories, order *pipeline.Order, current *pipeline.Stage) error {
		line, err := order.UpdateItemQuantity(current, lineID, req.Quantity)
		if err != nil {
			return err
		}
		if line.StockState != pipeline.StockStateReserved {
			return nil
		}
		if err := s.effects.releaseLine(ctx, repos, order, line); err != nil {
			return err
		}
		return s.effects.reserveLine(ctx, repos, order, line)
	})
}

// RemoveItem drops an order line and releases what it reserved
func (s *OrderService) RemoveItem(ctx context.Context, tenantID, orderID, lineID uuid.UUID) (*OrderResponse, error) {
	return s.editOrder(ctx, tenantID, orderID, "remove_order_item", func(ctx context.Context, repos appinv.TransactionalRepositories, order *pipeline.Order, current *pipeline.Stage) error {
		removed, err := order.RemoveItem(current, lineID)
		if err != nil {
			return err
		}
		if removed.StockState == pipeline.StockStateReserved {
			if err := s.effects.releaseLine(ctx, repos, order, removed); err != nil {
				return err
			}
		}
		return repos.Orders().DeleteItem(ctx, order.ID, removed.ID)
	})
}

// editOrder locks the order, applies fn and saves the order with its recalculated totals
func (s *OrderService) editOrder(ctx context.Context, tenantID, orderID uuid.UUID, operation string, fn func(ctx context.Context, repos appinv.TransactionalRepositories, order *pipeline.Order, current *pipeline.Stage) error) (*OrderResponse, error) {
	var order *pipeline.Order
	err := s.uow.Run(ctx, tenantID, operation, func(ctx context.Context, repos appinv.TransactionalRepositories) error {
		var err error
		order, err = repos.Orders().FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		current, err := repos.Pipelines().FindStage(ctx, order.StageID)
		if err != nil {
			return fmt.Errorf("current stage: %w", err)
		}
		if err := fn(ctx, repos, order, current); err != nil {
			return err
		}
		return repos.Orders().Save(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	resp := ToOrderResponse(order)
	return &resp, nil
}

// TransitionOrder moves an order to another stage of its pipeline and runs the
// target stage automation. Moving to the current stage is a no-op, so a retried call
// has no second effect even without an idempotency key.
func (s *OrderService) TransitionOrder(ctx context.Context, tenantID, orderID uuid.UUID, req TransitionRequest) (*TransitionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, tenantID, "order", "transition_order")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID.String(),
		telemetry.SpanAttrStageID, req.TargetStageID.String(),
	)

	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	key := s.idempotencyKey(tenantID, orderID, req.IdempotencyKey)
	if replay, err := s.replay(ctx, tenantID, orderID, key); replay != nil || err != nil {
		return replay, err
	}

	resp, err := s.move(ctx, tenantID, orderID, "transition_order", func(order *pipeline.Order, current, target *pipeline.Stage) error {
		return order.MoveTo(current, target, s.now())
	}, req.TargetStageID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.markProcessed(ctx, key)
	return resp, nil
}

// ReopenOrder is the only way out of a terminal stage. The reason is mandatory and
// the target stage automation runs as for a transition.
func (s *OrderService) ReopenOrder(ctx context.Context, tenantID, orderID uuid.UUID, req ReopenRequest) (*TransitionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, tenantID, "order", "reopen_order")
	defer span.End()

	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	resp, err := s.move(ctx, tenantID, orderID, "reopen_order", func(order *pipeline.Order, _, target *pipeline.Stage) error {
		return order.Reopen(target, req.Reason, s.now())
	}, req.TargetStageID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.WithLogger(ctx, s.logger).Warn("order reopened",
		zap.String("tenant_id", tenantID.String()),
		zap.String("order_id", orderID.String()),
		zap.String("from_stage_id", resp.FromStageID.String()),
		zap.String("to_stage_id", resp.ToStageID.String()),
		zap.String("reason", req.Reason),
	)
	return resp, nil
}

// move locks the order, changes its stage with step and applies the target stage effects
func (s *OrderService) move(ctx context.Context, tenantID, orderID uuid.UUID, operation string, step func(order *pipeline.Order, current, target *pipeline.Stage) error, targetID uuid.UUID) (*TransitionResponse, error) {
	var (
		order           *pipeline.Order
		current, target *pipeline.Stage
		titleID         *uuid.UUID
		noop            bool
	)
	err := s.uow.Run(ctx, tenantID, operation, func(ctx context.Context, repos appinv.TransactionalRepositories) error {
		titleID, noop = nil, false

		var err error
		order, err = repos.Orders().FindForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		p, err := repos.Pipelines().FindByID(ctx, order.PipelineID)
		if err != nil {
			return fmt.Errorf("order pipeline: %w", err)
		}
		if current = p.Stage(order.StageID); current == nil {
			return shared.NewDomainError(shared.CodeInvariantViolation, "Order stage is missing from its pipeline")
		}
		if target = p.Stage(targetID); target == nil {
			return shared.NewDomainError("INVALID_STAGE", "Target stage does not belong to pipeline "+p.Name)
		}
		if target.ID == current.ID {
			noop = true
			return nil
		}

		if err := step(order, current, target); err != nil {
			return err
		}
		if titleID, err = s.effects.apply(ctx, repos, order, target); err != nil {
			return err
		}
		return repos.Orders().Save(ctx, order)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	resp := &TransitionResponse{
		Order:       ToOrderResponse(order),
		FromStageID: current.ID,
		ToStageID:   target.ID,
		Replayed:    noop,
		TitleID:     titleID,
	}
	if noop {
		return resp, nil
	}

	s.metrics.RecordTransition(ctx, tenantID, string(target.Category), string(target.Trigger.StockAction))
	logger.WithLogger(ctx, s.logger).Info("order stage changed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("order_id", order.ID.String()),
		zap.Int64("display_id", order.DisplayID),
		zap.String("from_stage", current.Name),
		zap.String("to_stage", target.Name),
		zap.String("stock_action", string(target.Trigger.StockAction)),
		zap.Bool("title_created", titleID != nil),
	)
	return resp, nil
}

// idempotencyKey scopes a caller key to the tenant and order
func (s *OrderService) idempotencyKey(tenantID, orderID uuid.UUID, key string) string {
	if key == "" || s.idempotency == nil || !s.idemCfg.Enabled {
		return ""
	}
	return shared.TransitionKey(tenantID, orderID, key)
}

// replay returns the current order when the key was already processed
func (s *OrderService) replay(ctx context.Context, tenantID, orderID uuid.UUID, key string) (*TransitionResponse, error) {
	if key == "" {
		return nil, nil
	}
	processed, err := s.idempotency.IsProcessed(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check idempotency key: %w", err)
	}
	if !processed {
		return nil, nil
	}

	order, err := s.GetOrder(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	logger.WithLogger(ctx, s.logger).Info("transition replayed from idempotency key",
		zap.String("tenant_id", tenantID.String()),
		zap.String("order_id", orderID.String()),
	)
	return &TransitionResponse{
		Order:       *order,
		FromStageID: order.StageID,
		ToStageID:   order.StageID,
		Replayed:    true,
	}, nil
}

// markProcessed records the key after commit. A failure only loses replay protection,
// the transition itself already committed.
func (s *OrderService) markProcessed(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if _, err := s.idempotency.MarkProcessed(ctx, key, s.idemCfg.TTL); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("failed to mark transition key processed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
