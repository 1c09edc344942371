package pipeline

import (
	"context"
	"errors"
	"fmt"

	appinv "github.com/erp/stockcore/internal/application/inventory"
	"github.com/erp/stockcore/internal/domain/catalog"
	"github.com/erp/stockcore/internal/domain/finance"
	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/pipeline"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// stageEffects runs the automation of a stage an order enters. Every method works on
// the repositories of the caller's transaction.
type stageEffects struct {
	ledger   *appinv.Ledger
	logger   *zap.Logger
	triggers TriggerFactory
}

// stockPart is one (item, quantity) a line moves in the ledger
type stockPart struct {
	itemID   uuid.UUID
	quantity decimal.Decimal
}

// apply runs the stock action of the target stage, releases reservations when the
// order is cancelled and raises the receivable. It returns the created title, if any.
func (e *stageEffects) apply(ctx context.Context, repos appinv.TransactionalRepositories, order *pipeline.Order, target *pipeline.Stage) (*uuid.UUID, error) {
	switch target.Trigger.StockAction {
	case pipeline.StockActionReserve:
		if err := e.reserveOrder(ctx, repos, order); err != nil {
			return nil, err
		}
	case pipeline.StockActionDeduct:
		if err := e.deductOrder(ctx, repos, order); err != nil {
			return nil, err
		}
	}

	if target.Category == pipeline.StageCategoryCancelled {
		if err := e.releaseOrder(ctx, repos, order); err != nil {
			return nil, err
		}
	}

	if !target.Trigger.GeneratesReceivable {
		return nil, nil
	}
	return e.raiseReceivable(ctx, repos, order, target)
}

// stockParts expands a line into the items it moves. Products move themselves, bundles
// move their stock-consuming components and other kinds move nothing.
func (e *stageEffects) stockParts(ctx context.Context, repos appinv.TransactionalRepositories, line *pipeline.OrderItem) ([]stockPart, error) {
	switch line.ItemKind {
	case catalog.ItemKindProduct:
		return []stockPart{{itemID: line.ItemID, quantity: line.Quantity}}, nil
	case catalog.ItemKindBundle:
		children, err := repos.Compositions().ListByParent(ctx, line.ItemID)
		if err != nil {
			return nil, fmt.Errorf("expand bundle %s: %w", line.SKU, err)
		}
		parts := make([]stockPart, 0, len(children))
		for i := range children {
			if !children[i].ConsumesStock() {
				continue
			}
			parts = append(parts, stockPart{
				itemID:   children[i].ChildItemID,
				quantity: children[i].RequiredFor(line.Quantity),
			})
		}
		return parts, nil
	default:
		return nil, nil
	}
}

// reserveOrder reserves every stock-moving line that holds nothing yet
func (e *stageEffects) reserveOrder(ctx context.Context, repos appinv.TransactionalRepositories, order *pipeline.Order) error {
	for i := range order.Items {
		line := &order.Items[i]
		if !line.MovesStock() || line.StockState != pipeline.StockStateNone {
			continue
		}
		if err := e.reserveLine(ctx, repos, order, line); err != nil {
			return err
		}
	}
	return nil
}

// reserveLine reserves the parts of one line at the order location
func (e *stageEffects) reserveLine(ctx context.Context, repos appinv.TransactionalRepositories, order *pipeline.Order, line *pipeline.OrderItem) error {
	parts, err := e.stockParts(ctx, repos, line)
	if err != nil {
		return err
	}

	var reservationID *uuid.UUID
	for _, part := range parts {
		reservation, err := e.ledger.Reserve(ctx, repos, appinv.ReserveCommand{
			ItemID:      part.itemID,
			LocationID:  order.LocationID,
			Quantity:    part.quantity,
			OrderID:     &order.ID,
			OrderItemID: &line.ID,
		})
		if err != nil {
			return fmt.Errorf("reserve %s: %w", line.SKU, err)
		}
		reservationID = &reservation.ID
	}

	// Bundle lines hold one reservation per component and keep no single id
	if line.ItemKind != catalog.ItemKindProduct {
		reservationID = nil
	}
	line.MarkReserved(reservationID)
	return nil
}

// deductOrder takes the stock of every line out of the ledger. Reserved lines commit
// their reservations, the others record a SALE directly. A line whose reservation was
// already committed outside the pipeline has nothing left to deduct.
func (e *stageEffects) deductOrder(ctx context.Context, repos appinv.TransactionalRepositories, order *pipeline.Order) error {
	byLine, err := e.holdsByLine(ctx, repos, order.ID)
	if err != nil {
		return err
	}

	for i := range order.Items {
		line := &order.Items[i]
		if !line.MovesStock() || line.StockState == pipeline.StockStateDeducted {
			continue
		}

		holds := byLine[line.ID]
		switch {
		case len(holds.active) > 0:
			if err := e.commitLine(ctx, repos, line, holds.active); err != nil {
				return err
			}
		case holds.committed:
			e.logger.Debug("order line reservation already committed, skipping deduction",
				zap.String("order_id", order.ID.String()),
				zap.String("order_item_id", line.ID.String()),
			)
		default:
			if err := e.sellLine(ctx, repos, order, line); err != nil {
				return err
			}
		}
		line.MarkDeducted()
	}
	return nil
}

// saleTerms are the price and snapshot cost a product line sells at. Bundle components
// have neither and leave at average cost.
func saleTerms(line *pipeline.OrderItem) appinv.SaleTerms {
	if line.ItemKind != catalog.ItemKindProduct {
		return appinv.SaleTerms{}
	}
	return appinv.SaleTerms{UnitPrice: &line.UnitPrice, UnitCost: &line.UnitCost}
}

func (e *stageEffects) commitLine(ctx context.Context, repos appinv.TransactionalRepositories, line *pipeline.OrderItem, reservations []inventory.Reservation) error {
	terms := saleTerms(line)
	for i := range reservations {
		_, reservation, err := e.ledger.Commit(ctx, repos, reservations[i].ID, terms)
		if errors.Is(err, shared.ErrAlreadyResolved) && reservation != nil && reservation.Status == inventory.ReservationCommitted {
			continue
		}
		if err != nil {
			return fmt.Errorf("commit reservation for %s: %w", line.SKU, err)
		}
	}
	return nil
}

func (e *stageEffects) sellLine(ctx context.Context, repos appinv.TransactionalRepositories, order *pipeline.Order, line *pipeline.OrderItem) error {
	parts, err := e.stockParts(ctx, repos, line)
	if err != nil {
		return err
	}

	terms := saleTerms(line)
	for _, part := range parts {
		cmd := appinv.MovementCommand{
			ItemID:          part.itemID,
			LocationID:      order.LocationID,
			QuantityChanged: part.quantity.Neg(),
			Reason:          inventory.ReasonSale,
			UnitCost:        terms.UnitCost,
			UnitPrice:       terms.UnitPrice,
			OrderID:         &order.ID,
		}
		if _, err := e.ledger.Record(ctx, repos, cmd); err != nil {
			return fmt.Errorf("deduct %s: %w", line.SKU, err)
		}
	}
	return nil
}

// releaseOrder releases every active reservation of the order. Lines whose stock
// already left through a committed reservation end up deducted.
func (e *stageEffects) releaseOrder(ctx context.Context, repos appinv.TransactionalRepositories, order *pipeline.Order) error {
	byLine, err := e.holdsByLine(ctx, repos, order.ID)
	if err != nil {
		return err
	}
	for i := range order.Items {
		line := &order.Items[i]
		if line.StockState != pipeline.StockStateReserved {
			continue
		}
		if err := e.release(ctx, repos, line, byLine[line.ID]); err != nil {
			return err
		}
	}
	return nil
}

// releaseLine releases the active reservations of one line before it is edited or
// removed. A line with a committed reservation can no longer change.
func (e *stageEffects) releaseLine(ctx context.Context, repos appinv.TransactionalRepositories, order *pipeline.Order, line *pipeline.OrderItem) error {
	byLine, err := e.holdsByLine(ctx, repos, order.ID)
	if err != nil {
		return err
	}
	holds := byLine[line.ID]
	if holds.committed {
		return errLineDeducted
	}
	return e.release(ctx, repos, line, holds)
}

func (e *stageEffects) release(ctx context.Context, repos appinv.TransactionalRepositories, line *pipeline.OrderItem, holds lineHolds) error {
	for i := range holds.active {
		if _, err := e.ledger.Release(ctx, repos, holds.active[i].ID); err != nil {
			return fmt.Errorf("release reservation for %s: %w", line.SKU, err)
		}
	}
	if holds.committed {
		line.MarkDeducted()
		return nil
	}
	line.MarkReleased()
	return nil
}

var errLineDeducted = shared.NewDomainError(shared.CodeInvalidState, "Stock for this line was already deducted")

// lineHolds is the reservation state of one order line
type lineHolds struct {
	active    []inventory.Reservation
	committed bool
}

// holdsByLine groups the reservations of an order by order line
func (e *stageEffects) holdsByLine(ctx context.Context, repos appinv.TransactionalRepositories, orderID uuid.UUID) (map[uuid.UUID]lineHolds, error) {
	reservations, err := repos.Reservations().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order reservations: %w", err)
	}
	byLine := make(map[uuid.UUID]lineHolds, len(reservations))
	for _, r := range reservations {
		if r.OrderItemID == nil {
			continue
		}
		holds := byLine[*r.OrderItemID]
		switch r.Status {
		case inventory.ReservationActive:
			holds.active = append(holds.active, r)
		case inventory.ReservationCommitted:
			holds.committed = true
		}
		byLine[*r.OrderItemID] = holds
	}
	return byLine, nil
}

// raiseReceivable creates the order receivable once. A trigger record for this stage
// or an existing receivable for the order both mean there is nothing to do.
func (e *stageEffects) raiseReceivable(ctx context.Context, repos appinv.TransactionalRepositories, order *pipeline.Order, stage *pipeline.Stage) (*uuid.UUID, error) {
	triggered, err := repos.TriggerRecords().Exists(ctx, order.ID, stage.ID)
	if err != nil {
		return nil, fmt.Errorf("check trigger record: %w", err)
	}
	if triggered {
		return nil, nil
	}
	exists, err := repos.Titles().ExistsForOrder(ctx, order.ID, finance.TitleKindReceivable)
	if err != nil {
		return nil, fmt.Errorf("check receivable: %w", err)
	}
	if exists {
		e.logger.Debug("receivable already exists for order, skipping",
			zap.String("order_id", order.ID.String()),
			zap.String("stage_id", stage.ID.String()),
		)
		return nil, nil
	}

	titleID, err := e.triggers(repos).CreateTitle(ctx, repos.TenantID(), order.ID, order.TotalAmount, finance.TitleKindReceivable)
	if err != nil {
		return nil, fmt.Errorf("create receivable: %w", err)
	}
	if err := repos.TriggerRecords().Create(ctx, finance.NewTriggerRecord(repos.TenantID(), order.ID, stage.ID, titleID)); err != nil {
		return nil, fmt.Errorf("save trigger record: %w", err)
	}
	return &titleID, nil
}
