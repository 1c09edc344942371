package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/stockcore/internal/domain/inventory"
	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Discrepancy is an (item, location) whose level or batches disagree with the ledger
type Discrepancy struct {
	ItemID        uuid.UUID       `json:"item_id"`
	LocationID    uuid.UUID       `json:"location_id"`
	LedgerSum     decimal.Decimal `json:"ledger_sum"`
	LevelQuantity decimal.Decimal `json:"level_quantity"`
	BatchSum      decimal.Decimal `json:"batch_sum"`
	LevelMissing  bool            `json:"level_missing"`
}

// ReconcileReport is the outcome of a ledger replay
type ReconcileReport struct {
	TenantID      uuid.UUID     `json:"tenant_id"`
	LevelsChecked int           `json:"levels_checked"`
	Discrepancies []Discrepancy `json:"discrepancies"`
}

// Consistent reports whether every level matched the ledger
func (r *ReconcileReport) Consistent() bool {
	return len(r.Discrepancies) == 0
}

// Reconciler replays the ledger and checks the level cache and batches against it
type Reconciler struct {
	uow    *UnitOfWork
	logger *zap.Logger
}

// NewReconciler creates a new Reconciler
func NewReconciler(uow *UnitOfWork, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{uow: uow, logger: logger}
}

// Reconcile compares, for every (item, location) of the tenant, the sum of its
// movements with the level quantity and the sum of its batch quantities
func (r *Reconciler) Reconcile(ctx context.Context, tenantID uuid.UUID) (*ReconcileReport, error) {
	report := &ReconcileReport{TenantID: tenantID}

	err := r.uow.Run(ctx, tenantID, "reconcile", func(ctx context.Context, repos TransactionalRepositories) error {
		report.LevelsChecked = 0
		report.Discrepancies = nil

		keys, err := ledgerKeys(ctx, repos)
		if err != nil {
			return err
		}

		for _, key := range keys {
			d, err := compare(ctx, repos, key)
			if err != nil {
				return err
			}
			report.LevelsChecked++
			if d != nil {
				report.Discrepancies = append(report.Discrepancies, *d)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, d := range report.Discrepancies {
		logger.WithLogger(ctx, r.logger).Warn("ledger discrepancy",
			zap.String("tenant_id", tenantID.String()),
			zap.String("item_id", d.ItemID.String()),
			zap.String("location_id", d.LocationID.String()),
			zap.String("ledger_sum", d.LedgerSum.String()),
			zap.String("level_quantity", d.LevelQuantity.String()),
			zap.String("batch_sum", d.BatchSum.String()),
		)
	}
	return report, nil
}

// RebuildLevel rewrites the level quantity of an (item, location) from its ledger.
// Reserved quantity and average cost are kept.
func (r *Reconciler) RebuildLevel(ctx context.Context, tenantID, itemID, locationID uuid.UUID) (*LevelResponse, error) {
	var level *inventory.InventoryLevel
	err := r.uow.Run(ctx, tenantID, "rebuild_level", func(ctx context.Context, repos TransactionalRepositories) error {
		var err error
		level, err = repos.Levels().GetOrCreateForUpdate(ctx, itemID, locationID)
		if err != nil {
			return err
		}

		movements, err := repos.Movements().ListByItemLocation(ctx, itemID, locationID)
		if err != nil {
			return err
		}
		sum := sumMovements(movements)
		if sum.LessThan(level.ReservedQuantity) {
			return shared.NewDomainError(shared.CodeInvariantViolation,
				"Ledger holds "+sum.String()+", less than the "+level.ReservedQuantity.String()+" reserved")
		}
		if sum.Equal(level.Quantity) {
			return nil
		}

		logger.WithLogger(ctx, r.logger).Warn("rebuilding inventory level from ledger",
			zap.String("tenant_id", tenantID.String()),
			zap.String("item_id", itemID.String()),
			zap.String("location_id", locationID.String()),
			zap.String("cached_quantity", level.Quantity.String()),
			zap.String("ledger_sum", sum.String()),
		)
		level.Quantity = sum
		level.Touch()
		return repos.Levels().Save(ctx, level)
	})
	if err != nil {
		return nil, fmt.Errorf("rebuild level: %w", err)
	}
	resp := ToLevelResponse(level)
	return &resp, nil
}

// ledgerKeys returns every (item, location) that has movements or a level
func ledgerKeys(ctx context.Context, repos TransactionalRepositories) ([]inventory.LevelKey, error) {
	keys, err := repos.Movements().ListKeys(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[inventory.LevelKey]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
	}

	levels, err := repos.Levels().List(ctx)
	if err != nil {
		return nil, err
	}
	for _, level := range levels {
		k := inventory.LevelKey{ItemID: level.ItemID, LocationID: level.LocationID}
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
			seen[k] = struct{}{}
		}
	}
	return keys, nil
}

func compare(ctx context.Context, repos TransactionalRepositories, key inventory.LevelKey) (*Discrepancy, error) {
	movements, err := repos.Movements().ListByItemLocation(ctx, key.ItemID, key.LocationID)
	if err != nil {
		return nil, err
	}
	batches, err := repos.Batches().ListByItemLocation(ctx, key.ItemID, key.LocationID)
	if err != nil {
		return nil, err
	}

	d := Discrepancy{
		ItemID:     key.ItemID,
		LocationID: key.LocationID,
		LedgerSum:  sumMovements(movements),
		BatchSum:   decimal.Zero,
	}
	for _, b := range batches {
		d.BatchSum = d.BatchSum.Add(b.Quantity)
	}

	level, err := repos.Levels().Find(ctx, key.ItemID, key.LocationID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		d.LevelMissing = true
		d.LevelQuantity = decimal.Zero
	case err != nil:
		return nil, err
	default:
		d.LevelQuantity = level.Quantity
	}

	if !d.LevelMissing && d.LedgerSum.Equal(d.LevelQuantity) && d.BatchSum.Equal(d.LevelQuantity) {
		return nil, nil
	}
	return &d, nil
}

func sumMovements(movements []inventory.StockMovement) decimal.Decimal {
	sum := decimal.Zero
	for _, m := range movements {
		sum = sum.Add(m.QuantityChanged)
	}
	return sum
}
