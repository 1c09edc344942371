package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics counts stock movements, reservations, order transitions and the
// conflicts and retries of the transactions behind them.
// A nil *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	logger *zap.Logger

	movements    metric.Int64Counter
	reservations metric.Int64Counter
	transitions  metric.Int64Counter
	conflicts    metric.Int64Counter
	retries      metric.Int64Counter
	duration     metric.Float64Histogram
	lowStock     metric.Int64Gauge
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewLedgerMetrics creates the ledger instruments on cfg.Meter
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &instruments{meter: cfg.Meter}
	lm := &LedgerMetrics{
		logger:       logger,
		movements:    b.counter("stock_movements_total", "Stock movements appended to the ledger", "{movements}"),
		reservations: b.counter("stock_reservations_total", "Reservation operations by outcome", "{reservations}"),
		transitions:  b.counter("order_transitions_total", "Orders entering a pipeline stage", "{transitions}"),
		conflicts:    b.counter("stock_transaction_conflicts_total", "Transactions aborted by a concurrent write", "{conflicts}"),
		retries:      b.counter("stock_transaction_retries_total", "Units of work run again after a conflict", "{retries}"),
		duration:     b.histogram("stock_operation_duration_seconds", "Duration of ledger and pipeline operations", OperationDurationBuckets),
		lowStock:     b.gauge("stock_low_stock_count", "Inventory levels at or below their item threshold", "{levels}"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return lm, nil
}

func tenant(tenantID uuid.UUID) attribute.KeyValue {
	return AttrTenantID.String(tenantID.String())
}

// RecordMovement records one appended movement.
func (lm *LedgerMetrics) RecordMovement(ctx context.Context, tenantID uuid.UUID, reason string) {
	if lm == nil {
		return
	}
	lm.movements.Add(ctx, 1, metric.WithAttributes(tenant(tenantID), AttrMovementReason.String(reason)))
}

// ReservationOutcome labels reservation operations.
type ReservationOutcome string

const (
	ReservationReserved        ReservationOutcome = "reserved"
	ReservationReleased        ReservationOutcome = "released"
	ReservationCommitted       ReservationOutcome = "committed"
	ReservationRejected        ReservationOutcome = "rejected"
	ReservationAlreadyResolved ReservationOutcome = "already_resolved"
)

// RecordReservation records a reservation operation outcome.
func (lm *LedgerMetrics) RecordReservation(ctx context.Context, tenantID uuid.UUID, outcome ReservationOutcome) {
	if lm == nil {
		return
	}
	lm.reservations.Add(ctx, 1, metric.WithAttributes(tenant(tenantID), AttrOutcome.String(string(outcome))))
}

// RecordTransition records an order entering a stage of the given category.
func (lm *LedgerMetrics) RecordTransition(ctx context.Context, tenantID uuid.UUID, category, stockAction string) {
	if lm == nil {
		return
	}
	lm.transitions.Add(ctx, 1, metric.WithAttributes(
		tenant(tenantID),
		AttrStageCategory.String(category),
		AttrStockAction.String(stockAction),
	))
}

// RecordConflict records a transaction aborted by a concurrent write.
func (lm *LedgerMetrics) RecordConflict(ctx context.Context, tenantID uuid.UUID, operation string) {
	if lm == nil {
		return
	}
	lm.conflicts.Add(ctx, 1, metric.WithAttributes(tenant(tenantID), AttrOperation.String(operation)))
}

// RecordRetry records a retried unit of work.
func (lm *LedgerMetrics) RecordRetry(ctx context.Context, tenantID uuid.UUID, operation string) {
	if lm == nil {
		return
	}
	lm.retries.Add(ctx, 1, metric.WithAttributes(tenant(tenantID), AttrOperation.String(operation)))
}

// RecordDuration records how long an operation took and whether it failed.
func (lm *LedgerMetrics) RecordDuration(ctx context.Context, operation string, d time.Duration, err error) {
	if lm == nil {
		return
	}
	lm.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		AttrOperation.String(operation),
		attribute.Bool("error", err != nil),
	))
}

// RecordLowStockCount records the number of levels at or below their threshold.
func (lm *LedgerMetrics) RecordLowStockCount(ctx context.Context, tenantID uuid.UUID, count int64) {
	if lm == nil {
		return
	}
	lm.lowStock.Record(ctx, count, metric.WithAttributes(tenant(tenantID)))
}
