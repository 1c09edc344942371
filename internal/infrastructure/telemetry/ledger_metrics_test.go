package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func TestNewLedgerMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})

	require.NoError(t, err)
	require.NotNil(t, lm)
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{})

	require.Error(t, err)
	assert.Nil(t, lm)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestLedgerMetrics_NilReceiver(t *testing.T) {
	var lm *telemetry.LedgerMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		lm.RecordMovement(ctx, uuid.New(), "PURCHASE")
		lm.RecordReservation(ctx, uuid.New(), telemetry.ReservationReserved)
		lm.RecordTransition(ctx, uuid.New(), "DONE", "DEDUCT")
		lm.RecordConflict(ctx, uuid.New(), "record_movement")
		lm.RecordRetry(ctx, uuid.New(), "record_movement")
		lm.RecordDuration(ctx, "record_movement", time.Millisecond, nil)
		lm.RecordLowStockCount(ctx, uuid.New(), 2)
	})
}

func TestLedgerMetrics_ExportsCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: provider.Meter("test"),
	})
	require.NoError(t, err)

	ctx := context.Background()
	tenantID := uuid.New()
	lm.RecordMovement(ctx, tenantID, "PURCHASE")
	lm.RecordMovement(ctx, tenantID, "SALE")
	lm.RecordConflict(ctx, tenantID, "reserve")
	lm.RecordDuration(ctx, "reserve", 3*time.Millisecond, errors.New("boom"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					totals[m.Name] += dp.Value
				}
			}
		}
	}

	assert.Equal(t, int64(2), totals["stock_movements_total"])
	assert.Equal(t, int64(1), totals["stock_transaction_conflicts_total"])
}
