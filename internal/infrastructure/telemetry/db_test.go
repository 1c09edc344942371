package telemetry_test

import (
	"context"
	"testing"

	"github.com/erp/stockcore/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type sampleRow struct {
	ID   int
	Name string
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every pooled connection would get its own in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&sampleRow{}))
	return db
}

func TestInstrumentDB_RecordsQueries(t *testing.T) {
	db := openDB(t)
	reader, provider := newManualMeter(t)

	_, err := telemetry.InstrumentDB(db, provider.Meter("test"), telemetry.DBConfig{DBSystem: "sqlite"}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&sampleRow{ID: 1, Name: "a"}).Error)
	var got sampleRow
	require.NoError(t, db.WithContext(ctx).First(&got, 1).Error)
	assert.Error(t, db.WithContext(ctx).First(&got, 99).Error)
	assert.Error(t, db.WithContext(ctx).Create(&sampleRow{ID: 1, Name: "dup"}).Error)

	metrics := collect(t, reader)

	hist := metrics["db_query_duration_seconds"].Data.(metricdata.Histogram[float64])
	var queries uint64
	for _, dp := range hist.DataPoints {
		queries += dp.Count
	}
	assert.Equal(t, uint64(4), queries)

	// A missing row is not a failure; the duplicate key is
	errs := metrics["db_query_errors_total"].Data.(metricdata.Sum[int64])
	require.Len(t, errs.DataPoints, 1)
	assert.Equal(t, int64(1), errs.DataPoints[0].Value)
	op, _ := errs.DataPoints[0].Attributes.Value(telemetry.AttrDBOperation)
	assert.Equal(t, "create", op.AsString())
}

func TestInstrumentDB_SlowQueries(t *testing.T) {
	db := openDB(t)
	core, logs := observer.New(zap.WarnLevel)

	_, err := telemetry.InstrumentDB(db, nil, telemetry.DBConfig{SlowQueryThresh: 1}, zap.New(core))
	require.NoError(t, err)

	var rows []sampleRow
	require.NoError(t, db.Find(&rows).Error)

	slow := logs.FilterMessage("slow query").All()
	require.Len(t, slow, 1)
	assert.Equal(t, "sample_rows", slow[0].ContextMap()["table"])
	assert.Equal(t, "query", slow[0].ContextMap()["operation"])
}

func TestInstrumentDB_Tracing(t *testing.T) {
	db := openDB(t)
	sr := setupTestTracer(t)

	_, err := telemetry.InstrumentDB(db, nil, telemetry.DBConfig{TraceEnabled: true, DBSystem: "sqlite"}, nil)
	require.NoError(t, err)

	ctx, span := telemetry.StartServiceSpan(context.Background(), uuid.New(), "inventory", "list_batches")
	var rows []sampleRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	span.End()

	assert.GreaterOrEqual(t, len(sr.Ended()), 2)
}
