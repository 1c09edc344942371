package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig holds configuration for database instrumentation.
type DBConfig struct {
	TraceEnabled    bool          // register otelgorm spans
	LogFullSQL      bool          // keep query variables in spans (dev only)
	SlowQueryThresh time.Duration // queries at or above this log a warning; 0 disables
	DBSystem        string        // db.system span attribute
}

// DBInstrumentation records query spans, durations and slow queries for a gorm.DB.
type DBInstrumentation struct {
	config        DBConfig
	logger        *zap.Logger
	queryDuration metric.Float64Histogram
	queryErrors   metric.Int64Counter
}

const queryStartKey = "telemetry:query_start"

// InstrumentDB registers tracing and timing callbacks on db. A nil meter skips the
// duration metrics.
func InstrumentDB(db *gorm.DB, meter metric.Meter, cfg DBConfig, logger *zap.Logger) (*DBInstrumentation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	in := &DBInstrumentation{config: cfg, logger: logger}

	if cfg.TraceEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
		if !cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return nil, err
		}
	}

	if meter != nil {
		b := &instruments{meter: meter}
		in.queryDuration = b.histogram("db_query_duration_seconds", "Duration of database queries", DBDurationBuckets)
		in.queryErrors = b.counter("db_query_errors_total", "Database queries that failed", "{queries}")
		if b.err != nil {
			return nil, b.err
		}
	}

	if err := in.registerCallbacks(db); err != nil {
		return nil, err
	}

	logger.Info("Database instrumentation enabled",
		zap.Bool("trace", cfg.TraceEnabled),
		zap.Bool("metrics", meter != nil),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return in, nil
}

func (in *DBInstrumentation) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	processors := []struct {
		operation string
		gormName  string
		before    func(string, func(*gorm.DB)) error
		after     func(string, func(*gorm.DB)) error
	}{
		{"create", "gorm:create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", "gorm:query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", "gorm:update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", "gorm:delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", "gorm:row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", "gorm:raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, p := range processors {
		if err := p.before("telemetry:before_"+p.operation, in.before); err != nil {
			return err
		}
		if err := p.after("telemetry:after_"+p.operation, in.after(p.operation)); err != nil {
			return err
		}
	}
	return nil
}

func (in *DBInstrumentation) before(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (in *DBInstrumentation) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)
		ctx := db.Statement.Context
		failed := db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound)

		if in.queryDuration != nil {
			attrs := metric.WithAttributes(
				AttrDBOperation.String(operation),
				AttrDBTable.String(db.Statement.Table),
			)
			in.queryDuration.Record(ctx, elapsed.Seconds(), attrs)
			if failed {
				in.queryErrors.Add(ctx, 1, attrs)
			}
		}

		if in.config.SlowQueryThresh > 0 && elapsed >= in.config.SlowQueryThresh {
			fields := []zap.Field{
				zap.String("operation", operation),
				zap.String("table", db.Statement.Table),
				zap.Duration("elapsed", elapsed),
				zap.Int64("rows", db.Statement.RowsAffected),
			}
			if trace := GetTraceID(ctx); trace != "" {
				fields = append(fields, zap.String("trace_id", trace))
			}
			in.logger.Warn("slow query", fields...)
		}
	}
}
