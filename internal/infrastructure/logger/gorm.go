package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger writes GORM statements to zap, tagged with the tenant and operation
// of the statement context.
type GormLogger struct {
	zl          *zap.Logger
	level       gormlogger.LogLevel
	slowAfter   time.Duration
	logNotFound bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is logged as slow.
// Zero disables slow statement logging.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowAfter = threshold }
}

// WithNotFoundLogged logs lookups that find nothing as errors. They are skipped
// by default since repositories turn them into ErrNotFound.
func WithNotFoundLogged() GormLoggerOption {
	return func(l *GormLogger) { l.logNotFound = true }
}

// NewGormLogger creates a GORM logger writing to the "gorm" child of base
func NewGormLogger(base *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		zl:        base.Named("gorm"),
		level:     level,
		slowAfter: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Info, zap.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Warn, zap.WarnLevel, msg, data)
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	l.printf(gormlogger.Error, zap.ErrorLevel, msg, data)
}

// printf forwards a GORM message when the configured level admits it
func (l *GormLogger) printf(at gormlogger.LogLevel, level zapcore.Level, msg string, data []any) {
	if l.level >= at {
		l.zl.Sugar().Logf(level, msg, data...)
	}
}

// Trace logs one executed statement. Failures log at error, statements over the
// slow threshold at warn and everything else at debug when the level is Info.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level == gormlogger.Silent {
		return
	}
	took := time.Since(begin)
	notFound := errors.Is(err, gormlogger.ErrRecordNotFound)

	switch {
	case err != nil && l.level >= gormlogger.Error && (l.logNotFound || !notFound):
		l.zl.Error("sql error", append(l.statementFields(ctx, took, fc), zap.Error(err))...)
	case err == nil && l.slowAfter > 0 && took > l.slowAfter && l.level >= gormlogger.Warn:
		l.zl.Warn("slow sql", append(l.statementFields(ctx, took, fc), zap.Duration("threshold", l.slowAfter))...)
	case err == nil && l.level >= gormlogger.Info:
		l.zl.Debug("sql", l.statementFields(ctx, took, fc)...)
	}
}

// statementFields renders the statement only once it is known to be logged
func (l *GormLogger) statementFields(ctx context.Context, took time.Duration, fc func() (string, int64)) []zap.Field {
	stmt, affected := fc()
	fields := make([]zap.Field, 0, 6)
	fields = append(fields,
		zap.String("sql", stmt),
		zap.Int64("rows_affected", affected),
		zap.Duration("took", took),
	)
	if tenantID := GetTenantID(ctx); tenantID != "" {
		fields = append(fields, zap.String("tenant_id", tenantID))
	}
	return append(fields, correlationFields(ctx)...)
}

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}

// MapGormLogLevel maps log.sql_level to a GORM level. Unknown values mean warn.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[level]; ok {
		return l
	}
	return gormlogger.Warn
}
