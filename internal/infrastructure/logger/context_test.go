package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func startSpan(t *testing.T) (context.Context, trace.Span) {
	t.Helper()
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp.Tracer("logger-test").Start(context.Background(), "transition_order")
}

func fieldMap(entry observer.LoggedEntry) map[string]any {
	return entry.ContextMap()
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	log := zap.NewExample()
	ctx := WithContext(context.Background(), log)
	assert.Same(t, log, FromContext(ctx))
}

func TestWithTenantID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	ctx, enriched := WithTenantID(context.Background(), zap.New(core), "tenant-a")
	assert.Equal(t, "tenant-a", GetTenantID(ctx))
	assert.Empty(t, GetTenantID(context.Background()))

	enriched.Info("level read")
	FromContext(ctx).Info("from context")

	require.Equal(t, 2, recorded.Len())
	for _, entry := range recorded.All() {
		assert.Equal(t, "tenant-a", fieldMap(entry)["tenant_id"])
	}
}

func TestWithOperation(t *testing.T) {
	assert.Empty(t, GetOperation(context.Background()))

	ctx := WithOperation(context.Background(), "reserve")
	assert.Equal(t, "reserve", GetOperation(ctx))
}

func TestGetTraceID(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))

	ctx, span := startSpan(t)
	defer span.End()
	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
}

func TestContextLogger_AddsCorrelationFields(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx, span := startSpan(t)
	defer span.End()
	ctx = WithOperation(ctx, "commit_reservation")

	WithLogger(ctx, zap.New(core)).With(zap.String("order_id", "o-1")).Info("reservation committed")

	require.Equal(t, 1, recorded.Len())
	fields := fieldMap(recorded.All()[0])
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
	assert.Equal(t, "commit_reservation", fields["operation"])
	assert.Equal(t, "o-1", fields["order_id"])
}

func TestContextLogger_WithoutSpan(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)

	cl := L(WithContext(context.Background(), zap.New(core)))
	cl.Debug("d")
	cl.Warn("w")
	cl.Error("e")

	require.Equal(t, 3, recorded.Len())
	for _, entry := range recorded.All() {
		_, hasTrace := fieldMap(entry)["trace_id"]
		assert.False(t, hasTrace)
	}
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := WithLogger(context.Background(), nil)
	assert.NotPanics(t, func() {
		cl.Info("nothing")
		cl.With(zap.Int("n", 1)).Warn("still nothing")
	})
	assert.NotNil(t, cl.Zap())
}
