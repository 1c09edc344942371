// Package telemetry provides OpenTelemetry tracing and metrics for the ledger and the
// order pipeline.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// Config selects what is exported and where
type Config struct {
	// Enabled turns on span export; MetricsEnabled additionally turns on metrics
	Enabled           bool
	MetricsEnabled    bool
	CollectorEndpoint string
	Insecure          bool
	// SamplingRatio of root spans; children follow their parent
	SamplingRatio  float64
	ExportInterval time.Duration
	ServiceName    string
	ServiceVersion string
}

// Option replaces an OTLP exporter, mainly for tests
type Option func(*options)

type options struct {
	spanProcessor sdktrace.SpanProcessor
	metricReader  sdkmetric.Reader
}

// WithSpanProcessor sends spans to p instead of the OTLP exporter
func WithSpanProcessor(p sdktrace.SpanProcessor) Option {
	return func(o *options) { o.spanProcessor = p }
}

// WithMetricReader reads metrics with r instead of the periodic OTLP reader
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(o *options) { o.metricReader = r }
}

// Provider owns the tracer and meter providers of the process. Disabled signals
// use no-op providers, so callers never check whether telemetry is on.
type Provider struct {
	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	logger  *zap.Logger
}

// New builds the providers and installs them as the otel globals, which is where
// service spans and the otelgorm plugin look for them.
func New(ctx context.Context, cfg Config, logger *zap.Logger, opts ...Option) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	p := &Provider{logger: logger}
	if !cfg.Enabled {
		logger.Debug("telemetry disabled")
		return p, nil
	}

	res, err := serviceResource(cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, err
	}

	processor := o.spanProcessor
	if processor == nil {
		exporter, err := otlptracegrpc.New(ctx, traceExporterOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("create span exporter: %w", err)
		}
		processor = sdktrace.NewBatchSpanProcessor(exporter)
	}
	p.traces = sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SamplingRatio)),
	)
	otel.SetTracerProvider(p.traces)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.MetricsEnabled {
		reader := o.metricReader
		if reader == nil {
			exporter, err := otlpmetricgrpc.New(ctx, metricExporterOptions(cfg)...)
			if err != nil {
				_ = p.traces.Shutdown(ctx)
				return nil, fmt.Errorf("create metric exporter: %w", err)
			}
			interval := cfg.ExportInterval
			if interval <= 0 {
				interval = time.Minute
			}
			reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
		}
		p.metrics = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
		otel.SetMeterProvider(p.metrics)
	}

	logger.Info("telemetry enabled",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.Bool("metrics", p.metrics != nil),
	)
	return p, nil
}

func traceExporterOptions(cfg Config) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return opts
}

func metricExporterOptions(cfg Config) []otlpmetricgrpc.Option {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return opts
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func serviceResource(name, version string) (*resource.Resource, error) {
	if name == "" {
		name = TracerName
	}
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}
	return res, nil
}

// Meter returns the stockcore meter, a no-op meter when metrics are off
func (p *Provider) Meter() metric.Meter {
	if p.metrics == nil {
		return noop.NewMeterProvider().Meter(TracerName)
	}
	return p.metrics.Meter(TracerName)
}

// TracingEnabled reports whether spans are exported
func (p *Provider) TracingEnabled() bool { return p.traces != nil }

// MetricsEnabled reports whether metrics are exported
func (p *Provider) MetricsEnabled() bool { return p.metrics != nil }

// Shutdown flushes and stops both providers within ten seconds
func (p *Provider) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []error
	if p.metrics != nil {
		if err := p.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}
	if p.traces != nil {
		if err := p.traces.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		p.logger.Warn("telemetry shutdown incomplete", zap.Error(err))
	}
	return err
}
