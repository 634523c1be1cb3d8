package observability

import (
	"context"
	"fmt"
	"time"

	"vehicle-financing/internal/common/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Observability owns the OpenTelemetry meter and tracer providers. Metrics
// are exported through the Prometheus registry served on /metrics; traces go
// to Jaeger when tracing is enabled.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	requestCounter  otelmetric.Int64Counter
	requestDuration otelmetric.Float64Histogram
}

var newMetricReader = func() (metric.Reader, error) { return prometheus.New() }

// New builds the providers. A failing exporter degrades to no-op
// instruments rather than failing startup.
func New(serviceName string, cfg config.ObservabilityConfig) (*Observability, error) {
	o := newNoop(serviceName)

	reader, err := newMetricReader()
	if err != nil {
		return o, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	if err := o.useMeter(mp.Meter(serviceName)); err != nil {
		_ = mp.Shutdown(context.Background())
		return o, err
	}
	o.meterProvider = mp
	otel.SetMeterProvider(mp)

	if !cfg.TracingEnabled {
		return o, nil
	}

	traceExporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
	if err != nil {
		return o, fmt.Errorf("failed to create jaeger exporter: %w", err)
	}
	o.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	otel.SetTracerProvider(o.tracerProvider)
	o.tracer = o.tracerProvider.Tracer(serviceName)

	return o, nil
}

// NewNoop returns instruments that record nothing, for tests.
func NewNoop() *Observability {
	return newNoop("noop")
}

func newNoop(serviceName string) *Observability {
	o := &Observability{tracer: noop.NewTracerProvider().Tracer(serviceName)}
	_ = o.useMeter(metricnoop.NewMeterProvider().Meter(serviceName))
	return o
}

// useMeter swaps in the request instruments from meter, keeping the current
// ones if either cannot be created.
func (o *Observability) useMeter(meter otelmetric.Meter) error {
	counter, err := meter.Int64Counter(
		"http.server.requests",
		otelmetric.WithDescription("Number of HTTP requests served"),
	)
	if err != nil {
		return fmt.Errorf("failed to create request counter: %w", err)
	}
	duration, err := meter.Float64Histogram(
		"http.server.duration",
		otelmetric.WithDescription("HTTP request duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return fmt.Errorf("failed to create request histogram: %w", err)
	}
	o.requestCounter, o.requestDuration = counter, duration
	return nil
}

func (o *Observability) Tracer() trace.Tracer {
	return o.tracer
}

// RecordRequest records one served HTTP request.
func (o *Observability) RecordRequest(ctx context.Context, route, method string, status int, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("route", route),
		attribute.String("method", method),
		attribute.Int("status", status),
	)
	o.requestCounter.Add(ctx, 1, attrs)
	o.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (o *Observability) Shutdown(ctx context.Context) error {
	var firstErr error
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
