package telemetry

import (
	"context"
	"log"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config controls telemetry setup.
type Config struct {
	Enabled  bool
	Endpoint string
	Protocol string // grpc | http
	Service  string
	Version  string
}

// Provider wires tracer/meter providers and exposes cascade instruments.
type Provider struct {
	Enabled bool
	tracer  trace.Tracer
	meter   metric.Meter

	samplesCounter        metric.Int64Counter
	escalationsCounter    metric.Int64Counter
	failsafeCounter       metric.Int64Counter
	broadStageDuration    metric.Float64Histogram
	confirmStageDuration  metric.Float64Histogram
	shutdownTraceProvider func(context.Context) error
	shutdownMeterProvider func(context.Context) error
}

// NewProvider configures OTEL exporters + providers. When disabled, returns no-op providers.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !cfg.Enabled {
		no := &Provider{
			Enabled: false,
			tracer:  trace.NewNoopTracerProvider().Tracer(""),
			meter:   noop.NewMeterProvider().Meter(""),
		}
		no.initInstruments()
		return no, nil
	}

	log.Printf("telemetry enabled (OpenTelemetry OTLP %s) endpoint=%s; if no collector is listening, periodic 'failed to upload metrics' warnings are expected", strings.ToLower(cfg.Protocol), cfg.Endpoint)

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.Service),
			attribute.String("service.version", cfg.Version),
		),
	)
	if err != nil {
		return nil, err
	}

	var tp *sdktrace.TracerProvider

	switch strings.ToLower(cfg.Protocol) {
	case "", "grpc":
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, err
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		)
	case "http":
		exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Endpoint), otlptracehttp.WithInsecure())
		if err != nil {
			return nil, err
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		)
	default:
		return nil, nil
	}

	otel.SetTracerProvider(tp)

	var metricExporter sdkmetric.Reader
	switch strings.ToLower(cfg.Protocol) {
	case "", "grpc":
		exp, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(cfg.Endpoint), otlpmetricgrpc.WithInsecure())
		if err != nil {
			return nil, err
		}
		metricExporter = sdkmetric.NewPeriodicReader(exp)
	case "http":
		exp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.Endpoint), otlpmetrichttp.WithInsecure())
		if err != nil {
			return nil, err
		}
		metricExporter = sdkmetric.NewPeriodicReader(exp)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(metricExporter))
	otel.SetMeterProvider(mp)

	p := &Provider{
		Enabled:               true,
		tracer:                tp.Tracer("scenesafe"),
		meter:                 mp.Meter("scenesafe"),
		shutdownTraceProvider: tp.Shutdown,
		shutdownMeterProvider: func(ctx context.Context) error {
			if mp != nil {
				return mp.Shutdown(ctx)
			}
			return nil
		},
	}
	p.initInstruments()
	return p, nil
}

func (p *Provider) initInstruments() {
	if p == nil {
		return
	}
	// Use meter to create instruments; ignore errors to keep telemetry best-effort.
	p.samplesCounter, _ = p.meter.Int64Counter("scenesafe_samples_total")
	p.escalationsCounter, _ = p.meter.Int64Counter("scenesafe_escalations_total")
	p.failsafeCounter, _ = p.meter.Int64Counter("scenesafe_failsafe_confirms_total")
	p.broadStageDuration, _ = p.meter.Float64Histogram("scenesafe_broad_stage_duration_ms")
	p.confirmStageDuration, _ = p.meter.Float64Histogram("scenesafe_confirm_stage_duration_ms")
}

// Tracer returns the tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return trace.NewNoopTracerProvider().Tracer("")
	}
	return p.tracer
}

// Meter returns the meter.
func (p *Provider) Meter() metric.Meter {
	if p == nil {
		return noop.NewMeterProvider().Meter("")
	}
	return p.meter
}

// StartSpan opens a span with the given attribute values filtered through
// SafeAttributes, so analyzed media and model text never leak into traces.
func (p *Provider) StartSpan(ctx context.Context, name string, values map[string]interface{}) (context.Context, trace.Span) {
	return p.Tracer().Start(ctx, name, trace.WithAttributes(SafeAttributes(values)...))
}

// Shutdown flushes providers.
func (p *Provider) Shutdown(ctx context.Context) {
	if p == nil {
		return
	}
	if p.shutdownTraceProvider != nil {
		_ = p.shutdownTraceProvider(ctx)
	}
	if p.shutdownMeterProvider != nil {
		_ = p.shutdownMeterProvider(ctx)
	}
}

// RecordSample counts one analyzed sample and its broad-stage latency.
func (p *Provider) RecordSample(modality string, broadMs float64) {
	if p == nil {
		return
	}
	labels := []attribute.KeyValue{
		attribute.String("scenesafe.modality", modality),
	}
	p.samplesCounter.Add(context.Background(), 1, metric.WithAttributes(labels...))
	if broadMs > 0 {
		p.broadStageDuration.Record(context.Background(), broadMs, metric.WithAttributes(labels...))
	}
}

// RecordEscalation counts one broad hit escalated to confirmation.
func (p *Provider) RecordEscalation(category string, confirmMs float64) {
	if p == nil {
		return
	}
	labels := []attribute.KeyValue{
		attribute.String("scenesafe.category", category),
	}
	p.escalationsCounter.Add(context.Background(), 1, metric.WithAttributes(labels...))
	if confirmMs > 0 {
		p.confirmStageDuration.Record(context.Background(), confirmMs, metric.WithAttributes(labels...))
	}
}

// RecordFailsafe counts one confirmation resolved by the fail-safe policy.
func (p *Provider) RecordFailsafe(category string) {
	if p == nil {
		return
	}
	p.failsafeCounter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("scenesafe.category", category),
	))
}
