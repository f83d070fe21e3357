package telemetry

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpanRecordsFilteredAttributes(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	p := &Provider{Enabled: true, tracer: tp.Tracer("test")}

	_, span := p.StartSpan(context.Background(), "cascade.screen_batch", map[string]interface{}{
		"scenesafe.modality":   "visual",
		"scenesafe.batch_size": 8,
		"prompt":               "a fight scene",
	})
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected one recorded span, got %d", len(ended))
	}
	if got := ended[0].Name(); got != "cascade.screen_batch" {
		t.Errorf("unexpected span name %q", got)
	}

	byKey := map[string]bool{}
	for _, a := range ended[0].Attributes() {
		byKey[string(a.Key)] = true
	}
	if !byKey["scenesafe.modality"] || !byKey["scenesafe.batch_size"] {
		t.Errorf("expected modality and batch size attributes, got %v", byKey)
	}
	if byKey["prompt"] {
		t.Errorf("prompt text must not reach the span attributes")
	}
}

func TestStartSpanNilProvider(t *testing.T) {
	var p *Provider
	ctx, span := p.StartSpan(context.Background(), "cascade.screen_batch", nil)
	if ctx == nil {
		t.Fatalf("expected a context back from the nil provider")
	}
	span.End()
}
