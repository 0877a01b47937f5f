package observe

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func TestInitProvider_ExportsToRegistry(t *testing.T) {
	prevMP, prevTP := otel.GetMeterProvider(), otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetMeterProvider(prevMP)
		otel.SetTracerProvider(prevTP)
	})

	ctx := context.Background()
	reg := prometheus.NewRegistry()
	shutdown, err := InitProvider(ctx, ProviderConfig{
		ServiceVersion: "test",
		Registerer:     reg,
		Attributes:     []attribute.KeyValue{attribute.String("scribe.storage.backend", "bolt")},
	})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	}()

	m, err := NewMetrics(otel.GetMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.Commands.Add(ctx, 2, metric.WithAttributes(attribute.String("command", "shift_timestamps")))

	spanCtx, span := StartSpan(ctx, "editor.command")
	if CorrelationID(spanCtx) == "" {
		t.Error("global tracer provider does not record spans")
	}
	span.End()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var commands, target bool
	for _, f := range families {
		switch {
		case strings.HasPrefix(f.GetName(), "scribe_commands"):
			commands = f.GetMetric()[0].GetCounter().GetValue() == 2
		case f.GetName() == "target_info":
			for _, l := range f.GetMetric()[0].GetLabel() {
				if l.GetName() == "scribe_storage_backend" && l.GetValue() == "bolt" {
					target = true
				}
			}
		}
	}
	if !commands {
		t.Error("scribe.commands missing from the registry or has the wrong value")
	}
	if !target {
		t.Error("target_info misses the storage backend resource attribute")
	}
}
