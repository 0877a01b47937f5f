// Package observe provides the observability primitives for scribe:
// OpenTelemetry metrics, tracing helpers, trace-aware logging, and the HTTP
// middleware that ties them together.
//
// Metrics go through the OpenTelemetry Metrics API and are exposed for
// scraping through the Prometheus exporter bridge set up by [InitProvider].
// Tests should build their own instance with [NewMetrics] and a
// [sdkmetric.ManualReader] instead of using [DefaultMetrics].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all scribe metrics.
const meterName = "github.com/MrWong99/scribe"

// Metrics holds the metric instruments used by the editor service.
// All fields are safe for concurrent use.
type Metrics struct {
	// CommandDuration tracks how long one editor command takes, including
	// any text transformation it runs. Attribute: "command".
	CommandDuration metric.Float64Histogram

	// Commands counts executed editor commands. Attributes: "command",
	// "status" ("ok" or "error").
	Commands metric.Int64Counter

	// ValidationDuration tracks timestamp validation passes. Attribute:
	// "mode" ("full" or "viewport").
	ValidationDuration metric.Float64Histogram

	// InvalidTimestamps counts timestamps flagged as out of order.
	InvalidTimestamps metric.Int64Counter

	// StorageErrors counts persistence failures. Attributes: "op", "kind"
	// ("quota" or "error").
	StorageErrors metric.Int64Counter

	// StorageDegraded is 1 while the storage guard runs in degraded mode.
	StorageDegraded metric.Int64UpDownCounter

	// ActiveSessions is the number of open editing sessions.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks API latency by method and route.
	HTTPRequestDuration metric.Float64Histogram
}

// commandBuckets cover interactive edits (sub-millisecond) up to full-text
// transformations of long transcripts.
var commandBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.CommandDuration, err = m.Float64Histogram("scribe.command.duration",
		metric.WithDescription("Editor command latency by command."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(commandBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Commands, err = m.Int64Counter("scribe.commands",
		metric.WithDescription("Executed editor commands by command and status."),
	); err != nil {
		return nil, err
	}
	if met.ValidationDuration, err = m.Float64Histogram("scribe.validation.duration",
		metric.WithDescription("Timestamp validation latency by mode."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(commandBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InvalidTimestamps, err = m.Int64Counter("scribe.invalid_timestamps",
		metric.WithDescription("Timestamps flagged as out of order."),
	); err != nil {
		return nil, err
	}
	if met.StorageErrors, err = m.Int64Counter("scribe.storage.errors",
		metric.WithDescription("Persistence failures by operation and kind."),
	); err != nil {
		return nil, err
	}
	if met.StorageDegraded, err = m.Int64UpDownCounter("scribe.storage.degraded",
		metric.WithDescription("1 while persistence runs in degraded mode."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("scribe.active_sessions",
		metric.WithDescription("Number of open editing sessions."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("scribe.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call from [otel.GetMeterProvider]. Panics if instrument creation
// fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCommand records one executed command with its latency and outcome.
func (m *Metrics) RecordCommand(ctx context.Context, command string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.CommandDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("command", command)))
	m.Commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", status),
	))
}

// RecordValidation records a validation pass and the number of timestamps
// it flagged.
func (m *Metrics) RecordValidation(ctx context.Context, mode string, d time.Duration, invalid int) {
	m.ValidationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("mode", mode)))
	if invalid > 0 {
		m.InvalidTimestamps.Add(ctx, int64(invalid))
	}
}

// RecordStorageError counts one persistence failure.
func (m *Metrics) RecordStorageError(ctx context.Context, op, kind string) {
	m.StorageErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("kind", kind),
	))
}
