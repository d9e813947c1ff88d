// Package observe provides application-wide observability primitives for
// Meetscribe: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Meetscribe metrics.
const meterName = "github.com/MrWong99/meetscribe"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// TranscribeDuration tracks whisper transcription latency per audio
	// window.
	TranscribeDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// --- Counters ---

	// WindowsProcessed counts scheduler ticks that drained audio. Use with
	// attribute:
	//   attribute.String("result", "ok"|"error"|"skipped")
	WindowsProcessed metric.Int64Counter

	// SamplesDropped counts audio samples discarded because the capture
	// ring was full.
	SamplesDropped metric.Int64Counter

	// SpeakersDetected counts newly minted speaker identities.
	SpeakersDetected metric.Int64Counter

	// EmitErrors counts event sink delivery failures. Use with attribute:
	//   attribute.String("event", ...)
	EmitErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks whether a live transcription session is
	// running (0 or 1 in the current single-pipeline design).
	ActiveSessions metric.Int64UpDownCounter

	// EventSubscribers tracks the number of connected websocket event
	// clients.
	EventSubscribers metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for speech-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscribeDuration, err = m.Float64Histogram("meetscribe.stt.duration",
		metric.WithDescription("Latency of whisper transcription per audio window."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("meetscribe.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.WindowsProcessed, err = m.Int64Counter("meetscribe.stt.windows",
		metric.WithDescription("Total audio windows drained by the scheduler, by result."),
	); err != nil {
		return nil, err
	}
	if met.SamplesDropped, err = m.Int64Counter("meetscribe.audio.dropped_samples",
		metric.WithDescription("Total audio samples dropped because the capture ring was full."),
	); err != nil {
		return nil, err
	}
	if met.SpeakersDetected, err = m.Int64Counter("meetscribe.diarize.speakers",
		metric.WithDescription("Total speaker identities minted across sessions."),
	); err != nil {
		return nil, err
	}
	if met.EmitErrors, err = m.Int64Counter("meetscribe.emit.errors",
		metric.WithDescription("Total event sink delivery failures by event name."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("meetscribe.active_sessions",
		metric.WithDescription("Number of live transcription sessions."),
	); err != nil {
		return nil, err
	}
	if met.EventSubscribers, err = m.Int64UpDownCounter("meetscribe.event_subscribers",
		metric.WithDescription("Number of connected websocket event clients."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordWindow is a convenience method that records one scheduler window with
// the standard result attribute ("ok", "error", or "skipped").
func (m *Metrics) RecordWindow(ctx context.Context, result string) {
	m.WindowsProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)),
	)
}

// RecordEmitError is a convenience method that records a sink delivery
// failure for the given event name.
func (m *Metrics) RecordEmitError(ctx context.Context, event string) {
	m.EmitErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("event", event)),
	)
}
