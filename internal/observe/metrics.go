// Package observe provides observability primitives for soundcheck:
// OpenTelemetry metrics with a Prometheus exporter bridge so that metrics
// can be scraped via the standard /metrics endpoint.
//
// A package-level default [Metrics] instance is available via [Default];
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to
// avoid cross-test pollution.
package observe

import (
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope name used for all soundcheck metrics.
const meterName = "github.com/MrWong99/soundcheck"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// SynthDuration tracks speech synthesis latency.
	SynthDuration metric.Float64Histogram

	// CaptureDuration tracks how long the recording phase of a session ran.
	CaptureDuration metric.Float64Histogram

	// PlaybackDuration tracks playback latency, announcement and captured
	// audio alike.
	PlaybackDuration metric.Float64Histogram

	// Sessions counts completed voice-test sessions. Use with attribute:
	//   attribute.String("outcome", ...)
	Sessions metric.Int64Counter

	// ConnectAttempts counts voice channel connect attempts. Use with
	// attribute: attribute.String("status", ...)
	ConnectAttempts metric.Int64Counter

	// ActiveSessions tracks the number of voice tests currently in flight.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// subprocess synthesis and short audio playback.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SynthDuration, err = m.Float64Histogram("soundcheck.synth.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.CaptureDuration, err = m.Float64Histogram("soundcheck.capture.duration",
		metric.WithDescription("Duration of the recording phase of a session."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.PlaybackDuration, err = m.Float64Histogram("soundcheck.playback.duration",
		metric.WithDescription("Latency of audio playback."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Sessions, err = m.Int64Counter("soundcheck.sessions",
		metric.WithDescription("Completed voice-test sessions by outcome."),
	); err != nil {
		return nil, err
	}

	if met.ConnectAttempts, err = m.Int64Counter("soundcheck.connect.attempts",
		metric.WithDescription("Voice channel connect attempts by status."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("soundcheck.sessions.active",
		metric.WithDescription("Voice tests currently in flight."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide [Metrics] built from the global OTel
// meter provider. Falls back to no-op instruments if creation fails.
func Default() *Metrics {
	defaultOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			slog.Error("observe: create default metrics, falling back to no-op", "err", err)
			m, _ = NewMetrics(noop.NewMeterProvider())
		}
		defaultMetrics = m
	})
	return defaultMetrics
}
