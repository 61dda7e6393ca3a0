package observe_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/soundcheck/internal/observe"
)

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	ctx := context.Background()
	m.SynthDuration.Record(ctx, 0.25)
	m.CaptureDuration.Record(ctx, 5.0)
	m.PlaybackDuration.Record(ctx, 5.1)
	m.Sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	m.ConnectAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "ok")))
	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(rm.ScopeMetrics) != 1 {
		t.Fatalf("got %d scopes, want 1", len(rm.ScopeMetrics))
	}

	names := make(map[string]bool)
	for _, inst := range rm.ScopeMetrics[0].Metrics {
		names[inst.Name] = true
	}
	for _, want := range []string{
		"soundcheck.synth.duration",
		"soundcheck.capture.duration",
		"soundcheck.playback.duration",
		"soundcheck.sessions",
		"soundcheck.connect.attempts",
		"soundcheck.sessions.active",
	} {
		if !names[want] {
			t.Errorf("metric %q not collected; got %v", want, names)
		}
	}
}

func TestDefaultIsSingleton(t *testing.T) {
	t.Parallel()

	a := observe.Default()
	b := observe.Default()
	if a == nil {
		t.Fatal("Default() returned nil")
	}
	if a != b {
		t.Error("Default() returned different instances")
	}
}
