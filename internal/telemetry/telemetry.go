// Package telemetry wires an OpenTelemetry meter provider whose
// instruments are exposed over Prometheus's exposition format, the way
// the rest of the example corpus bridges the two: OTEL is the
// instrumentation API, Prometheus is the scrape surface.
package telemetry

import (
	"context"
	"net/http"

	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	prometheusclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Telemetry bundles the instruments sweepd records against every
// Runner and Queue in the process.
type Telemetry struct {
	provider *sdkmetric.MeterProvider
	registry *prometheusclient.Registry
	handler  http.Handler

	PointsEmitted   metric.Int64Counter
	SweepDuration   metric.Float64Histogram
	RegistryRefusal metric.Int64Counter
	QueueDepth      metric.Int64UpDownCounter
}

// New constructs a Telemetry bound to a fresh Prometheus registry.
func New() (*Telemetry, error) {
	registry := prometheusclient.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("sweepengine")

	t := &Telemetry{
		provider: provider,
		registry: registry,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	if t.PointsEmitted, err = meter.Int64Counter("sweep.points_emitted",
		metric.WithDescription("total points emitted across all sweeps")); err != nil {
		return nil, err
	}
	if t.SweepDuration, err = meter.Float64Histogram("sweep.duration_seconds",
		metric.WithDescription("wall-clock duration of a completed sweep")); err != nil {
		return nil, err
	}
	if t.RegistryRefusal, err = meter.Int64Counter("sweep.registry_refusals",
		metric.WithDescription("sweep starts refused due to an unrelated active sweep")); err != nil {
		return nil, err
	}
	if t.QueueDepth, err = meter.Int64UpDownCounter("sweep.queue_depth",
		metric.WithDescription("entries remaining in a Queue")); err != nil {
		return nil, err
	}
	return t, nil
}

// Handler returns the HTTP handler serving Prometheus exposition
// format, for mounting under an admin/debug mux.
func (t *Telemetry) Handler() http.Handler { return t.handler }

// Shutdown flushes and stops the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}
