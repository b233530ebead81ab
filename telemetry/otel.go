package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OtelProvider wraps the OpenTelemetry metrics SDK wired to a
// Prometheus exporter, letting the same process serve both the
// hand-rolled client_golang collectors in metrics.go (for
// dashboard-stable metric names) and OTel instruments (for exporting
// through any OTLP-compatible collector a deployment adds later).
type OtelProvider struct {
	provider *sdkmetric.MeterProvider
	meter    metric.Meter
}

// NewOtelProvider builds an OtelProvider whose Prometheus exporter
// registers its collectors against reg.
func NewOtelProvider(reg prometheus.Registerer) (*OtelProvider, error) {
	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("otel prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return &OtelProvider{
		provider: provider,
		meter:    provider.Meter("github.com/meshfabric/fabric"),
	}, nil
}

// Meter returns the OTel meter instruments are created from.
func (p *OtelProvider) Meter() metric.Meter { return p.meter }

// Shutdown flushes and releases the provider's resources.
func (p *OtelProvider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}

// QueryDurationInstrument creates the float64 histogram instrument
// (unit: seconds) used to record query latency through the OTel pipeline, distinct from
// the client_golang histogram in metrics.go so each exporter gets its
// own independent bucket configuration.
func (p *OtelProvider) QueryDurationInstrument() (metric.Float64Histogram, error) {
	return p.meter.Float64Histogram(
		"fabric.query.duration",
		metric.WithDescription("Time from Request to final consolidated reply."),
		metric.WithUnit("s"),
	)
}
