package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeterProvider returns a meter provider whose instruments are collected
// through reg, so they show up on the same /metrics endpoint as the
// client_golang collectors. A nil reg means the default registerer. The
// provider is not installed globally.
func InitMeterProvider(ctx context.Context, serviceName, version string, reg prometheus.Registerer) (*sdkmetric.MeterProvider, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	res, err := newResource(ctx, serviceName, version)
	if err != nil {
		return nil, err
	}
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	), nil
}
