// Package telemetry provides OpenTelemetry tracing and metrics setup.
package telemetry

import (
	"context"
	"fmt"

	texporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
)

// InitTracerProvider installs a global tracer provider and the W3C trace
// context propagator. Spans are sampled but only exported when opts register
// an exporter, e.g. sdktrace.WithBatcher(exp).
func InitTracerProvider(ctx context.Context, serviceName, version string, opts ...sdktrace.TracerProviderOption) (*sdktrace.TracerProvider, error) {
	res, err := newResource(ctx, serviceName, version)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(append([]sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	}, opts...)...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}

// NewCloudTraceExporter exports spans to Google Cloud Trace in projectID.
func NewCloudTraceExporter(projectID string, opts ...option.ClientOption) (sdktrace.SpanExporter, error) {
	exp, err := texporter.New(
		texporter.WithProjectID(projectID),
		texporter.WithTraceClientOptions(opts),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud trace exporter: %w", err)
	}
	return exp, nil
}

func newResource(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer("github.com/JakeFAU/binbuddy/" + name)
}
