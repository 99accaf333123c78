// Package telemetry configures OpenTelemetry tracing.
package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// EndpointEnv enables tracing when set.
const EndpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

// Shutdown flushes and stops tracing.
type Shutdown func(ctx context.Context) error

// InitTracing installs an OTLP/HTTP tracer provider when EndpointEnv is set.
// Otherwise the global no-op provider stays in place.
func InitTracing(ctx context.Context) (Shutdown, error) {
	if os.Getenv(EndpointEnv) == "" {
		return func(context.Context) error { return nil }, nil
	}
	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient())
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))
	return tp.Shutdown, nil
}
