// Package otel configures OpenTelemetry tracing for boardrules commands.
package otel

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	envEndpoint = "BOARDRULES_OTEL_ENDPOINT"
	envEnabled  = "BOARDRULES_OTEL_ENABLED"
)

// Setup initialises OpenTelemetry tracing for the given service.
//
// Tracing is opt-in: when BOARDRULES_OTEL_ENDPOINT is empty or
// BOARDRULES_OTEL_ENABLED is "false", Setup returns a no-op shutdown function
// and the global tracer stays the SDK no-op. Rule evaluation spans are then
// free.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	endpoint, ok := endpointFromEnv(os.Getenv)
	if !ok {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// endpointFromEnv reports the collector endpoint when tracing is enabled.
func endpointFromEnv(getenv func(string) string) (string, bool) {
	if strings.EqualFold(strings.TrimSpace(getenv(envEnabled)), "false") {
		return "", false
	}
	endpoint := strings.TrimSpace(getenv(envEndpoint))
	if endpoint == "" {
		return "", false
	}
	return endpoint, true
}
