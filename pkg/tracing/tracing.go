// Package tracing wires OpenTelemetry distributed tracing for the Agent
// and Skill Engine HTTP surfaces, trimmed from the teacher's
// pkg/observability/tracer.go down to the one thing both services need: a
// process-wide tracer that no-ops when tracing isn't configured.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config controls whether spans are exported anywhere at all. A deployment
// that never sets Enabled gets a noop provider, so every cmd/ entrypoint
// can call Init unconditionally.
type Config struct {
	Enabled      bool    `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL  string  `yaml:"endpoint_url" mapstructure:"endpoint_url"`
	SamplingRate float64 `yaml:"sampling_rate" mapstructure:"sampling_rate"`
	ServiceName  string  `yaml:"service_name" mapstructure:"service_name"`
}

// Init installs the global TracerProvider and returns a shutdown func the
// caller must run before exit to flush any buffered spans.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.EndpointURL),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	sampling := cfg.SamplingRate
	if sampling <= 0 {
		sampling = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(sampling)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns the named tracer off whatever provider is currently
// installed (noop until Init runs, which is safe to call before Init since
// otel's global provider delegates lazily).
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
