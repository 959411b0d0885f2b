// Package observability sets up OpenTelemetry tracing for the spans emitted
// by the client, the graph store and the LLM HTTP transport.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/getzep/graphrag/config"
	"github.com/getzep/graphrag/internal"
)

const (
	defaultServiceName  = "graphrag"
	defaultBatchTimeout = 5 * time.Second
)

var log = internal.GetLogger()

// ShutdownFunc flushes pending spans and stops the exporter.
type ShutdownFunc func(ctx context.Context) error

// InitTracing installs a global tracer provider exporting over OTLP/HTTP.
// When telemetry is disabled the global no-op provider is left in place.
func InitTracing(ctx context.Context, cfg *config.TelemetryConfig) (ShutdownFunc, error) {
	if cfg == nil || !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	var opts []otlptracehttp.Option
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(defaultBatchTimeout)),
		sdktrace.WithResource(newResource(cfg)),
	)
	otel.SetTracerProvider(tp)

	log.Infof("tracing enabled, exporting to %s", endpointOrDefault(cfg.Endpoint))

	return tp.Shutdown, nil
}

func newResource(cfg *config.TelemetryConfig) *resource.Resource {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	return resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", config.Version),
	)
}

func endpointOrDefault(endpoint string) string {
	if endpoint == "" {
		return "the default OTLP endpoint"
	}
	return endpoint
}
