// Package observability wires trace export into Genkit's tracer provider.
//
// Genkit instruments flows, model calls and tool calls with OpenTelemetry
// spans on its own global TracerProvider. This package attaches an OTLP/HTTP
// exporter to that provider so the spans reach a local collector or agent
// (Jaeger, Grafana Tempo, the OpenTelemetry Collector, or a vendor agent
// listening on the standard OTLP port).
//
// Tracing is off by default. Enable it in ~/.haku/config.yaml:
//
//	tracing:
//	  enabled: true
//	  endpoint: "localhost:4318"
//	  insecure: true
//	  environment: "dev"
//	  service_name: "haku"
//
// The endpoint may also be set with OTEL_EXPORTER_OTLP_ENDPOINT. Traces
// appear under the configured service name once the process flushes on
// shutdown.
package observability

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config controls the OTLP trace exporter.
type Config struct {
	// Enabled turns span export on. When false, Setup is a no-op.
	Enabled bool
	// Endpoint is the OTLP/HTTP collector endpoint as host:port, no scheme.
	Endpoint string
	// Insecure disables TLS towards the collector (local agents).
	Insecure bool
	// Environment tags exported spans with deployment.environment.
	Environment string
	// ServiceName is the service name on exported spans.
	ServiceName string
}

// DefaultEndpoint is the standard OTLP/HTTP port on the local host.
const DefaultEndpoint = "localhost:4318"

// shutdownTimeout caps the final span flush on exit.
const shutdownTimeout = 5 * time.Second

// Setup attaches an OTLP/HTTP span exporter to Genkit's TracerProvider.
//
// The returned shutdown function flushes pending spans and should be called
// before exit, otherwise the most recent spans are lost. When tracing is
// disabled, or when the exporter cannot be built, Setup degrades to a no-op
// shutdown so a missing collector never takes the process down.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	// Genkit builds its TracerProvider resource from the standard OTEL
	// environment variables, so publish the service identity there.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		slog.Warn("trace exporter unavailable, tracing disabled",
			"endpoint", endpoint, "error", err)
		return noop, nil
	}

	tp := tracing.TracerProvider()
	tp.RegisterSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter))

	slog.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}
