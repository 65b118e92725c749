// Package trace configures OpenTelemetry tracing for the team, its model
// calls and its research calls.
package trace

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "stockteam"

type Config struct {
	Endpoint string // host:port of the OTLP/HTTP collector
	URLPath  string
	APIKey   string // sent as a bearer Authorization header
	Insecure bool
	// SampleRatio samples that fraction of runs. Zero or anything >= 1
	// samples every run.
	SampleRatio float64
}

type otelErrorHandler struct{}

func (otelErrorHandler) Handle(err error) {
	slog.Error("otel error", "error", err)
}

// Init exports spans over OTLP/HTTP. Call the returned shutdown to flush
// pending spans before exit.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	otel.SetErrorHandler(otelErrorHandler{})

	exporter, err := otlptracehttp.New(ctx, exporterOptions(cfg)...)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := Install(exporter, cfg.SampleRatio, sdktrace.WithResource(res))
	return tp.Shutdown, nil
}

func exporterOptions(cfg Config) []otlptracehttp.Option {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithHTTPClient(&http.Client{
			Transport: &loggingTransport{inner: http.DefaultTransport},
		}),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.URLPath != "" {
		opts = append(opts, otlptracehttp.WithURLPath(cfg.URLPath))
	}
	if cfg.APIKey != "" {
		opts = append(opts, otlptracehttp.WithHeaders(map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
		}))
	}
	slog.Debug("otlp exporter config", "endpoint", cfg.Endpoint, "url_path", cfg.URLPath, "insecure", cfg.Insecure, "has_api_key", cfg.APIKey != "")
	return opts
}

// Install registers a global tracer provider that batches spans to
// exporter. Child spans follow their parent's sampling decision so a run is
// traced whole or not at all.
func Install(exporter sdktrace.SpanExporter, sampleRatio float64, opts ...sdktrace.TracerProviderOption) *sdktrace.TracerProvider {
	sampler := sdktrace.AlwaysSample()
	if sampleRatio > 0 && sampleRatio < 1 {
		sampler = sdktrace.TraceIDRatioBased(sampleRatio)
	}

	opts = append([]sdktrace.TracerProviderOption{
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	}, opts...)

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp
}

type loggingTransport struct {
	inner http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		slog.Error("otlp http error", "url", req.URL.String(), "error", err)
		return resp, err
	}
	if resp.StatusCode >= 300 {
		slog.Warn("otlp export rejected", "status", resp.StatusCode, "url", req.URL.String())
	}
	return resp, nil
}

// Tracer returns the stockteam tracer. Without Init it is a no-op tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(serviceName)
}
