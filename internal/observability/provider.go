package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/formbricks/support-hub/internal/config"
)

const (
	// ServiceName is reported as service.name on every metric and span.
	ServiceName = "support-hub-api"
	// MeterScope names the meter handed to NewMetrics.
	MeterScope = "github.com/formbricks/support-hub"

	cardinalityLimit = 2000
)

// durationHistogramBounds are second-based buckets; OTel defaults are millisecond-oriented.
var durationHistogramBounds = []float64{0, 0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.3, 0.5, 0.75, 1, 2.5, 5, 7.5, 10, 15}

// newResource returns the service resource. OTEL_RESOURCE_ATTRIBUTES is honored.
// Attributes are added without a schema URL so they never conflict with the SDK default.
func newResource(ctx context.Context) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceName(ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	return res, nil
}

// MeterProvider bundles the SDK provider and, for the prometheus exporter, the /metrics handler.
type MeterProvider struct {
	*sdkmetric.MeterProvider

	// Handler serves the Prometheus registry; nil unless the exporter is "prometheus".
	Handler http.Handler
}

// NewMeterProvider creates a MeterProvider for OTEL_METRICS_EXPORTER "otlp" (push) or
// "prometheus" (pull via Handler). Any other value disables metrics and returns (nil, nil).
func NewMeterProvider(ctx context.Context, cfg *config.Config) (*MeterProvider, error) {
	if cfg == nil {
		//nolint:nilnil // intentional: metrics disabled, caller checks for nil
		return nil, nil
	}

	var (
		reader  sdkmetric.Reader
		handler http.Handler
	)

	switch cfg.OtelMetricsExporter {
	case "otlp":
		// SDK reads OTEL_EXPORTER_OTLP_ENDPOINT (and scheme/insecure) from env.
		exp, err := otlpmetrichttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("create OTLP metric exporter: %w", err)
		}

		const metricExportInterval = 60 * time.Second

		reader = sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(metricExportInterval))
	case "prometheus":
		reg := prometheus.NewRegistry()

		exp, err := prometheusexporter.New(prometheusexporter.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}

		reader = exp
		handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	default:
		//nolint:nilnil // intentional: metrics disabled or unsupported exporter, caller checks for nil
		return nil, nil
	}

	res, err := newResource(ctx)
	if err != nil {
		return nil, err
	}

	view := sdkmetric.NewView(
		sdkmetric.Instrument{Name: "support_*_duration_seconds"},
		sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: durationHistogramBounds}},
	)

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithView(view),
		sdkmetric.WithCardinalityLimit(cardinalityLimit),
	)

	return &MeterProvider{MeterProvider: provider, Handler: handler}, nil
}

// ShutdownMeterProvider flushes and shuts down the MeterProvider. Safe to call with nil.
func ShutdownMeterProvider(ctx context.Context, provider *MeterProvider) error {
	if provider == nil {
		return nil
	}

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider shutdown: %w", err)
	}

	return nil
}

// NewTracerProvider creates a TracerProvider for OTEL_TRACES_EXPORTER "otlp" or "stdout".
// Any other value disables tracing and returns (nil, nil).
func NewTracerProvider(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	if cfg == nil {
		//nolint:nilnil // intentional: tracing disabled, caller checks for nil
		return nil, nil
	}

	exp, err := newSpanExporter(ctx, cfg.OtelTracesExporter)
	if err != nil {
		return nil, err
	}

	if exp == nil {
		//nolint:nilnil // tracing disabled or unknown exporter, caller checks for nil
		return nil, nil
	}

	res, err := newResource(ctx)
	if err != nil {
		return nil, err
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler()),
		sdktrace.WithBatcher(exp),
	), nil
}

// ShutdownTracerProvider flushes and shuts down the TracerProvider. Safe to call with nil.
func ShutdownTracerProvider(ctx context.Context, provider *sdktrace.TracerProvider) error {
	if provider == nil {
		return nil
	}

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}

	return nil
}
