package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ProviderMetrics records each call attempt to an external model provider.
type ProviderMetrics interface {
	RecordAttempt(ctx context.Context, provider, outcome string, duration time.Duration)
}

type providerMetrics struct {
	attempts metric.Int64Counter
	duration metric.Float64Histogram
}

// NewProviderMetrics creates ProviderMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewProviderMetrics(meter metric.Meter) (ProviderMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	attempts, err := meter.Int64Counter(
		MetricNameProviderAttempts,
		metric.WithDescription("Provider call attempts by provider (embeddings, chat) and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create provider attempts counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameProviderDuration,
		metric.WithDescription("Provider call attempt duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create provider duration histogram: %w", err)
	}

	return &providerMetrics{attempts: attempts, duration: duration}, nil
}

func (p *providerMetrics) RecordAttempt(ctx context.Context, provider, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(AttrProvider, NormalizeReason(provider, AllowedProviders)),
		attribute.String(AttrOutcome, NormalizeReason(outcome, AllowedAttemptOutcomes)),
	)
	p.attempts.Add(ctx, 1, attrs)
	p.duration.Record(ctx, duration.Seconds(), attrs)
}
