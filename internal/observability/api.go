package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// APIMetrics records HTTP traffic and API-level rejections (body limit, authentication).
type APIMetrics interface {
	RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration)
	RecordRequestBodyTooLarge(ctx context.Context)
	RecordAuthFailure(ctx context.Context, reason string)
}

type apiMetrics struct {
	requests            metric.Int64Counter
	requestDuration     metric.Float64Histogram
	requestBodyTooLarge metric.Int64Counter
	authFailures        metric.Int64Counter
}

// NewAPIMetrics creates APIMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewAPIMetrics(meter metric.Meter) (APIMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	requests, err := meter.Int64Counter(
		MetricNameHTTPRequests,
		metric.WithDescription("HTTP requests by method, route and status class."),
	)
	if err != nil {
		return nil, fmt.Errorf("create http requests counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram(
		MetricNameHTTPRequestDuration,
		metric.WithDescription("HTTP request duration (seconds)."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http request duration histogram: %w", err)
	}

	tooLarge, err := meter.Int64Counter(
		MetricNameRequestBodyTooLarge,
		metric.WithDescription("Requests rejected because the body exceeded the configured limit (413)."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request body too large counter: %w", err)
	}

	authFailures, err := meter.Int64Counter(
		MetricNameAuthFailures,
		metric.WithDescription("Admin requests rejected by API key authentication (401)."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create auth failures counter: %w", err)
	}

	return &apiMetrics{
		requests:            requests,
		requestDuration:     requestDuration,
		requestBodyTooLarge: tooLarge,
		authFailures:        authFailures,
	}, nil
}

func (a *apiMetrics) RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(AttrMethod, method),
		attribute.String(AttrRoute, route),
		attribute.String(AttrStatusClass, statusClass),
	)
	a.requests.Add(ctx, 1, attrs)
	a.requestDuration.Record(ctx, duration.Seconds(), attrs)
}

func (a *apiMetrics) RecordRequestBodyTooLarge(ctx context.Context) {
	a.requestBodyTooLarge.Add(ctx, 1)
}

func (a *apiMetrics) RecordAuthFailure(ctx context.Context, reason string) {
	a.authFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrReason, NormalizeReason(reason, AllowedAuthReasons)),
	))
}
