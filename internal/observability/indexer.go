package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// IndexerMetrics records knowledge-base indexing metrics (backfill enqueue, worker outcomes).
type IndexerMetrics interface {
	RecordJobsEnqueued(ctx context.Context, count int64)
	RecordOutcome(ctx context.Context, status string, duration time.Duration)
	SetQueueDepth(ctx context.Context, depth int64)
}

type indexerMetrics struct {
	jobsEnqueued metric.Int64Counter
	outcomes     metric.Int64Counter
	duration     metric.Float64Histogram
	queueDepth   metric.Int64Gauge
}

// NewIndexerMetrics creates IndexerMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewIndexerMetrics(meter metric.Meter) (IndexerMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	jobsEnqueued, err := meter.Int64Counter(
		MetricNameIndexerJobsEnqueued,
		metric.WithDescription("Total FAQ embedding jobs enqueued"),
	)
	if err != nil {
		return nil, fmt.Errorf("create indexer jobs enqueued counter: %w", err)
	}

	outcomes, err := meter.Int64Counter(
		MetricNameIndexerOutcomes,
		metric.WithDescription("Total FAQ embedding job outcomes by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create indexer outcomes counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameIndexerDuration,
		metric.WithDescription("FAQ embedding job duration (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create indexer duration histogram: %w", err)
	}

	queueDepth, err := meter.Int64Gauge(
		MetricNameRiverQueueDepth,
		metric.WithDescription("Pending jobs on the embeddings queue (available, retryable, scheduled)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create river queue depth gauge: %w", err)
	}

	return &indexerMetrics{
		jobsEnqueued: jobsEnqueued,
		outcomes:     outcomes,
		duration:     duration,
		queueDepth:   queueDepth,
	}, nil
}

func (m *indexerMetrics) RecordJobsEnqueued(ctx context.Context, count int64) {
	m.jobsEnqueued.Add(ctx, count)
}

func (m *indexerMetrics) RecordOutcome(ctx context.Context, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(AttrStatus, NormalizeReason(status, AllowedIndexerStatuses)))
	m.outcomes.Add(ctx, 1, attrs)
	m.duration.Record(ctx, duration.Seconds(), attrs)
}

func (m *indexerMetrics) SetQueueDepth(ctx context.Context, depth int64) {
	m.queueDepth.Record(ctx, depth)
}
