package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AnswerMetrics records one entry per finalized answer.
type AnswerMetrics interface {
	RecordAnswer(ctx context.Context, branch string, handoff bool, duration time.Duration)
}

type answerMetrics struct {
	answers  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewAnswerMetrics creates AnswerMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewAnswerMetrics(meter metric.Meter) (AnswerMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	answers, err := meter.Int64Counter(
		MetricNameAnswers,
		metric.WithDescription("Answers by pipeline branch and handoff flag"),
	)
	if err != nil {
		return nil, fmt.Errorf("create answers counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameAnswerDuration,
		metric.WithDescription("Time from question received to answer finalized (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create answer duration histogram: %w", err)
	}

	return &answerMetrics{answers: answers, duration: duration}, nil
}

func (a *answerMetrics) RecordAnswer(ctx context.Context, branch string, handoff bool, duration time.Duration) {
	branchAttr := attribute.String(AttrBranch, NormalizeReason(branch, AllowedBranches))

	a.answers.Add(ctx, 1, metric.WithAttributes(branchAttr, attribute.String(AttrHandoff, strconv.FormatBool(handoff))))
	a.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(branchAttr))
}

// SupportLogMetrics records outcome-log writes that never reached the database.
type SupportLogMetrics interface {
	RecordDropped(ctx context.Context)
	RecordWriteFailure(ctx context.Context, reason string)
}

type supportLogMetrics struct {
	dropped  metric.Int64Counter
	failures metric.Int64Counter
}

// NewSupportLogMetrics creates SupportLogMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewSupportLogMetrics(meter metric.Meter) (SupportLogMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	dropped, err := meter.Int64Counter(
		MetricNameSupportLogDropped,
		metric.WithDescription("Support log entries dropped because the buffer was full"),
	)
	if err != nil {
		return nil, fmt.Errorf("create support log dropped counter: %w", err)
	}

	failures, err := meter.Int64Counter(
		MetricNameSupportLogFailed,
		metric.WithDescription("Support log inserts that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("create support log failures counter: %w", err)
	}

	return &supportLogMetrics{dropped: dropped, failures: failures}, nil
}

func (s *supportLogMetrics) RecordDropped(ctx context.Context) {
	s.dropped.Add(ctx, 1)
}

func (s *supportLogMetrics) RecordWriteFailure(ctx context.Context, reason string) {
	s.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrReason, NormalizeReason(reason, AllowedSupportLogReasons)),
	))
}
