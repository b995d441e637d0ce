// Package workers provides River job workers for the knowledge-base indexer.
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/formbricks/support-hub/internal/huberrors"
	"github.com/formbricks/support-hub/internal/models"
	"github.com/formbricks/support-hub/internal/observability"
	"github.com/formbricks/support-hub/internal/service"
	"github.com/formbricks/support-hub/pkg/embeddings"
)

const faqEmbeddingTimeout = 30 * time.Second

// faqEmbeddingStore is the minimal interface needed by the worker.
type faqEmbeddingStore interface {
	GetFAQ(ctx context.Context, id uuid.UUID) (*models.FAQ, error)
	SetFAQEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
}

// FAQEmbeddingWorker embeds one FAQ entry and stores the unit-length vector.
type FAQEmbeddingWorker struct {
	river.WorkerDefaults[service.FAQEmbeddingArgs]

	store   faqEmbeddingStore
	client  service.EmbeddingClient
	limiter *rate.Limiter
	metrics observability.IndexerMetrics
}

// NewFAQEmbeddingWorker creates the worker. ratePerSecond bounds provider calls across all
// workers of this process; metrics may be nil when metrics are disabled.
func NewFAQEmbeddingWorker(
	store faqEmbeddingStore,
	client service.EmbeddingClient,
	ratePerSecond float64,
	metrics observability.IndexerMetrics,
) *FAQEmbeddingWorker {
	return &FAQEmbeddingWorker{
		store:   store,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		metrics: metrics,
	}
}

// Timeout limits how long a single embedding job can run.
func (w *FAQEmbeddingWorker) Timeout(*river.Job[service.FAQEmbeddingArgs]) time.Duration {
	return faqEmbeddingTimeout
}

// Work loads the entry, embeds question and answer, and upserts the vector.
func (w *FAQEmbeddingWorker) Work(ctx context.Context, job *river.Job[service.FAQEmbeddingArgs]) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanIndexFAQ,
		attribute.String("support.faq_id", job.Args.FAQID.String()),
		attribute.Int("river.attempt", job.Attempt),
	)

	err := w.work(ctx, job)
	observability.EndSpan(span, err)

	return err
}

func (w *FAQEmbeddingWorker) work(ctx context.Context, job *river.Job[service.FAQEmbeddingArgs]) error {
	faqID := job.Args.FAQID
	start := time.Now()

	faq, err := w.store.GetFAQ(ctx, faqID)
	if err != nil {
		if errors.Is(err, huberrors.ErrNotFound) {
			w.record(ctx, "skipped_missing", start)
			slog.Warn("indexer: faq no longer exists", "faq_id", faqID)

			return nil
		}

		w.record(ctx, "failed", start)

		return fmt.Errorf("get faq: %w", err)
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	vec, err := w.client.CreateEmbedding(ctx, faq.EmbeddingText())
	if err != nil {
		if job.Attempt >= job.MaxAttempts {
			w.record(ctx, "failed_final", start)
			slog.Error("indexer: embedding failed (final attempt)", "faq_id", faqID, "error", err)

			return nil
		}

		w.record(ctx, "failed", start)

		return fmt.Errorf("create embedding: %w", err)
	}

	if err := w.store.SetFAQEmbedding(ctx, faqID, embeddings.Normalized(vec)); err != nil {
		w.record(ctx, "failed", start)

		return fmt.Errorf("set faq embedding: %w", err)
	}

	w.record(ctx, "success", start)
	slog.Info("indexer: embedding stored", "faq_id", faqID, "dims", len(vec))

	return nil
}

func (w *FAQEmbeddingWorker) record(ctx context.Context, status string, start time.Time) {
	if w.metrics != nil {
		w.metrics.RecordOutcome(ctx, status, time.Since(start))
	}
}
