package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/formbricks/support-hub/internal/models"
	"github.com/formbricks/support-hub/internal/observability"
)

// ErrIndexerDisabled is returned by Backfill when no job inserter is configured.
var ErrIndexerDisabled = errors.New("indexer disabled")

// uniqueByPeriodEmbedding collapses repeated backfills of the same FAQ within the window.
const uniqueByPeriodEmbedding = 24 * time.Hour

// FAQIndexRepository is the data access needed to index the knowledge base.
type FAQIndexRepository interface {
	ListFAQIDsMissingEmbeddings(ctx context.Context) ([]uuid.UUID, error)
	GetFAQ(ctx context.Context, id uuid.UUID) (*models.FAQ, error)
	UpsertEmbedding(ctx context.Context, faqID uuid.UUID, embedding []float32) error
	InsertFAQs(ctx context.Context, faqs []models.CreateFAQRequest) (int, error)
}

// FAQIndexService enqueues and serves the knowledge-base embedding jobs.
type FAQIndexService struct {
	repo        FAQIndexRepository
	inserter    FAQEmbeddingInserter
	maxAttempts int
	metrics     observability.IndexerMetrics
}

// NewFAQIndexService creates the index service. inserter may be nil when the indexer is disabled;
// metrics may be nil when metrics are disabled.
func NewFAQIndexService(
	repo FAQIndexRepository, inserter FAQEmbeddingInserter, maxAttempts int, metrics observability.IndexerMetrics,
) *FAQIndexService {
	return &FAQIndexService{
		repo:        repo,
		inserter:    inserter,
		maxAttempts: maxAttempts,
		metrics:     metrics,
	}
}

// SetInserter attaches the job inserter once the River client exists. The embedding worker is
// registered on this same instance before the client is created.
func (s *FAQIndexService) SetInserter(inserter FAQEmbeddingInserter) {
	s.inserter = inserter
}

// Backfill enqueues one faq_embedding job per FAQ that has no stored embedding and returns how
// many jobs were submitted.
func (s *FAQIndexService) Backfill(ctx context.Context) (int, error) {
	if s.inserter == nil {
		return 0, ErrIndexerDisabled
	}

	ids, err := s.repo.ListFAQIDsMissingEmbeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("list faqs missing embeddings: %w", err)
	}

	if len(ids) == 0 {
		slog.Info("indexer: nothing to backfill")

		return 0, nil
	}

	opts := &river.InsertOpts{
		Queue:       EmbeddingsQueueName,
		MaxAttempts: s.maxAttempts,
		UniqueOpts:  river.UniqueOpts{ByArgs: true, ByPeriod: uniqueByPeriodEmbedding},
	}

	params := make([]river.InsertManyParams, 0, len(ids))
	for _, id := range ids {
		params = append(params, river.InsertManyParams{Args: FAQEmbeddingArgs{FAQID: id}, InsertOpts: opts})
	}

	if _, err := s.inserter.InsertMany(ctx, params); err != nil {
		return 0, fmt.Errorf("enqueue faq embedding jobs: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordJobsEnqueued(ctx, int64(len(params)))
	}

	slog.Info("indexer: backfill enqueued", "count", len(params))

	return len(params), nil
}

// GetFAQ returns one knowledge-base entry.
func (s *FAQIndexService) GetFAQ(ctx context.Context, id uuid.UUID) (*models.FAQ, error) {
	faq, err := s.repo.GetFAQ(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get faq: %w", err)
	}

	return faq, nil
}

// SetFAQEmbedding stores the embedding of one entry, replacing any previous one.
func (s *FAQIndexService) SetFAQEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	if err := s.repo.UpsertEmbedding(ctx, id, embedding); err != nil {
		return fmt.Errorf("upsert faq embedding: %w", err)
	}

	return nil
}

// Seed inserts knowledge-base entries in one transaction. Rows are validated by the caller.
func (s *FAQIndexService) Seed(ctx context.Context, faqs []models.CreateFAQRequest) (int, error) {
	if len(faqs) == 0 {
		return 0, nil
	}

	n, err := s.repo.InsertFAQs(ctx, faqs)
	if err != nil {
		return 0, fmt.Errorf("insert faqs: %w", err)
	}

	slog.Info("indexer: faqs seeded", "count", n)

	return n, nil
}
