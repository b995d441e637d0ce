// Package repository provides data access for the knowledge base and the support log.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/formbricks/support-hub/internal/docs"
	"github.com/formbricks/support-hub/internal/huberrors"
	"github.com/formbricks/support-hub/internal/models"
)

var (
	// ErrRetrieval wraps every failure of the similarity search.
	ErrRetrieval = errors.New("retrieval error")
	// ErrFAQNotFound is returned when no entry matches an id or an anchor. It satisfies huberrors.ErrNotFound.
	ErrFAQNotFound = huberrors.NewNotFoundError("faq", "faq not found")
)

// FAQsRepository handles data access for faqs and faq_embeddings.
type FAQsRepository struct {
	db *pgxpool.Pool
}

// NewFAQsRepository creates a new FAQs repository.
func NewFAQsRepository(db *pgxpool.Pool) *FAQsRepository {
	return &FAQsRepository{db: db}
}

// MatchFAQs returns up to matchCount entries whose cosine similarity to embedding is at least
// threshold, best first.
func (r *FAQsRepository) MatchFAQs(
	ctx context.Context, embedding []float32, matchCount int, threshold float64,
) ([]models.MatchCandidate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT faq_id, question, answer, category, similarity FROM match_faqs($1, $2, $3)`,
		pgvector.NewVector(embedding), matchCount, threshold,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: match_faqs: %w", ErrRetrieval, err)
	}
	defer rows.Close()

	var candidates []models.MatchCandidate

	for rows.Next() {
		var c models.MatchCandidate
		if err := rows.Scan(&c.FAQID, &c.Question, &c.Answer, &c.Category, &c.Similarity); err != nil {
			return nil, fmt.Errorf("%w: scan match: %w", ErrRetrieval, err)
		}

		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating matches: %w", ErrRetrieval, err)
	}

	return candidates, nil
}

// FindByAnchor returns the earliest-created entry whose category carries #anchor as a whole token.
// The result reports similarity 1.
func (r *FAQsRepository) FindByAnchor(ctx context.Context, anchor string) (*models.MatchCandidate, error) {
	if !docs.ValidAnchor(anchor) {
		return nil, huberrors.NewValidationError("anchor", "invalid anchor: "+anchor)
	}

	var c models.MatchCandidate

	err := r.db.QueryRow(ctx, `
		SELECT id, question, answer, category
		FROM faqs
		WHERE category ~ ('#' || $1 || '([^a-z0-9-]|$)')
		ORDER BY created_at ASC
		LIMIT 1`, anchor,
	).Scan(&c.FAQID, &c.Question, &c.Answer, &c.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFAQNotFound
		}

		return nil, fmt.Errorf("find faq by anchor: %w", err)
	}

	c.Similarity = 1

	return &c, nil
}

// GetFAQ returns one entry by id.
func (r *FAQsRepository) GetFAQ(ctx context.Context, id uuid.UUID) (*models.FAQ, error) {
	var f models.FAQ

	err := r.db.QueryRow(ctx,
		`SELECT id, question, answer, category, created_at FROM faqs WHERE id = $1`, id,
	).Scan(&f.ID, &f.Question, &f.Answer, &f.Category, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFAQNotFound
		}

		return nil, fmt.Errorf("get faq: %w", err)
	}

	return &f, nil
}

// ListFAQIDsMissingEmbeddings returns ids of entries without a stored embedding, oldest first.
func (r *FAQsRepository) ListFAQIDsMissingEmbeddings(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		SELECT f.id FROM faqs f
		WHERE NOT EXISTS (SELECT 1 FROM faq_embeddings e WHERE e.faq_id = f.id)
		ORDER BY f.created_at`)
	if err != nil {
		return nil, fmt.Errorf("list faq ids missing embeddings: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scan faq ids: %w", err)
	}

	return ids, nil
}

// UpsertEmbedding stores the embedding for faqID, replacing any previous one.
func (r *FAQsRepository) UpsertEmbedding(ctx context.Context, faqID uuid.UUID, embedding []float32) error {
	now := time.Now()

	_, err := r.db.Exec(ctx, `
		INSERT INTO faq_embeddings (faq_id, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (faq_id)
		DO UPDATE SET embedding = EXCLUDED.embedding, updated_at = EXCLUDED.updated_at`,
		faqID, pgvector.NewVector(embedding), now,
	)
	if err != nil {
		return fmt.Errorf("faq embeddings upsert: %w", err)
	}

	return nil
}

// InsertFAQs inserts entries in one transaction, in order, and returns how many were written.
func (r *FAQsRepository) InsertFAQs(ctx context.Context, faqs []models.CreateFAQRequest) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin insert faqs: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i, f := range faqs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO faqs (question, answer, category) VALUES ($1, $2, $3)`,
			f.Question, f.Answer, f.Category,
		); err != nil {
			return 0, fmt.Errorf("insert faq %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit insert faqs: %w", err)
	}

	return len(faqs), nil
}
