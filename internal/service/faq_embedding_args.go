package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

const (
	faqEmbeddingKind = "faq_embedding"
	// EmbeddingsQueueName is the River queue used for FAQ embedding jobs.
	EmbeddingsQueueName = "embeddings"
)

// FAQEmbeddingInserter inserts embedding jobs in bulk (e.g. River client). Used by FAQIndexService.Backfill.
type FAQEmbeddingInserter interface {
	InsertMany(ctx context.Context, params []river.InsertManyParams) ([]*rivertype.JobInsertResult, error)
}

// FAQEmbeddingArgs is the job payload for embedding one FAQ entry.
// Uniqueness is by FAQID so a repeated backfill does not queue the same entry twice.
type FAQEmbeddingArgs struct {
	FAQID uuid.UUID `json:"faq_id" river:"unique"`
}

// Kind returns the River job kind.
func (FAQEmbeddingArgs) Kind() string { return faqEmbeddingKind }

var _ river.JobArgs = FAQEmbeddingArgs{}
