package models

import (
	"time"

	"github.com/google/uuid"
)

// FAQ is one curated knowledge-base entry. Category carries a human topic and, optionally,
// one or more documentation anchors, e.g. "retours — délai (#retour-delai)".
type FAQ struct {
	ID        uuid.UUID `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateFAQRequest is one row of a seed file.
type CreateFAQRequest struct {
	Question string `json:"question" yaml:"question" validate:"required,no_null_bytes,min=1,max=1000"`
	Answer   string `json:"answer"   yaml:"answer"   validate:"required,no_null_bytes,min=1,max=4000"`
	Category string `json:"category" yaml:"category" validate:"required,no_null_bytes,min=1,max=255"`
}

// MatchCandidate is a knowledge-base row returned by retrieval or by an anchor lookup.
// Similarity is the stored cosine similarity in [0,1]; anchor lookups report 1.
type MatchCandidate struct {
	FAQID      uuid.UUID `json:"faq_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	Category   string    `json:"category"`
	Similarity float64   `json:"similarity"`
}

// EmbeddingText is the text indexed for a FAQ: question and answer separated by a blank line.
func (f *FAQ) EmbeddingText() string {
	return f.Question + "\n\n" + f.Answer
}
