package models

import "github.com/google/uuid"

// Answer branches, one per terminal path of the answer pipeline.
const (
	BranchPreflight             = "preflight"
	BranchShortCircuit          = "short_circuit"
	BranchGenerated             = "generated"
	BranchRefusedOutOfScope     = "refused_out_of_scope"
	BranchRefusedNoAnchor       = "refused_no_anchor"
	BranchNoMatch               = "no_match"
	BranchEmbeddingUnavailable  = "embedding_unavailable"
	BranchRetrievalFailed       = "retrieval_failed"
	BranchGenerationUnavailable = "generation_unavailable"
)

// Source is a cited knowledge-base entry as exposed to the chat widget.
type Source struct {
	ID       uuid.UUID `json:"id"`
	Question string    `json:"question"`
}

// Reply is the finalized outcome of one question.
type Reply struct {
	Body         string
	Sources      []Source
	SourceLabels []string
	Matches      []MatchCandidate
	NeedHandoff  bool
	TopSim       float64
	UsedContext  bool
	Branch       string
}
