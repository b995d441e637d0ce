package models

import (
	"time"

	"github.com/google/uuid"
)

// SupportLogEntry records one answered question. Written once, never updated.
type SupportLogEntry struct {
	ID          uuid.UUID `json:"id"`
	Question    string    `json:"question"`
	Reply       string    `json:"reply"`
	TopSim      float64   `json:"top_sim"`
	UsedContext bool      `json:"used_context"`
	Handoff     bool      `json:"handoff"`
	LatencyMS   int64     `json:"latency_ms"`
	Sources     []string  `json:"sources"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListSupportLogFilters are the query parameters of GET /v1/support-log.
type ListSupportLogFilters struct {
	Limit   int   `form:"limit"   validate:"omitempty,min=1,max=200"`
	Offset  int   `form:"offset"  validate:"omitempty,min=0"`
	Handoff *bool `form:"handoff"`
}

// ListSupportLogResponse is the page returned by GET /v1/support-log.
type ListSupportLogResponse struct {
	Data   []SupportLogEntry `json:"data"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}
