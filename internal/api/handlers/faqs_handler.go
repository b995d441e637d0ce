package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/formbricks/support-hub/internal/api/response"
	"github.com/formbricks/support-hub/internal/service"
)

// FAQIndexService enqueues knowledge-base embedding jobs.
type FAQIndexService interface {
	Backfill(ctx context.Context) (int, error)
}

// FAQsHandler handles knowledge-base admin endpoints.
type FAQsHandler struct {
	service FAQIndexService
}

// NewFAQsHandler creates a new FAQs handler.
func NewFAQsHandler(service FAQIndexService) *FAQsHandler {
	return &FAQsHandler{service: service}
}

// ReindexResponse reports how many embedding jobs were enqueued.
type ReindexResponse struct {
	Enqueued int `json:"enqueued"`
}

// Reindex handles POST /v1/faqs/reindex.
func (h *FAQsHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.Backfill(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrIndexerDisabled) {
			response.RespondServiceUnavailable(w, "Indexer is disabled (set INDEXER_ENABLED=true)")

			return
		}

		slog.Error("faqs: reindex failed", "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusAccepted, ReindexResponse{Enqueued: n})
}
