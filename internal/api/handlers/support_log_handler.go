package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/formbricks/support-hub/internal/api/response"
	"github.com/formbricks/support-hub/internal/api/validation"
	"github.com/formbricks/support-hub/internal/models"
)

// SupportLogService lists answered questions.
type SupportLogService interface {
	List(ctx context.Context, filters *models.ListSupportLogFilters) (*models.ListSupportLogResponse, error)
}

// SupportLogHandler handles GET /v1/support-log.
type SupportLogHandler struct {
	service SupportLogService
}

// NewSupportLogHandler creates a new support log handler.
func NewSupportLogHandler(service SupportLogService) *SupportLogHandler {
	return &SupportLogHandler{service: service}
}

// List handles GET /v1/support-log?limit=&offset=&handoff=.
func (h *SupportLogHandler) List(w http.ResponseWriter, r *http.Request) {
	var filters models.ListSupportLogFilters

	if err := validation.ValidateAndDecodeQueryParams(r, &filters); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			validation.RespondValidationError(w, err)

			return
		}

		response.RespondBadRequest(w, err.Error())

		return
	}

	resp, err := h.service.List(r.Context(), &filters)
	if err != nil {
		slog.Error("support log: list failed", "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")

		return
	}

	response.RespondJSON(w, http.StatusOK, resp)
}
