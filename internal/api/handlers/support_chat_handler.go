// Package handlers implements the HTTP endpoints of the support API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/formbricks/support-hub/internal/api/response"
	"github.com/formbricks/support-hub/internal/api/validation"
	"github.com/formbricks/support-hub/internal/models"
	"github.com/formbricks/support-hub/internal/service"
)

// Chat error codes. The widget matches on these strings.
const (
	ErrCodeMissingMessage  = "missing_message"
	ErrCodeInvalidMessage  = "invalid_message"
	ErrCodeRetrievalFailed = "retrieval_failed"
	ErrCodeServerError     = "server_error"
)

// AnswerService answers one support question.
type AnswerService interface {
	Answer(ctx context.Context, message string) (models.Reply, error)
}

// SupportChatHandler handles POST /api/support-chat.
type SupportChatHandler struct {
	service AnswerService
}

// NewSupportChatHandler creates a new support chat handler.
func NewSupportChatHandler(service AnswerService) *SupportChatHandler {
	return &SupportChatHandler{service: service}
}

// SupportChatResponse is the success body. Refusals are successes too.
type SupportChatResponse struct {
	OK          bool                    `json:"ok"`
	Reply       string                  `json:"reply"`
	Sources     []models.Source         `json:"sources"`
	Matches     []models.MatchCandidate `json:"matches"`
	NeedHandoff bool                    `json:"needHandoff"` //nolint:tagliatelle // widget contract
	TopSim      float64                 `json:"topSim"`      //nolint:tagliatelle // widget contract
}

// SupportChatError is the failure body.
type SupportChatError struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type chatRequest struct {
	Message any `json:"message"`
}

// chatMessage bounds the question length in runes.
type chatMessage struct {
	Message string `validate:"max=2000,no_null_bytes"`
}

// Chat handles POST /api/support-chat.
func (h *SupportChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondChatError(w, http.StatusBadRequest, ErrCodeMissingMessage)

		return
	}

	message, ok := req.Message.(string)
	if !ok || strings.TrimSpace(message) == "" {
		respondChatError(w, http.StatusBadRequest, ErrCodeMissingMessage)

		return
	}

	if err := validation.ValidateStruct(chatMessage{Message: message}); err != nil {
		respondChatError(w, http.StatusBadRequest, ErrCodeInvalidMessage)

		return
	}

	reply, err := h.service.Answer(r.Context(), message)
	if err != nil {
		if errors.Is(err, service.ErrRetrievalFailed) {
			respondChatError(w, http.StatusInternalServerError, ErrCodeRetrievalFailed)

			return
		}

		slog.Error("support chat: answer failed", "error", err)
		respondChatError(w, http.StatusInternalServerError, ErrCodeServerError)

		return
	}

	response.RespondJSON(w, http.StatusOK, SupportChatResponse{
		OK:          true,
		Reply:       reply.Body,
		Sources:     reply.Sources,
		Matches:     reply.Matches,
		NeedHandoff: reply.NeedHandoff,
		TopSim:      reply.TopSim,
	})
}

func respondChatError(w http.ResponseWriter, status int, code string) {
	response.RespondJSON(w, status, SupportChatError{OK: false, Error: code})
}
