package handlers

import (
	"net/http"
	"os"

	"github.com/formbricks/support-hub/internal/api/response"
)

// healthEnvKeys are reported by presence only, never by value.
var healthEnvKeys = []string{"DATABASE_URL", "EMBEDDING_API_KEY", "GENERATION_API_KEY"}

// HealthHandler handles health check requests.
type HealthHandler struct {
	lookupEnv func(string) string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{lookupEnv: os.Getenv}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK  bool            `json:"ok"`
	Env map[string]bool `json:"env"`
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, _ *http.Request) {
	env := make(map[string]bool, len(healthEnvKeys))
	for _, key := range healthEnvKeys {
		v := h.lookupEnv(key)
		env[key] = v != "" && v != "placeholder"
	}

	response.RespondJSON(w, http.StatusOK, HealthResponse{OK: true, Env: env})
}
