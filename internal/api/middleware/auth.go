package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/formbricks/support-hub/internal/api/response"
)

// AuthFailureRecorder records rejected admin requests. Pass nil when metrics are disabled.
type AuthFailureRecorder interface {
	RecordAuthFailure(ctx context.Context, reason string)
}

// Auth validates the static API key from the Authorization header ("Bearer <api-key>").
func Auth(apiKey string, recorder AuthFailureRecorder) func(http.Handler) http.Handler {
	expected := []byte(apiKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reject := func(reason, detail string) {
				if recorder != nil {
					recorder.RecordAuthFailure(r.Context(), reason)
				}

				response.RespondUnauthorized(w, detail)
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				reject("missing_header", "Missing Authorization header")

				return
			}

			scheme, key, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || key == "" {
				reject("invalid_format", "Invalid Authorization header format. Expected: Bearer <api-key>")

				return
			}

			if subtle.ConstantTimeCompare([]byte(key), expected) != 1 {
				reject("invalid_key", "Invalid API key")

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
