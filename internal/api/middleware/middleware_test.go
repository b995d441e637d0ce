package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/support-hub/internal/observability"
)

type authRecorder struct {
	reasons []string
}

func (r *authRecorder) RecordAuthFailure(_ context.Context, reason string) {
	r.reasons = append(r.reasons, reason)
}

type tooLargeRecorder struct {
	count int
}

func (r *tooLargeRecorder) RecordRequestBodyTooLarge(context.Context) {
	r.count++
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantReason string
	}{
		{"missing header", "", http.StatusUnauthorized, "missing_header"},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized, "invalid_format"},
		{"empty key", "Bearer ", http.StatusUnauthorized, "invalid_format"},
		{"wrong key", "Bearer nope", http.StatusUnauthorized, "invalid_key"},
		{"valid key", "Bearer secret", http.StatusOK, ""},
		{"scheme is case-insensitive", "bearer secret", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &authRecorder{}
			h := Auth("secret", recorder)(okHandler)

			req := httptest.NewRequest(http.MethodGet, "/v1/support-log", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantReason == "" {
				assert.Empty(t, recorder.reasons)
			} else {
				assert.Equal(t, []string{tt.wantReason}, recorder.reasons)
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestMaxBody(t *testing.T) {
	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		w.WriteHeader(http.StatusOK)
	})

	t.Run("rejects oversized body with 413", func(t *testing.T) {
		recorder := &tooLargeRecorder{}
		h := MaxBody(8, recorder)(readAll)

		req := httptest.NewRequest(http.MethodPost, "/api/support-chat", strings.NewReader(`{"message":"trop long"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, 1, recorder.count)
	})

	t.Run("passes small body", func(t *testing.T) {
		h := MaxBody(1024, nil)(readAll)

		req := httptest.NewRequest(http.MethodPost, "/api/support-chat", strings.NewReader(`{"message":"ok"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequestID(t *testing.T) {
	var seen string

	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(observability.RequestIDKey).(string)
	}))

	t.Run("propagates client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", "abc-123")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("replaces unsafe client id", func(t *testing.T) {
		for _, bad := range []string{"id with spaces", "line\nbreak", strings.Repeat("x", 200)} {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("X-Request-ID", bad)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.NotEqual(t, bad, seen)
			assert.Len(t, seen, 36)
		}
	})
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://shop.example"})(okHandler)

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/support-chat", nil)
		req.Header.Set("Origin", "https://shop.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("other origin gets no allow header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/support-chat", nil)
		req.Header.Set("Origin", "https://evil.example")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("empty allow-list allows no origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/support-chat", nil)
		req.Header.Set("Origin", "https://shop.example")

		rec := httptest.NewRecorder()
		CORS(nil)(okHandler).ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestNormalizeRoute(t *testing.T) {
	assert.Equal(t, "/v1/faqs/{id}", normalizeRoute("/v1/faqs/018e1234-5678-9abc-def0-123456789abc"))
	assert.Equal(t, "/api/support-chat", normalizeRoute("/api/support-chat"))
	assert.Equal(t, "4xx", statusToClass(404))
}
