package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/support-hub/internal/huberrors"
)

func TestEmbeddingClient_CreateEmbeddings(t *testing.T) {
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"), r.URL.Path)
		assert.Equal(t, "Bearer jina-key", r.Header.Get("Authorization"))

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		// Out-of-order indices must be placed back in input order.
		_, _ = io.WriteString(w, `{"object":"list","model":"jina-embeddings-v3",
			"data":[
				{"object":"embedding","index":1,"embedding":[0,1,0]},
				{"object":"embedding","index":0,"embedding":[1,0,0]}
			],
			"usage":{"prompt_tokens":4,"total_tokens":4}}`)
	}))
	defer srv.Close()

	client := NewEmbeddingClient("jina-key", WithBaseURL(srv.URL+"/v1/"), WithDimensions(3))

	got, err := client.CreateEmbeddings(context.Background(), []string{" délai de retour ", "frais de port"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1, 0, 0}, {0, 1, 0}}, got)
	assert.Equal(t, "jina-embeddings-v3", body["model"])
	assert.Equal(t, []any{"délai de retour", "frais de port"}, body["input"])
	assert.InDelta(t, 3, body["dimensions"], 0)
	assert.Equal(t, "float", body["embedding_type"])
	assert.Equal(t, true, body["normalized"])
}

func TestEmbeddingClient_status_error_is_exposed(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded"}}`)
	}))
	defer srv.Close()

	client := NewEmbeddingClient("k", WithBaseURL(srv.URL+"/v1/"), WithDimensions(3))

	_, err := client.CreateEmbedding(context.Background(), "bonjour")
	require.Error(t, err)
	assert.ErrorIs(t, err, huberrors.ErrUpstream)

	var status interface{ HTTPStatus() int }
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusServiceUnavailable, status.HTTPStatus())
	assert.Equal(t, int32(1), calls.Load(), "SDK retries must be disabled")
}

func TestEmbeddingClient_validation(t *testing.T) {
	client := NewEmbeddingClient("k", WithBaseURL("http://127.0.0.1:0/"), WithDimensions(3))

	_, err := client.CreateEmbedding(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = client.CreateEmbeddings(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	bad := NewEmbeddingClient("k", WithDimensions(0))
	_, err = bad.CreateEmbedding(context.Background(), "x")
	assert.ErrorIs(t, err, ErrInvalidDims)
}

func TestEmbeddingClient_dimension_mismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","model":"m","data":[{"object":"embedding","index":0,"embedding":[1,0]}],
			"usage":{"prompt_tokens":1,"total_tokens":1}}`)
	}))
	defer srv.Close()

	client := NewEmbeddingClient("k", WithBaseURL(srv.URL+"/v1/"), WithDimensions(3))

	_, err := client.CreateEmbedding(context.Background(), "x")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestChatClient_Generate(t *testing.T) {
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"llama-3.1-8b-instant",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"30 jours."}}]}`)
	}))
	defer srv.Close()

	client := NewChatClient("groq-key", WithChatBaseURL(srv.URL+"/openai/v1/"))

	got, err := client.Generate(context.Background(), "system prompt", "Question:\nDélai ?")
	require.NoError(t, err)
	assert.Equal(t, "30 jours.", got)

	assert.Equal(t, "llama-3.1-8b-instant", body["model"])
	assert.InDelta(t, 0.2, body["temperature"], 1e-9)
	assert.InDelta(t, 300, body["max_tokens"], 0)

	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestChatClient_Generate_error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer srv.Close()

	client := NewChatClient("k", WithChatBaseURL(srv.URL+"/v1/"))

	_, err := client.Generate(context.Background(), "s", "u")
	require.Error(t, err)

	var upstream *huberrors.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Equal(t, "chat", upstream.Provider)
}
