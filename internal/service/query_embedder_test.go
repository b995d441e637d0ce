package service

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formbricks/support-hub/internal/huberrors"
	"github.com/formbricks/support-hub/internal/openai"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, Timeout: time.Second}
}

func TestQueryEmbedder_cache_is_keyed_by_normalized_text(t *testing.T) {
	var calls atomic.Int32

	client := &mockEmbeddingClient{createFunc: func(_ context.Context, input string) ([]float32, error) {
		calls.Add(1)
		assert.Equal(t, "délai de retour ?", input)

		return []float32{3, 4}, nil
	}}

	e, err := NewQueryEmbedder(client, QueryEmbedderConfig{CacheSize: 10, Policy: fastPolicy()})
	require.NoError(t, err)

	first, err := e.Embed(context.Background(), "Délai de retour ?")
	require.NoError(t, err)

	second, err := e.Embed(context.Background(), "  DÉLAI DE RETOUR ?  ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
	// Provider vectors are L2-normalized before caching.
	assert.InDelta(t, 0.6, first[0], 1e-6)
	assert.InDelta(t, 0.8, first[1], 1e-6)
}

func TestQueryEmbedder_retries_503_then_caches(t *testing.T) {
	var requests atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if requests.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"error":{"message":"overloaded"}}`)

			return
		}

		_, _ = io.WriteString(w, `{"object":"list","model":"jina-embeddings-v3",
			"data":[{"object":"embedding","index":0,"embedding":[0,1,0]}],
			"usage":{"prompt_tokens":1,"total_tokens":1}}`)
	}))
	defer srv.Close()

	client := openai.NewEmbeddingClient("k", openai.WithBaseURL(srv.URL+"/v1/"), openai.WithDimensions(3))

	e, err := NewQueryEmbedder(client, QueryEmbedderConfig{CacheSize: 10, Policy: fastPolicy()})
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "Frais de port ?")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, vec)
	assert.Equal(t, int32(2), requests.Load())

	again, err := e.Embed(context.Background(), "frais de port ?")
	require.NoError(t, err)
	assert.Equal(t, vec, again)
	assert.Equal(t, int32(2), requests.Load(), "second call must be served from cache")
}

func TestQueryEmbedder_failure_is_unavailable_and_not_cached(t *testing.T) {
	var calls atomic.Int32

	client := &mockEmbeddingClient{createFunc: func(context.Context, string) ([]float32, error) {
		calls.Add(1)

		return nil, huberrors.NewUpstreamError("embeddings", http.StatusUnauthorized, errors.New("bad key"))
	}}

	e, err := NewQueryEmbedder(client, QueryEmbedderConfig{CacheSize: 10, Policy: fastPolicy()})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "Facture ?")
	require.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.Equal(t, int32(1), calls.Load(), "401 is terminal")

	_, err = e.Embed(context.Background(), "Facture ?")
	require.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 0, e.CacheLen())
}

func TestQueryEmbedder_empty_query(t *testing.T) {
	e, err := NewQueryEmbedder(&mockEmbeddingClient{}, QueryEmbedderConfig{})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

func TestQueryEmbedder_cache_capacity_under_concurrency(t *testing.T) {
	const (
		capacity = 8
		queries  = 64
	)

	e, err := NewQueryEmbedder(&mockEmbeddingClient{}, QueryEmbedderConfig{CacheSize: capacity, Policy: fastPolicy()})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range queries {
		wg.Go(func() {
			_, err := e.Embed(context.Background(), "question "+strconv.Itoa(i))
			if err != nil {
				t.Error(err)
			}
		})
	}

	wg.Wait()

	assert.Equal(t, capacity, e.CacheLen())
}

func TestQueryEmbedder_vectors_are_unit_length(t *testing.T) {
	client := &mockEmbeddingClient{createFunc: func(context.Context, string) ([]float32, error) {
		return []float32{1, 2, 2}, nil
	}}

	e, err := NewQueryEmbedder(client, QueryEmbedderConfig{Policy: fastPolicy()})
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "x")
	require.NoError(t, err)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}

	assert.InDelta(t, 1, math.Sqrt(sum), 1e-6)
}
