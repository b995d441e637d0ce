package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/formbricks/support-hub/internal/observability"
	"github.com/formbricks/support-hub/pkg/cache"
	"github.com/formbricks/support-hub/pkg/embeddings"
	"github.com/formbricks/support-hub/pkg/textfold"
)

// ErrEmbeddingUnavailable is returned when no query vector could be obtained within the retry policy.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

const (
	// DefaultEmbeddingCacheSize bounds the number of cached query vectors.
	DefaultEmbeddingCacheSize = 500

	queryEmbeddingCacheName = "query_embedding"
)

// QueryEmbedderConfig configures a QueryEmbedder. Zero values take the defaults.
type QueryEmbedderConfig struct {
	CacheSize       int
	Policy          RetryPolicy
	CacheMetrics    observability.CacheMetrics
	ProviderMetrics observability.ProviderMetrics
}

// QueryEmbedder turns a user question into a unit-length vector. Vectors are cached by normalized
// query text in a FIFO cache; concurrent misses for the same text share one provider call.
type QueryEmbedder struct {
	client       EmbeddingClient
	cache        *cache.FIFOCache[string, []float32]
	policy       RetryPolicy
	cacheMetrics observability.CacheMetrics
}

// NewQueryEmbedder creates a QueryEmbedder over client.
func NewQueryEmbedder(client EmbeddingClient, cfg QueryEmbedderConfig) (*QueryEmbedder, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultEmbeddingCacheSize
	}

	if cfg.Policy.MaxAttempts <= 0 {
		cfg.Policy.MaxAttempts = DefaultMaxAttempts
	}

	if cfg.Policy.Timeout <= 0 {
		cfg.Policy.Timeout = DefaultTimeout
	}

	if cfg.Policy.Name == "" {
		cfg.Policy.Name = "embedding"
	}

	if cfg.ProviderMetrics != nil && cfg.Policy.OnAttempt == nil {
		pm := cfg.ProviderMetrics
		cfg.Policy.OnAttempt = func(ctx context.Context, outcome string, d time.Duration) {
			pm.RecordAttempt(ctx, "embeddings", outcome, d)
		}
	}

	e := &QueryEmbedder{
		client:       client,
		policy:       cfg.Policy,
		cacheMetrics: cfg.CacheMetrics,
	}

	var onEvict func(string, []float32)
	if cfg.CacheMetrics != nil {
		onEvict = func(string, []float32) {
			cfg.CacheMetrics.RecordEviction(context.Background(), queryEmbeddingCacheName)
		}
	}

	c, err := cache.NewFIFOCache(cfg.CacheSize, func(k string) string { return k }, onEvict)
	if err != nil {
		return nil, fmt.Errorf("query embedding cache: %w", err)
	}

	e.cache = c

	return e, nil
}

// Embed returns the vector for text. Texts that differ only by case or surrounding whitespace
// share one cache entry. Failures wrap ErrEmbeddingUnavailable and are never cached.
func (e *QueryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := textfold.Normalize(text)
	if key == "" {
		return nil, fmt.Errorf("%w: empty query", ErrEmbeddingUnavailable)
	}

	vec, hit, err := e.cache.Get(ctx, key, e.load)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}

	if e.cacheMetrics != nil {
		if hit {
			e.cacheMetrics.RecordHit(ctx, queryEmbeddingCacheName)
		} else {
			e.cacheMetrics.RecordMiss(ctx, queryEmbeddingCacheName)
		}
	}

	return vec, nil
}

// CacheLen returns the number of cached vectors.
func (e *QueryEmbedder) CacheLen() int {
	return e.cache.Len()
}

func (e *QueryEmbedder) load(ctx context.Context, key string) ([]float32, error) {
	vec, err := DoWithRetry(ctx, e.policy, func(attemptCtx context.Context) ([]float32, error) {
		return e.client.CreateEmbedding(attemptCtx, key)
	})
	if err != nil {
		return nil, err
	}

	if len(vec) == 0 {
		return nil, errors.New("provider returned an empty vector")
	}

	return embeddings.Normalized(vec), nil
}
