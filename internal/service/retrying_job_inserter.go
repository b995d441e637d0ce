package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

const (
	defaultInsertBackoff    = 500 * time.Millisecond
	insertBackoffMultiplier = 2
)

// RetryingJobInserterConfig holds configuration for RetryingJobInserter.
type RetryingJobInserterConfig struct {
	MaxRetries     int           // Retries after the first attempt.
	InitialBackoff time.Duration // Doubles per retry, capped by MaxBackoff.
	MaxBackoff     time.Duration
}

// RetryingJobInserter retries InsertMany on transient River or database errors with
// exponential backoff and jitter.
type RetryingJobInserter struct {
	inner FAQEmbeddingInserter
	cfg   RetryingJobInserterConfig
}

// NewRetryingJobInserter wraps inner. Total attempts are 1 + cfg.MaxRetries.
func NewRetryingJobInserter(inner FAQEmbeddingInserter, cfg RetryingJobInserterConfig) *RetryingJobInserter {
	cfg.MaxRetries = max(cfg.MaxRetries, 0)

	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInsertBackoff
	}

	cfg.MaxBackoff = max(cfg.MaxBackoff, cfg.InitialBackoff)

	return &RetryingJobInserter{inner: inner, cfg: cfg}
}

// InsertMany calls the inner inserter until it succeeds, retries run out or ctx is done.
func (r *RetryingJobInserter) InsertMany(
	ctx context.Context, params []river.InsertManyParams,
) ([]*rivertype.JobInsertResult, error) {
	backoff := r.cfg.InitialBackoff

	for attempt := 0; ; attempt++ {
		results, err := r.inner.InsertMany(ctx, params)
		if err == nil {
			return results, nil
		}

		if attempt == r.cfg.MaxRetries {
			return nil, err
		}

		wait := jitter(backoff)
		slog.Warn("job enqueue failed, retrying after backoff",
			"attempt", attempt+1,
			"max_attempts", r.cfg.MaxRetries+1,
			"backoff", wait,
			"error", err,
		)

		if err := sleepCtx(ctx, wait); err != nil {
			return nil, err
		}

		backoff = min(backoff*insertBackoffMultiplier, r.cfg.MaxBackoff)
	}
}

// jitter returns a duration between 50% and 100% of d.
func jitter(d time.Duration) time.Duration {
	half := d / 2
	if half <= 0 {
		return d
	}

	return half + rand.N(half)
}

var _ FAQEmbeddingInserter = (*RetryingJobInserter)(nil)
