package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Retry defaults for provider calls.
const (
	DefaultMaxAttempts = 2
	DefaultBaseDelay   = 400 * time.Millisecond
	DefaultTimeout     = 8 * time.Second
)

// Attempt outcomes passed to RetryPolicy.OnAttempt.
const (
	AttemptSuccess   = "success"
	AttemptRetryable = "retryable"
	AttemptTerminal  = "terminal"
	AttemptCanceled  = "canceled"
)

// httpStatusError is implemented by provider errors that carry the upstream HTTP status.
type httpStatusError interface {
	HTTPStatus() int
}

// RetryPolicy bounds a provider call: at most MaxAttempts tries, each under its own Timeout,
// with a linear BaseDelay*n pause before try n+1.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Timeout     time.Duration
	// Retryable classifies a failed attempt. Nil uses IsRetryableProviderError.
	Retryable func(error) bool
	// OnAttempt is called after every attempt; may be nil.
	OnAttempt func(ctx context.Context, outcome string, duration time.Duration)
	// Name is used in log lines.
	Name string
}

// DefaultRetryPolicy returns 2 attempts, 400ms base delay and an 8s per-attempt timeout.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Timeout:     DefaultTimeout,
	}
}

// IsRetryableProviderError reports whether err is transient: a per-attempt deadline, a failure
// without any HTTP response, or an HTTP 429 / 5xx answer. Other statuses are terminal.
func IsRetryableProviderError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr httpStatusError
	if !errors.As(err, &statusErr) {
		return false
	}

	status := statusErr.HTTPStatus()

	return status == 0 || status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// DoWithRetry runs op under policy. The caller's own cancellation stops retrying immediately.
// The returned error wraps the last attempt's error.
func DoWithRetry[T any](ctx context.Context, policy RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := max(policy.MaxAttempts, 1)

	retryable := policy.Retryable
	if retryable == nil {
		retryable = IsRetryableProviderError
	}

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if policy.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
		}

		start := time.Now()
		value, err := op(attemptCtx)
		timedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)

		cancel()

		if err == nil {
			policy.observe(ctx, AttemptSuccess, time.Since(start))

			return value, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			policy.observe(ctx, AttemptCanceled, time.Since(start))

			return zero, fmt.Errorf("%s canceled after %d attempt(s): %w", policy.name(), attempt, err)
		}

		if !timedOut && !retryable(err) {
			policy.observe(ctx, AttemptTerminal, time.Since(start))

			return zero, fmt.Errorf("%s failed: %w", policy.name(), err)
		}

		policy.observe(ctx, AttemptRetryable, time.Since(start))

		if attempt == attempts {
			break
		}

		delay := policy.BaseDelay * time.Duration(attempt)
		slog.Warn("provider call failed, retrying after backoff",
			"call", policy.name(),
			"attempt", attempt,
			"max_attempts", attempts,
			"backoff", delay,
			"error", err,
		)

		if err := sleepCtx(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", policy.name(), attempts, lastErr)
}

func (p RetryPolicy) observe(ctx context.Context, outcome string, d time.Duration) {
	if p.OnAttempt != nil {
		p.OnAttempt(ctx, outcome, d)
	}
}

func (p RetryPolicy) name() string {
	if p.Name == "" {
		return "provider call"
	}

	return p.Name
}

// sleepCtx blocks for d or until ctx is cancelled; returns the wrapped ctx error if cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
