// Package executor runs Plans through the chain client: one goroutine per
// plan bounded by a semaphore, wired exponential-backoff retry, and
// running-mean metrics, emitting an ExecutionResult per plan.
package executor

import (
	"context"
	"errors"
	"time"
)

// RetryConfig configures the executor's exponential-backoff retry loop.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultRetryConfig matches the prescribed policy: 1s initial delay,
// doubling, capped at 10s, 3 attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
	}
}

// ErrNotRetryable is a sentinel for errors that must not be retried:
// malformed plan, insufficient balance, expired plan. withRetry itself never
// inspects errors; an operation ends the loop by returning retry=false.
var ErrNotRetryable = errors.New("executor: not retryable")

// retryableOperation is one submission attempt. It returns (retry?, err).
// When retry is false the error is terminal and withRetry stops
// immediately.
type retryableOperation func(ctx context.Context, attempt int) (retry bool, err error)

// withRetry runs op with exponential backoff per cfg, honoring ctx
// cancellation between attempts. Retries count as a single logical
// execution — the caller is responsible for tracking elapsed time and
// attempt count across calls.
func withRetry(ctx context.Context, cfg RetryConfig, op retryableOperation) (attempts int, err error) {
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		attempts = attempt

		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		default:
		}

		retry, opErr := op(ctx, attempt)
		if opErr == nil {
			return attempts, nil
		}
		err = opErr

		if !retry || attempt == cfg.MaxAttempts {
			return attempts, err
		}

		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return attempts, err
}
