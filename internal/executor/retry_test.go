package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithRetry_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	attempts, err := withRetry(context.Background(), DefaultRetryConfig(), func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_StopsImmediatelyOnNonRetryableError(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, BackoffFactor: 2}
	attempts, err := withRetry(context.Background(), cfg, func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return false, errors.New("validation error")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesUpToMaxAttempts(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, BackoffFactor: 2}
	attempts, err := withRetry(context.Background(), cfg, func(ctx context.Context, attempt int) (bool, error) {
		calls++
		return true, errors.New("transient")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond, BackoffFactor: 2}
	attempts, err := withRetry(context.Background(), cfg, func(ctx context.Context, attempt int) (bool, error) {
		calls++
		if calls < 3 {
			return true, errors.New("transient")
		}
		return false, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_HonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := DefaultRetryConfig()
	_, err := withRetry(ctx, cfg, func(ctx context.Context, attempt int) (bool, error) {
		t.Fatal("operation should not run after cancellation")
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultRetryConfig_MatchesPrescribedPolicy(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.InitialBackoff)
	assert.Equal(t, 10*time.Second, cfg.MaxBackoff)
	assert.Equal(t, 2.0, cfg.BackoffFactor)
}
