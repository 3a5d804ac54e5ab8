package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kbukum/livecue/errors"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  1,
	}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastRetry(3), func(ctx context.Context, attempt int) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestRetry_RetriesOnlyRetryableErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{"timeout", apperrors.Timeout("complete"), 3},
		{"network", apperrors.ConnectionFailed("llm"), 3},
		{"rate limited", apperrors.RateLimited(), 1},
		{"credential", apperrors.Unauthorized(""), 1},
		{"unknown", apperrors.ExternalServiceError("llm", nil), 1},
		{"plain", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := Retry(context.Background(), fastRetry(Attempts(2)), func(ctx context.Context, attempt int) (int, error) {
				calls++
				return 0, tt.err
			})
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	var attempts []int
	got, err := Retry(context.Background(), fastRetry(2), func(ctx context.Context, attempt int) (int, error) {
		attempts = append(attempts, attempt)
		if attempt == 1 {
			return 0, apperrors.Timeout("stream")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestRetry_AttemptTimeout(t *testing.T) {
	cfg := fastRetry(1)
	cfg.AttemptTimeout = 10 * time.Millisecond

	_, err := Retry(context.Background(), cfg, func(ctx context.Context, attempt int) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetry_RespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, fastRetry(5), func(ctx context.Context, attempt int) (int, error) {
		calls++
		cancel()
		return 0, apperrors.Timeout("x")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_OnRetryCallback(t *testing.T) {
	cfg := fastRetry(3)
	var seen []int
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		seen = append(seen, attempt)
	}
	_ = RetryFunc(context.Background(), cfg, func(ctx context.Context, attempt int) error {
		return apperrors.ConnectionFailed("llm")
	})
	assert.Equal(t, []int{1, 2}, seen)
}

func TestAttempts(t *testing.T) {
	assert.Equal(t, 3, Attempts(2))
	assert.Equal(t, 2, Attempts(1))
	assert.Equal(t, 1, Attempts(-1))
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 2}
	assert.Equal(t, 100*time.Millisecond, calculateBackoff(1, cfg))
	assert.Equal(t, 400*time.Millisecond, calculateBackoff(3, cfg))
	assert.Equal(t, time.Second, calculateBackoff(10, cfg))
}
