package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/livecue/clock/clocktest"
)

func TestRateLimiter_AllowAndRefill(t *testing.T) {
	clk := clocktest.New(time.Unix(0, 0))
	rl := NewRateLimiter(RateLimiterConfig{Rate: 2, Burst: 2, Clock: clk})

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	clk.Advance(500 * time.Millisecond)
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())
}

func TestRateLimiter_BurstCapsRefill(t *testing.T) {
	clk := clocktest.New(time.Unix(0, 0))
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 3, Clock: clk})
	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow())
	}
	clk.Advance(time.Hour)
	assert.InDelta(t, 3, rl.Tokens(), 0.001)
}

func TestRateLimiter_WaitReturnsWhenTokenArrives(t *testing.T) {
	clk := clocktest.New(time.Unix(0, 0))
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, Clock: clk})
	require.NoError(t, rl.Wait(context.Background()))

	done := make(chan error, 1)
	go func() { done <- rl.Wait(context.Background()) }()

	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)
	clk.Advance(time.Second)
	assert.NoError(t, <-done)
}

func TestRateLimiter_WaitRespectsContext(t *testing.T) {
	clk := clocktest.New(time.Unix(0, 0))
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, Clock: clk})
	rl.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.Canceled)
	assert.InDelta(t, 0, rl.Tokens(), 0.001)
}
