package generation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/livecue/clock/clocktest"
	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/generation"
	"github.com/kbukum/livecue/llm"
	"github.com/kbukum/livecue/logger"
)

type fakeProvider struct {
	mu       sync.Mutex
	complete func(ctx context.Context, call int) (*llm.CompletionResponse, error)
	stream   func(ctx context.Context, call int) (<-chan llm.StreamChunk, error)
	calls    int
	requests []llm.CompletionRequest
	ctxs     []context.Context
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) record(ctx context.Context, req llm.CompletionRequest) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.requests = append(p.requests, req)
	p.ctxs = append(p.ctxs, ctx)
	return p.calls
}

func (p *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return p.complete(ctx, p.record(ctx, req))
}

func (p *fakeProvider) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	return p.stream(ctx, p.record(ctx, req))
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []string
	retries  int
	ttfts    []time.Duration
	slow     int
}

func (r *fakeRecorder) RecordRequest(_ context.Context, mode, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, mode+":"+outcome)
}

func (r *fakeRecorder) RecordRetry(context.Context, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries++
}

func (r *fakeRecorder) RecordFirstToken(_ context.Context, ttft time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ttfts = append(r.ttfts, ttft)
}

func (r *fakeRecorder) RecordSlowFirstToken(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slow++
}

func (r *fakeRecorder) Outcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outcomes...)
}

func testConfig() generation.Config {
	cfg := generation.DefaultConfig()
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func newClient(p generation.Provider, cfg generation.Config) (*generation.Client, *clocktest.Clock, *fakeRecorder) {
	clk := clocktest.New(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	rec := &fakeRecorder{}
	c := generation.NewClient(p, cfg,
		generation.WithClock(clk),
		generation.WithLogger(logger.Nop()),
		generation.WithRecorder(rec),
	)
	return c, clk, rec
}

func chunks(items ...llm.StreamChunk) <-chan llm.StreamChunk {
	ch := make(chan llm.StreamChunk, len(items))
	for _, it := range items {
		ch <- it
	}
	close(ch)
	return ch
}

func collect(t *testing.T, s *generation.Stream) ([]string, error) {
	t.Helper()
	var out []string
	for {
		d, ok, err := s.Next(context.Background())
		if !ok {
			return out, err
		}
		out = append(out, d.Text)
	}
}

func TestComplete_ReturnsText(t *testing.T) {
	p := &fakeProvider{complete: func(context.Context, int) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: "Forty-two."}, nil
	}}
	c, _, rec := newClient(p, testConfig())

	text, err := c.Complete(context.Background(), generation.Request{
		Input: "What is the answer?",
		PriorTurns: []generation.Turn{
			{Question: "Hi", Answer: "Hello"},
		},
		Options: generation.Options{SystemPrompt: "Be brief.", Context: "Interview for a Go role", Model: "m1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Forty-two.", text)
	assert.Equal(t, []string{"complete:ok"}, rec.Outcomes())

	req := p.requests[0]
	assert.Equal(t, "Be brief.", req.SystemPrompt)
	assert.Equal(t, "m1", req.Model)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "Interview for a Go role")
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "Hi"}, req.Messages[1])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "Hello"}, req.Messages[2])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "What is the answer?"}, req.Messages[3])
}

func TestComplete_RetriesTimeoutsTwice(t *testing.T) {
	p := &fakeProvider{complete: func(_ context.Context, call int) (*llm.CompletionResponse, error) {
		if call < 3 {
			return nil, apperrors.Timeout("fake")
		}
		return &llm.CompletionResponse{Content: "ok"}, nil
	}}
	c, _, rec := newClient(p, testConfig())

	text, err := c.Complete(context.Background(), generation.Request{Input: "q"})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, p.Calls())
	assert.Equal(t, 2, rec.retries)
}

func TestComplete_GivesUpAfterRetries(t *testing.T) {
	p := &fakeProvider{complete: func(context.Context, int) (*llm.CompletionResponse, error) {
		return nil, apperrors.ConnectionFailed("fake")
	}}
	c, _, rec := newClient(p, testConfig())

	_, err := c.Complete(context.Background(), generation.Request{Input: "q"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConnectionFailed))
	assert.Equal(t, 3, p.Calls())
	assert.Equal(t, []string{"complete:connection_failed"}, rec.Outcomes())
}

func TestComplete_NonRetryableFailsImmediately(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		code apperrors.ErrorCode
	}{
		{"rate limited", apperrors.RateLimited(), apperrors.ErrCodeRateLimited},
		{"unauthorized", apperrors.Unauthorized(""), apperrors.ErrCodeUnauthorized},
		{"unknown", errors.New("boom"), apperrors.ErrCodeExternalService},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := &fakeProvider{complete: func(context.Context, int) (*llm.CompletionResponse, error) {
				return nil, tc.err
			}}
			c, _, _ := newClient(p, testConfig())

			_, err := c.Complete(context.Background(), generation.Request{Input: "q"})
			assert.True(t, apperrors.HasCode(err, tc.code), "got %v", err)
			assert.Equal(t, 1, p.Calls())
		})
	}
}

func TestComplete_AttemptTimeoutIsRetried(t *testing.T) {
	p := &fakeProvider{complete: func(ctx context.Context, _ int) (*llm.CompletionResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	cfg := testConfig()
	cfg.CompleteTimeout = 10 * time.Millisecond
	c, _, _ := newClient(p, cfg)

	_, err := c.Complete(context.Background(), generation.Request{Input: "q"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTimeout), "got %v", err)
	assert.Equal(t, 3, p.Calls())
}

func TestComplete_CancelledIsNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &fakeProvider{complete: func(context.Context, int) (*llm.CompletionResponse, error) {
		cancel()
		return nil, apperrors.ConnectionFailed("fake").WithCause(context.Canceled)
	}}
	c, _, rec := newClient(p, testConfig())

	_, err := c.Complete(ctx, generation.Request{Input: "q"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.Calls())
	assert.Equal(t, []string{"complete:canceled"}, rec.Outcomes())
}

func TestComplete_RateLimiterWaitsOnClock(t *testing.T) {
	p := &fakeProvider{complete: func(context.Context, int) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: "ok"}, nil
	}}
	cfg := testConfig()
	cfg.RateLimit = 1
	cfg.RateBurst = 1
	c, clk, _ := newClient(p, cfg)

	_, err := c.Complete(context.Background(), generation.Request{Input: "one"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.Complete(context.Background(), generation.Request{Input: "two"})
		done <- err
	}()
	require.Eventually(t, func() bool { return clk.Pending() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, p.Calls())

	clk.Advance(time.Second)
	require.NoError(t, <-done)
	assert.Equal(t, 2, p.Calls())
}

func TestStream_YieldsDeltasAndTracksTTFT(t *testing.T) {
	p := &fakeProvider{stream: func(context.Context, int) (<-chan llm.StreamChunk, error) {
		return chunks(
			llm.StreamChunk{Content: "Hel"},
			llm.StreamChunk{Content: ""},
			llm.StreamChunk{Content: "lo"},
			llm.StreamChunk{Done: true},
		), nil
	}}
	c, clk, rec := newClient(p, testConfig())

	s, err := c.Stream(context.Background(), generation.Request{Input: "q"})
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.TTFT()
	assert.False(t, ok)

	clk.Advance(1500 * time.Millisecond)
	got, err := collect(t, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, got)

	ttft, ok := s.TTFT()
	require.True(t, ok)
	assert.Equal(t, 1500*time.Millisecond, ttft)
	assert.False(t, s.Slow())
	assert.Equal(t, []time.Duration{1500 * time.Millisecond}, rec.ttfts)
	assert.Equal(t, []string{"stream:ok"}, rec.Outcomes())
	assert.Equal(t, 0, clk.Pending())
}

func TestStream_SlowFirstTokenWarnsButSucceeds(t *testing.T) {
	p := &fakeProvider{stream: func(context.Context, int) (<-chan llm.StreamChunk, error) {
		return chunks(llm.StreamChunk{Content: "late"}, llm.StreamChunk{Done: true}), nil
	}}
	c, clk, rec := newClient(p, testConfig())

	s, err := c.Stream(context.Background(), generation.Request{Input: "q"})
	require.NoError(t, err)
	defer s.Close()

	clk.Advance(6 * time.Second)
	assert.True(t, s.Slow())
	assert.Equal(t, 1, rec.slow)

	got, err := collect(t, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"late"}, got)
	ttft, _ := s.TTFT()
	assert.Equal(t, 6*time.Second, ttft)
}

func TestStream_RetriesNetworkOnce(t *testing.T) {
	p := &fakeProvider{stream: func(_ context.Context, call int) (<-chan llm.StreamChunk, error) {
		if call == 1 {
			return nil, apperrors.ConnectionFailed("fake")
		}
		return chunks(llm.StreamChunk{Content: "ok"}, llm.StreamChunk{Done: true}), nil
	}}
	c, _, _ := newClient(p, testConfig())

	s, err := c.Stream(context.Background(), generation.Request{Input: "q"})
	require.NoError(t, err)
	defer s.Close()
	got, err := collect(t, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, got)
	assert.Equal(t, 2, p.Calls())
}

func TestStream_GivesUpAfterOneRetry(t *testing.T) {
	p := &fakeProvider{stream: func(context.Context, int) (<-chan llm.StreamChunk, error) {
		return nil, apperrors.ConnectionFailed("fake")
	}}
	c, _, rec := newClient(p, testConfig())

	_, err := c.Stream(context.Background(), generation.Request{Input: "q"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConnectionFailed))
	assert.Equal(t, 2, p.Calls())
	assert.Equal(t, []string{"stream:connection_failed"}, rec.Outcomes())
}

func TestStream_RateLimitedIsNotRetried(t *testing.T) {
	p := &fakeProvider{stream: func(context.Context, int) (<-chan llm.StreamChunk, error) {
		return nil, apperrors.RateLimited()
	}}
	c, _, _ := newClient(p, testConfig())

	_, err := c.Stream(context.Background(), generation.Request{Input: "q"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRateLimited))
	assert.Equal(t, 1, p.Calls())
}

func TestStream_InitiationTimeout(t *testing.T) {
	called := make(chan struct{}, 2)
	p := &fakeProvider{stream: func(ctx context.Context, _ int) (<-chan llm.StreamChunk, error) {
		called <- struct{}{}
		<-ctx.Done()
		return nil, apperrors.ConnectionFailed("fake").WithCause(ctx.Err())
	}}
	c, clk, _ := newClient(p, testConfig())

	done := make(chan error, 1)
	go func() {
		_, err := c.Stream(context.Background(), generation.Request{Input: "q"})
		done <- err
	}()

	<-called
	clk.Advance(45 * time.Second)
	<-called
	clk.Advance(45 * time.Second)

	err := <-done
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTimeout), "got %v", err)
	assert.Equal(t, 2, p.Calls())
}

func TestStream_ErrorChunkEndsStream(t *testing.T) {
	p := &fakeProvider{stream: func(context.Context, int) (<-chan llm.StreamChunk, error) {
		return chunks(llm.StreamChunk{Content: "par"}, llm.StreamChunk{Err: apperrors.RateLimited()}), nil
	}}
	c, _, rec := newClient(p, testConfig())

	s, err := c.Stream(context.Background(), generation.Request{Input: "q"})
	require.NoError(t, err)
	defer s.Close()

	got, err := collect(t, s)
	assert.Equal(t, []string{"par"}, got)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRateLimited))
	assert.Equal(t, []string{"stream:rate_limited"}, rec.Outcomes())
}

func TestStream_TruncatedIsNetworkError(t *testing.T) {
	p := &fakeProvider{stream: func(context.Context, int) (<-chan llm.StreamChunk, error) {
		return chunks(llm.StreamChunk{Content: "par"}), nil
	}}
	c, _, _ := newClient(p, testConfig())

	s, err := c.Stream(context.Background(), generation.Request{Input: "q"})
	require.NoError(t, err)
	defer s.Close()

	_, err = collect(t, s)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConnectionFailed))
}

func TestStream_CloseAbortsTransport(t *testing.T) {
	ch := make(chan llm.StreamChunk)
	p := &fakeProvider{stream: func(context.Context, int) (<-chan llm.StreamChunk, error) {
		return ch, nil
	}}
	c, _, rec := newClient(p, testConfig())

	s, err := c.Stream(context.Background(), generation.Request{Input: "q"})
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, p.ctxs[0].Err(), context.Canceled)
	assert.Equal(t, []string{"stream:canceled"}, rec.Outcomes())

	require.NoError(t, s.Close())
	assert.Len(t, rec.Outcomes(), 1)
}

func TestStream_CallerCancelEndsNext(t *testing.T) {
	ch := make(chan llm.StreamChunk)
	p := &fakeProvider{stream: func(context.Context, int) (<-chan llm.StreamChunk, error) {
		return ch, nil
	}}
	c, _, _ := newClient(p, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	s, err := c.Stream(ctx, generation.Request{Input: "q"})
	require.NoError(t, err)
	defer s.Close()

	cancel()
	_, ok, err := s.Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryable(t *testing.T) {
	assert.True(t, generation.Retryable(apperrors.Timeout("x")))
	assert.True(t, generation.Retryable(apperrors.ConnectionFailed("x")))
	assert.False(t, generation.Retryable(apperrors.RateLimited()))
	assert.False(t, generation.Retryable(apperrors.Unauthorized("")))
	assert.False(t, generation.Retryable(apperrors.ExternalServiceError("x", nil)))
	assert.False(t, generation.Retryable(context.Canceled))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", generation.Outcome(nil))
	assert.Equal(t, "canceled", generation.Outcome(context.Canceled))
	assert.Equal(t, "timeout", generation.Outcome(apperrors.Timeout("x")))
}
