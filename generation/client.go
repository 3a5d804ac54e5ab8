package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/livecue/clock"
	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/llm"
	"github.com/kbukum/livecue/logger"
	"github.com/kbukum/livecue/resilience"
)

const tracerName = "github.com/kbukum/livecue/generation"

// Client issues generation requests against a Provider.
type Client struct {
	provider Provider
	cfg      Config
	clock    clock.Clock
	log      *logger.Logger
	limiter  *resilience.RateLimiter
	budget   *TokenBudget
	recorder Recorder
	tracer   trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithClock sets the clock driving the stream initiation timeout and the
// first-token warning.
func WithClock(c clock.Clock) Option {
	return func(cl *Client) { cl.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(cl *Client) { cl.log = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(cl *Client) { cl.recorder = r }
}

// WithTokenBudget trims prior turns to fit b.
func WithTokenBudget(b *TokenBudget) Option {
	return func(cl *Client) { cl.budget = b }
}

// WithTracer overrides the tracer. The global provider is used by default.
func WithTracer(t trace.Tracer) Option {
	return func(cl *Client) { cl.tracer = t }
}

// NewClient creates a client for provider. cfg is used as given after
// ApplyDefaults, so zero retry counts disable retries.
func NewClient(provider Provider, cfg Config, opts ...Option) *Client {
	cfg.ApplyDefaults()
	c := &Client{
		provider: provider,
		cfg:      cfg,
		clock:    clock.Real(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get("generation")
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	if cfg.RateLimit > 0 {
		c.limiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:  "generation",
			Rate:  cfg.RateLimit,
			Burst: cfg.RateBurst,
			Clock: c.clock,
		})
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Complete returns the full response text. Each attempt is bounded by
// CompleteTimeout; timeouts and connection failures are retried up to
// CompleteRetries times.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	start := c.clock.Now()
	ctx, span := c.startSpan(ctx, ModeComplete)
	defer span.End()

	creq := completionRequest(req, c.budget)
	text, err := resilience.Retry(ctx, c.retryConfig(ctx, ModeComplete, c.cfg.CompleteRetries, c.cfg.CompleteTimeout),
		func(actx context.Context, attempt int) (string, error) {
			if err := c.wait(actx); err != nil {
				return "", c.attemptError(ctx, actx, err, ModeComplete)
			}
			resp, err := c.provider.Complete(actx, creq)
			if err != nil {
				return "", c.attemptError(ctx, actx, err, ModeComplete)
			}
			return resp.Content, nil
		})

	err = classify(err, c.provider.Name())
	c.finish(ctx, span, ModeComplete, start, err)
	if err != nil {
		return "", err
	}
	return text, nil
}

// Stream opens a streaming request. Opening is bounded by StreamTimeout per
// attempt and retried up to StreamRetries times on timeouts and connection
// failures. Once open, the stream runs until the provider finishes, ctx is
// cancelled or the Stream is closed.
func (c *Client) Stream(ctx context.Context, req Request) (*Stream, error) {
	ctx, span := c.startSpan(ctx, ModeStream)
	s := newStream(c, ctx, span)

	creq := completionRequest(req, c.budget)
	opened, err := resilience.Retry(ctx, c.retryConfig(ctx, ModeStream, c.cfg.StreamRetries, 0),
		func(actx context.Context, attempt int) (*transport, error) {
			if err := c.wait(actx); err != nil {
				return nil, c.attemptError(ctx, actx, err, ModeStream)
			}
			return c.open(actx, creq)
		})
	if err != nil {
		err = classify(err, c.provider.Name())
		s.fail(err)
		return nil, err
	}

	s.attach(opened)
	return s, nil
}

// transport is an opened provider stream with the cancel func that aborts it.
type transport struct {
	ctx    context.Context
	chunks <-chan llm.StreamChunk
	cancel context.CancelFunc
}

// open makes one initiation attempt. The timeout runs on the client's
// clock and cancels the attempt context when it fires.
func (c *Client) open(ctx context.Context, creq llm.CompletionRequest) (*transport, error) {
	actx, cancel := context.WithCancel(ctx)

	var mu sync.Mutex
	timedOut := false
	timer := c.clock.AfterFunc(c.cfg.StreamTimeout, func() {
		mu.Lock()
		timedOut = true
		mu.Unlock()
		cancel()
	})

	chunks, err := c.provider.Stream(actx, creq)
	stopped := timer.Stop()
	if err != nil {
		cancel()
		mu.Lock()
		expired := timedOut
		mu.Unlock()
		if expired && ctx.Err() == nil {
			// err wraps the cancellation the timer caused.
			c.log.Debug("stream initiation timed out", logger.ErrorFields("generation.stream", err))
			return nil, apperrors.Timeout(c.provider.Name())
		}
		return nil, err
	}
	if !stopped {
		mu.Lock()
		expired := timedOut
		mu.Unlock()
		if expired {
			cancel()
			return nil, apperrors.Timeout(c.provider.Name())
		}
	}
	return &transport{ctx: actx, chunks: chunks, cancel: cancel}, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// attemptError turns an attempt deadline into a retryable timeout while
// leaving caller cancellation untouched.
func (c *Client) attemptError(parent, attempt context.Context, err error, mode string) error {
	if parent.Err() == nil && errors.Is(attempt.Err(), context.DeadlineExceeded) && !apperrors.IsAppError(err) {
		return apperrors.Timeout(c.provider.Name() + "." + mode).WithCause(err)
	}
	return err
}

func (c *Client) retryConfig(ctx context.Context, mode string, retries int, timeout time.Duration) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    resilience.Attempts(retries),
		AttemptTimeout: timeout,
		InitialBackoff: c.cfg.RetryBackoff,
		MaxBackoff:     c.cfg.RetryBackoff,
		BackoffFactor:  1,
		RetryIf:        Retryable,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			c.log.Warn("generation attempt failed, retrying", logger.Fields(
				"mode", mode,
				"attempt", attempt,
				"backoff", backoff.String(),
				"code", string(apperrors.CodeOf(err)),
				"error", err.Error(),
			))
			c.recorder.RecordRetry(ctx, mode, err)
		},
	}
}

func (c *Client) startSpan(ctx context.Context, mode string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "generation."+mode, trace.WithAttributes(
		attribute.String("generation.provider", c.provider.Name()),
		attribute.String("generation.mode", mode),
	))
}

// finish records the outcome of a request on the span and the recorder.
func (c *Client) finish(ctx context.Context, span trace.Span, mode string, start time.Time, err error) {
	d := c.clock.Now().Sub(start)
	outcome := Outcome(err)
	span.SetAttributes(attribute.String("generation.outcome", outcome))
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
		c.log.Debug("generation finished", logger.DurationFields("generation."+mode, d))
	case outcome == OutcomeCanceled:
		c.log.Debug("generation canceled", logger.Fields("mode", mode))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.CodeOf(err)))
		c.log.Warn("generation failed", logger.ErrorFields("generation."+mode, err))
	}
	c.recorder.RecordRequest(context.WithoutCancel(ctx), mode, outcome, d)
}

// Retryable reports whether err is worth another attempt: timeouts and
// connection failures only.
func Retryable(err error) bool {
	code := apperrors.CodeOf(err)
	return code == apperrors.ErrCodeTimeout || code == apperrors.ErrCodeConnectionFailed
}

// Outcome names the result of a request for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return strings.ToLower(string(apperrors.CodeOf(err)))
	}
}

// classify maps any error to one of the generation classes. Caller
// cancellation passes through unchanged.
func classify(err error, service string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout(service).WithCause(err)
	default:
		return apperrors.ExternalServiceError(service, err)
	}
}
