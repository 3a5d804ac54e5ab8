package generation

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/livecue/clock"
	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/llm"
	"github.com/kbukum/livecue/logger"
	"github.com/kbukum/livecue/pipeline"
)

// Stream is an open streaming response. It yields non-empty deltas in
// arrival order and ends with (zero, false, nil) when the provider is done.
// It is not restartable. Close must be called to release the transport.
type Stream struct {
	client    *Client
	ctx       context.Context
	span      trace.Span
	startedAt time.Time

	iter      pipeline.Iterator[Delta]
	transport *transport

	mu       sync.Mutex
	warn     clock.Timer
	firstAt  time.Time
	slow     bool
	sawDone  bool
	finished bool
}

var _ pipeline.Iterator[Delta] = (*Stream)(nil)

func newStream(c *Client, ctx context.Context, span trace.Span) *Stream {
	s := &Stream{
		client:    c,
		ctx:       ctx,
		span:      span,
		startedAt: c.clock.Now(),
	}
	s.warn = c.clock.AfterFunc(c.cfg.FirstTokenWarning, s.firstTokenLate)
	return s
}

func (s *Stream) attach(t *transport) {
	s.transport = t
	p := pipeline.FromChannel(t.chunks, func() error {
		t.cancel()
		return nil
	})
	p = pipeline.Tap(p, func(_ context.Context, ch llm.StreamChunk) error {
		if ch.Done {
			s.mu.Lock()
			s.sawDone = true
			s.mu.Unlock()
		}
		return nil
	})
	deltas := pipeline.Map(p, func(_ context.Context, ch llm.StreamChunk) (Delta, error) {
		if ch.Err != nil {
			return Delta{}, ch.Err
		}
		return Delta{Text: ch.Content, At: s.client.clock.Now()}, nil
	})
	deltas = pipeline.Filter(deltas, func(d Delta) bool { return d.Text != "" })
	deltas = pipeline.OnFirst(deltas, func(_ context.Context, d Delta) { s.firstToken(d.At) })
	s.iter = deltas.Iter(s.ctx)
}

// Next returns the next delta. Errors are classified application errors, or
// context.Canceled when the caller cancelled or closed the stream.
func (s *Stream) Next(ctx context.Context) (Delta, bool, error) {
	d, ok, err := s.iter.Next(ctx)
	if ok {
		return d, true, nil
	}
	if err == nil {
		s.mu.Lock()
		done := s.sawDone
		s.mu.Unlock()
		if !done {
			err = s.endedEarly()
		}
	}
	err = classify(err, s.client.provider.Name())
	s.fail(err)
	return Delta{}, false, err
}

// endedEarly explains a channel that closed without a terminal chunk.
func (s *Stream) endedEarly() error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if s.transport.ctx.Err() != nil {
		return context.Canceled
	}
	return apperrors.ConnectionFailed(s.client.provider.Name())
}

// Close aborts the transport if still open. It is safe to call repeatedly.
func (s *Stream) Close() error {
	var err error
	if s.iter != nil {
		err = s.iter.Close()
	}
	s.fail(context.Canceled)
	return err
}

// TTFT returns the time to first token and whether one has arrived.
func (s *Stream) TTFT() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firstAt.IsZero() {
		return 0, false
	}
	return s.firstAt.Sub(s.startedAt), true
}

// Slow reports whether the first token missed the warning threshold.
func (s *Stream) Slow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slow
}

// StartedAt returns when the request was issued.
func (s *Stream) StartedAt() time.Time { return s.startedAt }

func (s *Stream) firstToken(at time.Time) {
	s.mu.Lock()
	if !s.firstAt.IsZero() {
		s.mu.Unlock()
		return
	}
	s.firstAt = at
	ttft := at.Sub(s.startedAt)
	s.warn.Stop()
	s.mu.Unlock()

	s.span.SetAttributes(attribute.Int64("generation.ttft_ms", ttft.Milliseconds()))
	s.client.recorder.RecordFirstToken(context.WithoutCancel(s.ctx), ttft)
	s.client.log.Debug("first token", logger.DurationFields("generation.ttft", ttft))
}

func (s *Stream) firstTokenLate() {
	s.mu.Lock()
	if s.finished || !s.firstAt.IsZero() {
		s.mu.Unlock()
		return
	}
	s.slow = true
	s.mu.Unlock()

	threshold := s.client.cfg.FirstTokenWarning
	s.client.log.Warn("slow first token", logger.Fields(
		"provider", s.client.provider.Name(),
		"threshold", threshold.String(),
	))
	s.client.recorder.RecordSlowFirstToken(context.WithoutCancel(s.ctx))
}

// fail ends the stream once, with err or nil for a clean finish.
func (s *Stream) fail(err error) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.warn.Stop()
	s.mu.Unlock()

	if s.transport != nil {
		s.transport.cancel()
	}
	s.client.finish(s.ctx, s.span, ModeStream, s.startedAt, err)
	s.span.End()
}
