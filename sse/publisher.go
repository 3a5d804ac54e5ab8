package sse

import (
	"context"
	"errors"
	"time"

	"github.com/kbukum/livecue/audio"
	"github.com/kbukum/livecue/capture"
	"github.com/kbukum/livecue/clock"
	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/logger"
	"github.com/kbukum/livecue/pipeline"
	"github.com/kbukum/livecue/response"
	"github.com/kbukum/livecue/transcript"
)

// DefaultLevelInterval caps the level feed at 20 frames per second.
const DefaultLevelInterval = 50 * time.Millisecond

// Publisher turns component callbacks into hub events.
type Publisher struct {
	out      Broadcaster
	clock    clock.Clock
	interval time.Duration
	levels   chan audio.Levels
	log      *logger.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithLevelInterval sets the minimum spacing of level frames.
func WithLevelInterval(d time.Duration) PublisherOption {
	return func(p *Publisher) { p.interval = d }
}

// WithClock sets the clock used for level throttling.
func WithClock(c clock.Clock) PublisherOption {
	return func(p *Publisher) { p.clock = c }
}

// WithPublisherLogger sets the logger.
func WithPublisherLogger(l *logger.Logger) PublisherOption {
	return func(p *Publisher) { p.log = l }
}

// NewPublisher creates a publisher writing to out.
func NewPublisher(out Broadcaster, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		out:      out,
		clock:    clock.Real(),
		interval: DefaultLevelInterval,
		levels:   make(chan audio.Levels, 8),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get("sse")
	}
	return p
}

// Attach subscribes the publisher to the controller, aggregator and
// accumulator.
func (p *Publisher) Attach(ctrl *capture.Controller, agg *transcript.Aggregator, acc *response.Accumulator) {
	ctrl.OnStatus(p.Status)
	ctrl.OnLevels(p.Levels)
	agg.OnChange(p.Transcript)
	acc.OnChange(p.Response)
	p.Status(ctrl.Status())
	p.Transcript(agg.CurrentText())
}

// Status publishes a capture status.
func (p *Publisher) Status(v capture.View) {
	p.publish(Event{
		Type:   EventTypeCaptureStatus,
		Retain: "capture",
		Data: StatusPayload{
			Status:   string(v.Status),
			Error:    v.Error,
			Code:     v.Code,
			Restarts: v.Restarts,
			At:       v.At,
		},
	})
}

// Transcript publishes the pending transcript.
func (p *Publisher) Transcript(pr transcript.Projection) {
	p.publish(Event{
		Type:   EventTypeTranscript,
		Retain: "transcript",
		Data:   TranscriptPayload{Final: pr.Final, Interim: pr.Interim},
	})
}

// Response publishes a response transition.
func (p *Publisher) Response(ev response.Event) {
	var typ string
	switch ev.Kind {
	case response.EventStarted:
		typ = EventTypeResponseStarted
	case response.EventDelta:
		typ = EventTypeResponseDelta
	case response.EventCompleted:
		typ = EventTypeResponseCompleted
	case response.EventFailed:
		typ = EventTypeResponseFailed
	default:
		return
	}
	p.publish(Event{Type: typ, Retain: "response", Data: ResponsePayloadOf(ev.State, ev.Delta)})
}

// ResponsePayloadOf renders a response state.
func ResponsePayloadOf(st response.State, delta string) ResponsePayload {
	rp := ResponsePayload{
		RequestID: st.RequestID,
		Delta:     delta,
		Text:      st.Text,
		Complete:  st.Complete,
		TTFTMs:    st.TTFT().Milliseconds(),
	}
	switch {
	case st.Err == nil:
	case errors.Is(st.Err, context.Canceled):
		rp.Error = "Request canceled."
		rp.Code = "CANCELED"
	default:
		rp.Error = apperrors.UserMessage(st.Err)
		rp.Code = string(apperrors.CodeOf(st.Err))
	}
	return rp
}

// Levels queues a spectrum frame. Frames are dropped while the queue is
// full; Run forwards them at most once per interval.
func (p *Publisher) Levels(lv audio.Levels) {
	select {
	case p.levels <- lv:
	default:
	}
}

// Run forwards throttled level frames until ctx ends.
func (p *Publisher) Run(ctx context.Context) error {
	feed := pipeline.Throttle(pipeline.FromChannel(p.levels, nil), p.interval, p.clock)
	err := pipeline.ForEach(ctx, feed, func(_ context.Context, lv audio.Levels) error {
		bins := make([]int, len(lv.Bins))
		for i, b := range lv.Bins {
			bins[i] = int(b)
		}
		p.publish(Event{Type: EventTypeLevels, Data: LevelsPayload{Bins: bins}})
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Publisher) publish(ev Event) {
	if err := p.out.Publish(ev); err != nil {
		p.log.Warn("event not published", logger.ErrorFields("sse.publish", err))
	}
}
