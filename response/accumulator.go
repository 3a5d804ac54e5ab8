package response

import (
	"strings"
	"sync"
	"time"

	"github.com/kbukum/livecue/clock"
	"github.com/kbukum/livecue/logger"
)

// Accumulator holds at most one live response and grows it from streamed
// deltas. Every mutation names a request id; mutations for any id other
// than the live one are dropped.
type Accumulator struct {
	clock clock.Clock
	log   *logger.Logger

	mu        sync.Mutex
	lastID    uint64
	state     State
	text      strings.Builder
	stale     uint64
	listeners []Listener
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithClock sets the clock used for timestamps.
func WithClock(c clock.Clock) Option {
	return func(a *Accumulator) { a.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Accumulator) { a.log = l }
}

// New creates an empty accumulator.
func New(opts ...Option) *Accumulator {
	a := &Accumulator{clock: clock.Real()}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Get("response")
	}
	a.state.Complete = true
	return a
}

// OnChange registers a listener.
func (a *Accumulator) OnChange(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// Start replaces the live response with a fresh one and returns its id.
// Ids increase monotonically for the lifetime of the accumulator.
func (a *Accumulator) Start() uint64 {
	a.mu.Lock()
	a.lastID++
	a.text.Reset()
	a.state = State{RequestID: a.lastID, StartedAt: a.clock.Now()}
	ev := Event{Kind: EventStarted, State: a.state}
	ls := a.listeners
	a.mu.Unlock()

	notify(ls, ev)
	return ev.State.RequestID
}

// Append adds delta to the live response. It reports whether the delta was
// applied; stale ids and completed responses are ignored.
func (a *Accumulator) Append(id uint64, delta string) bool {
	a.mu.Lock()
	if !a.liveLocked(id, "append") {
		a.mu.Unlock()
		return false
	}
	if delta == "" {
		a.mu.Unlock()
		return true
	}
	if a.state.FirstTokenAt == nil {
		now := a.clock.Now()
		a.state.FirstTokenAt = &now
	}
	a.text.WriteString(delta)
	a.state.Text = a.text.String()
	ev := Event{Kind: EventDelta, Delta: delta, State: a.state}
	ls := a.listeners
	a.mu.Unlock()

	notify(ls, ev)
	return true
}

// Complete marks the live response complete. Only the first call for an id
// has any effect.
func (a *Accumulator) Complete(id uint64) bool {
	return a.finish(id, nil)
}

// Fail completes the live response with err. The text received so far is
// kept.
func (a *Accumulator) Fail(id uint64, err error) bool {
	return a.finish(id, err)
}

func (a *Accumulator) finish(id uint64, err error) bool {
	a.mu.Lock()
	op := "complete"
	if err != nil {
		op = "fail"
	}
	if !a.liveLocked(id, op) {
		a.mu.Unlock()
		return false
	}
	now := a.clock.Now()
	a.state.Complete = true
	a.state.CompletedAt = &now
	a.state.Err = err
	kind := EventCompleted
	if err != nil {
		kind = EventFailed
	}
	ev := Event{Kind: kind, State: a.state}
	ls := a.listeners
	a.mu.Unlock()

	notify(ls, ev)
	return true
}

// liveLocked reports whether id names the live, incomplete response.
func (a *Accumulator) liveLocked(id uint64, op string) bool {
	if id == a.state.RequestID && !a.state.Complete {
		return true
	}
	a.stale++
	a.log.Debug("dropping stale response update", logger.Fields(
		logger.FieldOperation, op,
		logger.FieldRequestID, id,
		"live_request_id", a.state.RequestID,
		"live_complete", a.state.Complete,
	))
	return false
}

// Snapshot returns the live response.
func (a *Accumulator) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// CurrentID returns the id of the most recently started response, or 0.
func (a *Accumulator) CurrentID() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastID
}

// StaleCount returns how many updates were dropped.
func (a *Accumulator) StaleCount() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stale
}

// Elapsed returns how long the live response has been running, or how long
// it ran if complete.
func (a *Accumulator) Elapsed() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.RequestID == 0 {
		return 0
	}
	if a.state.CompletedAt != nil {
		return a.state.CompletedAt.Sub(a.state.StartedAt)
	}
	return a.clock.Now().Sub(a.state.StartedAt)
}

func notify(ls []Listener, ev Event) {
	for _, l := range ls {
		l(ev)
	}
}
