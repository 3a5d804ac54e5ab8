// Package transcript merges interim and final fragments into the pending
// transcript that a submit sends for generation.
package transcript

import (
	"strings"
	"sync"
	"time"

	"github.com/kbukum/livecue/clock"
	"github.com/kbukum/livecue/logger"
	"github.com/kbukum/livecue/transcription"
)

// DefaultDebounce is the trailing-edge window applied to incoming fragments.
const DefaultDebounce = 300 * time.Millisecond

// Projection is the transcript as shown to the user. Interim is the
// still-speaking suffix and is not part of the submitted text by default.
type Projection struct {
	Final   string `json:"final"`
	Interim string `json:"interim"`
}

// Text renders the projection as one string.
func (p Projection) Text() string { return p.Final + p.Interim }

// Snapshot is the raw aggregated state.
type Snapshot struct {
	Finalized      []string `json:"finalized"`
	PendingInterim string   `json:"pending_interim"`
}

// Listener receives the projection after every applied batch.
type Listener func(Projection)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.debounce = d
		}
	}
}

// WithClock sets the clock driving the debounce timer.
func WithClock(c clock.Clock) Option {
	return func(a *Aggregator) { a.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

// Aggregator collects fragments. Fragments are queued and applied together,
// in arrival order, once no new fragment has arrived for the debounce
// window. A single timer is rescheduled on every Add.
type Aggregator struct {
	clock    clock.Clock
	log      *logger.Logger
	debounce time.Duration

	mu        sync.Mutex
	finalized []string
	interim   string
	queue     []transcription.Fragment
	timer     clock.Timer
	gen       uint64
	listeners []Listener
}

// New creates an empty aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{clock: clock.Real(), debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Get("transcript")
	}
	return a
}

// OnChange registers a listener.
func (a *Aggregator) OnChange(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, l)
}

// Add queues a fragment and restarts the debounce window.
func (a *Aggregator) Add(f transcription.Fragment) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queue = append(a.queue, f)
	a.stopTimerLocked()
	gen := a.gen
	a.timer = a.clock.AfterFunc(a.debounce, func() { a.fire(gen) })
}

// Flush applies queued fragments now.
func (a *Aggregator) Flush() {
	a.mu.Lock()
	a.stopTimerLocked()
	if len(a.queue) == 0 {
		a.mu.Unlock()
		return
	}
	p, ls := a.applyLocked()
	a.mu.Unlock()
	notify(ls, p)
}

// Clear empties the transcript and drops queued fragments.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	a.stopTimerLocked()
	a.queue = nil
	a.finalized = nil
	a.interim = ""
	p, ls := a.projectionLocked(), a.listeners
	a.mu.Unlock()
	notify(ls, p)
}

// CurrentText returns the finalized text and the pending interim suffix.
func (a *Aggregator) CurrentText() Projection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.projectionLocked()
}

// Snapshot returns a copy of the aggregated state.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		Finalized:      append([]string(nil), a.finalized...),
		PendingInterim: a.interim,
	}
}

// Pending returns the number of queued fragments.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

type submitOptions struct {
	interim bool
}

// SubmitOption adjusts SubmitText.
type SubmitOption func(*submitOptions)

// WithInterim includes the pending interim text.
func WithInterim() SubmitOption {
	return func(o *submitOptions) { o.interim = true }
}

// SubmitText returns the trimmed text to send for generation and true, or
// "" and false when there is nothing to submit. It changes nothing.
func (a *Aggregator) SubmitText(opts ...SubmitOption) (string, bool) {
	o := submitOpts(opts)
	a.mu.Lock()
	text := a.submitTextLocked(o)
	a.mu.Unlock()
	return text, text != ""
}

// Take applies queued fragments, then returns the submit text and removes
// exactly what it returned, all under one lock. Fragments added afterwards
// stay pending. The interim text is kept unless WithInterim is given.
func (a *Aggregator) Take(opts ...SubmitOption) (string, bool) {
	o := submitOpts(opts)
	a.mu.Lock()
	a.stopTimerLocked()
	if len(a.queue) > 0 {
		a.applyLocked()
	}
	text := a.submitTextLocked(o)
	if text == "" {
		a.mu.Unlock()
		return "", false
	}
	a.finalized = nil
	if o.interim {
		a.interim = ""
	}
	p, ls := a.projectionLocked(), a.listeners
	a.mu.Unlock()
	notify(ls, p)
	return text, true
}

func submitOpts(opts []SubmitOption) submitOptions {
	var o submitOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (a *Aggregator) submitTextLocked(o submitOptions) string {
	text := strings.Join(a.finalized, "")
	if o.interim && a.interim != "" {
		if text != "" && !strings.HasSuffix(text, " ") {
			text += " "
		}
		text += a.interim
	}
	return strings.TrimSpace(text)
}

func (a *Aggregator) fire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	p, ls := a.applyLocked()
	a.mu.Unlock()
	notify(ls, p)
}

// applyLocked folds the queue into the transcript.
func (a *Aggregator) applyLocked() (Projection, []Listener) {
	for _, f := range a.queue {
		if f.IsFinal() {
			if strings.TrimSpace(f.Text) != "" {
				a.finalized = append(a.finalized, f.Text)
			}
			a.interim = ""
			continue
		}
		a.interim = strings.TrimSpace(f.Text)
	}
	a.log.Debug("applied transcript fragments", logger.Fields(
		"count", len(a.queue),
		"finalized", len(a.finalized),
	))
	a.queue = nil
	return a.projectionLocked(), a.listeners
}

func (a *Aggregator) projectionLocked() Projection {
	return Projection{Final: strings.Join(a.finalized, ""), Interim: a.interim}
}

// stopTimerLocked cancels the pending window and invalidates a callback
// that may already be waiting for the lock.
func (a *Aggregator) stopTimerLocked() {
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func notify(ls []Listener, p Projection) {
	for _, l := range ls {
		l(p)
	}
}
