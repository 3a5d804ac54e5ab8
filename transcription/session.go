package transcription

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/livecue/clock"
	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/logger"
)

// EngineState is the lifecycle state of a Session.
type EngineState int

const (
	StateIdle EngineState = iota
	StateStarting
	StateActive
	StateRestarting
	StateStopped
)

func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateRestarting:
		return "restarting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// silenceSlack pushes a deferred restart check strictly past the threshold.
const silenceSlack = time.Millisecond

// Snapshot is a consistent view of a Session.
type Snapshot struct {
	State   EngineState
	Running bool
	Budget  RestartBudget
	// Restarts counts restarts taken from the budget since the last Start.
	Restarts int
	// Suppressed counts restarts refused by the budget since the last Start.
	Suppressed int
	// TotalRestarts and TotalSuppressed never reset.
	TotalRestarts   int
	TotalSuppressed int
	// LastError is the most recent engine error.
	LastError error
	// Fatal is set when a device error stopped the session.
	Fatal bool
	// Exhausted is set while the session waits for a budget reset.
	Exhausted bool
}

// Hooks receive session output. They run outside the session lock on
// engine or timer goroutines.
type Hooks struct {
	OnFragment func(Fragment)
	OnChange   func(Snapshot)
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the clock driving all session timers.
func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithHooks sets the output hooks.
func WithHooks(h Hooks) Option {
	return func(s *Session) { s.hooks = h }
}

// Session keeps one engine stream running until stopped.
//
// Every timer callback carries the generation it was scheduled under and
// every stream callback carries its stream sequence; both are re-checked
// under the lock when they fire, so work scheduled before a Stop or a new
// Start never takes effect.
type Session struct {
	engine Engine
	cfg    Config
	clock  clock.Clock
	log    *logger.Logger
	hooks  Hooks

	mu             sync.Mutex
	state          EngineState
	keepRunning    bool
	gen            uint64
	timer          clock.Timer
	resetTimer     clock.Timer
	restartPending bool
	budget         RestartBudget
	lastSpeechAt   time.Time
	streamSeq      uint64
	stream         Stream
	cancelStream   context.CancelFunc
	pumpDone       chan struct{}
	lastErr        error
	fatal          bool
	exhausted      bool
	restarts       int
	suppressed     int
	totalRestarts  int
	totalSupp      int
}

// NewSession creates an idle session.
func NewSession(engine Engine, cfg Config, opts ...Option) *Session {
	cfg.ApplyDefaults()
	s := &Session{engine: engine, cfg: cfg, clock: clock.Real()}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get("transcription")
	}
	s.log = s.log.WithFields(logger.Fields(logger.FieldProvider, engine.Name()))
	return s
}

// Start begins listening after the start delay. It is a no-op while the
// session is already starting, active or restarting. From any other state,
// including an exhausted budget or a fatal stop, it resets the budget and
// starts over.
func (s *Session) Start() {
	s.mu.Lock()
	if s.keepRunning && (s.state == StateStarting || s.state == StateActive || s.state == StateRestarting) {
		s.mu.Unlock()
		return
	}
	s.stopTimersLocked()
	s.gen++
	s.keepRunning = true
	s.restartPending = false
	s.budget = RestartBudget{}
	s.lastErr = nil
	s.fatal = false
	s.exhausted = false
	s.restarts, s.suppressed = 0, 0
	s.state = StateStarting
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.cfg.StartDelay, func() { s.open(gen) })
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Debug("transcription session starting", logger.Fields(logger.FieldState, snap.State.String()))
	s.notify(snap)
}

// Stop tears the session down and cancels every pending timer. Calling it
// again is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == StateStopped && !s.keepRunning {
		s.mu.Unlock()
		return
	}
	s.keepRunning = false
	s.gen++
	s.streamSeq++
	s.stopTimersLocked()
	s.restartPending = false
	s.exhausted = false
	stream, cancel := s.detachLocked()
	s.state = StateStopped
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		_ = stream.Close()
	}
	s.log.Info("transcription session stopped")
	s.notify(snap)
}

// SendAudio forwards audio to the current stream. Audio arriving while no
// stream is open is dropped.
func (s *Session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return nil
	}
	return stream.SendAudio(chunk)
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State returns the current engine state.
func (s *Session) State() EngineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// open starts a new engine stream once the previous one has fully ended.
func (s *Session) open(gen uint64) {
	s.mu.Lock()
	if !s.keepRunning || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.restartPending = false
	s.state = StateStarting
	prev := s.pumpDone
	s.mu.Unlock()

	if prev != nil {
		<-prev
	}

	s.mu.Lock()
	if !s.keepRunning || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.streamSeq++
	seq := s.streamSeq
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelStream = cancel
	done := make(chan struct{})
	s.pumpDone = done
	s.mu.Unlock()

	stream, err := s.engine.Open(ctx, s.cfg.Stream)

	s.mu.Lock()
	if seq != s.streamSeq {
		s.mu.Unlock()
		cancel()
		if stream != nil {
			_ = stream.Close()
		}
		close(done)
		return
	}
	if err != nil {
		s.mu.Unlock()
		close(done)
		s.log.Warn("failed to open transcription stream", logger.ErrorFields("open", err))
		if apperrors.IsDeviceError(err) {
			s.fail(seq, err)
			return
		}
		s.end(seq, err)
		return
	}
	s.stream = stream
	s.mu.Unlock()

	go s.pump(seq, stream, done)
}

// pump delivers stream events in arrival order.
func (s *Session) pump(seq uint64, stream Stream, done chan struct{}) {
	defer close(done)

	var endErr error
loop:
	for ev := range stream.Events() {
		switch ev.Type {
		case EventReady:
			s.ready(seq)
		case EventFragment:
			s.fragment(seq, ev.Fragment)
		case EventError:
			endErr = ev.Err
			if apperrors.IsDeviceError(ev.Err) {
				s.fail(seq, ev.Err)
			}
		case EventEnd:
			break loop
		}
	}
	_ = stream.Close()
	s.end(seq, endErr)
}

func (s *Session) ready(seq uint64) {
	s.mu.Lock()
	if seq != s.streamSeq {
		s.mu.Unlock()
		return
	}
	s.state = StateActive
	s.lastSpeechAt = s.clock.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Session) fragment(seq uint64, f Fragment) {
	s.mu.Lock()
	if seq != s.streamSeq {
		s.mu.Unlock()
		return
	}
	now := s.clock.Now()
	s.lastSpeechAt = now
	if f.ObservedAt.IsZero() {
		f.ObservedAt = now
	}
	var snap *Snapshot
	if s.state == StateStarting {
		s.state = StateActive
		v := s.snapshotLocked()
		snap = &v
	}
	s.mu.Unlock()

	if snap != nil {
		s.notify(*snap)
	}
	if s.hooks.OnFragment != nil {
		s.hooks.OnFragment(f)
	}
}

// fail stops the session after a device error. No restart is attempted.
func (s *Session) fail(seq uint64, err error) {
	s.mu.Lock()
	if seq != s.streamSeq {
		s.mu.Unlock()
		return
	}
	s.keepRunning = false
	s.gen++
	s.streamSeq++
	s.stopTimersLocked()
	s.restartPending = false
	stream, cancel := s.detachLocked()
	s.lastErr = err
	s.fatal = true
	s.state = StateStopped
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		_ = stream.Close()
	}
	s.log.Error("transcription stopped by device error", logger.ErrorFields("listen", err))
	s.notify(snap)
}

// end handles the end of stream seq, restarting it when still wanted.
func (s *Session) end(seq uint64, err error) {
	s.mu.Lock()
	if seq != s.streamSeq {
		s.mu.Unlock()
		return
	}
	_, cancel := s.detachLocked()
	if cancel != nil {
		cancel()
	}
	if err != nil {
		s.lastErr = err
	}
	if !s.keepRunning || s.restartPending {
		s.state = StateIdle
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return
	}
	s.state = StateRestarting
	s.restartPending = true
	delay := s.cfg.RestartDelay
	if apperrors.IsNetworkError(err) {
		delay = s.cfg.NetworkRestartDelay
	}
	s.decideLocked(delay)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// decideLocked applies the silence threshold and the restart budget.
func (s *Session) decideLocked(delay time.Duration) {
	now := s.clock.Now()
	gen := s.gen

	if silence := now.Sub(s.lastSpeechAt); silence <= s.cfg.SilenceThreshold {
		wait := s.cfg.SilenceThreshold - silence + silenceSlack
		s.timer = s.clock.AfterFunc(wait, func() { s.recheck(gen, delay) })
		s.log.Debug("deferring restart until silence", logger.DurationFields("restart", wait))
		return
	}

	if s.budget.Exhausted(now, s.cfg.MaxRestarts, s.cfg.RestartWindow) {
		s.state = StateIdle
		s.restartPending = false
		s.exhausted = true
		s.suppressed++
		s.totalSupp++
		if s.resetTimer == nil {
			s.resetTimer = s.clock.AfterFunc(s.cfg.ResetDelay, func() { s.resetBudget(gen) })
		}
		s.log.Warn("restart budget exhausted", logger.Fields(
			"restarts", s.budget.Count,
			"suppressed", s.suppressed,
			"reset_in_ms", s.cfg.ResetDelay.Milliseconds(),
		))
		return
	}

	s.budget.take(now, s.cfg.MaxRestarts)
	s.restarts++
	s.totalRestarts++
	s.timer = s.clock.AfterFunc(delay, func() { s.open(gen) })
	s.log.Info("restarting transcription", logger.Fields(
		logger.FieldAttempt, s.budget.Count,
		"delay_ms", delay.Milliseconds(),
	))
}

func (s *Session) recheck(gen uint64, delay time.Duration) {
	s.mu.Lock()
	if gen != s.gen || !s.keepRunning || s.state != StateRestarting {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.decideLocked(delay)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

// resetBudget clears an exhausted budget and resumes listening if the
// session is still wanted and idle.
func (s *Session) resetBudget(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.resetTimer = nil
	s.budget = RestartBudget{}
	s.exhausted = false
	resume := s.keepRunning && s.state == StateIdle && s.stream == nil && !s.restartPending
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info("restart budget reset", logger.Fields("resume", resume))
	s.notify(snap)
	if resume {
		s.open(gen)
	}
}

func (s *Session) stopTimersLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
}

func (s *Session) detachLocked() (Stream, context.CancelFunc) {
	stream, cancel := s.stream, s.cancelStream
	s.stream, s.cancelStream = nil, nil
	return stream, cancel
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		State:           s.state,
		Running:         s.keepRunning,
		Budget:          s.budget,
		Restarts:        s.restarts,
		Suppressed:      s.suppressed,
		TotalRestarts:   s.totalRestarts,
		TotalSuppressed: s.totalSupp,
		LastError:       s.lastErr,
		Fatal:           s.fatal,
		Exhausted:       s.exhausted,
	}
}

func (s *Session) notify(snap Snapshot) {
	if s.hooks.OnChange != nil {
		s.hooks.OnChange(snap)
	}
}
