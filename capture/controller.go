package capture

import (
	"context"
	"sync"

	"github.com/kbukum/livecue/audio"
	"github.com/kbukum/livecue/clock"
	"github.com/kbukum/livecue/logger"
	"github.com/kbukum/livecue/transcript"
	"github.com/kbukum/livecue/transcription"
)

// Controller owns one audio handle and one transcription session.
type Controller struct {
	sampler *audio.Sampler
	session *transcription.Session
	agg     *transcript.Aggregator
	clock   clock.Clock
	log     *logger.Logger

	mu       sync.Mutex
	view     View
	active   *acquisition
	onStatus []func(View)
	onLevels []func(audio.Levels)
}

// acquisition is one held microphone and the goroutines draining it.
type acquisition struct {
	handle *audio.Handle
	cancel context.CancelFunc
	pumps  sync.WaitGroup
}

// Option configures a Controller.
type Option func(*controllerOptions)

type controllerOptions struct {
	clock   clock.Clock
	log     *logger.Logger
	session []transcription.Option
}

// WithClock sets the clock for the controller and its session.
func WithClock(c clock.Clock) Option {
	return func(o *controllerOptions) { o.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *controllerOptions) { o.log = l }
}

// WithSessionOptions passes extra options to the transcription session.
func WithSessionOptions(opts ...transcription.Option) Option {
	return func(o *controllerOptions) { o.session = append(o.session, opts...) }
}

// NewController creates an inactive controller. Fragments from engine are
// fed to agg.
func NewController(sampler *audio.Sampler, engine transcription.Engine, agg *transcript.Aggregator, cfg transcription.Config, opts ...Option) *Controller {
	o := controllerOptions{clock: clock.Real()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get("capture")
	}

	c := &Controller{
		sampler: sampler,
		agg:     agg,
		clock:   o.clock,
		log:     o.log,
	}
	c.view = View{Status: StatusInactive, At: c.clock.Now()}

	sessOpts := append([]transcription.Option{
		transcription.WithClock(o.clock),
		transcription.WithHooks(transcription.Hooks{
			OnFragment: agg.Add,
			OnChange:   c.sessionChanged,
		}),
	}, o.session...)
	c.session = transcription.NewSession(engine, cfg, sessOpts...)
	return c
}

// OnStatus registers a listener for status changes.
func (c *Controller) OnStatus(fn func(View)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStatus = append(c.onStatus, fn)
}

// OnLevels registers a listener for spectrum frames.
func (c *Controller) OnLevels(fn func(audio.Levels)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onLevels = append(c.onLevels, fn)
}

// Status returns the current view.
func (c *Controller) Status() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Session returns the transcription session.
func (c *Controller) Session() *transcription.Session { return c.session }

// Start acquires the microphone and starts transcription. A device failure
// sets StatusError and is returned; no restart is scheduled. Calling Start
// while capturing restarts a session whose restart budget ran out.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		c.session.Start()
		return nil
	}
	c.mu.Unlock()

	actx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h, err := c.sampler.Acquire(actx)
	if err != nil {
		cancel()
		c.publish(errorView(err, ""))
		return err
	}

	c.mu.Lock()
	if c.active != nil {
		// Lost a race with a concurrent Start.
		c.mu.Unlock()
		cancel()
		h.Release()
		return nil
	}
	a := &acquisition{handle: h, cancel: cancel}
	a.pumps.Add(2)
	c.active = a
	c.mu.Unlock()

	go c.pumpAudio(a)
	go c.pumpLevels(a)

	c.publish(View{Status: StatusActive})
	c.session.Start()
	c.log.Info("capture started")
	return nil
}

// Stop ends transcription, applies any debounced fragments and releases
// the microphone. It is safe to call repeatedly.
func (c *Controller) Stop() {
	c.session.Stop()
	c.agg.Flush()
	if c.releaseDevice() {
		c.log.Info("capture stopped")
	}
	c.publish(View{Status: StatusInactive})
}

// Clear empties the transcript and dismisses an error status.
func (c *Controller) Clear() {
	c.agg.Clear()
	c.mu.Lock()
	dismiss := c.view.Status == StatusError && c.active == nil
	c.mu.Unlock()
	if dismiss {
		c.publish(View{Status: StatusInactive})
	}
}

// Close stops capture. It implements the shutdown half of a component.
func (c *Controller) Close(context.Context) error {
	c.Stop()
	return nil
}

// releaseDevice gives the microphone back and waits for the pumps. Only
// the caller that detaches the acquisition does the work.
func (c *Controller) releaseDevice() bool {
	c.mu.Lock()
	a := c.active
	c.active = nil
	c.mu.Unlock()
	if a == nil {
		return false
	}
	a.cancel()
	a.handle.Release()
	a.pumps.Wait()
	return true
}

func (c *Controller) pumpAudio(a *acquisition) {
	defer a.pumps.Done()
	h := a.handle
	for chunk := range h.Audio() {
		if err := c.session.SendAudio(chunk); err != nil {
			c.log.Debug("audio chunk not delivered", logger.ErrorFields("send_audio", err))
		}
	}

	// The channel closes on release; an error means the device failed
	// under us rather than a Stop.
	if err := h.Err(); err != nil {
		go c.deviceFailed(a, err)
	}
}

func (c *Controller) pumpLevels(a *acquisition) {
	defer a.pumps.Done()
	for lv := range a.handle.Levels() {
		c.mu.Lock()
		ls := c.onLevels
		c.mu.Unlock()
		for _, fn := range ls {
			fn(lv)
		}
	}
}

func (c *Controller) deviceFailed(a *acquisition, err error) {
	c.mu.Lock()
	current := c.active == a
	c.mu.Unlock()
	if !current {
		return
	}
	c.log.Error("audio device failed, stopping capture", logger.ErrorFields("capture", err))
	c.releaseDevice()
	c.session.Stop()
	c.agg.Flush()
	c.publish(errorView(err, ""))
}

// sessionChanged maps session snapshots to the published status. A fatal
// engine error also releases the microphone.
func (c *Controller) sessionChanged(snap transcription.Snapshot) {
	v, ok := viewOf(snap)
	if !ok {
		return
	}
	c.mu.Lock()
	capturing := c.active != nil
	c.mu.Unlock()
	if !capturing && v.Status != StatusError {
		return
	}
	if snap.Fatal {
		c.releaseDevice()
	}
	c.publish(v)
}

func (c *Controller) publish(v View) {
	c.mu.Lock()
	v.At = c.clock.Now()
	if v.Status == c.view.Status && v.Error == c.view.Error && v.Restarts == c.view.Restarts {
		c.mu.Unlock()
		return
	}
	c.view = v
	ls := c.onStatus
	c.mu.Unlock()

	if v.Status == StatusError {
		c.log.Warn("capture error", logger.Fields(logger.FieldStatus, string(v.Status), "code", v.Code, logger.FieldError, v.Error))
	}
	for _, fn := range ls {
		fn(v)
	}
}
