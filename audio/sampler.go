package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kbukum/livecue/clock"
	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/logger"
)

var errDeviceBusy = errors.New("capture device is already acquired")

// Config controls capture and analysis.
type Config struct {
	Format Format `yaml:"format" mapstructure:"format"`
	// FFTSize is the analysis frame length in samples. It must be a power
	// of two; the spectrum has FFTSize/2 bins.
	FFTSize int `yaml:"fft_size" mapstructure:"fft_size" validate:"gte=0"`
	// Smoothing is the time constant applied between frames, 0..1. Unset
	// means 0.8; an explicit 0 disables smoothing.
	Smoothing   *float64 `yaml:"smoothing" mapstructure:"smoothing" validate:"omitempty,gte=0,lte=1"`
	MinDecibels float64  `yaml:"min_decibels" mapstructure:"min_decibels"`
	MaxDecibels float64  `yaml:"max_decibels" mapstructure:"max_decibels"`
	// AudioBuffer is the number of PCM chunks buffered for the consumer.
	AudioBuffer int `yaml:"audio_buffer" mapstructure:"audio_buffer" validate:"gte=0"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Format.SampleRate <= 0 {
		c.Format.SampleRate = 16000
	}
	if c.Format.Channels <= 0 {
		c.Format.Channels = 1
	}
	if c.FFTSize <= 0 || c.FFTSize&(c.FFTSize-1) != 0 {
		c.FFTSize = 256
	}
	if c.Smoothing == nil {
		c.Smoothing = Smoothing(0.8)
	}
	if c.MinDecibels == 0 {
		c.MinDecibels = -100
	}
	if c.MaxDecibels == 0 {
		c.MaxDecibels = -30
	}
	if c.AudioBuffer <= 0 {
		c.AudioBuffer = 64
	}
}

// Smoothing returns v for Config.Smoothing.
func Smoothing(v float64) *float64 { return &v }

// Levels is one spectrum frame.
type Levels struct {
	Bins []uint8   `json:"bins"`
	At   time.Time `json:"at"`
}

// Sampler grants exclusive access to one device.
type Sampler struct {
	device Device
	cfg    Config
	clock  clock.Clock
	log    *logger.Logger

	mu   sync.Mutex
	held *Handle
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithClock sets the clock used to timestamp levels.
func WithClock(c clock.Clock) Option {
	return func(s *Sampler) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Sampler) { s.log = l }
}

// NewSampler creates a sampler for device.
func NewSampler(device Device, cfg Config, opts ...Option) *Sampler {
	cfg.ApplyDefaults()
	s := &Sampler{device: device, cfg: cfg, clock: clock.Real()}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get("audio")
	}
	return s
}

// Format returns the PCM format handles produce.
func (s *Sampler) Format() Format { return s.cfg.Format }

// Acquired reports whether a handle currently holds the device.
func (s *Sampler) Acquired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held != nil
}

// Acquire opens the device. It fails with DeviceUnavailable while another
// handle holds it. The handle is released automatically when ctx ends.
func (s *Sampler) Acquire(ctx context.Context) (*Handle, error) {
	h := &Handle{
		sampler: s,
		levels:  make(chan Levels, 1),
		audio:   make(chan []byte, s.cfg.AudioBuffer),
		done:    make(chan struct{}),
	}

	s.mu.Lock()
	if s.held != nil {
		s.mu.Unlock()
		return nil, apperrors.DeviceUnavailable(errDeviceBusy)
	}
	s.held = h
	s.mu.Unlock()

	hctx, cancel := context.WithCancel(ctx)
	src, err := s.device.Open(hctx, s.cfg.Format)
	if err != nil {
		cancel()
		s.free(h)
		if !apperrors.IsDeviceError(err) {
			err = apperrors.DeviceUnavailable(err)
		}
		s.log.Warn("audio device acquire failed", logger.ErrorFields("acquire", err))
		return nil, err
	}
	h.src = src
	h.cancel = cancel

	go h.run(NewAnalyzer(s.cfg.FFTSize, *s.cfg.Smoothing, s.cfg.MinDecibels, s.cfg.MaxDecibels))
	go func() {
		select {
		case <-hctx.Done():
			h.release()
		case <-h.done:
		}
	}()

	s.log.Info("audio device acquired", logger.Fields(
		"sample_rate", s.cfg.Format.SampleRate,
		"fft_size", s.cfg.FFTSize,
	))
	return h, nil
}

func (s *Sampler) free(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held == h {
		s.held = nil
	}
}

// Handle is an acquired device.
type Handle struct {
	sampler *Sampler
	src     io.ReadCloser
	cancel  context.CancelFunc

	levels chan Levels
	audio  chan []byte
	done   chan struct{}

	releaseOnce sync.Once
	released    atomic.Bool
	err         atomic.Pointer[error]
	dropped     atomic.Uint64
}

// Levels returns spectrum frames. Slow consumers see the latest frame
// only. The channel closes on release.
func (h *Handle) Levels() <-chan Levels { return h.levels }

// Audio returns raw PCM chunks, one per analysis frame. Chunks are dropped
// when the consumer falls behind. The channel closes on release.
func (h *Handle) Audio() <-chan []byte { return h.audio }

// Done is closed once the device has been released and the reader stopped.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the device error that ended capture, if any.
func (h *Handle) Err() error {
	if p := h.err.Load(); p != nil {
		return *p
	}
	return nil
}

// Dropped returns the number of PCM chunks dropped.
func (h *Handle) Dropped() uint64 { return h.dropped.Load() }

// Release gives the device back and waits for the reader to stop. It is
// safe to call more than once.
func (h *Handle) Release() {
	h.release()
	<-h.done
}

func (h *Handle) release() {
	h.releaseOnce.Do(func() {
		h.released.Store(true)
		h.cancel()
		if err := h.src.Close(); err != nil {
			h.sampler.log.Debug("audio source close failed", logger.ErrorFields("release", err))
		}
		h.sampler.free(h)
		h.sampler.log.Info("audio device released")
	})
}

func (h *Handle) run(an *Analyzer) {
	defer close(h.done)
	defer close(h.audio)
	defer close(h.levels)
	defer h.release()

	channels := h.sampler.cfg.Format.Channels
	frameBytes := an.size * 2 * channels
	samples := make([]int16, an.size)
	for {
		buf := make([]byte, frameBytes)
		if _, err := io.ReadFull(h.src, buf); err != nil {
			if !h.released.Load() {
				if !apperrors.IsDeviceError(err) {
					err = apperrors.DeviceUnavailable(err)
				}
				h.err.Store(&err)
				h.sampler.log.Error("audio device read failed", logger.ErrorFields("read", err))
			}
			return
		}

		select {
		case h.audio <- buf:
		default:
			h.dropped.Add(1)
		}

		downmix(buf, channels, samples)
		lv := Levels{Bins: an.Analyze(samples), At: h.sampler.clock.Now()}
		select {
		case h.levels <- lv:
		default:
			select {
			case <-h.levels:
			default:
			}
			select {
			case h.levels <- lv:
			default:
			}
		}
	}
}

// downmix decodes interleaved 16-bit little endian frames from buf into
// out, averaging the channels of each frame.
func downmix(buf []byte, channels int, out []int16) {
	for i := range out {
		var sum int
		for ch := 0; ch < channels; ch++ {
			sum += int(int16(binary.LittleEndian.Uint16(buf[2*(i*channels+ch):])))
		}
		out[i] = int16(sum / channels)
	}
}
