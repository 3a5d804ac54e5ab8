package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/process"
)

// FFmpegDevice captures from an OS input through an ffmpeg subprocess that
// writes raw PCM to stdout.
type FFmpegDevice struct {
	// Binary defaults to "ffmpeg".
	Binary string `yaml:"binary" mapstructure:"binary"`
	// InputFormat is the ffmpeg input device format, e.g. "pulse", "alsa"
	// or "avfoundation".
	InputFormat string `yaml:"input_format" mapstructure:"input_format" validate:"required"`
	// Input names the device, e.g. "default" or ":0".
	Input string `yaml:"input" mapstructure:"input" validate:"required"`
	// GracePeriod bounds the wait for ffmpeg to exit on release.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
}

var _ Device = (*FFmpegDevice)(nil)

// Args returns the ffmpeg command line for format.
func (d *FFmpegDevice) Args(format Format) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-f", d.InputFormat, "-i", d.Input,
		"-ac", strconv.Itoa(format.Channels),
		"-ar", strconv.Itoa(format.SampleRate),
		"-f", "s16le", "-acodec", "pcm_s16le", "-",
	}
}

// Prober is a Device that can check its backend before the first Open.
type Prober interface {
	Probe(ctx context.Context) (string, error)
}

var _ Prober = (*FFmpegDevice)(nil)

func (d *FFmpegDevice) binary() string {
	if d.Binary == "" {
		return "ffmpeg"
	}
	return d.Binary
}

// Probe runs "ffmpeg -version" and returns the first line of its output.
func (d *FFmpegDevice) Probe(ctx context.Context) (string, error) {
	res, err := process.Run(ctx, process.Command{
		Binary:      d.binary(),
		Args:        []string{"-hide_banner", "-version"},
		GracePeriod: time.Second,
	})
	if err != nil {
		return "", apperrors.DeviceUnavailable(fmt.Errorf("ffmpeg probe: %w", err))
	}
	return res.FirstLine(), nil
}

// Open starts ffmpeg. A missing binary or an input that fails before the
// first byte is reported as a device error.
func (d *FFmpegDevice) Open(ctx context.Context, format Format) (io.ReadCloser, error) {
	binary := d.binary()
	if _, err := exec.LookPath(binary); err != nil {
		return nil, apperrors.DeviceUnavailable(fmt.Errorf("ffmpeg not found: %w", err))
	}

	stream, err := process.Start(ctx, process.Command{
		Binary:      binary,
		Args:        d.Args(format),
		GracePeriod: d.GracePeriod,
	})
	if err != nil {
		return nil, apperrors.DeviceUnavailable(err)
	}
	return &ffmpegSource{stream: stream}, nil
}

type ffmpegSource struct {
	stream *process.Stream
}

// Read classifies an early exit using ffmpeg's stderr.
func (s *ffmpegSource) Read(p []byte) (int, error) {
	n, err := s.stream.Stdout().Read(p)
	if err == nil || n > 0 {
		return n, err
	}
	_ = s.stream.Wait()
	if stderr := strings.TrimSpace(s.stream.Stderr()); stderr != "" {
		return 0, classifyStderr(stderr)
	}
	return 0, err
}

func (s *ffmpegSource) Close() error { return s.stream.Stop() }

func classifyStderr(stderr string) error {
	cause := errors.New(stderr)
	lower := strings.ToLower(stderr)
	if strings.Contains(lower, "permission denied") || strings.Contains(lower, "not authorized") {
		return apperrors.DevicePermissionDenied(cause)
	}
	return apperrors.DeviceUnavailable(cause)
}
