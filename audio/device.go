package audio

import (
	"context"
	"io"
)

// Format describes the PCM a device must produce: signed 16-bit little
// endian samples, interleaved when Channels > 1. Level analysis averages
// the channels.
type Format struct {
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate"`
	Channels   int `yaml:"channels" mapstructure:"channels" validate:"gte=0,lte=8"`
}

// Device opens a PCM source. Open failures should be DevicePermissionDenied
// or DeviceUnavailable application errors; anything else is treated as
// DeviceUnavailable.
type Device interface {
	Open(ctx context.Context, format Format) (io.ReadCloser, error)
}

// DeviceFunc adapts a function to Device.
type DeviceFunc func(ctx context.Context, format Format) (io.ReadCloser, error)

// Open implements Device.
func (f DeviceFunc) Open(ctx context.Context, format Format) (io.ReadCloser, error) {
	return f(ctx, format)
}
