package transcription

import (
	"context"
	"time"
)

// Kind distinguishes provisional from settled text.
type Kind int

const (
	// Interim text may still change.
	Interim Kind = iota
	// Final text is settled.
	Final
)

func (k Kind) String() string {
	if k == Final {
		return "final"
	}
	return "interim"
}

// Fragment is one piece of transcribed text.
type Fragment struct {
	Text       string    `json:"text"`
	Kind       Kind      `json:"kind"`
	ObservedAt time.Time `json:"observed_at"`
}

// IsFinal reports whether the fragment is settled.
func (f Fragment) IsFinal() bool { return f.Kind == Final }

// EventType identifies a stream event.
type EventType int

const (
	// EventReady signals the engine is listening.
	EventReady EventType = iota
	// EventFragment carries recognized text.
	EventFragment
	// EventError reports a failure. An End always follows.
	EventError
	// EventEnd signals the stream is over.
	EventEnd
)

// Event is delivered on Stream.Events.
type Event struct {
	Type     EventType
	Fragment Fragment
	Err      error
}

// StreamConfig describes the audio a stream will receive.
type StreamConfig struct {
	Encoding       string `yaml:"encoding" mapstructure:"encoding"`
	SampleRate     int    `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0"`
	Channels       int    `yaml:"channels" mapstructure:"channels" validate:"gte=0"`
	Language       string `yaml:"language" mapstructure:"language"`
	InterimResults bool   `yaml:"interim_results" mapstructure:"interim_results"`
}

// ApplyDefaults fills in 16kHz mono linear PCM.
func (c *StreamConfig) ApplyDefaults() {
	if c.Encoding == "" {
		c.Encoding = "linear16"
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
}

// Engine opens recognition streams.
type Engine interface {
	// Name returns the engine identifier.
	Name() string
	// Open starts a stream. Cancelling ctx tears the stream down.
	Open(ctx context.Context, cfg StreamConfig) (Stream, error)
}

// Stream is one engine instance. Its event channel delivers an optional
// Ready, any number of Fragments, an optional Error and then End, and is
// closed afterwards or when the stream is closed.
type Stream interface {
	Events() <-chan Event
	// SendAudio queues raw audio in the configured encoding.
	SendAudio(chunk []byte) error
	// Close ends the stream. It is safe to call more than once.
	Close() error
}
