package bootstrap

import (
	"time"

	"github.com/kbukum/livecue/logger"
)

// defaultGracefulTimeout bounds shutdown when no WithGracefulTimeout is given.
const defaultGracefulTimeout = 15 * time.Second

// Option adjusts how NewApp builds the App.
type Option func(*settings)

type settings struct {
	log       *logger.Logger
	grace     time.Duration
	noSignals bool
}

func newSettings(opts []Option) settings {
	s := settings{grace: defaultGracefulTimeout}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithLogger uses l instead of initializing the global logger from the
// config's logging section.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithGracefulTimeout bounds the time components get to stop.
func WithGracefulTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithoutSignals leaves SIGINT and SIGTERM alone; Run then returns only
// when its context ends or a task fails. Tests and embedders use it.
func WithoutSignals() Option {
	return func(s *settings) { s.noSignals = true }
}
