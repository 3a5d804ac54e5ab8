package transcription

import "time"

// Config controls the restart policy of a Session.
type Config struct {
	// StartDelay debounces Start before the engine is opened.
	StartDelay time.Duration `yaml:"start_delay" mapstructure:"start_delay"`
	// SilenceThreshold is the quiet period required before a restart.
	SilenceThreshold time.Duration `yaml:"silence_threshold" mapstructure:"silence_threshold"`
	// MaxRestarts is the restart budget per RestartWindow.
	MaxRestarts int `yaml:"max_restarts" mapstructure:"max_restarts" validate:"gte=0"`
	// RestartWindow is measured from the last restart.
	RestartWindow time.Duration `yaml:"restart_window" mapstructure:"restart_window"`
	// ResetDelay is how long an exhausted budget waits before resetting.
	ResetDelay time.Duration `yaml:"reset_delay" mapstructure:"reset_delay"`
	// RestartDelay precedes a restart after a natural end.
	RestartDelay time.Duration `yaml:"restart_delay" mapstructure:"restart_delay"`
	// NetworkRestartDelay precedes a restart after a network error.
	NetworkRestartDelay time.Duration `yaml:"network_restart_delay" mapstructure:"network_restart_delay"`
	// Stream is passed to Engine.Open.
	Stream StreamConfig `yaml:"stream" mapstructure:"stream"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.StartDelay <= 0 {
		c.StartDelay = 100 * time.Millisecond
	}
	if c.SilenceThreshold <= 0 {
		c.SilenceThreshold = time.Second
	}
	if c.MaxRestarts <= 0 {
		c.MaxRestarts = 3
	}
	if c.RestartWindow <= 0 {
		c.RestartWindow = time.Minute
	}
	if c.ResetDelay <= 0 {
		c.ResetDelay = 10 * time.Second
	}
	if c.RestartDelay <= 0 {
		c.RestartDelay = 500 * time.Millisecond
	}
	if c.NetworkRestartDelay <= 0 {
		c.NetworkRestartDelay = 2 * time.Second
	}
	c.Stream.ApplyDefaults()
}
