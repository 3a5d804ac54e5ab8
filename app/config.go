package app

import (
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/kbukum/livecue/audio"
	"github.com/kbukum/livecue/config"
	"github.com/kbukum/livecue/generation"
	"github.com/kbukum/livecue/llm"
	"github.com/kbukum/livecue/observability"
	"github.com/kbukum/livecue/server"
	"github.com/kbukum/livecue/session"
	"github.com/kbukum/livecue/transcription"
)

// ServiceName is the config, env prefix and logger name of the binary.
const ServiceName = "livecue"

// Config is the full livecue configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config              `yaml:"server" mapstructure:"server"`
	Audio         audio.Config               `yaml:"audio" mapstructure:"audio"`
	Device        audio.FFmpegDevice         `yaml:"device" mapstructure:"device"`
	Transcription transcription.Config       `yaml:"transcription" mapstructure:"transcription"`
	Engine        transcription.EngineConfig `yaml:"engine" mapstructure:"engine"`
	Transcript    TranscriptConfig           `yaml:"transcript" mapstructure:"transcript"`
	LLM           llm.Config                 `yaml:"llm" mapstructure:"llm"`
	Generation    generation.Config          `yaml:"generation" mapstructure:"generation"`
	Session       session.Config             `yaml:"session" mapstructure:"session"`
	Context       ContextConfig              `yaml:"context" mapstructure:"context"`
	Events        EventsConfig               `yaml:"events" mapstructure:"events"`
	Observability observability.Config       `yaml:"observability" mapstructure:"observability"`
}

// TranscriptConfig tunes fragment aggregation.
type TranscriptConfig struct {
	// Debounce coalesces fragments before the projection is updated.
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// ContextConfig is the target context sent with every request.
type ContextConfig struct {
	SystemPrompt string `yaml:"system_prompt" mapstructure:"system_prompt"`
	Goals        string `yaml:"goals" mapstructure:"goals"`
	// GoalsFile replaces Goals with the file content and is reloaded on
	// change.
	GoalsFile string `yaml:"goals_file" mapstructure:"goals_file"`
	// Documents are reference files searched for paragraphs relevant to
	// each submit. They are reloaded on change.
	Documents         []string `yaml:"documents" mapstructure:"documents"`
	RetrievalLimit    int      `yaml:"retrieval_limit" mapstructure:"retrieval_limit" validate:"gte=0"`
	RetrievalMinScore float64  `yaml:"retrieval_min_score" mapstructure:"retrieval_min_score" validate:"gte=0,lt=1"`
	// HistoryLimit caps stored turns. Zero keeps everything.
	HistoryLimit int `yaml:"history_limit" mapstructure:"history_limit" validate:"gte=0"`
}

// EventsConfig tunes the event stream.
type EventsConfig struct {
	// LevelInterval is the minimum spacing of audio level frames.
	LevelInterval time.Duration `yaml:"level_interval" mapstructure:"level_interval"`
}

// DefaultConfig returns the configuration used for keys absent from
// config.yml and the environment. Retry counts are set here because zero
// is a valid configured value.
func DefaultConfig() *Config {
	return &Config{
		ServiceConfig: config.ServiceConfig{Name: ServiceName},
		Generation:    generation.DefaultConfig(),
		Session:       session.Config{SummarizeEvery: 5},
	}
}

// ApplyDefaults fills zero values in every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Name == "" {
		c.Name = ServiceName
	}
	c.Server.ApplyDefaults()
	c.Audio.ApplyDefaults()
	applyDeviceDefaults(&c.Device, runtime.GOOS)
	c.Transcription.ApplyDefaults()
	if c.Engine.Provider == "" {
		c.Engine.Provider = "deepgram"
	}
	if c.Transcript.Debounce <= 0 {
		c.Transcript.Debounce = 300 * time.Millisecond
	}
	if c.LLM.Dialect == "" {
		c.LLM.Dialect = "openai"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	c.LLM.ApplyDefaults()
	c.Generation.ApplyDefaults()
	c.Session.ApplyDefaults()
	if c.Context.RetrievalLimit == 0 {
		c.Context.RetrievalLimit = 3
	}
	if c.Context.HistoryLimit == 0 {
		c.Context.HistoryLimit = 200
	}
	if c.Events.LevelInterval <= 0 {
		c.Events.LevelInterval = 50 * time.Millisecond
	}
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	if c.Observability.Version == "" {
		c.Observability.Version = c.Version
	}
	c.Observability.ApplyDefaults()
}

// applyDeviceDefaults picks the ffmpeg capture backend of the platform.
func applyDeviceDefaults(d *audio.FFmpegDevice, goos string) {
	if d.InputFormat == "" {
		switch goos {
		case "darwin":
			d.InputFormat = "avfoundation"
		case "windows":
			d.InputFormat = "dshow"
		default:
			d.InputFormat = "pulse"
		}
	}
	if d.Input == "" {
		switch goos {
		case "darwin":
			d.Input = ":0"
		case "windows":
			d.Input = "audio=default"
		default:
			d.Input = "default"
		}
	}
}

// Validate checks cross-field rules the struct tags cannot express.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if engines := transcription.Engines(); !slices.Contains(engines, c.Engine.Provider) {
		return fmt.Errorf("engine.provider must be one of %v (got: %s)", engines, c.Engine.Provider)
	}
	if c.Transcription.MaxRestarts < 0 {
		return fmt.Errorf("transcription.max_restarts must be non-negative (got: %d)", c.Transcription.MaxRestarts)
	}
	if c.Generation.StreamTimeout < c.Generation.RetryBackoff {
		return fmt.Errorf("generation.stream_timeout (%s) must not be shorter than generation.retry_backoff (%s)",
			c.Generation.StreamTimeout, c.Generation.RetryBackoff)
	}
	if err := c.Observability.Validate(); err != nil {
		return err
	}
	return nil
}
