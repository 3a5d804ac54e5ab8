package generation

import "time"

// Config holds timeouts, retry counts and prompt limits.
type Config struct {
	// CompleteTimeout bounds each Complete attempt.
	CompleteTimeout time.Duration `yaml:"complete_timeout" mapstructure:"complete_timeout"`
	// CompleteRetries is the number of retries after the first attempt.
	CompleteRetries int `yaml:"complete_retries" mapstructure:"complete_retries" validate:"gte=0,lte=10"`
	// StreamTimeout bounds each attempt to open a stream.
	StreamTimeout time.Duration `yaml:"stream_timeout" mapstructure:"stream_timeout"`
	// StreamRetries is the number of retries after the first open attempt.
	StreamRetries int `yaml:"stream_retries" mapstructure:"stream_retries" validate:"gte=0,lte=10"`
	// RetryBackoff is the fixed delay between attempts.
	RetryBackoff time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	// FirstTokenWarning is the time to first token beyond which a stream
	// is reported slow.
	FirstTokenWarning time.Duration `yaml:"first_token_warning" mapstructure:"first_token_warning"`
	// RateLimit caps attempts per second. Zero disables the limiter.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
	// RateBurst is the limiter bucket size.
	RateBurst int `yaml:"rate_burst" mapstructure:"rate_burst" validate:"gte=0"`
	// MaxPromptTokens caps the tokens spent on prior turns. Zero disables
	// trimming.
	MaxPromptTokens int `yaml:"max_prompt_tokens" mapstructure:"max_prompt_tokens" validate:"gte=0"`
	// Encoding is the tokenizer encoding used for the budget.
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields. Retry counts
// are left alone because zero is meaningful; use DefaultConfig for the
// standard counts.
func (c *Config) ApplyDefaults() {
	if c.CompleteTimeout <= 0 {
		c.CompleteTimeout = 60 * time.Second
	}
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = 45 * time.Second
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.FirstTokenWarning <= 0 {
		c.FirstTokenWarning = 5 * time.Second
	}
	if c.Encoding == "" {
		c.Encoding = "cl100k_base"
	}
}

// DefaultConfig returns the standard configuration: 2 retries for
// Complete and 1 for Stream.
func DefaultConfig() Config {
	c := Config{CompleteRetries: 2, StreamRetries: 1}
	c.ApplyDefaults()
	return c
}
