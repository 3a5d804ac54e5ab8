package llm

import (
	"fmt"
	"time"
)

// Config selects a dialect and its connection settings.
type Config struct {
	// Dialect must match a registered dialect ("openai", "ollama").
	Dialect string `yaml:"dialect" mapstructure:"dialect" validate:"required"`
	// BaseURL is the provider's API root.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	// Model is the default model.
	Model string `yaml:"model" mapstructure:"model" validate:"required"`
	// APIKey is sent as a bearer token unless AuthHeader is set.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// AuthHeader sends APIKey in this header instead of Authorization.
	AuthHeader string `yaml:"auth_header" mapstructure:"auth_header"`
	// Temperature is the default sampling temperature.
	Temperature float64 `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
	// MaxTokens is the default response cap. 0 means provider default.
	MaxTokens int `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
	// HeaderTimeout bounds the wait for response headers.
	HeaderTimeout time.Duration `yaml:"header_timeout" mapstructure:"header_timeout"`
	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.HeaderTimeout <= 0 {
		c.HeaderTimeout = 45 * time.Second
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
}

// Validate checks the dialect is registered.
func (c *Config) Validate() error {
	if _, err := GetDialect(c.Dialect); err != nil {
		return fmt.Errorf("llm.dialect: %w", err)
	}
	return nil
}
