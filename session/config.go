package session

import "time"

// Config holds prompt assembly and summarization settings.
type Config struct {
	// HistoryTurns is the number of prior turns sent with each request.
	HistoryTurns int `yaml:"history_turns" mapstructure:"history_turns" validate:"gte=0"`
	// SummarizeEvery triggers the summarizer after every N completed turns.
	// Zero disables summarization.
	SummarizeEvery int `yaml:"summarize_every" mapstructure:"summarize_every" validate:"gte=0"`
	// IncludeInterim submits the pending interim text along with finals.
	IncludeInterim bool `yaml:"include_interim" mapstructure:"include_interim"`
	// RetrievalTimeout bounds the retriever call. Retrieval failures are
	// logged and the request proceeds without reference text.
	RetrievalTimeout time.Duration `yaml:"retrieval_timeout" mapstructure:"retrieval_timeout"`
	// SummaryTimeout bounds one summarizer call.
	SummaryTimeout time.Duration `yaml:"summary_timeout" mapstructure:"summary_timeout"`
	Model          string        `yaml:"model" mapstructure:"model"`
	Temperature    float64       `yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens      int           `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.HistoryTurns == 0 {
		c.HistoryTurns = 10
	}
	if c.RetrievalTimeout <= 0 {
		c.RetrievalTimeout = 2 * time.Second
	}
	if c.SummaryTimeout <= 0 {
		c.SummaryTimeout = 60 * time.Second
	}
}
