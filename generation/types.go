package generation

import (
	"context"
	"time"

	"github.com/kbukum/livecue/llm"
)

// Turn is one completed question and answer.
type Turn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	At       time.Time `json:"at"`
}

// Options shape a single request.
type Options struct {
	// SystemPrompt frames the conversation.
	SystemPrompt string
	// Context is supplementary reference text placed ahead of the input.
	Context     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Request is one generation call. It is not modified by the client.
type Request struct {
	Input      string
	PriorTurns []Turn
	Options    Options
}

// Delta is one increment of streamed text.
type Delta struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Provider is the model backend. *llm.Adapter implements it.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
	Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error)
}

var _ Provider = (*llm.Adapter)(nil)
