package session

import (
	"context"

	"github.com/kbukum/livecue/generation"
	"github.com/kbukum/livecue/transcript"
)

// Profile is the target context that shapes every request.
type Profile struct {
	// SystemPrompt frames the assistant.
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt" mapstructure:"system_prompt"`
	// Goals are the user's objectives for the conversation.
	Goals string `json:"goals" yaml:"goals" mapstructure:"goals"`
}

// ContextSource supplies the current profile.
type ContextSource interface {
	Profile() Profile
}

// Retriever returns supplementary reference text for a query. An empty
// result means nothing relevant was found.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// History stores completed turns.
type History interface {
	Append(ctx context.Context, turn generation.Turn) error
	// Recent returns up to n of the latest turns, oldest first.
	Recent(ctx context.Context, n int) ([]generation.Turn, error)
	// Summary returns the running summary of older turns, if any.
	Summary(ctx context.Context) (string, error)
	Len() int
}

// Summarizer condenses the conversation so far.
type Summarizer interface {
	Summarize(ctx context.Context, turns []generation.Turn) error
}

// Generator opens streaming requests. *generation.Client implements it.
type Generator interface {
	Stream(ctx context.Context, req generation.Request) (*generation.Stream, error)
}

// Transcript is the pending text a submit consumes. SubmitText only
// looks; Take consumes atomically. *transcript.Aggregator implements it.
type Transcript interface {
	Flush()
	SubmitText(opts ...transcript.SubmitOption) (string, bool)
	Take(opts ...transcript.SubmitOption) (string, bool)
}

var (
	_ Generator  = (*generation.Client)(nil)
	_ Transcript = (*transcript.Aggregator)(nil)
)
