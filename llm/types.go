package llm

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the provider-neutral input.
type CompletionRequest struct {
	// Model overrides the adapter's default model.
	Model string `json:"model,omitempty"`
	// SystemPrompt is sent as a leading system message.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// Messages is the conversation, oldest first.
	Messages []Message `json:"messages"`
	// Temperature overrides the default sampling temperature when non-zero.
	Temperature float64 `json:"temperature,omitempty"`
	// MaxTokens limits the response length. 0 means provider default.
	MaxTokens int `json:"max_tokens,omitempty"`
	// Stream is set by Adapter.Stream.
	Stream bool `json:"stream,omitempty"`
}

// CompletionResponse is the provider-neutral output.
type CompletionResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// StreamChunk is a single piece of a streamed response. Exactly one of
// Content/Done/Err is meaningful per chunk, except that a final chunk may
// carry both Content and Done.
type StreamChunk struct {
	Content string
	Done    bool
	Err     error
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
