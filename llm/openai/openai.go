// Package openai registers the "openai" llm dialect for OpenAI-compatible
// chat completion APIs.
package openai

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/kbukum/livecue/llm"
)

// Name is the registered dialect name.
const Name = "openai"

var doneSentinel = []byte("[DONE]")

func init() {
	llm.RegisterDialect(Dialect{})
}

// Dialect speaks the /chat/completions API.
type Dialect struct{}

var _ llm.Dialect = Dialect{}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Stream      bool          `json:"stream,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *llm.Usage `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (Dialect) Name() string       { return Name }
func (Dialect) ChatPath() string   { return "/chat/completions" }
func (Dialect) HealthPath() string { return "/models" }

func (Dialect) StreamFormat() llm.StreamFormat { return llm.StreamSSE }

func (Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}
	msgs := make([]llm.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: req.SystemPrompt})
	}
	msgs = append(msgs, req.Messages...)
	return chatRequest{
		Model:       req.Model,
		Messages:    msgs,
		Stream:      req.Stream,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, nil
}

func (Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("openai: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: response has no choices")
	}
	out := &llm.CompletionResponse{Content: resp.Choices[0].Message.Content, Model: resp.Model}
	if resp.Usage != nil {
		out.Usage = *resp.Usage
	}
	return out, nil
}

func (Dialect) ParseStreamChunk(data []byte) (string, bool, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, doneSentinel) {
		return "", true, nil
	}
	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", false, err
	}
	if resp.Error != nil {
		return "", false, fmt.Errorf("openai: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", false, nil
	}
	return resp.Choices[0].Delta.Content, false, nil
}
