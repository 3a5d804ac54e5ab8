// Package ollama registers the "ollama" llm dialect for Ollama's /api/chat.
package ollama

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/kbukum/livecue/llm"
)

// Name is the registered dialect name.
const Name = "ollama"

func init() {
	llm.RegisterDialect(Dialect{})
}

// Dialect speaks Ollama's native chat API.
type Dialect struct{}

var _ llm.Dialect = Dialect{}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

type options struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	Error           string `json:"error,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (Dialect) Name() string       { return Name }
func (Dialect) ChatPath() string   { return "/api/chat" }
func (Dialect) HealthPath() string { return "/api/tags" }

func (Dialect) StreamFormat() llm.StreamFormat { return llm.StreamNDJSON }

func (Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}
	msgs := make([]llm.Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: req.SystemPrompt})
	}
	msgs = append(msgs, req.Messages...)

	out := chatRequest{Model: req.Model, Messages: msgs, Stream: req.Stream}
	if req.Temperature != 0 || req.MaxTokens != 0 {
		out.Options = &options{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}
	return out, nil
}

func (Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("ollama: %s", resp.Error)
	}
	return &llm.CompletionResponse{
		Content: resp.Message.Content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}

func (Dialect) ParseStreamChunk(data []byte) (string, bool, error) {
	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", false, err
	}
	if resp.Error != "" {
		return "", false, fmt.Errorf("ollama: %s", resp.Error)
	}
	return resp.Message.Content, resp.Done, nil
}
