package openai

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/livecue/llm"
)

func TestDialect_Registered(t *testing.T) {
	assert.Contains(t, llm.Dialects(), Name)
}

func TestDialect_BuildRequest(t *testing.T) {
	body, err := Dialect{}.BuildRequest(llm.CompletionRequest{
		Model:        "gpt-4o-mini",
		SystemPrompt: "sys",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "q"}},
		MaxTokens:    64,
		Stream:       true,
	})
	require.NoError(t, err)

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"model":"gpt-4o-mini",
		"messages":[{"role":"system","content":"sys"},{"role":"user","content":"q"}],
		"stream":true,
		"max_tokens":64
	}`, string(raw))
}

func TestDialect_ParseResponse(t *testing.T) {
	resp, err := Dialect{}.ParseResponse([]byte(`{
		"model":"gpt-4o-mini",
		"choices":[{"message":{"content":"answer"}}],
		"usage":{"prompt_tokens":4,"completion_tokens":1,"total_tokens":5}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Content)
	assert.Equal(t, 5, resp.Usage.TotalTokens)

	_, err = Dialect{}.ParseResponse([]byte(`{"choices":[]}`))
	assert.Error(t, err)
}

func TestDialect_ParseStreamChunk(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		content string
		done    bool
		wantErr bool
	}{
		{name: "delta", data: `{"choices":[{"delta":{"content":"Hel"}}]}`, content: "Hel"},
		{name: "role only", data: `{"choices":[{"delta":{"role":"assistant"}}]}`},
		{name: "no choices", data: `{"choices":[]}`},
		{name: "done", data: "[DONE]", done: true},
		{name: "error", data: `{"error":{"message":"overloaded"}}`, wantErr: true},
		{name: "garbage", data: `{`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, done, err := Dialect{}.ParseStreamChunk([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.content, content)
			assert.Equal(t, tt.done, done)
		})
	}
}
