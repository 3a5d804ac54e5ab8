package generation

import (
	"strings"

	"github.com/kbukum/livecue/llm"
)

const contextHeader = "Reference context:\n"

// buildMessages renders a Request as chat messages: an optional context
// block, prior turns as user/assistant pairs, then the input.
func buildMessages(req Request, budget *TokenBudget) []llm.Message {
	turns := req.PriorTurns
	if budget != nil {
		reserved := budget.Count(req.Options.SystemPrompt) +
			budget.Count(req.Options.Context) +
			budget.Count(req.Input)
		turns = budget.Fit(turns, reserved)
	}

	msgs := make([]llm.Message, 0, 2*len(turns)+2)
	if ctx := strings.TrimSpace(req.Options.Context); ctx != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: contextHeader + ctx})
	}
	for _, t := range turns {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: t.Question},
			llm.Message{Role: llm.RoleAssistant, Content: t.Answer},
		)
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: req.Input})
}

func completionRequest(req Request, budget *TokenBudget) llm.CompletionRequest {
	return llm.CompletionRequest{
		Model:        req.Options.Model,
		SystemPrompt: req.Options.SystemPrompt,
		Messages:     buildMessages(req, budget),
		Temperature:  req.Options.Temperature,
		MaxTokens:    req.Options.MaxTokens,
	}
}
