package generation

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// TokenBudget trims prior turns so the prompt stays within a token limit.
type TokenBudget struct {
	codec tokenizer.Codec
	max   int
}

// NewTokenBudget creates a budget of max tokens using encoding, e.g.
// "cl100k_base".
func NewTokenBudget(encoding string, max int) (*TokenBudget, error) {
	codec, err := tokenizer.Get(tokenizer.Encoding(encoding))
	if err != nil {
		return nil, fmt.Errorf("generation: tokenizer %q: %w", encoding, err)
	}
	return &TokenBudget{codec: codec, max: max}, nil
}

// Count returns the number of tokens in text.
func (b *TokenBudget) Count(text string) int {
	ids, _, err := b.codec.Encode(text)
	if err != nil {
		// Rough fallback of four bytes per token.
		return len(text)/4 + 1
	}
	return len(ids)
}

// Fit returns the most recent turns whose combined size, together with
// reserved tokens, fits the budget. Order is preserved.
func (b *TokenBudget) Fit(turns []Turn, reserved int) []Turn {
	remaining := b.max - reserved
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		cost := b.Count(turns[i].Question) + b.Count(turns[i].Answer)
		if cost > remaining {
			break
		}
		remaining -= cost
		start = i
	}
	return turns[start:]
}
