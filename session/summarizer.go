package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/livecue/generation"
)

const summaryPrompt = "Summarize the conversation below in a few sentences. " +
	"Keep names, numbers and open questions. Reply with the summary only."

// Completer returns a full response. *generation.Client implements it.
type Completer interface {
	Complete(ctx context.Context, req generation.Request) (string, error)
}

// SummarySink stores a produced summary. *MemoryHistory implements it.
type SummarySink interface {
	SetSummary(string)
}

// CompletionSummarizer asks the model to fold the previous summary and the
// latest turns into a new summary.
type CompletionSummarizer struct {
	completer Completer
	history   History
	sink      SummarySink
}

var (
	_ Summarizer  = (*CompletionSummarizer)(nil)
	_ Completer   = (*generation.Client)(nil)
	_ SummarySink = (*MemoryHistory)(nil)
)

// NewCompletionSummarizer stores summaries in sink and reads the previous
// summary from history.
func NewCompletionSummarizer(c Completer, history History, sink SummarySink) *CompletionSummarizer {
	return &CompletionSummarizer{completer: c, history: history, sink: sink}
}

func (s *CompletionSummarizer) Summarize(ctx context.Context, turns []generation.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	prev, err := s.history.Summary(ctx)
	if err != nil {
		return fmt.Errorf("read summary: %w", err)
	}

	var b strings.Builder
	if prev != "" {
		b.WriteString("Earlier summary:\n")
		b.WriteString(prev)
		b.WriteString("\n\n")
	}
	for _, t := range turns {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", strings.TrimSpace(t.Question), strings.TrimSpace(t.Answer))
	}

	out, err := s.completer.Complete(ctx, generation.Request{
		Input:   strings.TrimSpace(b.String()),
		Options: generation.Options{SystemPrompt: summaryPrompt},
	})
	if err != nil {
		return err
	}
	if out = strings.TrimSpace(out); out != "" {
		s.sink.SetSummary(out)
	}
	return nil
}
