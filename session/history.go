package session

import (
	"context"
	"sync"

	"github.com/kbukum/livecue/generation"
)

// MemoryHistory is an in-process History with an optional cap.
type MemoryHistory struct {
	mu      sync.RWMutex
	turns   []generation.Turn
	summary string
	max     int
}

var _ History = (*MemoryHistory)(nil)

// NewMemoryHistory keeps at most max turns; zero keeps everything.
func NewMemoryHistory(max int) *MemoryHistory {
	return &MemoryHistory{max: max}
}

func (h *MemoryHistory) Append(_ context.Context, turn generation.Turn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
	if h.max > 0 && len(h.turns) > h.max {
		h.turns = append([]generation.Turn(nil), h.turns[len(h.turns)-h.max:]...)
	}
	return nil
}

func (h *MemoryHistory) Recent(_ context.Context, n int) ([]generation.Turn, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > len(h.turns) {
		n = len(h.turns)
	}
	return append([]generation.Turn(nil), h.turns[len(h.turns)-n:]...), nil
}

func (h *MemoryHistory) Summary(context.Context) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.summary, nil
}

// SetSummary replaces the running summary.
func (h *MemoryHistory) SetSummary(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.summary = s
}

func (h *MemoryHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Reset drops all turns and the summary.
func (h *MemoryHistory) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
	h.summary = ""
}
