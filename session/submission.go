package session

import (
	"context"
	"sync"
	"time"

	"github.com/kbukum/livecue/generation"
)

// Submission tracks one accepted submit until its response settles.
type Submission struct {
	// ID is the response request id.
	ID uint64
	// Input is the transcript text that was submitted.
	Input string

	done chan struct{}

	mu     sync.Mutex
	answer string
	timing *generationTiming
	err    error
}

type generationTiming struct {
	ttft time.Duration
	ok   bool
	slow bool
}

func timingOf(s *generation.Stream) *generationTiming {
	ttft, ok := s.TTFT()
	return &generationTiming{ttft: ttft, ok: ok, slow: s.Slow()}
}

func newSubmission(id uint64, input string) *Submission {
	return &Submission{ID: id, Input: input, done: make(chan struct{})}
}

func (s *Submission) finish(answer string, t *generationTiming, err error) {
	s.mu.Lock()
	s.answer = answer
	s.timing = t
	s.err = err
	s.mu.Unlock()
	close(s.done)
}

// Done is closed once the response completed or failed.
func (s *Submission) Done() <-chan struct{} { return s.done }

// Wait blocks until the response settles or ctx ends. It returns the full
// text on success and the partial text with the error on failure.
func (s *Submission) Wait(ctx context.Context) (string, error) {
	select {
	case <-s.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answer, s.err
}

// Err returns the failure once settled, nil before then or on success.
func (s *Submission) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// TTFT returns the time to first token once one has arrived and the
// submission has settled.
func (s *Submission) TTFT() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timing == nil {
		return 0, false
	}
	return s.timing.ttft, s.timing.ok
}

// SlowStart reports whether the first token missed the warning threshold.
func (s *Submission) SlowStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timing != nil && s.timing.slow
}
