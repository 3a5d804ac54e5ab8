package response

import "time"

// State is a snapshot of the live response.
type State struct {
	RequestID    uint64     `json:"request_id"`
	Text         string     `json:"text"`
	Complete     bool       `json:"complete"`
	StartedAt    time.Time  `json:"started_at"`
	FirstTokenAt *time.Time `json:"first_token_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	// Err is the failure that ended the request, if any. Text keeps whatever
	// arrived before the failure.
	Err error `json:"-"`
}

// TTFT returns the time to first token, or zero if none arrived yet.
func (s State) TTFT() time.Duration {
	if s.FirstTokenAt == nil {
		return 0
	}
	return s.FirstTokenAt.Sub(s.StartedAt)
}

// Failed reports whether the request ended with an error.
func (s State) Failed() bool { return s.Err != nil }

// EventKind identifies an accumulator transition.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventDelta     EventKind = "delta"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
)

// Event is published to listeners after every accepted transition.
type Event struct {
	Kind  EventKind
	Delta string
	State State
}

// Listener receives accumulator events. It runs on the goroutine that caused
// the transition and must not call back into the Accumulator.
type Listener func(Event)
