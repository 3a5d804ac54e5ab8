package sse

import (
	"bytes"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Event types. Topic patterns given to WithTopics match these names.
const (
	EventTypeConnected         = "connected"
	EventTypeCaptureStatus     = "capture.status"
	EventTypeTranscript        = "transcript"
	EventTypeResponseStarted   = "response.started"
	EventTypeResponseDelta     = "response.delta"
	EventTypeResponseCompleted = "response.completed"
	EventTypeResponseFailed    = "response.failed"
	EventTypeLevels            = "audio.levels"
)

// Event is one SSE message.
type Event struct {
	Type string
	// Retain names the slot this event replaces in the hub's retained
	// state. Empty means the event is not retained.
	Retain string
	Data   any
}

// ConnectedEvent is sent when a client successfully connects.
type ConnectedEvent struct {
	ClientID string   `json:"client_id"`
	Topics   []string `json:"topics"`
}

// StatusPayload carries a capture status change.
type StatusPayload struct {
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Code     string    `json:"code,omitempty"`
	Restarts int       `json:"restarts"`
	At       time.Time `json:"at"`
}

// TranscriptPayload carries the pending transcript.
type TranscriptPayload struct {
	Final   string `json:"final"`
	Interim string `json:"interim"`
}

// ResponsePayload carries a response transition. Text is the whole
// response so far; Delta is the newly appended part.
type ResponsePayload struct {
	RequestID uint64 `json:"request_id"`
	Delta     string `json:"delta,omitempty"`
	Text      string `json:"text"`
	Complete  bool   `json:"complete"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	TTFTMs    int64  `json:"ttft_ms,omitempty"`
}

// LevelsPayload carries one spectrum frame. Bins are 0..255 magnitudes,
// sent as numbers rather than base64.
type LevelsPayload struct {
	Bins []int `json:"bins"`
}

// Encode renders ev as an SSE frame.
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	var b bytes.Buffer
	b.Grow(len(ev.Type) + len(data) + 16)
	b.WriteString("event: ")
	b.WriteString(ev.Type)
	b.WriteString("\ndata: ")
	b.Write(data)
	b.WriteString("\n\n")
	return b.Bytes(), nil
}
