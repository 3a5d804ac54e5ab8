package capture

import (
	"time"

	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/transcription"
)

// Status is the user-facing capture state.
type Status string

const (
	StatusInactive Status = "inactive"
	StatusActive   Status = "active"
	StatusError    Status = "error"
)

// View is a published capture state.
type View struct {
	Status Status `json:"status"`
	// Error is a short message, set only with StatusError.
	Error string `json:"error,omitempty"`
	// Code is the classified error code, set only with StatusError.
	Code string `json:"code,omitempty"`
	// Restarts counts engine restarts since the last explicit start.
	Restarts int       `json:"restarts"`
	At       time.Time `json:"at"`
}

const budgetMessage = "Speech recognition keeps stopping. It will resume shortly."

// viewOf reduces a session snapshot. It returns false when the snapshot
// says nothing the controller should publish.
func viewOf(snap transcription.Snapshot) (View, bool) {
	switch {
	case snap.Fatal:
		return errorView(snap.LastError, ""), true
	case snap.Exhausted:
		return errorView(snap.LastError, budgetMessage), true
	case snap.Running:
		return View{Status: StatusActive, Restarts: snap.Restarts}, true
	case snap.State == transcription.StateStopped:
		return View{Status: StatusInactive, Restarts: snap.Restarts}, true
	}
	return View{}, false
}

func errorView(err error, fallback string) View {
	v := View{Status: StatusError, Error: fallback}
	if err != nil {
		v.Error = apperrors.UserMessage(err)
		v.Code = string(apperrors.CodeOf(err))
	}
	if v.Error == "" {
		v.Error = apperrors.UserMessage(apperrors.Internal(nil))
	}
	return v
}
