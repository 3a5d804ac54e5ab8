package errors

import "net/http"

// Envelope is the JSON body of every failed control API call.
type Envelope struct {
	Error Problem `json:"error"`
}

// Problem is what a client learns about a failure. The cause stays on the
// server.
type Problem struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Status    int            `json:"status"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// Status is the HTTP status to reply with; 500 when none was set.
func (e *AppError) Status() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}

// Render builds the client-facing envelope for e.
func (e *AppError) Render() Envelope {
	return Envelope{Error: Problem{
		Code:      e.Code,
		Message:   e.Message,
		Status:    e.Status(),
		Retryable: e.Retryable,
		Details:   e.Details,
	}}
}
