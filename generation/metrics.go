package generation

import (
	"context"
	"time"
)

// Request modes reported to a Recorder.
const (
	ModeComplete = "complete"
	ModeStream   = "stream"
)

// Outcomes reported to a Recorder besides error codes.
const (
	OutcomeOK       = "ok"
	OutcomeCanceled = "canceled"
)

// Recorder receives generation measurements. observability.GenerationMetrics
// implements it on OpenTelemetry instruments.
type Recorder interface {
	// RecordRequest is called once per Complete or Stream call with its
	// outcome: OutcomeOK, OutcomeCanceled or an error code.
	RecordRequest(ctx context.Context, mode, outcome string, d time.Duration)
	// RecordRetry is called before each retry.
	RecordRetry(ctx context.Context, mode string, err error)
	// RecordFirstToken is called once per stream that produced text.
	RecordFirstToken(ctx context.Context, ttft time.Duration)
	// RecordSlowFirstToken is called when no token arrived within the
	// warning threshold.
	RecordSlowFirstToken(ctx context.Context)
}

type nopRecorder struct{}

func (nopRecorder) RecordRequest(context.Context, string, string, time.Duration) {}
func (nopRecorder) RecordRetry(context.Context, string, error)                   {}
func (nopRecorder) RecordFirstToken(context.Context, time.Duration)              {}
func (nopRecorder) RecordSlowFirstToken(context.Context)                         {}
