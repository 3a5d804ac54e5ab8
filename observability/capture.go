package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/livecue/capture"
	"github.com/kbukum/livecue/transcription"
)

// CaptureSource is what the capture instruments observe.
type CaptureSource interface {
	Status() capture.View
	Session() *transcription.Session
}

// CaptureMetrics observes the capture controller on every collection.
type CaptureMetrics struct {
	reg metric.Registration
}

// NewCaptureMetrics registers observable instruments for src on meter:
// cumulative restarts and suppressed restarts of the transcription session,
// and a 0/1 gauge per capture status.
func NewCaptureMetrics(meter metric.Meter, src CaptureSource) (*CaptureMetrics, error) {
	restarts, err := meter.Int64ObservableCounter("transcription.restarts",
		metric.WithDescription("Transcription engine restarts taken from the budget"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.restarts counter: %w", err)
	}

	suppressed, err := meter.Int64ObservableCounter("transcription.restarts_suppressed",
		metric.WithDescription("Transcription engine restarts refused by the budget"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.restarts_suppressed counter: %w", err)
	}

	status, err := meter.Int64ObservableGauge("capture.status",
		metric.WithDescription("1 for the current capture status, 0 otherwise"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating capture.status gauge: %w", err)
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snap := src.Session().Snapshot()
		o.ObserveInt64(restarts, int64(snap.TotalRestarts))
		o.ObserveInt64(suppressed, int64(snap.TotalSuppressed))

		current := src.Status().Status
		for _, s := range []capture.Status{capture.StatusInactive, capture.StatusActive, capture.StatusError} {
			var v int64
			if s == current {
				v = 1
			}
			o.ObserveInt64(status, v, metric.WithAttributes(attribute.String("status", string(s))))
		}
		return nil
	}, restarts, suppressed, status)
	if err != nil {
		return nil, fmt.Errorf("registering capture callback: %w", err)
	}
	return &CaptureMetrics{reg: reg}, nil
}

// Close unregisters the callback.
func (m *CaptureMetrics) Close(context.Context) error {
	return m.reg.Unregister()
}
