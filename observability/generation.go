package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/generation"
)

// GenerationMetrics records generation outcomes and latency. It implements
// generation.Recorder.
type GenerationMetrics struct {
	requests  metric.Int64Counter
	duration  metric.Float64Histogram
	retries   metric.Int64Counter
	ttft      metric.Float64Histogram
	slowStart metric.Int64Counter
}

var _ generation.Recorder = (*GenerationMetrics)(nil)

// NewGenerationMetrics creates the generation instruments on meter.
func NewGenerationMetrics(meter metric.Meter) (*GenerationMetrics, error) {
	requests, err := meter.Int64Counter("generation.requests",
		metric.WithDescription("Generation requests by mode and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating generation.requests counter: %w", err)
	}

	duration, err := meter.Float64Histogram("generation.duration",
		metric.WithDescription("Duration of generation requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating generation.duration histogram: %w", err)
	}

	retries, err := meter.Int64Counter("generation.retries",
		metric.WithDescription("Generation attempts retried after a timeout or network error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating generation.retries counter: %w", err)
	}

	ttft, err := meter.Float64Histogram("generation.ttft",
		metric.WithDescription("Time from stream request to first token in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21),
	)
	if err != nil {
		return nil, fmt.Errorf("creating generation.ttft histogram: %w", err)
	}

	slowStart, err := meter.Int64Counter("generation.slow_first_token",
		metric.WithDescription("Streams whose first token missed the warning threshold"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating generation.slow_first_token counter: %w", err)
	}

	return &GenerationMetrics{
		requests:  requests,
		duration:  duration,
		retries:   retries,
		ttft:      ttft,
		slowStart: slowStart,
	}, nil
}

// RecordRequest records one finished Complete or Stream call.
func (m *GenerationMetrics) RecordRequest(ctx context.Context, mode, outcome string, d time.Duration) {
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordRetry records a retried attempt.
func (m *GenerationMetrics) RecordRetry(ctx context.Context, mode string, err error) {
	m.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("code", string(apperrors.CodeOf(err))),
	))
}

// RecordFirstToken records the time to first token of a stream.
func (m *GenerationMetrics) RecordFirstToken(ctx context.Context, ttft time.Duration) {
	m.ttft.Record(ctx, ttft.Seconds())
}

// RecordSlowFirstToken counts a stream that crossed the warning threshold.
func (m *GenerationMetrics) RecordSlowFirstToken(ctx context.Context) {
	m.slowStart.Add(ctx, 1)
}
