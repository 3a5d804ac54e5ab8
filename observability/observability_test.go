package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/livecue/capture"
	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/generation"
	"github.com/kbukum/livecue/logger"
	"github.com/kbukum/livecue/transcription"
	"github.com/kbukum/livecue/transcription/transcriptiontest"
)

func newReader(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader, mp
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is %T", m.Name, m.Data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func histCount(t *testing.T, m metricdata.Metrics) uint64 {
	t.Helper()
	h, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "%s is %T", m.Name, m.Data)
	var n uint64
	for _, dp := range h.DataPoints {
		n += dp.Count
	}
	return n
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, "livecue", cfg.ServiceName)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "localhost:4318", cfg.Endpoint)
	assert.Equal(t, 15*time.Second, cfg.Interval)
	require.NoError(t, cfg.Validate())
}

func TestNewResource(t *testing.T) {
	cfg := Config{ServiceName: "livecue", Version: "1.2.0", Environment: "staging"}
	res, err := newResource(&cfg)
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "livecue", attrs["service.name"])
	assert.Equal(t, "1.2.0", attrs["service.version"])
	assert.Equal(t, "staging", attrs["deployment.environment"])
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{SampleRate: 1.5}
	assert.ErrorContains(t, cfg.Validate(), "sample_rate")

	cfg = Config{Enabled: true}
	assert.ErrorContains(t, cfg.Validate(), "endpoint")
}

func TestSetup_Disabled(t *testing.T) {
	p, err := Setup(context.Background(), Config{})
	require.NoError(t, err)
	assert.Empty(t, p.shutdown)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestProviders_ShutdownJoinsInReverse(t *testing.T) {
	var order []string
	p := &Providers{shutdown: []func(context.Context) error{
		func(context.Context) error { order = append(order, "tracer"); return errors.New("tracer down") },
		func(context.Context) error { order = append(order, "meter"); return nil },
	}}
	err := p.Shutdown(context.Background())
	assert.ErrorContains(t, err, "tracer down")
	assert.Equal(t, []string{"meter", "tracer"}, order)
	assert.NoError(t, p.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestHTTPMetrics(t *testing.T) {
	reader, mp := newReader(t)
	m, err := NewHTTPMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRequestStart(ctx)
	m.RecordRequestStart(ctx)
	m.RecordRequestEnd(ctx, "POST", "/api/submit", 202, 30*time.Millisecond)

	got := collect(t, reader)
	assert.Equal(t, int64(1), sumOf(t, got["http.server.requests"]))
	assert.Equal(t, int64(1), sumOf(t, got["http.server.active"]))
	assert.Equal(t, uint64(1), histCount(t, got["http.server.duration"]))
}

func TestGenerationMetrics(t *testing.T) {
	reader, mp := newReader(t)
	m, err := NewGenerationMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRequest(ctx, generation.ModeStream, generation.OutcomeOK, 2*time.Second)
	m.RecordRequest(ctx, generation.ModeComplete, string(apperrors.ErrCodeTimeout), time.Minute)
	m.RecordRetry(ctx, generation.ModeComplete, apperrors.Timeout("llm"))
	m.RecordFirstToken(ctx, 1200*time.Millisecond)
	m.RecordSlowFirstToken(ctx)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["generation.requests"]))
	assert.Equal(t, uint64(2), histCount(t, got["generation.duration"]))
	assert.Equal(t, int64(1), sumOf(t, got["generation.retries"]))
	assert.Equal(t, uint64(1), histCount(t, got["generation.ttft"]))
	assert.Equal(t, int64(1), sumOf(t, got["generation.slow_first_token"]))

	retries := got["generation.retries"].Data.(metricdata.Sum[int64])
	code, ok := retries.DataPoints[0].Attributes.Value("code")
	require.True(t, ok)
	assert.Equal(t, string(apperrors.ErrCodeTimeout), code.AsString())
}

type captureSource struct {
	view    capture.View
	session *transcription.Session
}

func (c captureSource) Status() capture.View            { return c.view }
func (c captureSource) Session() *transcription.Session { return c.session }

func TestCaptureMetrics(t *testing.T) {
	reader, mp := newReader(t)
	src := captureSource{
		view:    capture.View{Status: capture.StatusError},
		session: transcription.NewSession(transcriptiontest.NewEngine(), transcription.Config{}, transcription.WithLogger(logger.Nop())),
	}
	m, err := NewCaptureMetrics(mp.Meter("test"), src)
	require.NoError(t, err)

	got := collect(t, reader)
	assert.Equal(t, int64(0), sumOf(t, got["transcription.restarts"]))
	assert.Equal(t, int64(0), sumOf(t, got["transcription.restarts_suppressed"]))

	gauge, ok := got["capture.status"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 3)
	for _, dp := range gauge.DataPoints {
		status, _ := dp.Attributes.Value("status")
		want := int64(0)
		if status.AsString() == string(capture.StatusError) {
			want = 1
		}
		assert.Equal(t, want, dp.Value, status.AsString())
	}

	require.NoError(t, m.Close(context.Background()))
	if after, ok := collect(t, reader)["capture.status"]; ok {
		assert.Empty(t, after.Data.(metricdata.Gauge[int64]).DataPoints)
	}
}

func TestSpanHelpers(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := StartSpan(context.Background(), SpanHTTPRequest)
	SetSpanAttributes(ctx, AttrHTTPRoute.String("/api/submit"), AttrStatus.Int(409))
	SetSpanError(ctx, nil)
	SetSpanError(ctx, apperrors.ErrInProgress)
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, SpanHTTPRequest, ended[0].Name())
	attrs := map[attribute.Key]any{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value.AsInterface()
	}
	assert.Equal(t, "/api/submit", attrs[AttrHTTPRoute])
	assert.Equal(t, int64(409), attrs[AttrStatus])
	assert.Equal(t, apperrors.ErrInProgress.Error(), attrs[AttrErrorMessage])
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	require.Len(t, ended[0].Events(), 1, "error recorded as an event")
}
