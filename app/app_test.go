package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/livecue/audio"
	"github.com/kbukum/livecue/bootstrap"
	"github.com/kbukum/livecue/capture"
	"github.com/kbukum/livecue/component"
	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/llm"
	"github.com/kbukum/livecue/logger"
	"github.com/kbukum/livecue/transcription/transcriptiontest"
)

type provider struct {
	mu       sync.Mutex
	requests []llm.CompletionRequest
	answer   []string
}

func (p *provider) Name() string { return "fake" }

func (p *provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.record(req)
	return &llm.CompletionResponse{Content: "summary"}, nil
}

func (p *provider) Stream(_ context.Context, req llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
	p.record(req)
	ch := make(chan llm.StreamChunk, len(p.answer)+1)
	for _, part := range p.answer {
		ch <- llm.StreamChunk{Content: part}
	}
	ch <- llm.StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

func (p *provider) record(req llm.CompletionRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
}

func (p *provider) Requests() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.CompletionRequest(nil), p.requests...)
}

// mic hands out pipes that stay silent until closed.
type mic struct {
	mu    sync.Mutex
	pipes []*io.PipeWriter
}

func (m *mic) Open(context.Context, audio.Format) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, w := io.Pipe()
	m.pipes = append(m.pipes, w)
	return r, nil
}

func (m *mic) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.pipes {
		_ = w.Close()
	}
}

// brokenBackend is a microphone whose backend probe fails.
type brokenBackend struct{ mic }

func (*brokenBackend) Probe(context.Context) (string, error) {
	return "", apperrors.DeviceUnavailable(errors.New("ffmpeg: not found"))
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

type harness struct {
	svc    *Service
	engine *transcriptiontest.Engine
	llm    *provider
	base   string
	done   chan error
	cancel context.CancelFunc
}

func start(t *testing.T, mutate func(*Config), opts ...Option) *harness {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Server.Port = freePort(t)
	cfg.Transcript.Debounce = time.Millisecond
	cfg.Context.SystemPrompt = "You are a sales coach."
	if mutate != nil {
		mutate(cfg)
	}

	m := &mic{}
	t.Cleanup(m.Close)
	h := &harness{
		engine: transcriptiontest.NewEngine(),
		llm:    &provider{answer: []string{"It is ", "ten."}},
		done:   make(chan error, 1),
	}
	svc, err := New(context.Background(), cfg, append([]Option{
		WithDevice(m),
		WithEngine(h.engine),
		WithProvider(h.llm),
		WithBootstrapOptions(bootstrap.WithLogger(logger.Nop()), bootstrap.WithoutSignals(), bootstrap.WithGracefulTimeout(2*time.Second)),
	}, opts...)...)
	require.NoError(t, err)
	h.svc = svc
	h.base = fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- svc.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(5 * time.Second):
			t.Error("service did not stop")
		}
	})
	require.Eventually(t, svc.Server.Listening, 2*time.Second, 5*time.Millisecond)
	return h
}

func (h *harness) post(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Post(h.base+path, "application/json", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (h *harness) stop(t *testing.T) error {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.done:
		h.done <- err
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
		return nil
	}
}

func TestNew_RegistersComponents(t *testing.T) {
	h := start(t, nil)

	var names []string
	for _, c := range h.svc.Components.All() {
		names = append(names, c.Name())
	}
	assert.Equal(t, []string{"telemetry", "sse", "capture", "session", "http-server"}, names)
	assert.Nil(t, h.svc.Watcher, "no context files configured")

	resp, err := http.Get(h.base + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	metrics, err := http.Get(h.base + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(metrics.Body).Decode(&body))
	assert.JSONEq(t, `{"in_flight":false,"turns":0}`, string(body["session"]))
	assert.Contains(t, body, "capture")
	assert.Contains(t, body, "events")
}

func TestService_ProbeFailureDegradesCapture(t *testing.T) {
	h := start(t, nil, WithDevice(&brokenBackend{}))

	var capHealth component.Health
	for _, hh := range h.svc.Components.HealthAll(context.Background()) {
		if hh.Name == "capture" {
			capHealth = hh
		}
	}
	assert.Equal(t, component.StatusDegraded, capHealth.Status)
	assert.Equal(t, "No microphone is available.", capHealth.Message)

	resp, err := http.Get(h.base + "/health/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "degraded capture keeps the service ready")
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.Provider = "whisper"
	_, err := New(context.Background(), cfg,
		WithBootstrapOptions(bootstrap.WithLogger(logger.Nop()), bootstrap.WithoutSignals()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.provider")
}

func TestService_CaptureSubmitRoundTrip(t *testing.T) {
	h := start(t, nil)

	assert.Equal(t, http.StatusOK, h.post(t, "/api/capture/start").StatusCode)
	require.Eventually(t, func() bool { return h.engine.Streams() == 1 }, 2*time.Second, 5*time.Millisecond)
	s := h.engine.Last()
	s.Ready()
	s.Final("What is the price?")
	require.Eventually(t, func() bool {
		return h.svc.Transcript.CurrentText().Final == "What is the price?"
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, http.StatusAccepted, h.post(t, "/api/submit").StatusCode)
	require.Eventually(t, func() bool { return h.svc.Orchestrator.State().Complete }, 2*time.Second, 5*time.Millisecond)

	st := h.svc.Orchestrator.State()
	assert.Equal(t, "It is ten.", st.Text)
	assert.False(t, st.Failed())
	assert.Empty(t, h.svc.Transcript.CurrentText().Text(), "submit clears the transcript")

	reqs := h.llm.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].SystemPrompt, "You are a sales coach.")

	assert.Equal(t, http.StatusUnprocessableEntity, h.post(t, "/api/submit").StatusCode, "nothing left to submit")

	require.NoError(t, h.stop(t))
	assert.Equal(t, capture.StatusInactive, h.svc.Capture.Status().Status)
	assert.True(t, s.Closed())
}

func TestService_ContextFilesReload(t *testing.T) {
	dir := t.TempDir()
	goals := filepath.Join(dir, "goals.md")
	notes := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(goals, []byte("Win the renewal."), 0o600))
	require.NoError(t, os.WriteFile(notes, []byte("Pricing starts at ten dollars per seat.\n\nSupport is included."), 0o600))

	h := start(t, func(c *Config) {
		c.Context.GoalsFile = goals
		c.Context.Documents = []string{notes}
	})
	require.NotNil(t, h.svc.Watcher)
	assert.Equal(t, "Win the renewal.", h.svc.Profile.Profile().Goals)

	require.NoError(t, os.WriteFile(goals, []byte("Upsell support."), 0o600))
	require.Eventually(t, func() bool {
		return h.svc.Profile.Profile().Goals == "Upsell support."
	}, 3*time.Second, 10*time.Millisecond)

	ref, err := h.svc.Documents.Retrieve(context.Background(), "what is the pricing per seat")
	require.NoError(t, err)
	assert.True(t, strings.Contains(ref, "ten dollars"), ref)
}
