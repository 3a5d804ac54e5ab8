package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/livecue/logger"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(WithLogger(logger.Nop()))
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func recv(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case frame := <-c.Events():
		return string(frame)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return ""
	}
}

func assertQuiet(t *testing.T, c *Client) {
	t.Helper()
	select {
	case frame := <-c.Events():
		t.Fatalf("unexpected frame %q", frame)
	case <-time.After(20 * time.Millisecond):
	}
}

// waitDrained waits until the hub loop has taken every queued publish.
func waitDrained(t *testing.T, hub *Hub) {
	t.Helper()
	require.Eventually(t, func() bool { return len(hub.broadcast) == 0 }, time.Second, time.Millisecond)
}

func TestEncode(t *testing.T) {
	frame, err := Encode(Event{Type: EventTypeTranscript, Data: TranscriptPayload{Final: "Hello ", Interim: "wor"}})
	require.NoError(t, err)
	assert.Equal(t, "event: transcript\ndata: {\"final\":\"Hello \",\"interim\":\"wor\"}\n\n", string(frame))

	_, err = Encode(Event{Type: "bad", Data: make(chan int)})
	assert.Error(t, err)
}

func TestClient_Wants(t *testing.T) {
	all := NewClient("a")
	assert.True(t, all.Wants(EventTypeLevels))
	assert.Equal(t, []string{"*"}, all.Topics())

	some := NewClient("b", WithTopics("response.*", EventTypeCaptureStatus))
	assert.True(t, some.Wants(EventTypeResponseDelta))
	assert.True(t, some.Wants(EventTypeCaptureStatus))
	assert.False(t, some.Wants(EventTypeLevels))

	bad := NewClient("c", WithTopics("[", "transcript"))
	assert.True(t, bad.Wants("transcript"))
	assert.False(t, bad.Wants("["))
}

func TestClient_SendDropsWhenFull(t *testing.T) {
	c := NewClient("a", WithBuffer(2))
	assert.True(t, c.Send([]byte("1")))
	assert.True(t, c.Send([]byte("2")))
	assert.False(t, c.Send([]byte("3")))
}

func TestHub_DeliversToSubscribers(t *testing.T) {
	hub := newTestHub(t)
	everything := NewClient("all")
	responses := NewClient("resp", WithTopics("response.*"))
	require.True(t, hub.Register(everything))
	require.True(t, hub.Register(responses))
	require.Eventually(t, func() bool { return hub.GetClientCount() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, hub.Publish(Event{Type: EventTypeLevels, Data: LevelsPayload{Bins: []int{1, 2}}}))
	require.NoError(t, hub.Publish(Event{Type: EventTypeResponseDelta, Data: ResponsePayload{RequestID: 1, Delta: "Hi", Text: "Hi"}}))

	assert.Contains(t, recv(t, everything), "event: audio.levels")
	assert.Contains(t, recv(t, everything), "event: response.delta")
	assert.Contains(t, recv(t, responses), `"delta":"Hi"`)
	assertQuiet(t, responses)
}

func TestHub_ReplaysRetainedState(t *testing.T) {
	hub := newTestHub(t)
	require.NoError(t, hub.Publish(Event{Type: EventTypeCaptureStatus, Retain: "capture", Data: StatusPayload{Status: "active"}}))
	require.NoError(t, hub.Publish(Event{Type: EventTypeResponseStarted, Retain: "response", Data: ResponsePayload{RequestID: 1}}))
	require.NoError(t, hub.Publish(Event{Type: EventTypeResponseDelta, Retain: "response", Data: ResponsePayload{RequestID: 1, Text: "Partial"}}))
	require.NoError(t, hub.Publish(Event{Type: EventTypeLevels, Data: LevelsPayload{Bins: []int{9}}}))

	waitDrained(t, hub)
	late := NewClient("late")
	require.True(t, hub.Register(late))

	assert.Contains(t, recv(t, late), `"status":"active"`)
	assert.Contains(t, recv(t, late), `"text":"Partial"`)
	assertQuiet(t, late)
}

func TestHub_ReplayHonorsTopics(t *testing.T) {
	hub := newTestHub(t)
	require.NoError(t, hub.Publish(Event{Type: EventTypeCaptureStatus, Retain: "capture", Data: StatusPayload{Status: "error"}}))
	require.NoError(t, hub.Publish(Event{Type: EventTypeTranscript, Retain: "transcript", Data: TranscriptPayload{Final: "x"}}))

	waitDrained(t, hub)
	c := NewClient("t", WithTopics(EventTypeTranscript))
	require.True(t, hub.Register(c))
	assert.Contains(t, recv(t, c), "event: transcript")
	assertQuiet(t, c)
}

func TestHub_ReconnectReplacesClient(t *testing.T) {
	hub := newTestHub(t)
	first := NewClient("same")
	second := NewClient("same")
	require.True(t, hub.Register(first))
	require.True(t, hub.Register(second))

	_, open := <-first.Events()
	assert.False(t, open, "replaced client is closed")

	hub.Unregister(first)
	require.NoError(t, hub.Publish(Event{Type: EventTypeTranscript, Data: TranscriptPayload{}}))
	assert.Contains(t, recv(t, second), "event: transcript")
	assert.Equal(t, 1, hub.GetClientCount())
}

func TestHub_Stop(t *testing.T) {
	hub := NewHub(WithLogger(logger.Nop()))
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	c := NewClient("a")
	require.True(t, hub.Register(c))
	hub.Stop()
	hub.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	_, open := <-c.Events()
	assert.False(t, open)
	assert.Zero(t, hub.GetClientCount())

	assert.False(t, hub.Register(NewClient("b")))
	assert.NoError(t, hub.Publish(Event{Type: EventTypeTranscript, Data: TranscriptPayload{}}), "publish after stop does not block")
}

func TestServeSSE(t *testing.T) {
	hub := newTestHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(hub, w, r, "browser-1", WithTopics("transcript"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	r := bufio.NewReader(resp.Body)
	readFrame := func() string {
		var b strings.Builder
		for {
			line, err := r.ReadString('\n')
			require.NoError(t, err)
			if line == "\n" {
				return b.String()
			}
			b.WriteString(line)
		}
	}

	connected := readFrame()
	assert.Contains(t, connected, "event: connected")
	assert.Contains(t, connected, `"client_id":"browser-1"`)

	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, hub.Publish(Event{Type: EventTypeLevels, Data: LevelsPayload{Bins: []int{1}}}))
	require.NoError(t, hub.Publish(Event{Type: EventTypeTranscript, Data: TranscriptPayload{Final: "Hello "}}))

	frame := readFrame()
	assert.Contains(t, frame, "event: transcript")
	assert.Contains(t, frame, `"final":"Hello "`)

	cancel()
	require.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestComponent_Lifecycle(t *testing.T) {
	hub := NewHub(WithLogger(logger.Nop()))
	c := NewComponent(hub, "/api/events")
	assert.Equal(t, "sse", c.Name())
	assert.Equal(t, "/api/events", c.Describe().Details)
	require.NoError(t, c.Stop(context.Background()), "stop before start is a no-op")

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Start(context.Background()))
	client := NewClient("a")
	require.True(t, hub.Register(client))
	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "1 clients connected", c.Health(context.Background()).Message)

	require.NoError(t, c.Stop(context.Background()))
	_, open := <-client.Events()
	assert.False(t, open)
	require.NoError(t, c.Stop(context.Background()))
}
