// Package deepgram registers the "deepgram" transcription engine, a client
// for Deepgram's live websocket API.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/transcription"
)

// Name is the registered engine name.
const Name = "deepgram"

const (
	defaultBaseURL = "https://api.deepgram.com/v1"
	defaultModel   = "nova-2"
)

var errClosed = errors.New("deepgram: stream closed")

func init() {
	transcription.RegisterEngine(Name, func(cfg transcription.EngineConfig) (transcription.Engine, error) {
		smart, _ := strconv.ParseBool(cfg.Options["smart_format"])
		return New(Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			SmartFormat: smart,
		}), nil
	})
}

// Config controls the websocket connection.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	SmartFormat bool
	// HandshakeTimeout bounds the websocket handshake.
	HandshakeTimeout time.Duration
}

// Engine opens Deepgram live streams.
type Engine struct {
	cfg    Config
	dialer *websocket.Dialer
}

var _ transcription.Engine = (*Engine)(nil)

// New creates an engine with defaults applied.
func New(cfg Config) *Engine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Engine{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout, Proxy: http.ProxyFromEnvironment},
	}
}

// Name implements transcription.Engine.
func (e *Engine) Name() string { return Name }

// Open dials the listen endpoint. Deepgram closes the socket on its own
// after a period without audio, which surfaces as a natural End.
func (e *Engine) Open(ctx context.Context, sc transcription.StreamConfig) (transcription.Stream, error) {
	if strings.TrimSpace(e.cfg.APIKey) == "" {
		return nil, apperrors.RecognitionFailed(errors.New("deepgram api key is not configured"))
	}
	wsURL, err := buildListenURL(e.cfg, sc)
	if err != nil {
		return nil, apperrors.RecognitionFailed(err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+e.cfg.APIKey)

	conn, resp, err := e.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, apperrors.RecognitionFailed(fmt.Errorf("deepgram handshake: %s", resp.Status))
		}
		return nil, apperrors.RecognitionNetwork(err)
	}

	s := &stream{
		conn:     conn,
		events:   make(chan transcription.Event, 64),
		audio:    make(chan []byte, 32),
		closing:  make(chan struct{}),
		readDone: make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.events <- transcription.Event{Type: transcription.EventReady}

	s.wg.Add(2)
	go s.readLoop()
	go s.writeLoop()
	go s.finish()
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

type stream struct {
	conn *websocket.Conn

	events   chan transcription.Event
	audio    chan []byte
	closing  chan struct{}
	readDone chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup

	errMu sync.Mutex
	err   error

	sendMu     sync.RWMutex
	sendClosed bool
	closeOnce  sync.Once
}

func (s *stream) Events() <-chan transcription.Event { return s.events }

func (s *stream) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.sendClosed {
		return errClosed
	}
	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.done:
		return errClosed
	}
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		_ = s.conn.Close()
		s.sendMu.Lock()
		s.sendClosed = true
		close(s.audio)
		s.sendMu.Unlock()
	})
	<-s.done
	return nil
}

// finish emits the terminal events once both loops have exited.
func (s *stream) finish() {
	s.wg.Wait()
	_ = s.conn.Close()
	if err := s.loadErr(); err != nil {
		s.emit(transcription.Event{Type: transcription.EventError, Err: err})
	}
	s.emit(transcription.Event{Type: transcription.EventEnd})
	close(s.events)
	close(s.done)
}

func (s *stream) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				_ = s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
				return
			}
			if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				s.setErr(apperrors.RecognitionNetwork(err))
				_ = s.conn.Close()
				return
			}
		case <-s.readDone:
			return
		}
	}
}

func (s *stream) readLoop() {
	defer s.wg.Done()
	defer close(s.readDone)
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.readErr(err)
			return
		}

		var msg message
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		if strings.EqualFold(msg.Type, "Error") {
			text := strings.TrimSpace(msg.Message)
			if text == "" {
				text = "deepgram returned an unknown error"
			}
			s.setErr(apperrors.RecognitionFailed(errors.New(text)))
			_ = s.conn.Close()
			return
		}

		text := msg.transcript()
		if strings.TrimSpace(text) == "" {
			continue
		}
		kind := transcription.Interim
		if msg.IsFinal || msg.SpeechFinal {
			kind = transcription.Final
			// Finals are concatenated downstream, so they carry their own spacing.
			text += " "
		}
		s.emit(transcription.Event{
			Type:     transcription.EventFragment,
			Fragment: transcription.Fragment{Text: text, Kind: kind},
		})
	}
}

// readErr records read failures that are not a normal end of stream.
func (s *stream) readErr(err error) {
	select {
	case <-s.closing:
		return
	default:
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}
	s.setErr(apperrors.RecognitionNetwork(err))
}

func (s *stream) emit(ev transcription.Event) {
	select {
	case s.events <- ev:
	case <-s.closing:
	}
}

func (s *stream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *stream) loadErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

type message struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (m message) transcript() string {
	if len(m.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(m.Channel.Alternatives[0].Transcript)
}

func buildListenURL(cfg Config, sc transcription.StreamConfig) (string, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	u, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid deepgram base url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("invalid deepgram base url scheme %q", u.Scheme)
	}

	sc.ApplyDefaults()
	q := u.Query()
	q.Set("model", cfg.Model)
	q.Set("encoding", sc.Encoding)
	q.Set("sample_rate", strconv.Itoa(sc.SampleRate))
	q.Set("channels", strconv.Itoa(sc.Channels))
	q.Set("interim_results", strconv.FormatBool(sc.InterimResults))
	q.Set("smart_format", strconv.FormatBool(cfg.SmartFormat))
	if sc.Language != "" {
		q.Set("language", sc.Language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
