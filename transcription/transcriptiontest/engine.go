// Package transcriptiontest provides a scriptable in-memory engine.
package transcriptiontest

import (
	"context"
	"sync"

	"github.com/kbukum/livecue/transcription"
)

// Engine records every Open and hands out scriptable streams.
type Engine struct {
	mu      sync.Mutex
	streams []*Stream
	configs []transcription.StreamConfig
	openErr []error
}

var _ transcription.Engine = (*Engine)(nil)

// NewEngine returns an engine whose streams succeed until told otherwise.
func NewEngine() *Engine { return &Engine{} }

// Name implements transcription.Engine.
func (e *Engine) Name() string { return "fake" }

// FailNextOpen makes the next Open return err.
func (e *Engine) FailNextOpen(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.openErr = append(e.openErr, err)
}

// Open implements transcription.Engine.
func (e *Engine) Open(ctx context.Context, cfg transcription.StreamConfig) (transcription.Stream, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.configs = append(e.configs, cfg)
	if len(e.openErr) > 0 {
		err := e.openErr[0]
		e.openErr = e.openErr[1:]
		return nil, err
	}
	s := &Stream{events: make(chan transcription.Event, 64)}
	e.streams = append(e.streams, s)
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()
	return s, nil
}

// Opens returns how many times Open was called.
func (e *Engine) Opens() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.configs)
}

// Streams returns how many streams were opened successfully.
func (e *Engine) Streams() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.streams)
}

// Last returns the most recently opened stream, or nil.
func (e *Engine) Last() *Stream {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.streams) == 0 {
		return nil
	}
	return e.streams[len(e.streams)-1]
}

// Stream is a stream driven by the test.
type Stream struct {
	mu     sync.Mutex
	events chan transcription.Event
	audio  [][]byte
	closed bool
}

var _ transcription.Stream = (*Stream)(nil)

// Events implements transcription.Stream.
func (s *Stream) Events() <-chan transcription.Event { return s.events }

// SendAudio implements transcription.Stream.
func (s *Stream) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, append([]byte(nil), chunk...))
	return nil
}

// Close implements transcription.Stream.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

// Closed reports whether the stream was closed.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Audio returns every chunk received so far.
func (s *Stream) Audio() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.audio...)
}

// Emit delivers ev unless the stream is closed.
func (s *Stream) Emit(ev transcription.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.events <- ev
	}
}

// Ready emits EventReady.
func (s *Stream) Ready() { s.Emit(transcription.Event{Type: transcription.EventReady}) }

// Interim emits an interim fragment.
func (s *Stream) Interim(text string) {
	s.Emit(transcription.Event{Type: transcription.EventFragment, Fragment: transcription.Fragment{Text: text, Kind: transcription.Interim}})
}

// Final emits a final fragment.
func (s *Stream) Final(text string) {
	s.Emit(transcription.Event{Type: transcription.EventFragment, Fragment: transcription.Fragment{Text: text, Kind: transcription.Final}})
}

// End emits EventEnd.
func (s *Stream) End() { s.Emit(transcription.Event{Type: transcription.EventEnd}) }

// Fail emits err followed by End.
func (s *Stream) Fail(err error) {
	s.Emit(transcription.Event{Type: transcription.EventError, Err: err})
	s.End()
}
