package llm

import (
	"context"
	"errors"
	"io"

	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/httpclient"
)

var errUnexpectedEOF = errors.New("stream ended before completion")

// readStream pumps provider payloads into ch until done, error or cancellation.
func (a *Adapter) readStream(ctx context.Context, resp *httpclient.StreamResponse, ch chan<- StreamChunk) {
	defer close(ch)
	defer func() { _ = resp.Close() }()

	next := a.payloads(resp)
	for {
		data, err := next()
		if err != nil {
			if ctx.Err() != nil {
				// The consumer owns ctx and reads the cause from it.
				return
			}
			if errors.Is(err, io.EOF) {
				if openEnded(a.dialect) {
					a.send(ctx, ch, StreamChunk{Done: true})
					return
				}
				err = errUnexpectedEOF
			}
			a.send(ctx, ch, StreamChunk{Err: httpclient.ClassifyTransportError(a.dialect.Name(), err)})
			return
		}

		content, done, parseErr := a.dialect.ParseStreamChunk(data)
		if parseErr != nil {
			a.send(ctx, ch, StreamChunk{Err: apperrors.ExternalServiceError(a.dialect.Name(), parseErr)})
			return
		}
		if content == "" && !done {
			continue
		}
		if !a.send(ctx, ch, StreamChunk{Content: content, Done: done}) || done {
			return
		}
	}
}

// payloads returns a function yielding the next raw payload of the stream.
func (a *Adapter) payloads(resp *httpclient.StreamResponse) func() ([]byte, error) {
	sse := a.dialect.StreamFormat() == StreamSSE
	switch {
	case sse && !resp.IsEventStream():
		return failing(errors.New("expected text/event-stream response"))
	case !sse && resp.IsEventStream():
		return failing(errors.New("expected newline-delimited JSON response"))
	case !sse:
		return resp.Lines()
	}
	events := resp.Events()
	return func() ([]byte, error) {
		ev, err := events.Next()
		if err != nil {
			return nil, err
		}
		return []byte(ev.Data), nil
	}
}

func failing(err error) func() ([]byte, error) {
	return func() ([]byte, error) { return nil, err }
}

// send delivers c unless ctx is done first.
func (a *Adapter) send(ctx context.Context, ch chan<- StreamChunk, c StreamChunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
