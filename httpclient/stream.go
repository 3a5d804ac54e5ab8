package httpclient

import (
	"bufio"
	"io"
	"mime"
	"net/http"

	"github.com/kbukum/livecue/httpclient/sse"
)

// maxLineSize bounds one newline-delimited record.
const maxLineSize = 1 << 20

// StreamResponse is a successful response whose body is still open. Read it
// with Events or Lines, then Close it.
type StreamResponse struct {
	StatusCode int
	Headers    map[string]string

	mediaType string
	body      io.ReadCloser
}

func newStreamResponse(resp *http.Response) *StreamResponse {
	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return &StreamResponse{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		mediaType:  mt,
		body:       resp.Body,
	}
}

// IsEventStream reports whether the body is text/event-stream.
func (r *StreamResponse) IsEventStream() bool {
	return r.mediaType == "text/event-stream"
}

// Events decodes the body as server-sent events.
func (r *StreamResponse) Events() *sse.Reader {
	return sse.NewReader(r.body)
}

// Lines returns a function yielding each non-empty line of the body, then
// io.EOF. It suits newline-delimited JSON.
func (r *StreamResponse) Lines() func() ([]byte, error) {
	sc := bufio.NewScanner(r.body)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)
	return func() ([]byte, error) {
		for sc.Scan() {
			if line := sc.Bytes(); len(line) > 0 {
				return line, nil
			}
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
}

// Close aborts the body. It is safe to call more than once.
func (r *StreamResponse) Close() error {
	if r.body == nil {
		return nil
	}
	return r.body.Close()
}
