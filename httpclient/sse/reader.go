// Package sse decodes text/event-stream bodies sent by LLM providers.
package sse

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"
)

// maxLineSize bounds one field line. Long deltas exceed bufio's 64KiB default.
const maxLineSize = 1 << 20

// Event is one dispatched server-sent event.
type Event struct {
	// Type is the "event:" field; empty means "message".
	Type string
	// Data joins every "data:" line of the event with "\n".
	Data string
	// ID is the last "id:" field seen on the stream.
	ID string
	// Retry is the reconnection delay the server asked for, if any.
	Retry time.Duration
}

// Reader decodes events from a body. It is not safe for concurrent use.
type Reader struct {
	sc     *bufio.Scanner
	lastID string
	first  bool
}

// NewReader decodes events from r. Closing r is the caller's concern.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)
	sc.Split(splitLines)
	return &Reader{sc: sc, first: true}
}

// Next returns the next event that carries data. It returns io.EOF once the
// body ends; a trailing event without a blank line is still delivered.
func (r *Reader) Next() (Event, error) {
	var (
		ev      Event
		data    strings.Builder
		hasData bool
	)
	for r.sc.Scan() {
		line := r.sc.Text()
		if r.first {
			line = strings.TrimPrefix(line, "\ufeff")
			r.first = false
		}
		if line == "" {
			if hasData {
				return r.dispatch(ev, data.String()), nil
			}
			ev = Event{}
			continue
		}
		name, value := field(line)
		switch name {
		case "":
			// comment
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		case "event":
			ev.Type = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				r.lastID = value
			}
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms >= 0 {
				ev.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}
	if err := r.sc.Err(); err != nil {
		return Event{}, err
	}
	if hasData {
		return r.dispatch(ev, data.String()), nil
	}
	return Event{}, io.EOF
}

func (r *Reader) dispatch(ev Event, data string) Event {
	ev.Data = data
	ev.ID = r.lastID
	return ev
}

// field splits a line into name and value. Lines starting with ':' are
// comments and yield an empty name. One space after the colon is dropped.
func field(line string) (name, value string) {
	name, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	if name == "" {
		return "", ""
	}
	return name, strings.TrimPrefix(value, " ")
}

// splitLines is bufio.ScanLines extended to the three line endings an event
// stream may use: "\n", "\r\n" and a lone "\r".
func splitLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		// A trailing '\r' may be the first half of "\r\n".
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
