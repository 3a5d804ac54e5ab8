package sse

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r io.Reader) []Event {
	t.Helper()
	rd := NewReader(r)
	var out []Event
	for {
		ev, err := rd.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, ev)
	}
}

func TestReader(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []Event
	}{
		{"single", "data: hello world\n\n", []Event{{Data: "hello world"}}},
		{"several", "data: first\n\ndata: second\n\n", []Event{{Data: "first"}, {Data: "second"}}},
		{"typed", "event: delta\ndata: {}\n\n", []Event{{Type: "delta", Data: "{}"}}},
		{"multi line data", "data: a\ndata: b\ndata:\n\n", []Event{{Data: "a\nb\n"}}},
		{"no space after colon", "data:tight\n\n", []Event{{Data: "tight"}}},
		{"only one space stripped", "data:  two\n\n", []Event{{Data: " two"}}},
		{"comments and keepalives", ": ping\n\n: ping\ndata: x\n\n", []Event{{Data: "x"}}},
		{"crlf", "data: a\r\n\r\ndata: b\r\n\r\n", []Event{{Data: "a"}, {Data: "b"}}},
		{"lone cr", "data: a\r\rdata: b\r\r", []Event{{Data: "a"}, {Data: "b"}}},
		{"no trailing blank line", "data: [DONE]", []Event{{Data: "[DONE]"}}},
		{"byte order mark", "\ufeffdata: x\n\n", []Event{{Data: "x"}}},
		{"event without data is dropped", "event: ping\n\ndata: x\n\n", []Event{{Data: "x"}}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, readAll(t, strings.NewReader(tt.body)))
		})
	}
}

func TestReader_IDPersistsAcrossEvents(t *testing.T) {
	got := readAll(t, strings.NewReader("id: 7\ndata: a\n\ndata: b\n\nid\ndata: c\n\n"))
	require.Len(t, got, 3)
	assert.Equal(t, "7", got[0].ID)
	assert.Equal(t, "7", got[1].ID)
	assert.Empty(t, got[2].ID, "a bare id field resets it")
}

func TestReader_Retry(t *testing.T) {
	got := readAll(t, strings.NewReader("retry: 1500\ndata: a\n\nretry: soon\ndata: b\n\n"))
	require.Len(t, got, 2)
	assert.Equal(t, 1500*time.Millisecond, got[0].Retry)
	assert.Zero(t, got[1].Retry)
}

func TestReader_SplitAcrossReads(t *testing.T) {
	body := "data: one\r\n\r\ndata: two\r\n\r\n"
	got := readAll(t, iotest.OneByteReader(strings.NewReader(body)))
	assert.Equal(t, []Event{{Data: "one"}, {Data: "two"}}, got)
}

func TestReader_LongLine(t *testing.T) {
	long := strings.Repeat("x", 200_000)
	got := readAll(t, strings.NewReader("data: "+long+"\n\n"))
	require.Len(t, got, 1)
	assert.Len(t, got[0].Data, len(long))
}

func TestReader_ReadError(t *testing.T) {
	r := NewReader(iotest.ErrReader(io.ErrUnexpectedEOF))
	_, err := r.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
