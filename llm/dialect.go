package llm

import "github.com/kbukum/livecue/util"

// StreamFormat is the framing a provider uses for streamed completions.
type StreamFormat string

const (
	// StreamNDJSON sends one JSON object per line (Ollama).
	StreamNDJSON StreamFormat = "ndjson"
	// StreamSSE sends server-sent events (OpenAI-compatible APIs).
	StreamSSE StreamFormat = "sse"
)

// Accept is the media type to request for the format.
func (f StreamFormat) Accept() string {
	if f == StreamSSE {
		return "text/event-stream"
	}
	return "application/x-ndjson"
}

// Dialect translates between provider-neutral requests and one provider's
// HTTP API. Implementations register themselves from init.
type Dialect interface {
	Name() string
	ChatPath() string
	// HealthPath is a cheap GET used to probe the provider. Empty skips the
	// probe.
	HealthPath() string
	// BuildRequest returns the JSON-encodable request body.
	BuildRequest(req CompletionRequest) (any, error)
	ParseResponse(body []byte) (*CompletionResponse, error)
	StreamFormat() StreamFormat
	// ParseStreamChunk extracts the text of one stream payload and reports
	// whether it is the last one.
	ParseStreamChunk(data []byte) (content string, done bool, err error)
}

// OpenEndedStreamer is implemented by dialects whose provider may close a
// stream without its terminator. For them a clean EOF completes the stream;
// for every other dialect it is a truncation.
type OpenEndedStreamer interface {
	OpenEndedStream() bool
}

func openEnded(d Dialect) bool {
	o, ok := d.(OpenEndedStreamer)
	return ok && o.OpenEndedStream()
}

var dialects = util.NewRegistry[Dialect]("llm dialect")

// RegisterDialect makes d available under d.Name().
//
//	func init() { llm.RegisterDialect(Dialect{}) }
func RegisterDialect(d Dialect) { dialects.Register(d.Name(), d) }

// GetDialect returns the dialect registered under name.
func GetDialect(name string) (Dialect, error) { return dialects.Lookup(name) }

// Dialects returns the sorted names of the registered dialects.
func Dialects() []string { return dialects.Names() }
