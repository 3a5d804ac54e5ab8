package httpclient

// Request describes an outbound call relative to the client's BaseURL.
type Request struct {
	// Method defaults to GET.
	Method string
	// Path is joined to BaseURL unless it is an absolute http(s) URL.
	Path string
	// Headers override the client defaults for this call.
	Headers map[string]string
	// Body is sent as is for io.Reader, as JSON for []byte and for any
	// other value after encoding, and as text/plain for string.
	Body any
	// Auth replaces the client-level auth for this call.
	Auth *AuthConfig
}

// Response is a fully read reply.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}
