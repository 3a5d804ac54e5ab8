// Package httpclient is the HTTP transport under the generation providers.
//
// It resolves paths against a base URL, applies default headers and auth,
// and classifies every failure into an *errors.AppError: transport failures
// become TIMEOUT or CONNECTION_FAILED, and status codes map to
// UNAUTHORIZED, RATE_LIMITED, TIMEOUT or EXTERNAL_SERVICE_ERROR.
//
//	client, _ := httpclient.New(httpclient.Config{
//	    Service: "openai",
//	    BaseURL: "https://api.openai.com/v1",
//	    Auth:    httpclient.BearerAuth(apiKey),
//	})
//	stream, err := client.DoStream(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/chat/completions",
//	    Body:   payload,
//	})
//
// The sse subpackage reads text/event-stream bodies.
package httpclient
