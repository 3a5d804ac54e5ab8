package httpclient

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strings"

	"github.com/kbukum/livecue/errors"
)

// ClassifyStatusCode converts a non-2xx status into a classified AppError.
// It returns nil for 2xx.
//
//	401, 403       -> UNAUTHORIZED
//	429            -> RATE_LIMITED
//	408, 504       -> TIMEOUT
//	502, 503       -> CONNECTION_FAILED
//	anything else  -> EXTERNAL_SERVICE_ERROR
func ClassifyStatusCode(service string, statusCode int, body []byte) *errors.AppError {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var appErr *errors.AppError
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		appErr = errors.Unauthorized("")
	case http.StatusTooManyRequests:
		appErr = errors.RateLimited()
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		appErr = errors.Timeout(service)
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		appErr = errors.ConnectionFailed(service)
	default:
		appErr = errors.ExternalServiceError(service, nil)
	}

	appErr.WithDetail("status", statusCode)
	if len(body) > 0 {
		appErr.WithCause(&StatusError{StatusCode: statusCode, Body: truncate(string(body), 512)})
	}
	return appErr
}

// ClassifyTransportError converts a failure that happened before any status
// code into TIMEOUT or CONNECTION_FAILED.
func ClassifyTransportError(service string, err error) *errors.AppError {
	if isTimeout(err) {
		return errors.Timeout(service).WithCause(err)
	}
	return errors.ConnectionFailed(service).WithCause(err)
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// StatusError carries the raw provider response for logs.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return http.StatusText(e.StatusCode) + ": " + e.Body
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
