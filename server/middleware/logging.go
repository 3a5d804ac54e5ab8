package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/livecue/logger"
)

// RequestRecorder receives per-request measurements.
// observability.HTTPMetrics implements it.
type RequestRecorder interface {
	RecordRequestStart(ctx context.Context)
	RecordRequestEnd(ctx context.Context, method, route string, status int, d time.Duration)
}

// RequestLogger logs every request with method, route, status and
// duration, and reports it to rec when rec is non-nil. Health probes are
// measured but not logged.
func RequestLogger(log *logger.Logger, rec RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithoutCancel(c.Request.Context())
		if rec != nil {
			rec.RecordRequestStart(ctx)
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if rec != nil {
			rec.RecordRequestEnd(ctx, c.Request.Method, route, status, duration)
		}
		if isHealthEndpoint(c.Request.URL.Path) {
			return
		}

		fields := logger.Fields(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			logger.FieldStatus, status,
			logger.FieldDuration, duration.Milliseconds(),
			"client", c.ClientIP(),
		)
		if id := c.GetString(RequestIDKey); id != "" {
			fields[logger.FieldRequestID] = id
		}
		if len(c.Errors) > 0 {
			fields[logger.FieldError] = c.Errors.String()
		}
		logByStatus(log, fields, status)
	}
}

func isHealthEndpoint(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}

// logByStatus logs request fields at the level matching the status code.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("request completed", fields)
	case status >= 400:
		log.Warn("request completed", fields)
	default:
		log.Debug("request completed", fields)
	}
}
