package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/livecue/observability"
)

// Tracing starts a server span per request. Generation spans started by a
// submit become its children.
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := observability.StartSpan(c.Request.Context(), observability.SpanHTTPRequest,
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		observability.SetSpanAttributes(ctx,
			observability.AttrHTTPMethod.String(c.Request.Method),
			observability.AttrRequestID.String(c.GetString(RequestIDKey)),
		)
		c.Next()

		observability.SetSpanAttributes(ctx,
			observability.AttrHTTPRoute.String(c.FullPath()),
			observability.AttrStatus.Int(c.Writer.Status()),
		)
		if len(c.Errors) > 0 {
			observability.SetSpanError(ctx, c.Errors.Last())
		}
	}
}
