package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/logger"
)

// Recovery recovers from handler panics, logs the stack and answers with
// an internal error body.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered", logger.Fields(
					logger.FieldError, fmt.Sprintf("%v", rec),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					logger.FieldRequestID, c.GetString(RequestIDKey),
				))
				c.AbortWithStatusJSON(http.StatusInternalServerError, apperrors.Internal(nil).Render())
			}
		}()
		c.Next()
	}
}
