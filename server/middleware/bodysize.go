package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/livecue/util"
)

const defaultMaxBodySize = 1 << 20

// BodySizeLimit restricts request bodies to maxSize ("1MB", "512KB").
// Empty or invalid sizes fall back to 1MB; Config.Validate rejects
// invalid ones before this is reached.
func BodySizeLimit(maxSize string) gin.HandlerFunc {
	size := util.SizeOr(maxSize, defaultMaxBodySize)
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, size)
		c.Next()
	}
}
