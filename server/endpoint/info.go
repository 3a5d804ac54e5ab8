package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/livecue/version"
)

// InfoResponse is the body of /info.
type InfoResponse struct {
	Service       string       `json:"service"`
	Build         version.Info `json:"build"`
	UptimeSeconds int64        `json:"uptime_seconds"`
}

// Info reports the build the service runs.
func Info(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, InfoResponse{
			Service:       serviceName,
			Build:         version.Get(),
			UptimeSeconds: uptime(),
		})
	}
}
