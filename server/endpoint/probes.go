package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/livecue/component"
)

// started is the process start used for uptime.
var started = time.Now()

// HealthChecker returns health status for registered components.
type HealthChecker func(ctx context.Context) []component.Health

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status     component.HealthStatus `json:"status"`
	Service    string                 `json:"service"`
	Timestamp  string                 `json:"timestamp"`
	Components []component.Health     `json:"components,omitempty"`
}

// ProbeResponse is the body of /health/live and /health/ready.
type ProbeResponse struct {
	Status        string   `json:"status"`
	Service       string   `json:"service"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Failing       []string `json:"failing,omitempty"`
}

// Health reports every component. Any unhealthy component answers 503;
// degraded ones still answer 200 so a capture error does not look like an
// outage.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var components []component.Health
		if checker != nil {
			components = checker(c.Request.Context())
		}
		status := component.Summarize(components).Status

		code := http.StatusOK
		if status == component.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, HealthResponse{
			Status:     status,
			Service:    serviceName,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Components: components,
		})
	}
}

// Readiness answers 503 naming the unhealthy components, if any.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := ProbeResponse{Status: "ready", Service: serviceName, UptimeSeconds: uptime()}
		code := http.StatusOK
		if checker != nil {
			if sum := component.Summarize(checker(c.Request.Context())); !sum.Ready() {
				resp.Status = "not_ready"
				resp.Failing = sum.Unhealthy
				code = http.StatusServiceUnavailable
			}
		}
		c.JSON(code, resp)
	}
}

// Liveness answers 200 while the process can serve HTTP.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, ProbeResponse{Status: "alive", Service: serviceName, UptimeSeconds: uptime()})
	}
}

func uptime() int64 { return int64(time.Since(started).Seconds()) }
