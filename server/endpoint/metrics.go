package endpoint

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
)

// StatsFunc returns one JSON section of /metrics.
type StatsFunc func() any

// Metrics reports Go runtime figures under "runtime" plus one key per
// section. sections is read on every request so sections added after the
// route was registered show up.
func Metrics(sections func() map[string]StatsFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		body := gin.H{
			"runtime": gin.H{
				"goroutines":       runtime.NumGoroutine(),
				"heap_alloc_bytes": m.HeapAlloc,
				"sys_bytes":        m.Sys,
				"gc_runs":          m.NumGC,
				"gc_pause_ms":      float64(m.PauseTotalNs) / 1e6,
			},
		}
		if sections != nil {
			for name, fn := range sections() {
				if name != "runtime" {
					body[name] = fn()
				}
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
