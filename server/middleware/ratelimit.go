package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/livecue/clock"
	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/resilience"
)

// RateLimitConfig limits requests per client.
type RateLimitConfig struct {
	// RequestsPerMinute is both the sustained rate and the burst a client
	// may spend at once.
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	// KeyFunc picks the client key. Defaults to the client IP.
	KeyFunc func(*gin.Context) string `yaml:"-" mapstructure:"-"`
	// Clock defaults to the real clock.
	Clock clock.Clock `yaml:"-" mapstructure:"-"`
}

// idleAfter is how long a client must be quiet before its bucket is dropped.
const idleAfter = 5 * time.Minute

// RateLimit gives every client key its own token bucket and answers 429
// with Retry-After once the bucket is empty.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	b := &buckets{cfg: cfg, m: make(map[string]*bucket), swept: cfg.Clock.Now()}
	retryAfter := strconv.Itoa(max(1, 60/cfg.RequestsPerMinute))

	return func(c *gin.Context) {
		if !b.allow(cfg.KeyFunc(c)) {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apperrors.RateLimited().Render())
			return
		}
		c.Next()
	}
}

// IPBasedKey keys clients by IP.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

type bucket struct {
	limiter *resilience.RateLimiter
	seen    time.Time
}

type buckets struct {
	cfg   RateLimitConfig
	mu    sync.Mutex
	m     map[string]*bucket
	swept time.Time
}

func (b *buckets) allow(key string) bool {
	now := b.cfg.Clock.Now()

	b.mu.Lock()
	if now.Sub(b.swept) >= idleAfter {
		for k, v := range b.m {
			if now.Sub(v.seen) >= idleAfter {
				delete(b.m, k)
			}
		}
		b.swept = now
	}
	bk, ok := b.m[key]
	if !ok {
		bk = &bucket{limiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:  key,
			Rate:  float64(b.cfg.RequestsPerMinute) / 60,
			Burst: b.cfg.RequestsPerMinute,
			Clock: b.cfg.Clock,
		})}
		b.m[key] = bk
	}
	bk.seen = now
	b.mu.Unlock()

	return bk.limiter.Allow()
}
