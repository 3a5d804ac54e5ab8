// Package resilience provides the fault-tolerance primitives used around
// the generation provider:
//
//   - Retry: bounded attempts with per-attempt timeouts and backoff
//   - Bulkhead: concurrency limit, also the single-flight submit guard
//   - RateLimiter: token bucket in front of provider calls
package resilience
