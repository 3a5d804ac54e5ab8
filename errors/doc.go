// Package errors provides the unified error type for livecue.
//
// Every failure that crosses a component boundary is an *AppError with a
// machine-readable code, a short message safe to show to the user and the
// raw cause kept for logs. Codes fall into three classes:
//
//   - device codes, fatal to capture
//   - recognition codes, recovered by a bounded engine restart
//   - generation codes (timeout, rate limit, credential, network, unknown)
package errors
