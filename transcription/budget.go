package transcription

import "time"

// RestartBudget bounds how often a Session restarts its engine.
type RestartBudget struct {
	Count           int       `json:"count"`
	WindowStartedAt time.Time `json:"window_started_at"`
	LastRestartAt   time.Time `json:"last_restart_at"`
}

// Exhausted reports whether another restart at now would exceed max
// restarts within window of the last one.
func (b RestartBudget) Exhausted(now time.Time, max int, window time.Duration) bool {
	return b.Count >= max && now.Sub(b.LastRestartAt) < window
}

// take records a restart at now, opening a new window when the previous
// one is used up or has elapsed.
func (b *RestartBudget) take(now time.Time, max int) {
	if b.Count >= max {
		*b = RestartBudget{}
	}
	if b.Count == 0 {
		b.WindowStartedAt = now
	}
	b.Count++
	b.LastRestartAt = now
}
