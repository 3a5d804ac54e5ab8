package process

import (
	"bytes"
	"time"
)

// Result is a finished subprocess.
type Result struct {
	Stdout []byte
	Stderr []byte
	// ExitCode is -1 when the process was killed or never started.
	ExitCode int
	Duration time.Duration
}

// FirstLine returns the first non-empty stdout line.
func (r *Result) FirstLine() string {
	for _, line := range bytes.Split(r.Stdout, []byte("\n")) {
		if line = bytes.TrimSpace(line); len(line) > 0 {
			return string(line)
		}
	}
	return ""
}

// lastStderrLine is what error messages quote; tools usually print the
// reason for failing last.
func (r *Result) lastStderrLine() string {
	lines := bytes.Split(bytes.TrimSpace(r.Stderr), []byte("\n"))
	return string(bytes.TrimSpace(lines[len(lines)-1]))
}
