// Package session turns the pending transcript into a generated response.
//
// The Orchestrator owns the in-flight guard: at most one request runs at a
// time and a submit while one is outstanding is rejected, never queued.
// Each accepted submit flushes and clears the transcript, starts a fresh
// response id on the accumulator and streams deltas into it. Completed
// turns go to History, and every SummarizeEvery turns the Summarizer is
// asked to condense them.
package session
