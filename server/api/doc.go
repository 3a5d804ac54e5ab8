// Package api registers the livecue control routes: capture start, stop
// and clear, submit and cancel, a state snapshot and the event stream.
package api
