// Package component defines the lifecycle contract of the long-running parts
// of livecue: the capture controller, the submit orchestrator, the event hub,
// the context file watcher and the HTTP server.
//
// A Registry starts components in registration order and stops them in
// reverse, so register dependencies first.
package component
