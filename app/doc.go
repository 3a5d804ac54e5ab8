// Package app assembles livecue from its configuration: microphone
// capture and transcription, the submit orchestrator over the generation
// client, the event hub, the context file watcher and the HTTP server,
// all run under one bootstrap.App.
package app
