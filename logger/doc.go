// Package logger provides structured logging for livecue using zerolog.
//
// It supports JSON and console output, a global level with per-component
// overrides, and component-scoped loggers with structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  levels:
//	    sse: "debug"
//
// # Usage
//
//	log := logger.Get("transcription")
//	log.Info("engine ready", logger.Fields(logger.FieldState, "active"))
package logger
