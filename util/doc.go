// Package util holds small helpers shared across packages: size parsing
// for server limits, secret masking for the startup log and the driver
// registry behind LLM dialects and transcription engines.
package util
