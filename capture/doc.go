// Package capture ties the microphone, the transcription session and the
// transcript together behind Start, Stop and Clear, and reduces their
// state to a single Status for display.
package capture
