// Package observability wires OpenTelemetry tracing and metrics for
// livecue.
//
// Setup installs OTLP/HTTP tracer and meter providers when enabled;
// otherwise the global no-op providers stay in place and every instrument
// records nothing:
//
//	providers, err := observability.Setup(ctx, cfg.Observability)
//	defer providers.Shutdown(ctx)
//
// Instruments:
//
//	HTTPMetrics        control API request count, duration and in-flight gauge
//	GenerationMetrics  outcomes, retries, time to first token, slow starts
//	CaptureMetrics     transcription restarts and capture status, observed on collection
package observability
