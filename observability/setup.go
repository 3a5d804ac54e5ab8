package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"

	"github.com/kbukum/livecue/logger"
)

// Providers holds the installed OpenTelemetry providers.
type Providers struct {
	shutdown []func(context.Context) error
}

// Setup installs the global tracer and meter providers when cfg.Enabled is
// set. The returned Providers must be shut down on exit to flush exports.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	cfg.ApplyDefaults()
	p := &Providers{}
	if !cfg.Enabled {
		return p, nil
	}

	res, err := newResource(&cfg)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}
	tp, err := newTracerProvider(ctx, &cfg, res)
	if err != nil {
		return nil, err
	}
	p.shutdown = append(p.shutdown, tp.Shutdown)

	mp, err := newMeterProvider(ctx, &cfg, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	p.shutdown = append(p.shutdown, mp.Shutdown)

	logger.Get("observability").Info("otlp export enabled", logger.Fields(
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
		"interval", cfg.Interval.String(),
	))
	return p, nil
}

// Shutdown flushes and stops every provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(p.shutdown) - 1; i >= 0; i-- {
		if err := p.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.shutdown = nil
	return errors.Join(errs...)
}

func newResource(cfg *Config) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
}
