package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/livecue/component"
	"github.com/kbukum/livecue/logger"
)

// App runs a service with uniform lifecycle management. C is the typed
// config.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger

	gracefulTimeout time.Duration
	signals         bool
	ready           []step
	tasks           []step
}

// step is a named ready hook or background task.
type step struct {
	name string
	fn   func(ctx context.Context) error
}

// NewApp creates a new application instance from a typed config.
// It applies defaults, validates the config, and initializes the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	base := cfg.GetServiceConfig()
	o := newSettings(opts)

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		gracefulTimeout: o.grace,
		signals:         !o.noSignals,
	}
	if o.log != nil {
		app.Logger = o.log
	} else {
		logger.Init(base.Logging, base.Name)
		app.Logger = logger.GetGlobalLogger()
	}
	app.Components = component.NewRegistry(component.WithLogger(app.Logger.WithComponent("component")))
	return app, nil
}

// RegisterComponent adds a component to the application's registry.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnReady registers a hook that runs, in registration order, once every
// component has started. A failing hook aborts startup and stops the
// components again.
func (a *App[C]) OnReady(name string, fn func(ctx context.Context) error) {
	a.ready = append(a.ready, step{name: name, fn: fn})
}

// Go registers a background task. Tasks start after the ready hooks and
// receive a context that ends on shutdown. A task returning an error other
// than context.Canceled shuts the application down.
func (a *App[C]) Go(name string, fn func(ctx context.Context) error) {
	a.tasks = append(a.tasks, step{name: name, fn: fn})
}

// ReadyCheck verifies that all registered components are healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		detail := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			detail += "(" + h.Message + ")"
		}
		unhealthy = append(unhealthy, detail)
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %s", strings.Join(unhealthy, ", "))
	}
	return nil
}

// Run starts the application and blocks until ctx ends, a shutdown signal
// arrives or a task fails; then it shuts down gracefully. The returned
// error is the task failure, if any, otherwise the shutdown error.
func (a *App[C]) Run(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	for _, h := range a.ready {
		if err := h.fn(ctx); err != nil {
			return errors.Join(fmt.Errorf("ready hook %s: %w", h.name, err), a.stop())
		}
	}

	runCtx := ctx
	if a.signals {
		var stopSignals context.CancelFunc
		runCtx, stopSignals = signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stopSignals()
	}

	g, gctx := errgroup.WithContext(runCtx)
	for _, t := range a.tasks {
		g.Go(func() error {
			if err := t.fn(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", t.name, err)
			}
			return nil
		})
	}

	a.Logger.Info("application ready", logger.DurationFields("startup", time.Since(start)))
	<-gctx.Done()
	taskErr := g.Wait()

	switch {
	case taskErr != nil:
		a.Logger.Error("task failed, shutting down", logger.Fields(logger.FieldError, taskErr.Error()))
	case ctx.Err() == nil:
		a.Logger.Info("received shutdown signal")
	default:
		a.Logger.Info("context canceled, shutting down")
	}

	stopErr := a.stop()
	if taskErr != nil {
		return taskErr
	}
	return stopErr
}

// stop stops all components within the graceful timeout.
func (a *App[C]) stop() error {
	a.Logger.Info("shutting down application", logger.Fields("timeout", a.gracefulTimeout.String()))

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	err := a.Components.StopAll(ctx)
	if err != nil {
		a.Logger.Error("shutdown completed with errors", logger.ErrorFields("stop", err))
		return err
	}
	a.Logger.Info("application shutdown complete")
	return nil
}
