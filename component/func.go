package component

import "context"

// Funcs adapts plain functions to a Component. Nil functions are no-ops and
// a nil HealthFunc reports healthy.
type Funcs struct {
	ComponentName string
	StartFunc     func(ctx context.Context) error
	StopFunc      func(ctx context.Context) error
	HealthFunc    func(ctx context.Context) Health
}

var _ Component = (*Funcs)(nil)

// Name returns the component name.
func (f *Funcs) Name() string { return f.ComponentName }

// Start calls StartFunc.
func (f *Funcs) Start(ctx context.Context) error {
	if f.StartFunc == nil {
		return nil
	}
	return f.StartFunc(ctx)
}

// Stop calls StopFunc.
func (f *Funcs) Stop(ctx context.Context) error {
	if f.StopFunc == nil {
		return nil
	}
	return f.StopFunc(ctx)
}

// Health calls HealthFunc.
func (f *Funcs) Health(ctx context.Context) Health {
	if f.HealthFunc == nil {
		return Health{Name: f.ComponentName, Status: StatusHealthy}
	}
	h := f.HealthFunc(ctx)
	if h.Name == "" {
		h.Name = f.ComponentName
	}
	return h
}
