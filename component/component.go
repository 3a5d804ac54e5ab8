package component

import "context"

// Component is a long-running part of livecue managed by a Registry.
type Component interface {
	// Name identifies the component in logs, health reports and the
	// registry. It must be unique.
	Name() string
	// Start brings the component up and returns; work continues in the
	// background.
	Start(ctx context.Context) error
	// Stop releases everything Start acquired. ctx bounds how long it may
	// take.
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Describable components add a type and a one-line summary, such as a
// listen address or watched files, to the "component started" log.
type Describable interface {
	Describe() Description
}

// Description is what a Describable component reports.
type Description struct {
	Type    string
	Details string
}
