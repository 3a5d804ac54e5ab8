package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/livecue/component"
)

// Component runs a Hub under the component lifecycle.
type Component struct {
	hub     *Hub
	path    string
	mu      sync.Mutex
	started bool
	done    chan struct{}
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates the component. path is the HTTP route clients
// connect to and is only reported.
func NewComponent(hub *Hub, path string) *Component {
	return &Component{hub: hub, path: path}
}

// Hub returns the hub.
func (c *Component) Hub() *Hub { return c.hub }

// Name returns the component name.
func (c *Component) Name() string { return "sse" }

// Start launches the hub loop.
func (c *Component) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	c.started = true
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		c.hub.Run()
	}()
	return nil
}

// Stop disconnects every client and waits for the hub loop to return.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	started, done := c.started, c.done
	c.started = false
	c.mu.Unlock()
	if !started {
		return nil
	}
	c.hub.Stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health reports the number of connected clients.
func (c *Component) Health(_ context.Context) component.Health {
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected", c.hub.GetClientCount()),
	}
}

// Describe returns the route clients connect to.
func (c *Component) Describe() component.Description {
	return component.Description{Type: "sse", Details: c.path}
}
