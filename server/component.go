package server

import (
	"context"

	"github.com/kbukum/livecue/component"
)

var (
	_ component.Component   = (*Server)(nil)
	_ component.Describable = (*Server)(nil)
)

// Name registers the server as "http-server".
func (s *Server) Name() string { return "http-server" }

// Health is unhealthy before Start and once serving has stopped, so
// readiness fails while the API cannot answer.
func (s *Server) Health(context.Context) component.Health {
	h := component.Health{Name: s.Name(), Status: component.StatusHealthy}
	if !s.Listening() {
		h.Status = component.StatusUnhealthy
		h.Message = "not listening on " + s.Addr()
	}
	return h
}

// Describe reports the bound address.
func (s *Server) Describe() component.Description {
	return component.Description{Type: "http", Details: s.Addr()}
}
