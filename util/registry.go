package util

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Registry maps driver names to values. Driver packages fill it from init
// and the service looks entries up by the name in its config.
type Registry[T any] struct {
	kind string
	mu   sync.RWMutex
	m    map[string]T
}

// NewRegistry creates an empty registry. kind names the entries in errors,
// such as "dialect".
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, m: make(map[string]T)}
}

// Register adds v under name, replacing an earlier entry.
func (r *Registry[T]) Register(name string, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[name] = v
}

// Lookup returns the entry for name. The error lists the known names.
func (r *Registry[T]) Lookup(name string) (T, error) {
	r.mu.RLock()
	v, ok := r.m[name]
	r.mu.RUnlock()
	if !ok {
		return v, fmt.Errorf("unknown %s %q, registered: %v", r.kind, name, r.Names())
	}
	return v, nil
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.m))
}
