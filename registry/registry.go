// Package registry provides the keyed catalog of named agent definitions.
// The registry is append-only for the process lifetime: definitions are
// registered once at startup and never removed, so downstream consumers can
// rely on id stability. Duplicate registration is a programming error
// rejected synchronously.
package registry

import (
	"fmt"
	"sync"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/graph"
	"github.com/hupe1980/agentrun/model"
)

// Config holds the default sampling and prompt parameters of an agent.
// Callers may override individual fields per session or per run.
type Config struct {
	SystemPrompt       string
	Temperature        float64
	MaxTokens          int64
	MaxHistoryMessages int
}

// GraphBuilder produces a compiled execution graph bound to a model client.
// It must be pure: same client in, equivalent graph out.
type GraphBuilder func(client model.Client) *graph.Graph

// Definition is an immutable named agent configuration. Definitions with a
// nil GraphBuilder run as single-step token streams; otherwise the graph
// engine drives the run.
type Definition struct {
	ID            string
	Name          string
	Description   string
	DefaultConfig Config
	GraphBuilder  GraphBuilder
}

// MultiStep reports whether this definition executes through the graph
// engine.
func (d Definition) MultiStep() bool { return d.GraphBuilder != nil }

// Registry is a write-once keyed catalog of agent definitions. Safe for
// concurrent use. Snapshots preserve insertion order.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]Definition
	order []string
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{byID: make(map[string]Definition)}
}

// Register adds a definition. Registering an id twice fails with
// core.ErrDuplicateID regardless of call order relative to other
// registrations.
func (r *Registry) Register(def Definition) error {
	if def.ID == "" {
		return fmt.Errorf("agent definition requires an id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[def.ID]; exists {
		return fmt.Errorf("agent %q: %w", def.ID, core.ErrDuplicateID)
	}
	r.byID[def.ID] = def
	r.order = append(r.order, def.ID)

	return nil
}

// Get returns the definition for id, or ok=false when unknown.
func (r *Registry) Get(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byID[id]
	return def, ok
}

// List returns a snapshot of all definitions in insertion order.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		defs = append(defs, r.byID[id])
	}
	return defs
}

// Names returns the registered ids in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
