// Package graph implements the execution engine for multi-step agents: a
// directed graph of named steps over a typed, mergeable state object. Nodes
// are async functions producing partial state updates; edges are either
// static or computed by a routing function over the merged state; execution
// halts at the terminal marker or when the caller's context is cancelled
// between node invocations.
package graph

import (
	"context"
	"errors"
	"fmt"
)

// End is the terminal marker. A static edge to End, or a route returning
// End, halts execution.
const End = "__end__"

// defaultMaxSteps bounds total node invocations so a miswired routing
// function cannot loop forever.
const defaultMaxSteps = 25

// Node is a single step: it inspects the current state and returns a partial
// update to merge. Nodes must treat the state as read-only and are not
// preemptible mid-call; cancellation is observed between invocations.
type Node func(ctx context.Context, s State) (map[string]any, error)

// Route computes the next node name (or End) from the merged state. It may
// return a state delta to apply before the transition; bookkeeping such as
// retry counters lives there, keeping nodes themselves pure.
type Route func(s State) (next string, delta map[string]any)

// edge is either static (to) or conditional (route).
type edge struct {
	to    string
	route Route
}

// Graph is a compiled multi-step execution plan. Build it with the Add*
// methods at startup, then Run it once per agent run; Run never mutates the
// graph, so one Graph may serve concurrent runs.
type Graph struct {
	schema   Schema
	nodes    map[string]Node
	edges    map[string]edge
	start    string
	output   string
	maxSteps int
}

// Options configure a Graph.
type Options struct {
	// MaxSteps bounds total node invocations. Defaults to 25.
	MaxSteps int
}

// New constructs an empty graph over the given state schema.
func New(schema Schema, optFns ...func(o *Options)) *Graph {
	opts := Options{MaxSteps: defaultMaxSteps}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Graph{
		schema:   schema,
		nodes:    make(map[string]Node),
		edges:    make(map[string]edge),
		maxSteps: opts.MaxSteps,
	}
}

// AddNode registers a named step. The first node added becomes the start
// node unless SetStart overrides it.
func (g *Graph) AddNode(name string, node Node) *Graph {
	g.nodes[name] = node
	if g.start == "" {
		g.start = name
	}
	return g
}

// AddEdge wires an unconditional transition from one node to the next (or
// to End).
func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges[from] = edge{to: to}
	return g
}

// AddConditionalEdge wires a routing function evaluated on the merged state
// after the node runs.
func (g *Graph) AddConditionalEdge(from string, route Route) *Graph {
	g.edges[from] = edge{route: route}
	return g
}

// SetStart designates the start node.
func (g *Graph) SetStart(name string) *Graph {
	g.start = name
	return g
}

// SetOutput designates the state field holding the run's final text.
func (g *Graph) SetOutput(field string) *Graph {
	g.output = field
	return g
}

// Output returns the designated output field name.
func (g *Graph) Output() string { return g.output }

// RunOptions configure a single execution.
type RunOptions struct {
	// Observer is invoked with each node name immediately before the node
	// runs. Best-effort, purely informational.
	Observer func(node string)
}

// WithObserver sets the per-step observer.
func WithObserver(fn func(node string)) func(o *RunOptions) {
	return func(o *RunOptions) { o.Observer = fn }
}

// Run executes the graph from the start node over a freshly-defaulted state
// merged with initial. It returns the final state, or an error when a node
// fails, the step budget is exhausted, or ctx is cancelled between nodes.
func (g *Graph) Run(ctx context.Context, initial map[string]any, optFns ...func(o *RunOptions)) (State, error) {
	opts := RunOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if g.start == "" {
		return nil, errors.New("graph has no start node")
	}

	state := newState(g.schema)
	state.merge(g.schema, initial)

	current := g.start
	for steps := 0; ; steps++ {
		if steps >= g.maxSteps {
			return state, fmt.Errorf("graph exceeded %d steps at node %q", g.maxSteps, current)
		}

		select {
		case <-ctx.Done():
			return state, ctx.Err()
		default:
		}

		node, ok := g.nodes[current]
		if !ok {
			return state, fmt.Errorf("graph references unknown node %q", current)
		}

		if opts.Observer != nil {
			opts.Observer(current)
		}

		update, err := node(ctx, state)
		if err != nil {
			return state, fmt.Errorf("node %q: %w", current, err)
		}
		state.merge(g.schema, update)

		e, ok := g.edges[current]
		if !ok {
			// No outgoing edge means the node is terminal.
			return state, nil
		}

		next := e.to
		if e.route != nil {
			var delta map[string]any
			next, delta = e.route(state)
			state.merge(g.schema, delta)
		}
		if next == End {
			return state, nil
		}
		current = next
	}
}
