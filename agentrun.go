// Package agentrun provides a high-level façade over the run-orchestration
// core: the agent definition registry, session manager, and run coordinator.
// Most applications interact with this package by:
//  1. Creating an AgentRun via New() (optionally overriding the settings
//     provider, transport, logger, or model client factory)
//  2. Registering one or more agent definitions (single-step or graph-based)
//  3. Starting runs (Start for streamed events, RunSync for a collected
//     result) and cancelling them by run or session id
//
// The façade delegates orchestration to runner.Runner while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable settings
// provider, a real transport, and a structured logger.
package agentrun

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/executor"
	"github.com/hupe1980/agentrun/logging"
	"github.com/hupe1980/agentrun/model"
	"github.com/hupe1980/agentrun/model/anthropic"
	"github.com/hupe1980/agentrun/model/openai"
	"github.com/hupe1980/agentrun/registry"
	"github.com/hupe1980/agentrun/runner"
	"github.com/hupe1980/agentrun/session"
	"github.com/hupe1980/agentrun/settings"
	"github.com/hupe1980/agentrun/transport"
)

// Options configures the AgentRun instance.
type Options struct {
	// Settings resolves per-provider credentials and model selections.
	// Defaults to an empty in-memory store (runs fail with a configuration
	// error until providers are added).
	Settings settings.Provider
	// Clients builds model clients from resolved credentials. Defaults to
	// the bundled OpenAI/Anthropic adapters keyed by provider id.
	Clients executor.ClientFactory
	// Transport receives every emitted event. Defaults to discarding.
	Transport transport.Transport
	// Logger defaults to NoOp.
	Logger logging.Logger
	// EventBufferSize sets channel buffering for run event streams.
	EventBufferSize int
	// DefaultProviderID is assigned to sessions created without one.
	DefaultProviderID string
	// DefaultModel is the compiled-in fallback model id.
	DefaultModel string
}

// AgentRun is the high-level façade aggregating registry, sessions and the
// run coordinator.
type AgentRun struct {
	registry *registry.Registry
	sessions *session.Manager
	runner   *runner.Runner
}

// New creates an AgentRun instance with optional overrides. Any unset
// collaborator is replaced by an in-memory default.
func New(optFns ...func(o *Options)) *AgentRun {
	opts := Options{
		Settings:          settings.NewInMemory(),
		Transport:         transport.Discard{},
		Logger:            logging.NoOpLogger{},
		EventBufferSize:   100,
		DefaultProviderID: "openai",
		DefaultModel:      "gpt-4o-mini",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Clients == nil {
		opts.Clients = DefaultClientFactory
	}

	reg := registry.New()
	sessions := session.NewManager(func(o *session.Options) {
		o.DefaultProviderID = opts.DefaultProviderID
	})

	run := runner.New(reg, sessions, opts.Settings, opts.Clients, func(o *runner.Options) {
		o.Logger = opts.Logger
		o.Transport = opts.Transport
		o.EventBufferSize = opts.EventBufferSize
		o.DefaultModel = opts.DefaultModel
	})

	return &AgentRun{registry: reg, sessions: sessions, runner: run}
}

// DefaultClientFactory builds the bundled provider adapters keyed by
// provider id.
func DefaultClientFactory(resolved model.Resolved) (model.Client, error) {
	switch resolved.ProviderID {
	case "openai":
		return openai.New(resolved.ModelID, func(o *openai.Options) { o.APIKey = resolved.APIToken }), nil
	case "anthropic":
		return anthropic.New(resolved.ModelID, func(o *anthropic.Options) { o.APIKey = resolved.APIToken }), nil
	default:
		return nil, fmt.Errorf("no client adapter for provider %q: %w", resolved.ProviderID, core.ErrNotConfigured)
	}
}

// RegisterAgent adds an agent definition to the registry. Registering a
// duplicate id fails with core.ErrDuplicateID.
func (a *AgentRun) RegisterAgent(def registry.Definition) error {
	return a.registry.Register(def)
}

// Agents returns the registered definitions in insertion order.
func (a *AgentRun) Agents() []registry.Definition { return a.registry.List() }

// AgentNames returns the registered agent ids in insertion order.
func (a *AgentRun) AgentNames() []string { return a.registry.Names() }

// Start begins a run and returns its id plus the ordered event stream. See
// runner.Runner.Start.
func (a *AgentRun) Start(ctx context.Context, in runner.StartInput) (string, <-chan core.Event, error) {
	return a.runner.Start(ctx, in)
}

// Cancel cancels an active run. Unknown ids return false.
func (a *AgentRun) Cancel(runID string) bool { return a.runner.Cancel(runID) }

// IsRunning reports whether the run id is currently active.
func (a *AgentRun) IsRunning(runID string) bool { return a.runner.IsRunning(runID) }

// ListActiveRuns snapshots all currently active runs.
func (a *AgentRun) ListActiveRuns() []runner.RunInfo { return a.runner.ListActiveRuns() }

// Result is the collected outcome of a synchronous run.
type Result struct {
	RunID      string
	Text       string
	TokenCount int
}

// RunSync starts a run and blocks until its terminal event, returning the
// collected result. A run that ends in an error event yields that error; a
// cancelled run yields the context error.
func (a *AgentRun) RunSync(ctx context.Context, in runner.StartInput) (Result, error) {
	runID, events, err := a.runner.Start(ctx, in)
	if err != nil {
		return Result{}, err
	}

	res := Result{RunID: runID}
	for ev := range events {
		switch ev.Type {
		case core.EventDone:
			res.Text = ev.Text
			res.TokenCount = ev.TokenCount
			return res, nil
		case core.EventError:
			return res, fmt.Errorf("run %s failed (%s): %s", runID, ev.Kind, ev.Message)
		}
	}

	// Stream ended without a terminal event: the run was cancelled.
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, context.Canceled
}

// CreateSession adds a new session. Duplicate ids fail with
// core.ErrDuplicateID.
func (a *AgentRun) CreateSession(cfg session.Config) (session.Session, error) {
	return a.sessions.Create(cfg)
}

// DestroySession best-effort-cancels any runs the session owns, then
// removes its bookkeeping. Returns false when the id is unknown.
func (a *AgentRun) DestroySession(sessionID string) bool {
	a.runner.CancelSession(sessionID)
	return a.sessions.Destroy(sessionID)
}

// GetSession returns a read-only snapshot of the session.
func (a *AgentRun) GetSession(sessionID string) (session.Session, bool) {
	return a.sessions.Get(sessionID)
}

// ListSessions returns read-only snapshots of all sessions.
func (a *AgentRun) ListSessions() []session.Session { return a.sessions.List() }

// CancelSession cancels all active runs owned by a session, returning the
// number cancelled.
func (a *AgentRun) CancelSession(sessionID string) int {
	return a.runner.CancelSession(sessionID)
}
