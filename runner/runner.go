// Package runner coordinates agent runs: it allocates run identifiers and
// cancellation handles, enforces the one-run-per-session invariant, drives
// the single-step executor or the graph engine, and forwards the resulting
// event stream to the caller and the transport collaborator. It is the
// single point through which "cancel run X" or "cancel all runs in session
// Y" is serviced.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/executor"
	"github.com/hupe1980/agentrun/graph"
	"github.com/hupe1980/agentrun/logging"
	"github.com/hupe1980/agentrun/model"
	"github.com/hupe1980/agentrun/registry"
	"github.com/hupe1980/agentrun/session"
	"github.com/hupe1980/agentrun/settings"
	"github.com/hupe1980/agentrun/transport"
)

// EventChannel is the transport channel agent events are broadcast on.
const EventChannel = "agent:stream"

// StartInput describes one run request.
type StartInput struct {
	// AgentID selects the registered definition. Required.
	AgentID string
	// SessionID binds the run to a session, created lazily when unknown.
	// Empty allocates a fresh session.
	SessionID string
	// Prompt is the user input. Blank prompts are replaced with a
	// deterministic default by the executor.
	Prompt string
	// RunID optionally supplies a caller-generated id. It must be unique
	// among currently active runs.
	RunID string
	// ProviderID overrides the session's provider for this run.
	ProviderID string
	// ModelID overrides the stored model selection for this run.
	ModelID string
}

// RunInfo is a snapshot of one active run.
type RunInfo struct {
	RunID     string    `json:"run_id"`
	AgentName string    `json:"agent_name"`
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
}

// activeRun pairs bookkeeping with the cancellation handle. retire
// guarantees the run is removed from the active set exactly once, even when
// a late cancellation races normal completion.
type activeRun struct {
	info   RunInfo
	cancel context.CancelFunc
	retire sync.Once
}

// Options configure a Runner.
type Options struct {
	Logger          logging.Logger
	Transport       transport.Transport
	EventBufferSize int
	// DefaultModel is the compiled-in fallback when neither the run nor the
	// stored settings select a model.
	DefaultModel string
}

// Runner is the run registry and cancellation coordinator. Safe for
// concurrent use; the active-run map is mutated only via atomic
// check-then-insert and exactly-once delete.
type Runner struct {
	registry *registry.Registry
	sessions *session.Manager
	settings settings.Provider
	clients  executor.ClientFactory
	exec     *executor.Executor

	logger       logging.Logger
	transport    transport.Transport
	bufSize      int
	defaultModel string

	mu     sync.RWMutex
	active map[string]*activeRun
}

// New constructs a Runner over its collaborators.
func New(
	reg *registry.Registry,
	sessions *session.Manager,
	sp settings.Provider,
	clients executor.ClientFactory,
	optFns ...func(o *Options),
) *Runner {
	opts := Options{
		Logger:          logging.NoOpLogger{},
		Transport:       transport.Discard{},
		EventBufferSize: 100,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := logging.OrNoOp(opts.Logger)

	return &Runner{
		registry:     reg,
		sessions:     sessions,
		settings:     sp,
		clients:      clients,
		exec:         executor.New(sp, clients, func(o *executor.Options) { o.Logger = logger }),
		logger:       logger,
		transport:    opts.Transport,
		bufSize:      opts.EventBufferSize,
		defaultModel: opts.DefaultModel,
		active:       make(map[string]*activeRun),
	}
}

// Start allocates a run id and cancellation handle synchronously, then
// drives the run without blocking the caller. The returned channel carries
// the run's ordered events and is closed after the terminal event, or
// without one if the run is cancelled.
func (r *Runner) Start(ctx context.Context, in StartInput) (string, <-chan core.Event, error) {
	def, ok := r.registry.Get(in.AgentID)
	if !ok {
		return "", nil, fmt.Errorf("unknown agent %q", in.AgentID)
	}

	sess, err := r.resolveSession(in)
	if err != nil {
		return "", nil, err
	}

	// A run-level model override wins; otherwise the session's stored
	// selection applies before falling through to settings resolution.
	if in.ModelID == "" {
		in.ModelID = sess.ModelID
	}

	if err := r.sessions.Activate(sess.ID); err != nil {
		return "", nil, err
	}

	runID := in.RunID
	if runID == "" {
		runID = newRunID()
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &activeRun{
		info: RunInfo{
			RunID:     runID,
			AgentName: def.ID,
			SessionID: sess.ID,
			StartedAt: time.Now().UTC(),
		},
		cancel: cancel,
	}

	r.mu.Lock()
	if _, exists := r.active[runID]; exists {
		r.mu.Unlock()
		cancel()
		// The run never executed, so only the active flag is released.
		r.sessions.Release(sess.ID)
		return "", nil, fmt.Errorf("run %q: %w", runID, core.ErrDuplicateID)
	}
	r.active[runID] = run
	r.mu.Unlock()

	providerID := sess.ProviderID
	if in.ProviderID != "" {
		providerID = in.ProviderID
	}

	out := make(chan core.Event, r.bufSize)

	go func() {
		defer close(out)
		defer r.retire(run)
		defer cancel()

		if def.MultiStep() {
			r.driveGraph(runCtx, def, run.info, providerID, in, out)
			return
		}
		r.driveSingle(runCtx, def, run.info, providerID, in, out)
	}()

	r.logger.Info("run started", "run_id", runID, "agent", def.ID, "session_id", sess.ID)

	return runID, out, nil
}

// Cancel triggers the run's cancellation handle and removes it from the
// active set. Cancelling an unknown id is a no-op returning false; a second
// cancellation of the same run is likewise a no-op.
func (r *Runner) Cancel(runID string) bool {
	r.mu.RLock()
	run, ok := r.active[runID]
	r.mu.RUnlock()

	if !ok {
		return false
	}

	run.cancel()
	r.retire(run)
	r.logger.Info("run cancelled", "run_id", runID)

	return true
}

// CancelSession cancels every active run owned by the session, returning
// how many were cancelled.
func (r *Runner) CancelSession(sessionID string) int {
	r.mu.RLock()
	var owned []*activeRun
	for _, run := range r.active {
		if run.info.SessionID == sessionID {
			owned = append(owned, run)
		}
	}
	r.mu.RUnlock()

	for _, run := range owned {
		run.cancel()
		r.retire(run)
	}

	return len(owned)
}

// IsRunning is a pure lookup of the active set.
func (r *Runner) IsRunning(runID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.active[runID]
	return ok
}

// ListActiveRuns returns a snapshot of all currently active runs.
func (r *Runner) ListActiveRuns() []RunInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RunInfo, 0, len(r.active))
	for _, run := range r.active {
		out = append(out, run.info)
	}
	return out
}

// retire removes the run from the active set and releases its session,
// exactly once regardless of how completion and late cancellation
// interleave.
func (r *Runner) retire(run *activeRun) {
	run.retire.Do(func() {
		r.mu.Lock()
		delete(r.active, run.info.RunID)
		r.mu.Unlock()
		r.sessions.Deactivate(run.info.SessionID)
	})
}

// promptVars assembles the substitution variables for system-prompt
// templates: session metadata plus run identity.
func (r *Runner) promptVars(def registry.Definition, info RunInfo) map[string]string {
	vars := map[string]string{
		"agent_name": def.Name,
		"session_id": info.SessionID,
	}
	if sess, ok := r.sessions.Get(info.SessionID); ok {
		for k, v := range sess.Metadata {
			vars[k] = v
		}
	}
	return vars
}

func (r *Runner) resolveSession(in StartInput) (session.Session, error) {
	if in.SessionID == "" {
		return r.sessions.Create(session.Config{ProviderID: in.ProviderID})
	}
	return r.sessions.GetOrCreate(in.SessionID)
}

// driveSingle executes a single-step run through the token stream executor.
func (r *Runner) driveSingle(
	ctx context.Context,
	def registry.Definition,
	info RunInfo,
	providerID string,
	in StartInput,
	out chan<- core.Event,
) {
	params := executor.Params{
		RunID:              info.RunID,
		AgentName:          def.ID,
		SystemPrompt:       def.DefaultConfig.SystemPrompt,
		PromptVars:         r.promptVars(def, info),
		History:            r.sessions.History(info.SessionID),
		Prompt:             in.Prompt,
		MaxHistoryMessages: def.DefaultConfig.MaxHistoryMessages,
		Temperature:        def.DefaultConfig.Temperature,
		MaxTokens:          def.DefaultConfig.MaxTokens,
		ProviderID:         providerID,
		ModelOverride:      in.ModelID,
		DefaultModel:       r.defaultModel,
	}

	var finalText string
	completed := false
	for ev := range r.exec.Run(ctx, params) {
		if ev.Type == core.EventDone {
			finalText = ev.Text
			completed = true
		}
		if !r.forward(ctx, out, ev) {
			return
		}
	}

	if completed {
		r.sessions.AppendExchange(info.SessionID, in.Prompt, finalText)
	}
}

// driveGraph executes a multi-step run through the graph engine, surfacing
// each node as a thinking event and the designated output field as the done
// text.
func (r *Runner) driveGraph(
	ctx context.Context,
	def registry.Definition,
	info RunInfo,
	providerID string,
	in StartInput,
	out chan<- core.Event,
) {
	resolved, err := model.Resolve(r.settings, providerID, in.ModelID, r.defaultModel)
	if err != nil {
		r.logger.Warn("graph run rejected before provider call", "run_id", info.RunID, "error", err)
		r.forward(ctx, out, core.NewErrorEvent(info.RunID, core.KindMessage(core.KindConfiguration), core.KindConfiguration))
		return
	}

	client, err := r.clients(resolved)
	if err != nil {
		kind := core.Classify(err)
		r.logger.Error("client construction failed", "run_id", info.RunID, "provider", providerID, "error", err)
		r.forward(ctx, out, core.NewErrorEvent(info.RunID, core.KindMessage(kind), kind))
		return
	}

	g := def.GraphBuilder(client)

	final, err := g.Run(ctx, map[string]any{"input": in.Prompt}, graph.WithObserver(func(node string) {
		r.forward(ctx, out, core.NewThinkingEvent(info.RunID, node))
	}))
	if err != nil {
		if core.IsAbort(err) {
			return
		}
		kind := core.Classify(model.WrapErr("graph", err))
		r.logger.Error("graph run failed", "run_id", info.RunID, "agent", def.ID, "error", err)
		r.forward(ctx, out, core.NewErrorEvent(info.RunID, core.KindMessage(kind), kind))
		return
	}

	text := final.String(g.Output(), "")
	if r.forward(ctx, out, core.NewDoneEvent(info.RunID, text, 0)) {
		r.sessions.AppendExchange(info.SessionID, in.Prompt, text)
	}
}

// forward delivers an event to the caller channel and the transport unless
// the run is cancelled first.
func (r *Runner) forward(ctx context.Context, out chan<- core.Event, ev core.Event) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- ev:
	}
	r.transport.Send(EventChannel, ev)
	return true
}

// newRunID allocates a short opaque run identifier.
func newRunID() string {
	id, err := gonanoid.New()
	if err != nil {
		return core.NewID()
	}
	return id
}
