// Package executor drives single-step agent runs: it validates credentials,
// assembles the provider message list, invokes the model client adapter, and
// maps provider chunks into the uniform AgentEvent sequence
// (thinking, token×N, done|error).
package executor

import (
	"context"
	"strings"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/internal/prompt"
	"github.com/hupe1980/agentrun/logging"
	"github.com/hupe1980/agentrun/model"
	"github.com/hupe1980/agentrun/settings"
)

// DefaultPrompt replaces empty or whitespace-only prompts so degenerate
// requests are never sent to a provider.
const DefaultPrompt = "Hello"

// ClientFactory builds a model client for resolved provider credentials.
type ClientFactory func(resolved model.Resolved) (model.Client, error)

// Params describe one single-step run.
type Params struct {
	RunID              string
	AgentName          string
	SystemPrompt       string
	// PromptVars are substituted into SystemPrompt template markers.
	PromptVars         map[string]string
	History            []core.Message
	Prompt             string
	MaxHistoryMessages int
	Temperature        float64
	MaxTokens          int64

	// Provider resolution inputs (see model.Resolve).
	ProviderID    string
	ModelOverride string
	DefaultModel  string
}

// Options configure an Executor.
type Options struct {
	Logger logging.Logger
}

// Executor runs exactly one provider call per run. Safe for concurrent use;
// each Run call is independent.
type Executor struct {
	settings settings.Provider
	clients  ClientFactory
	logger   logging.Logger
}

// New constructs an Executor over a settings provider and client factory.
func New(sp settings.Provider, clients ClientFactory, optFns ...func(o *Options)) *Executor {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{settings: sp, clients: clients, logger: logging.OrNoOp(opts.Logger)}
}

// Run starts the run and returns its ordered event stream. The channel is
// closed after the terminal event, or without one when ctx is cancelled
// mid-stream. The caller owns consumption; events are never dropped unless
// the run is cancelled.
func (e *Executor) Run(ctx context.Context, p Params) <-chan core.Event {
	out := make(chan core.Event, 32)

	go func() {
		defer close(out)
		e.run(ctx, p, out)
	}()

	return out
}

func (e *Executor) run(ctx context.Context, p Params, out chan<- core.Event) {
	resolved, err := model.Resolve(e.settings, p.ProviderID, p.ModelOverride, p.DefaultModel)
	if err != nil {
		e.logger.Warn("run rejected before provider call", "run_id", p.RunID, "error", err)
		send(ctx, out, core.NewErrorEvent(p.RunID, core.KindMessage(core.KindConfiguration), core.KindConfiguration))
		return
	}

	// Best-effort step announcement for chat-style UI feedback.
	if !send(ctx, out, core.NewThinkingEvent(p.RunID, "Generating response")) {
		return
	}

	client, err := e.clients(resolved)
	if err != nil {
		kind := core.Classify(err)
		e.logger.Error("client construction failed", "run_id", p.RunID, "provider", resolved.ProviderID, "error", err)
		send(ctx, out, core.NewErrorEvent(p.RunID, core.KindMessage(kind), kind))
		return
	}

	req := model.Request{
		Model:       resolved.ModelID,
		Messages:    buildMessages(p),
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}

	chunks, errCh := client.Stream(ctx, req)

	var full strings.Builder
	tokenCount := 0
	for chunk := range chunks {
		select {
		case <-ctx.Done():
			// Cancellation observed: stop iterating, emit nothing further.
			return
		default:
		}

		text := chunk.Text()
		if text == "" {
			continue
		}
		if !send(ctx, out, core.NewTokenEvent(p.RunID, text)) {
			return
		}
		full.WriteString(text)
		tokenCount++
	}

	if err := <-errCh; err != nil {
		if core.IsAbort(err) {
			return
		}
		kind := core.Classify(model.WrapErr("stream", err))
		e.logger.Error("provider stream failed", "run_id", p.RunID, "provider", resolved.ProviderID, "error", err)
		send(ctx, out, core.NewErrorEvent(p.RunID, core.KindMessage(kind), kind))
		return
	}

	select {
	case <-ctx.Done():
		// A cancelled run never emits done.
		return
	default:
	}

	send(ctx, out, core.NewDoneEvent(p.RunID, full.String(), tokenCount))
}

// buildMessages assembles system prompt, truncated trailing history (oldest
// dropped first), then the new user prompt.
func buildMessages(p Params) []core.Message {
	userPrompt := p.Prompt
	if strings.TrimSpace(userPrompt) == "" {
		userPrompt = DefaultPrompt
	}

	history := core.TruncateHistory(p.History, p.MaxHistoryMessages)

	messages := make([]core.Message, 0, len(history)+2)
	if p.SystemPrompt != "" {
		messages = append(messages, core.SystemMessage(prompt.RenderOrRaw(p.SystemPrompt, p.PromptVars)))
	}
	messages = append(messages, history...)
	messages = append(messages, core.UserMessage(userPrompt))

	return messages
}

// send delivers ev unless the run is cancelled first. Returns false once
// cancellation is observed so callers stop emitting.
func send(ctx context.Context, out chan<- core.Event, ev core.Event) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- ev:
		return true
	}
}
