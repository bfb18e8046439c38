package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrun/agents"
	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/model"
	"github.com/hupe1980/agentrun/registry"
	"github.com/hupe1980/agentrun/session"
	"github.com/hupe1980/agentrun/settings"
	"github.com/hupe1980/agentrun/transport"
)

type fixture struct {
	runner   *Runner
	sessions *session.Manager
	mock     *model.MockClient
	mem      *transport.Memory
}

func newFixture(t *testing.T, optFns ...func(o *Options)) *fixture {
	t.Helper()

	reg := registry.New()
	require.NoError(t, reg.Register(agents.ChatDefinition()))
	require.NoError(t, reg.Register(agents.ToneRewriteDefinition()))
	require.NoError(t, reg.Register(agents.PlanWriteDefinition()))

	sp := settings.NewInMemory()
	sp.Set("mock", settings.ModelSettings{SelectedModel: "mock-model", APIToken: "token"})

	sessions := session.NewManager(func(o *session.Options) { o.DefaultProviderID = "mock" })

	mock := model.NewMockClient()
	factory := func(resolved model.Resolved) (model.Client, error) {
		return mock, nil
	}

	mem := transport.NewMemory()
	opts := append([]func(o *Options){func(o *Options) {
		o.Transport = mem
		o.DefaultModel = "mock-model"
	}}, optFns...)

	return &fixture{
		runner:   New(reg, sessions, sp, factory, opts...),
		sessions: sessions,
		mock:     mock,
		mem:      mem,
	}
}

func drain(t *testing.T, events <-chan core.Event) []core.Event {
	t.Helper()

	var out []core.Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out draining event stream")
		}
	}
}

func TestStartSingleStepRun(t *testing.T) {
	f := newFixture(t)
	f.mock.Script("Hi ", "there")

	runID, events, err := f.runner.Start(context.Background(), StartInput{
		AgentID:   "chat",
		SessionID: "s1",
		Prompt:    "hello",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	got := drain(t, events)
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, core.EventDone, last.Type)
	assert.Equal(t, "Hi there", last.Text)
	assert.Equal(t, runID, last.RunID)

	// Run retired and session released.
	assert.False(t, f.runner.IsRunning(runID))
	sess, _ := f.sessions.Get("s1")
	assert.False(t, sess.IsActive)
	assert.Equal(t, 1, sess.MessageCount)

	// The exchange landed in history.
	history := f.sessions.History("s1")
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "Hi there", history[1].Content)
}

func TestStartUnknownAgent(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.runner.Start(context.Background(), StartInput{AgentID: "nope"})
	assert.Error(t, err)
}

func TestStartBusySession(t *testing.T) {
	f := newFixture(t)

	gate := make(chan struct{})
	f.mock.Script("a", "b")
	f.mock.Gate = gate

	_, events, err := f.runner.Start(context.Background(), StartInput{
		AgentID:   "chat",
		SessionID: "s1",
		Prompt:    "first",
	})
	require.NoError(t, err)

	// A second run on the same session is rejected while the first is
	// in flight.
	_, _, err = f.runner.Start(context.Background(), StartInput{
		AgentID:   "chat",
		SessionID: "s1",
		Prompt:    "second",
	})
	assert.ErrorIs(t, err, core.ErrSessionBusy)

	// Independent sessions proceed concurrently.
	_, other, err := f.runner.Start(context.Background(), StartInput{
		AgentID:   "chat",
		SessionID: "s2",
		Prompt:    "parallel",
	})
	require.NoError(t, err)

	close(gate)
	drain(t, other)
	drain(t, events)
}

func TestStartDuplicateRunID(t *testing.T) {
	f := newFixture(t)

	gate := make(chan struct{})
	f.mock.Script("a")
	f.mock.Gate = gate

	_, events, err := f.runner.Start(context.Background(), StartInput{
		AgentID:   "chat",
		SessionID: "s1",
		RunID:     "run-xyz",
		Prompt:    "first",
	})
	require.NoError(t, err)

	_, _, err = f.runner.Start(context.Background(), StartInput{
		AgentID:   "chat",
		SessionID: "s2",
		RunID:     "run-xyz",
		Prompt:    "second",
	})
	assert.ErrorIs(t, err, core.ErrDuplicateID)

	// The rejected start released its session without recording activity
	// for a run that never executed.
	sess, _ := f.sessions.Get("s2")
	assert.False(t, sess.IsActive)
	assert.Zero(t, sess.MessageCount)

	close(gate)
	drain(t, events)
}

func TestSessionModelSelection(t *testing.T) {
	f := newFixture(t)
	f.mock.Script("ok").Script("ok")

	_, err := f.sessions.Create(session.Config{
		SessionID:  "s1",
		ProviderID: "mock",
		ModelID:    "session-model",
	})
	require.NoError(t, err)

	// The session's stored model wins over the per-provider setting.
	_, events, err := f.runner.Start(context.Background(), StartInput{
		AgentID:   "chat",
		SessionID: "s1",
		Prompt:    "hello",
	})
	require.NoError(t, err)
	drain(t, events)

	reqs := f.mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "session-model", reqs[0].Model)

	// A run-level override wins over the session's stored model.
	_, events, err = f.runner.Start(context.Background(), StartInput{
		AgentID:   "chat",
		SessionID: "s1",
		ModelID:   "run-model",
		Prompt:    "hello",
	})
	require.NoError(t, err)
	drain(t, events)

	reqs = f.mock.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "run-model", reqs[1].Model)
}

func TestCancelRun(t *testing.T) {
	f := newFixture(t)

	gate := make(chan struct{})
	f.mock.Script("a", "b", "c", "d")
	f.mock.Gate = gate

	runID, events, err := f.runner.Start(context.Background(), StartInput{
		AgentID:   "chat",
		SessionID: "s1",
		RunID:     "run-1",
		Prompt:    "hello",
	})
	require.NoError(t, err)
	assert.True(t, f.runner.IsRunning(runID))

	// Release one token, then cancel.
	gate <- struct{}{}

	assert.True(t, f.runner.Cancel(runID))
	assert.False(t, f.runner.IsRunning(runID))

	// Second cancel and unknown ids are no-ops.
	assert.False(t, f.runner.Cancel(runID))
	assert.False(t, f.runner.Cancel("missing"))

	got := drain(t, events)
	for _, ev := range got {
		assert.False(t, ev.Type.IsTerminal(), "cancelled run must not emit %s", ev.Type)
	}

	// The session is free for a new run.
	sess, _ := f.sessions.Get("s1")
	assert.False(t, sess.IsActive)
}

func TestCancelSession(t *testing.T) {
	f := newFixture(t)

	gate := make(chan struct{})
	f.mock.Script("a", "b").Script("c", "d")
	f.mock.Gate = gate

	runID, events, err := f.runner.Start(context.Background(), StartInput{
		AgentID:   "chat",
		SessionID: "s1",
		Prompt:    "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, f.runner.CancelSession("s1"))
	assert.Equal(t, 0, f.runner.CancelSession("s1"))
	assert.False(t, f.runner.IsRunning(runID))

	drain(t, events)
}

func TestListActiveRuns(t *testing.T) {
	f := newFixture(t)

	assert.Empty(t, f.runner.ListActiveRuns())

	gate := make(chan struct{})
	f.mock.Script("a")
	f.mock.Gate = gate

	runID, events, err := f.runner.Start(context.Background(), StartInput{
		AgentID:   "chat",
		SessionID: "s1",
		Prompt:    "hello",
	})
	require.NoError(t, err)

	runs := f.runner.ListActiveRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].RunID)
	assert.Equal(t, "chat", runs[0].AgentName)
	assert.Equal(t, "s1", runs[0].SessionID)
	assert.False(t, runs[0].StartedAt.IsZero())

	close(gate)
	drain(t, events)
	assert.Empty(t, f.runner.ListActiveRuns())
}

func TestStartGraphRun(t *testing.T) {
	f := newFixture(t)
	f.mock.
		Script(`{"tone":"angry"}`).
		Script("polite version").
		Script(`{"verified":true}`)

	runID, events, err := f.runner.Start(context.Background(), StartInput{
		AgentID:   "tone-rewrite",
		SessionID: "s1",
		Prompt:    "FIX THIS",
	})
	require.NoError(t, err)

	got := drain(t, events)
	require.NotEmpty(t, got)

	// One thinking event per node, then done carrying the output field.
	var thinking []string
	for _, ev := range got[:len(got)-1] {
		require.Equal(t, core.EventThinking, ev.Type)
		thinking = append(thinking, ev.Text)
	}
	assert.Equal(t, []string{"detect", "rewrite", "verify"}, thinking)

	last := got[len(got)-1]
	assert.Equal(t, core.EventDone, last.Type)
	assert.Equal(t, "polite version", last.Text)
	assert.Equal(t, runID, last.RunID)

	history := f.sessions.History("s1")
	require.Len(t, history, 2)
	assert.Equal(t, "polite version", history[1].Content)
}

func TestStartGraphRunUnconfigured(t *testing.T) {
	f := newFixture(t)

	_, events, err := f.runner.Start(context.Background(), StartInput{
		AgentID:    "tone-rewrite",
		SessionID:  "s1",
		ProviderID: "anthropic", // never configured in the fixture
		Prompt:     "hello",
	})
	require.NoError(t, err)

	got := drain(t, events)
	require.Len(t, got, 1)
	assert.Equal(t, core.EventError, got[0].Type)
	assert.Equal(t, core.KindConfiguration, got[0].Kind)

	// No provider call was made.
	assert.Zero(t, f.mock.CallCount())
}

func TestTransportForwarding(t *testing.T) {
	f := newFixture(t)
	f.mock.Script("x")

	_, events, err := f.runner.Start(context.Background(), StartInput{
		AgentID:   "chat",
		SessionID: "s1",
		Prompt:    "hello",
	})
	require.NoError(t, err)

	got := drain(t, events)
	sent := f.mem.Sent(EventChannel)

	// Every caller-visible event is mirrored to the transport, in order.
	require.Len(t, sent, len(got))
	for i, ev := range got {
		assert.Equal(t, ev, sent[i])
	}
}

func TestStartLazySession(t *testing.T) {
	f := newFixture(t)
	f.mock.Script("x")

	_, events, err := f.runner.Start(context.Background(), StartInput{
		AgentID: "chat",
		Prompt:  "hello",
	})
	require.NoError(t, err)
	drain(t, events)

	// A fresh session was allocated for the run.
	require.Len(t, f.sessions.List(), 1)
}
