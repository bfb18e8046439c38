// Package core defines the shared data model for agent run orchestration:
// the AgentEvent stream contract, chat messages, and the error taxonomy used
// to classify run failures. All higher-level packages (executor, graph,
// runner, session) communicate exclusively through these types, keeping the
// outward boundary stable regardless of which model provider or execution
// strategy backs a run.
package core
