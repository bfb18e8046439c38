package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType discriminates the AgentEvent tagged union.
type EventType string

const (
	// EventToken carries one text delta extracted from a provider chunk.
	EventToken EventType = "token"
	// EventThinking carries best-effort sub-step status for UI feedback.
	EventThinking EventType = "thinking"
	// EventDone is the terminal event of a successful run.
	EventDone EventType = "done"
	// EventError is the terminal event of a failed run.
	EventError EventType = "error"
)

// IsTerminal reports whether the event type completes a run. A cancelled run
// emits no terminal event at all.
func (t EventType) IsTerminal() bool { return t == EventDone || t == EventError }

// Event is the sole data exchanged across the orchestration core's outward
// boundary. Within one run events are strictly ordered: zero or more
// thinking events, zero or more token events, then exactly one terminal
// event, unless the run is cancelled, in which case the stream simply ends.
//
// Only the fields relevant to the Type are populated:
//   - token:    RunID, Text
//   - thinking: RunID, Text
//   - done:     RunID, Text (full concatenated output), TokenCount
//   - error:    RunID, Message, Kind
type Event struct {
	Type       EventType
	RunID      string
	Text       string
	TokenCount int
	Message    string
	Kind       ErrorKind
	Timestamp  time.Time
}

// NewTokenEvent creates a token event carrying exactly one non-empty delta.
func NewTokenEvent(runID, text string) Event {
	return Event{Type: EventToken, RunID: runID, Text: text, Timestamp: time.Now().UTC()}
}

// NewThinkingEvent creates an informational sub-step status event.
func NewThinkingEvent(runID, text string) Event {
	return Event{Type: EventThinking, RunID: runID, Text: text, Timestamp: time.Now().UTC()}
}

// NewDoneEvent creates the terminal success event with the concatenated full
// text and the number of token events that preceded it.
func NewDoneEvent(runID, text string, tokenCount int) Event {
	return Event{Type: EventDone, RunID: runID, Text: text, TokenCount: tokenCount, Timestamp: time.Now().UTC()}
}

// NewErrorEvent creates the terminal failure event. Message must already be
// sanitized for end users; raw provider detail belongs in logs only.
func NewErrorEvent(runID, message string, kind ErrorKind) Event {
	return Event{Type: EventError, RunID: runID, Message: message, Kind: kind, Timestamp: time.Now().UTC()}
}

// eventEnvelope is the stable wire shape {type, data:{run_id, ...}} consumed
// by transport collaborators.
type eventEnvelope struct {
	Type EventType      `json:"type"`
	Data map[string]any `json:"data"`
}

// MarshalJSON encodes the event as its stable envelope form. Type-specific
// fields are included only for the matching event type.
func (e Event) MarshalJSON() ([]byte, error) {
	data := map[string]any{"run_id": e.RunID}
	switch e.Type {
	case EventToken, EventThinking:
		data["text"] = e.Text
	case EventDone:
		data["text"] = e.Text
		data["token_count"] = e.TokenCount
	case EventError:
		data["message"] = e.Message
		data["kind"] = string(e.Kind)
	}
	return json.Marshal(eventEnvelope{Type: e.Type, Data: data})
}

// NewID generates a unique identifier for sessions and other long-lived
// bookkeeping objects.
func NewID() string { return uuid.NewString() }
