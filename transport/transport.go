// Package transport defines the event-delivery collaborator boundary. The
// orchestration core is agnostic to whether delivery is per-recipient or
// broadcast; it only needs a send primitive accepting (channel, payload).
// A channel-backed in-memory implementation ships for composition roots and
// tests.
package transport

import "sync"

// Transport delivers event payloads to external consumers.
type Transport interface {
	Send(channel string, payload any)
}

// Discard drops every payload. Used when no transport is wired.
type Discard struct{}

// Send implements Transport.
func (Discard) Send(string, any) {}

// Memory records sent payloads per channel. Safe for concurrent use.
type Memory struct {
	mu   sync.Mutex
	sent map[string][]any
}

// NewMemory constructs an empty in-memory transport.
func NewMemory() *Memory {
	return &Memory{sent: make(map[string][]any)}
}

// Send implements Transport.
func (m *Memory) Send(channel string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[channel] = append(m.sent[channel], payload)
}

// Sent returns a copy of everything delivered to a channel so far.
func (m *Memory) Sent(channel string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.sent[channel]))
	copy(out, m.sent[channel])
	return out
}

var (
	_ Transport = Discard{}
	_ Transport = (*Memory)(nil)
)
