// Package settings exposes the credential/model-settings collaborator
// boundary. The orchestration core only ever reads from it: given a provider
// id it expects the stored model selection and API token, or nothing. An
// in-memory implementation is included for composition roots and tests;
// applications typically back this interface with their own secure store.
package settings

import (
	"strings"
	"sync"
)

// Placeholder is the token value used by setup flows for providers that have
// been listed but not yet configured. It must be rejected exactly like a
// missing token, before any provider call is attempted.
const Placeholder = "not yet configured"

// ModelSettings is the stored per-provider configuration.
type ModelSettings struct {
	SelectedModel string `json:"selected_model"`
	APIToken      string `json:"api_token"`
}

// Configured reports whether the settings carry a usable token. Empty,
// whitespace-only and placeholder tokens all count as unconfigured.
func (m ModelSettings) Configured() bool {
	token := strings.TrimSpace(m.APIToken)
	return token != "" && !strings.EqualFold(token, Placeholder)
}

// Provider resolves per-provider model settings. Implementations must be
// safe for concurrent use.
type Provider interface {
	// ModelSettings returns the stored settings for a provider id, or
	// ok=false when the provider is unknown.
	ModelSettings(providerID string) (ModelSettings, bool)
}

// InMemory is a volatile Provider implementation backed by a process-local
// map. Safe for concurrent use.
type InMemory struct {
	mu       sync.RWMutex
	profiles map[string]ModelSettings
}

// NewInMemory constructs an empty in-memory settings store.
func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[string]ModelSettings)}
}

// Set stores or replaces the settings for a provider id.
func (s *InMemory) Set(providerID string, ms ModelSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[providerID] = ms
}

// ModelSettings implements Provider.
func (s *InMemory) ModelSettings(providerID string) (ModelSettings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms, ok := s.profiles[providerID]
	return ms, ok
}

var _ Provider = (*InMemory)(nil)
