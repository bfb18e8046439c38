// Package session owns the long-lived conversation contexts runs execute
// in. Each session binds a provider/model pair, tracks liveness bookkeeping
// (last activity, message count), and enforces the single-active-run
// invariant: at most one run is in flight per session at any time, while
// independent sessions run concurrently.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentrun/core"
)

// Config describes a session to create. ProviderID is mandatory; SessionID
// is generated when empty.
type Config struct {
	SessionID  string
	ProviderID string
	ModelID    string
	Metadata   map[string]string
}

// Session is a snapshot of one conversation context. Mutation happens only
// through Manager methods; snapshots returned by Get/List are defensive
// copies.
type Session struct {
	ID           string            `json:"id"`
	ProviderID   string            `json:"provider_id"`
	ModelID      string            `json:"model_id"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity time.Time         `json:"last_activity"`
	IsActive     bool              `json:"is_active"`
	MessageCount int               `json:"message_count"`
	Metadata     map[string]string `json:"metadata,omitempty"`

	messages []core.Message
}

func (s *Session) snapshot() Session {
	out := *s
	out.Metadata = make(map[string]string, len(s.Metadata))
	for k, v := range s.Metadata {
		out.Metadata[k] = v
	}
	out.messages = nil
	return out
}

// Options configure a Manager.
type Options struct {
	// DefaultProviderID is assigned to sessions created lazily on first use.
	DefaultProviderID string
}

// Manager owns zero or more sessions. Safe for concurrent use; the session
// map is the only shared mutable state and is touched exclusively through
// the methods below.
type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	order             []string
	defaultProviderID string
}

// NewManager constructs an empty session manager.
func NewManager(optFns ...func(o *Options)) *Manager {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		defaultProviderID: opts.DefaultProviderID,
	}
}

// Create adds a new session. A duplicate session id fails with
// core.ErrDuplicateID.
func (m *Manager) Create(cfg Config) (Session, error) {
	if cfg.ProviderID == "" {
		cfg.ProviderID = m.defaultProviderID
	}
	if cfg.ProviderID == "" {
		return Session{}, fmt.Errorf("session requires a provider id")
	}

	id := cfg.SessionID
	if id == "" {
		id = core.NewID()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return Session{}, fmt.Errorf("session %q: %w", id, core.ErrDuplicateID)
	}

	now := time.Now().UTC()
	sess := &Session{
		ID:           id,
		ProviderID:   cfg.ProviderID,
		ModelID:      cfg.ModelID,
		CreatedAt:    now,
		LastActivity: now,
		Metadata:     cloneMetadata(cfg.Metadata),
	}
	m.sessions[id] = sess
	m.order = append(m.order, id)

	return sess.snapshot(), nil
}

// GetOrCreate returns the session with the given id, creating it on first
// use.
func (m *Manager) GetOrCreate(id string) (Session, error) {
	if sess, ok := m.Get(id); ok {
		return sess, nil
	}
	sess, err := m.Create(Config{SessionID: id})
	if err == nil {
		return sess, nil
	}
	// Lost a create race; the session exists now.
	if sess, ok := m.Get(id); ok {
		return sess, nil
	}
	return Session{}, err
}

// Get returns a snapshot of the session, or ok=false when unknown.
func (m *Manager) Get(id string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return sess.snapshot(), true
}

// List returns snapshots of all sessions in creation order.
func (m *Manager) List() []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Session, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sessions[id].snapshot())
	}
	return out
}

// Destroy removes the session's bookkeeping. Returns false when the id is
// unknown. Cancelling any run the session owns is the runner's concern;
// callers cancel first, then destroy.
func (m *Manager) Destroy(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Activate marks the session as hosting a run. It fails with
// core.ErrSessionBusy when a run is already in flight and
// core.ErrSessionNotFound for unknown ids.
func (m *Manager) Activate(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %q: %w", id, core.ErrSessionNotFound)
	}
	if sess.IsActive {
		return fmt.Errorf("session %q: %w", id, core.ErrSessionBusy)
	}
	sess.IsActive = true

	return nil
}

// Release clears the in-flight marker without recording activity. It is for
// runs rejected before execution; runs that actually executed go through
// Deactivate.
func (m *Manager) Release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[id]; ok {
		sess.IsActive = false
	}
}

// Deactivate clears the in-flight marker and records activity. It is called
// after every completed run regardless of success, so operators can observe
// liveness even for failed runs.
func (m *Manager) Deactivate(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return
	}
	sess.IsActive = false
	sess.MessageCount++
	sess.LastActivity = time.Now().UTC()
}

// AppendExchange records a completed prompt/response pair in the session's
// conversation history.
func (m *Manager) AppendExchange(id, prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return
	}
	sess.messages = append(sess.messages,
		core.UserMessage(prompt),
		core.AssistantMessage(response),
	)
}

// History returns a copy of the session's conversation history.
func (m *Manager) History(id string) []core.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil
	}
	out := make([]core.Message, len(sess.messages))
	copy(out, sess.messages)
	return out
}

func cloneMetadata(md map[string]string) map[string]string {
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
