package model

import (
	"context"
	"fmt"
	"sync"
)

// MockCall scripts one Stream invocation of a MockClient.
type MockCall struct {
	Chunks []Chunk
	Err    error
}

// MockClient is a lightweight in-memory Client useful for tests and
// examples. Calls are scripted in order; once the script is exhausted the
// client echoes the last user message as a single chunk.
type MockClient struct {
	mu       sync.Mutex
	info     Info
	script   []MockCall
	requests []Request

	// Gate, when set, is received from before each chunk is emitted,
	// letting tests control streaming pace deterministically.
	Gate <-chan struct{}
}

// NewMockClient constructs an empty mock client.
func NewMockClient() *MockClient {
	return &MockClient{info: Info{Model: "mock-model", Provider: "mock"}}
}

// Script appends a call emitting the given text deltas.
func (m *MockClient) Script(chunks ...string) *MockClient {
	call := MockCall{}
	for _, c := range chunks {
		call.Chunks = append(call.Chunks, Chunk{Delta: c})
	}
	m.mu.Lock()
	m.script = append(m.script, call)
	m.mu.Unlock()
	return m
}

// ScriptChunks appends a call emitting pre-built chunks (for exercising the
// structured parts shape).
func (m *MockClient) ScriptChunks(chunks ...Chunk) *MockClient {
	m.mu.Lock()
	m.script = append(m.script, MockCall{Chunks: chunks})
	m.mu.Unlock()
	return m
}

// ScriptError appends a call that fails with err after emitting nothing.
func (m *MockClient) ScriptError(err error) *MockClient {
	m.mu.Lock()
	m.script = append(m.script, MockCall{Err: err})
	m.mu.Unlock()
	return m
}

// Requests returns a copy of every request seen so far, in order.
func (m *MockClient) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns how many Stream invocations have occurred.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Stream implements Client.
func (m *MockClient) Stream(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	out := make(chan Chunk, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var call MockCall
	if len(m.script) > 0 {
		call = m.script[0]
		m.script = m.script[1:]
	} else {
		call = MockCall{Chunks: []Chunk{{Delta: echo(req)}}}
	}
	gate := m.Gate
	m.mu.Unlock()

	go func() {
		defer close(out)
		defer close(errCh)

		for _, chunk := range call.Chunks {
			if gate != nil {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case <-gate:
				}
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- chunk:
			}
		}
		if call.Err != nil {
			errCh <- call.Err
		}
	}()

	return out, errCh
}

// Info implements Client.
func (m *MockClient) Info() Info { return m.info }

func echo(req Request) string {
	if len(req.Messages) == 0 {
		return "mock response"
	}
	last := req.Messages[len(req.Messages)-1]
	return fmt.Sprintf("Mock response to: %s", last.Content)
}

var _ Client = (*MockClient)(nil)
