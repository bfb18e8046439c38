// Package model defines the uniform streaming contract over chat-completion
// providers. A Client turns a normalized message list into an asynchronous
// sequence of chunks; adapters under model/openai and model/anthropic map
// their SDK wire formats into this shape so nothing above the adapter ever
// branches on a vendor.
package model

import (
	"context"
	"strings"

	"github.com/hupe1980/agentrun/core"
)

// Part is one element of a structured chunk payload. Providers that stream
// typed content blocks surface them as parts; plain-delta providers use the
// Chunk.Delta field directly.
type Part interface{ isPart() }

// TextPart is a plain text fragment within a structured chunk.
type TextPart struct {
	Text string `json:"text"`
}

func (TextPart) isPart() {}

// Chunk is a single streamed increment from a provider. Exactly one of Delta
// or Parts is populated by an adapter.
type Chunk struct {
	Delta string
	Parts []Part
}

// Text normalizes both chunk shapes into plain text. A chunk that
// contributes zero characters (empty delta, or a parts list with no text
// parts) yields "" and must be dropped by the consumer rather than surfaced
// as a spurious empty token.
func (c Chunk) Text() string {
	if c.Delta != "" {
		return c.Delta
	}
	var b strings.Builder
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return b.String()
}

// Request captures a normalized provider call.
type Request struct {
	Model       string
	Messages    []core.Message
	Temperature float64
	MaxTokens   int64
}

// Info describes a client implementation.
type Info struct {
	Model    string `json:"model"`
	Provider string `json:"provider"`
}

// Client is the minimal interface the executor and graph nodes use to drive
// generation. Stream returns a chunk channel and an error channel; both are
// closed when the call completes. The error channel carries at most one
// terminal error. Cancellation is cooperative via ctx: adapters stop
// producing once the context is done.
type Client interface {
	Stream(ctx context.Context, req Request) (<-chan Chunk, <-chan error)

	// Info returns metadata about the client implementation.
	Info() Info
}

// reasoningPrefixes lists model-id families that reject an explicit
// temperature parameter. Requests for these models must omit it entirely.
var reasoningPrefixes = []string{"o1-", "o3"}

// IsReasoningModel reports whether the model id belongs to a reasoning
// family (o1-*, o3*). Standard models always receive an explicit
// temperature; reasoning models never do.
func IsReasoningModel(modelID string) bool {
	for _, p := range reasoningPrefixes {
		if strings.HasPrefix(modelID, p) {
			return true
		}
	}
	return false
}
