// Package agents ships the built-in agent definitions: the single-step chat
// agent and the two canonical multi-step graphs (tone-rewrite with a bounded
// retry, plan-then-write). They double as reference implementations for
// wiring custom definitions into the registry.
package agents

import (
	"context"
	"strings"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/model"
)

// complete drives one provider call to completion and returns the
// concatenated text. Graph nodes use it because they consume whole step
// outputs, not individual deltas.
func complete(ctx context.Context, client model.Client, req model.Request) (string, error) {
	chunks, errCh := client.Stream(ctx, req)

	var b strings.Builder
	for chunk := range chunks {
		b.WriteString(chunk.Text())
	}
	if err := <-errCh; err != nil {
		return "", err
	}

	return b.String(), nil
}

// singleUserRequest builds a one-shot request with a system instruction and
// a user payload.
func singleUserRequest(modelID, system, user string, temperature float64) model.Request {
	return model.Request{
		Model: modelID,
		Messages: []core.Message{
			core.SystemMessage(system),
			core.UserMessage(user),
		},
		Temperature: temperature,
		MaxTokens:   1024,
	}
}
