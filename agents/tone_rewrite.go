package agents

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentrun/graph"
	"github.com/hupe1980/agentrun/model"
	"github.com/hupe1980/agentrun/registry"
)

// maxRewriteRetries is a hard cap of exactly one extra rewrite attempt. The
// last rewrite is accepted regardless of its verification outcome; this is a
// bounded-retry policy, not backoff.
const maxRewriteRetries = 1

const (
	detectSystem = "You are a tone classifier. Reply with JSON only: " +
		`{"tone": "<one word describing the dominant tone of the text>"}`
	rewriteSystem = "You rewrite text into a friendly, professional tone while " +
		"preserving its meaning. Reply with the rewritten text only."
	verifySystem = "You verify whether a rewrite is friendly and professional. " +
		`Reply with JSON only: {"verified": true|false}`
)

// toneResult is the structured output of the detect step.
type toneResult struct {
	Tone string `json:"tone"`
}

// verifyResult is the structured output of the verify step.
type verifyResult struct {
	Verified bool `json:"verified"`
}

// ToneRewriteGraph compiles the detect → rewrite → verify graph bound to a
// model client. The verify step carries the only conditional edge: a failed
// verification routes back to rewrite once, incrementing the retry counter
// first; afterwards the last rewrite is accepted either way.
func ToneRewriteGraph(client model.Client) *graph.Graph {
	schema := graph.Schema{
		"input":      {Default: ""},
		"tone":       {Default: "neutral"},
		"rewritten":  {Default: ""},
		"verified":   {Default: false},
		"retryCount": {Default: 0},
	}

	g := graph.New(schema)

	g.AddNode("detect", func(ctx context.Context, s graph.State) (map[string]any, error) {
		input := s.String("input", "")
		raw, err := complete(ctx, client, singleUserRequest("", detectSystem, input, 0.0))
		if err != nil {
			return nil, err
		}
		// Unparsable classifier output keeps the neutral default.
		result := toneResult{Tone: "neutral"}
		graph.ParseOrDefault(raw, &result)
		if result.Tone == "" {
			result.Tone = "neutral"
		}
		return map[string]any{"tone": result.Tone}, nil
	})

	g.AddNode("rewrite", func(ctx context.Context, s graph.State) (map[string]any, error) {
		prompt := fmt.Sprintf("Detected tone: %s\n\nText:\n%s", s.String("tone", "neutral"), s.String("input", ""))
		rewritten, err := complete(ctx, client, singleUserRequest("", rewriteSystem, prompt, 0.7))
		if err != nil {
			return nil, err
		}
		return map[string]any{"rewritten": rewritten}, nil
	})

	g.AddNode("verify", func(ctx context.Context, s graph.State) (map[string]any, error) {
		raw, err := complete(ctx, client, singleUserRequest("", verifySystem, s.String("rewritten", ""), 0.0))
		if err != nil {
			return nil, err
		}
		// An unverifiable answer counts as accepted rather than burning the
		// retry budget on a parse problem.
		result := verifyResult{Verified: true}
		graph.ParseOrDefault(raw, &result)
		return map[string]any{"verified": result.Verified}, nil
	})

	g.AddEdge("detect", "rewrite")
	g.AddEdge("rewrite", "verify")
	g.AddConditionalEdge("verify", func(s graph.State) (string, map[string]any) {
		retries := s.Int("retryCount", 0)
		if !s.Bool("verified", false) && retries < maxRewriteRetries {
			return "rewrite", map[string]any{"retryCount": retries + 1}
		}
		return graph.End, nil
	})

	g.SetStart("detect")
	g.SetOutput("rewritten")

	return g
}

// ToneRewriteDefinition returns the registry definition for the tone-rewrite
// agent.
func ToneRewriteDefinition() registry.Definition {
	return registry.Definition{
		ID:          "tone-rewrite",
		Name:        "Tone Rewrite",
		Description: "Detects the tone of a text and rewrites it into a friendly, professional register, verifying the result with one bounded retry.",
		DefaultConfig: registry.Config{
			Temperature:        0.7,
			MaxTokens:          1024,
			MaxHistoryMessages: 0,
		},
		GraphBuilder: ToneRewriteGraph,
	}
}
