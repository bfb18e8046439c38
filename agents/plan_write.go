package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentrun/graph"
	"github.com/hupe1980/agentrun/model"
	"github.com/hupe1980/agentrun/registry"
)

const (
	planSystem = "You are an outliner. Break the request into short beats. " +
		`Reply with JSON only: {"outline": ["<beat>", ...]}`
	writeSystem = "You are a writer. Produce the final text following the " +
		"outline, one coherent piece, no headings."
)

// planResult is the structured output of the plan step.
type planResult struct {
	Outline []string `json:"outline"`
}

// PlanWriteGraph compiles the plan → write graph bound to a model client.
// Both edges are unconditional. An unparsable plan falls back to a
// single-beat outline derived from the raw prompt, so write always receives
// a usable outline.
func PlanWriteGraph(client model.Client) *graph.Graph {
	schema := graph.Schema{
		"input":   {Default: ""},
		"outline": {Default: []any{}, Merge: graph.MergeAppend},
		"draft":   {Default: ""},
	}

	g := graph.New(schema)

	g.AddNode("plan", func(ctx context.Context, s graph.State) (map[string]any, error) {
		input := s.String("input", "")
		raw, err := complete(ctx, client, singleUserRequest("", planSystem, input, 0.3))
		if err != nil {
			return nil, err
		}
		var result planResult
		if !graph.ParseOrDefault(raw, &result) || len(result.Outline) == 0 {
			result.Outline = []string{input}
		}
		return map[string]any{"outline": result.Outline}, nil
	})

	g.AddNode("write", func(ctx context.Context, s graph.State) (map[string]any, error) {
		var beats []string
		for i, beat := range toStrings(s["outline"]) {
			beats = append(beats, fmt.Sprintf("%d. %s", i+1, beat))
		}
		prompt := fmt.Sprintf("Request:\n%s\n\nOutline:\n%s", s.String("input", ""), strings.Join(beats, "\n"))
		draft, err := complete(ctx, client, singleUserRequest("", writeSystem, prompt, 0.7))
		if err != nil {
			return nil, err
		}
		return map[string]any{"draft": draft}, nil
	})

	g.AddEdge("plan", "write")
	g.AddEdge("write", graph.End)

	g.SetStart("plan")
	g.SetOutput("draft")

	return g
}

func toStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// PlanWriteDefinition returns the registry definition for the
// plan-then-write agent.
func PlanWriteDefinition() registry.Definition {
	return registry.Definition{
		ID:          "plan-write",
		Name:        "Plan then Write",
		Description: "Outlines the request first, then writes the final text from the outline.",
		DefaultConfig: registry.Config{
			Temperature:        0.7,
			MaxTokens:          2048,
			MaxHistoryMessages: 0,
		},
		GraphBuilder: PlanWriteGraph,
	}
}

// ChatDefinition returns the registry definition for the default single-step
// conversational agent.
func ChatDefinition() registry.Definition {
	return registry.Definition{
		ID:          "chat",
		Name:        "Chat",
		Description: "General conversational agent streaming tokens directly from the model.",
		DefaultConfig: registry.Config{
			SystemPrompt:       "You are a helpful assistant.",
			Temperature:        0.7,
			MaxTokens:          2048,
			MaxHistoryMessages: 20,
		},
	}
}
