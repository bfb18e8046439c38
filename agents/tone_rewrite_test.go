package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrun/model"
)

// rewriteCalls counts Stream invocations carrying the rewrite instruction.
func rewriteCalls(mock *model.MockClient) int {
	n := 0
	for _, req := range mock.Requests() {
		if len(req.Messages) > 0 && req.Messages[0].Content == rewriteSystem {
			n++
		}
	}
	return n
}

func TestToneRewriteVerifiedFirstTry(t *testing.T) {
	mock := model.NewMockClient().
		Script(`{"tone":"angry"}`).
		Script("Could you please review this?").
		Script(`{"verified":true}`)

	g := ToneRewriteGraph(mock)
	final, err := g.Run(context.Background(), map[string]any{"input": "REVIEW THIS NOW"})
	require.NoError(t, err)

	assert.Equal(t, "Could you please review this?", final.String(g.Output(), ""))
	assert.Equal(t, "angry", final.String("tone", ""))
	assert.True(t, final.Bool("verified", false))
	assert.Equal(t, 0, final.Int("retryCount", -1))
	assert.Equal(t, 1, rewriteCalls(mock))
}

func TestToneRewriteRetriesOnceThenAccepts(t *testing.T) {
	mock := model.NewMockClient().
		Script(`{"tone":"curt"}`).
		Script("first attempt").
		Script(`{"verified":false}`).
		Script("second attempt").
		Script(`{"verified":false}`)

	g := ToneRewriteGraph(mock)
	final, err := g.Run(context.Background(), map[string]any{"input": "fix it"})
	require.NoError(t, err)

	// Exactly one retry: two rewrite calls total, and the last attempt is
	// accepted even though verification failed again.
	assert.Equal(t, 2, rewriteCalls(mock))
	assert.Equal(t, "second attempt", final.String(g.Output(), ""))
	assert.False(t, final.Bool("verified", true))
	assert.Equal(t, 1, final.Int("retryCount", -1))
	assert.Equal(t, 5, mock.CallCount())
}

func TestToneRewriteUnparsableVerifyAccepted(t *testing.T) {
	mock := model.NewMockClient().
		Script(`{"tone":"formal"}`).
		Script("rewritten text").
		Script("I think it looks fine!")

	g := ToneRewriteGraph(mock)
	final, err := g.Run(context.Background(), map[string]any{"input": "hello"})
	require.NoError(t, err)

	// Garbage verification output does not burn the retry budget.
	assert.Equal(t, 1, rewriteCalls(mock))
	assert.True(t, final.Bool("verified", false))
}

func TestToneRewriteUnparsableDetectKeepsNeutral(t *testing.T) {
	mock := model.NewMockClient().
		Script("no json at all").
		Script("rewritten text").
		Script(`{"verified":true}`)

	g := ToneRewriteGraph(mock)
	final, err := g.Run(context.Background(), map[string]any{"input": "hello"})
	require.NoError(t, err)

	assert.Equal(t, "neutral", final.String("tone", ""))
	assert.Equal(t, "rewritten text", final.String(g.Output(), ""))
}

func TestToneRewriteDefinition(t *testing.T) {
	def := ToneRewriteDefinition()
	assert.Equal(t, "tone-rewrite", def.ID)
	assert.True(t, def.MultiStep())
}
