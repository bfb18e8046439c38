package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/graph"
	"github.com/hupe1980/agentrun/model"
)

func TestRegisterAndGet(t *testing.T) {
	r := New()

	err := r.Register(Definition{ID: "chat", Name: "Chat"})
	require.NoError(t, err)

	def, ok := r.Get("chat")
	assert.True(t, ok)
	assert.Equal(t, "Chat", def.Name)

	_, ok = r.Get("unknown")
	assert.False(t, ok)
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()

	require.NoError(t, r.Register(Definition{ID: "chat"}))

	err := r.Register(Definition{ID: "chat", Name: "Other"})
	assert.ErrorIs(t, err, core.ErrDuplicateID)

	// The first registration is untouched.
	def, _ := r.Get("chat")
	assert.Empty(t, def.Name)
}

func TestRegisterRequiresID(t *testing.T) {
	r := New()
	assert.Error(t, r.Register(Definition{Name: "anonymous"}))
}

func TestListInsertionOrder(t *testing.T) {
	r := New()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(Definition{ID: id}))
	}

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, r.Names())

	defs := r.List()
	require.Len(t, defs, 3)
	assert.Equal(t, "zeta", defs[0].ID)
	assert.Equal(t, "mid", defs[2].ID)
}

func TestMultiStep(t *testing.T) {
	single := Definition{ID: "chat"}
	assert.False(t, single.MultiStep())

	multi := Definition{
		ID: "writer",
		GraphBuilder: func(client model.Client) *graph.Graph {
			return graph.New(graph.Schema{})
		},
	}
	assert.True(t, multi.MultiStep())
}
