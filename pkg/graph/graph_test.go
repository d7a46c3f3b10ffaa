package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IntXgers/ohio-code/pkg/models"
)

type fakeSnapshotter map[string]models.ChainSnapshot

func (f fakeSnapshotter) Snapshot(id string) (models.ChainSnapshot, bool) {
	s, ok := f[id]
	return s, ok
}

func TestAddEdgesDedupesAndPreservesOrder(t *testing.T) {
	g := New()
	g.AddEdges("A", []string{"B", "C", "B"})
	g.AddEdges("A", []string{"D", "C"})

	assert.Equal(t, []string{"B", "C", "D"}, g.Forward("A"))
}

func TestReverseSortsBySource(t *testing.T) {
	g := New()
	g.AddEdges("B", []string{"Z"})
	g.AddEdges("A", []string{"Z"})

	rev := g.Reverse()
	assert.Equal(t, []string{"A", "B"}, rev["Z"])
}

func TestBuildChain_WorkedExample(t *testing.T) {
	// A -> [B, C], B -> [D, E], C -> [F], D -> [G, H], E -> [], F -> [I]
	g := New()
	g.AddEdges("A", []string{"B", "C"})
	g.AddEdges("B", []string{"D", "E"})
	g.AddEdges("C", []string{"F"})
	g.AddEdges("D", []string{"G", "H"})
	g.AddEdges("F", []string{"I"})

	chain := g.BuildChain("A", ChainParams{Fanout: 3, MaxSize: 8, Threshold: 4})
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "F", "G", "H"}, chain)
}

func TestBuildChain_CycleSuppressed(t *testing.T) {
	g := New()
	g.AddEdges("A", []string{"B"})
	g.AddEdges("B", []string{"A", "C"})

	chain := g.BuildChain("A", DefaultChainParams())
	seen := map[string]bool{}
	for _, id := range chain {
		assert.False(t, seen[id], "chain must not contain %s twice", id)
		seen[id] = true
	}
}

func TestBuildChain_RespectsFanoutAndMaxSize(t *testing.T) {
	g := New()
	g.AddEdges("A", []string{"B", "C", "D", "E"}) // fanout 3 should drop E from A's own expansion

	chain := g.BuildChain("A", ChainParams{Fanout: 3, MaxSize: 8, Threshold: 1})
	assert.LessOrEqual(t, len(chain), 8)
	assert.NotContains(t, chain, "E")
}

func TestBuildChainRecord_BelowThresholdReturnsNil(t *testing.T) {
	g := New()
	g.AddEdges("A", []string{"B"})

	rec := g.BuildChainRecord("A", ChainParams{Fanout: 3, MaxSize: 8, Threshold: 4}, fakeSnapshotter{})
	assert.Nil(t, rec)
}

func TestBuildChainRecord_NoOutgoingEdgesReturnsNil(t *testing.T) {
	g := New()
	g.AddEdges("A", nil)

	rec := g.BuildChainRecord("A", DefaultChainParams(), fakeSnapshotter{})
	assert.Nil(t, rec)
}

func TestBuildChainRecord_EmbedsSnapshots(t *testing.T) {
	g := New()
	g.AddEdges("A", []string{"B", "C"})
	g.AddEdges("B", []string{"D"})
	g.AddEdges("C", []string{"E"})

	snap := fakeSnapshotter{
		"A": {ID: "A", Title: "Primary"},
		"B": {ID: "B", Title: "Second"},
	}
	rec := g.BuildChainRecord("A", ChainParams{Fanout: 3, MaxSize: 8, Threshold: 3}, snap)
	require.NotNil(t, rec)
	assert.Equal(t, "A", rec.PrimarySection)
	assert.Equal(t, rec.ChainSections[0], rec.PrimarySection)
	assert.Equal(t, "Primary", rec.CompleteChain[0].Title)
	// C has no snapshot entry: falls back to a bare {ID: C}.
	var bareFound bool
	for _, s := range rec.CompleteChain {
		if s.ID == "C" && s.Title == "" {
			bareFound = true
		}
	}
	assert.True(t, bareFound)
}
