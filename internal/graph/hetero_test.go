package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reaxnet-ml/reaxnet/internal/backend/cpu"
	"github.com/reaxnet-ml/reaxnet/internal/graph"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

func mustMolecule(t *testing.T, numAtoms int, bonds [][2]int) *graph.Hetero {
	t.Helper()
	g, err := graph.NewMolecule(numAtoms, bonds)
	require.NoError(t, err)
	return g
}

// TestNewMolecule tests single molecule construction.
func TestNewMolecule(t *testing.T) {
	g := mustMolecule(t, 3, [][2]int{{0, 1}, {1, 2}})
	assert.Equal(t, 1, g.NumMolecules())
	assert.Equal(t, 3, g.NumNodes(graph.Atom))
	assert.Equal(t, 2, g.NumNodes(graph.Bond))
	assert.Equal(t, 1, g.NumNodes(graph.Global))
}

// TestNewMoleculePlaceholderBond tests that a bond-free molecule gets one
// placeholder bond node.
func TestNewMoleculePlaceholderBond(t *testing.T) {
	g := mustMolecule(t, 1, nil)
	assert.Equal(t, 1, g.NumNodes(graph.Bond))
	assert.Equal(t, [][2]int{{0, 0}}, g.BondEnds())
}

// TestNewMoleculeErrors tests constructor validation.
func TestNewMoleculeErrors(t *testing.T) {
	_, err := graph.NewMolecule(0, nil)
	assert.Error(t, err)

	_, err = graph.NewMolecule(2, [][2]int{{0, 5}})
	assert.Error(t, err)
}

// TestBatchOffsetsBondEnds tests atom index shifting during batching.
func TestBatchOffsetsBondEnds(t *testing.T) {
	a := mustMolecule(t, 2, [][2]int{{0, 1}})
	b := mustMolecule(t, 3, [][2]int{{0, 2}, {1, 2}})

	g, err := graph.Batch([]*graph.Hetero{a, b})
	require.NoError(t, err)

	assert.Equal(t, 2, g.NumMolecules())
	assert.Equal(t, 5, g.NumNodes(graph.Atom))
	assert.Equal(t, [][2]int{{0, 1}, {2, 4}, {3, 4}}, g.BondEnds())
	assert.Equal(t, []int{0, 0, 1, 1, 1}, g.AtomMolecule())
	assert.Equal(t, []int{0, 1, 1}, g.BondMolecule())
}

// TestUnbatchInvertsBatch tests that Unbatch is the exact inverse of Batch.
func TestUnbatchInvertsBatch(t *testing.T) {
	mols := []*graph.Hetero{
		mustMolecule(t, 2, [][2]int{{0, 1}}),
		mustMolecule(t, 1, nil),
		mustMolecule(t, 4, [][2]int{{0, 3}, {1, 2}, {2, 3}}),
	}
	g, err := graph.Batch(mols)
	require.NoError(t, err)

	back := graph.Unbatch(g)
	require.Len(t, back, len(mols))
	for i, m := range mols {
		assert.Equal(t, m.NumNodes(graph.Atom), back[i].NumNodes(graph.Atom), "molecule %d atoms", i)
		assert.Equal(t, m.BondEnds(), back[i].BondEnds(), "molecule %d bonds", i)
	}
}

// TestBatchOfBatches tests that batching already-batched graphs composes.
func TestBatchOfBatches(t *testing.T) {
	left, err := graph.Batch([]*graph.Hetero{
		mustMolecule(t, 2, [][2]int{{0, 1}}),
		mustMolecule(t, 1, nil),
	})
	require.NoError(t, err)
	right := mustMolecule(t, 2, [][2]int{{0, 1}})

	g, err := graph.Batch([]*graph.Hetero{left, right})
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumMolecules())
	assert.Equal(t, []int{2, 1, 2}, g.BatchNumNodes(graph.Atom))
	assert.Equal(t, [][2]int{{0, 1}, {2, 2}, {3, 4}}, g.BondEnds())
}

// TestSplitBatched tests per-molecule feature splitting.
func TestSplitBatched(t *testing.T) {
	backend := cpu.New()
	g, err := graph.Batch([]*graph.Hetero{
		mustMolecule(t, 2, [][2]int{{0, 1}}),
		mustMolecule(t, 3, [][2]int{{0, 1}}),
	})
	require.NoError(t, err)

	feats, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5}, tensor.Shape{5, 1}, backend)
	require.NoError(t, err)

	parts := g.SplitBatched(graph.Atom, feats)
	require.Len(t, parts, 2)
	assert.Equal(t, []float32{1, 2}, parts[0].Data())
	assert.Equal(t, []float32{3, 4, 5}, parts[1].Data())
}

// TestSplitBatchedPanicsOnMismatch tests the row count invariant.
func TestSplitBatchedPanicsOnMismatch(t *testing.T) {
	backend := cpu.New()
	g := mustMolecule(t, 2, [][2]int{{0, 1}})
	feats := tensor.Zeros(tensor.Shape{3, 1}, backend)

	assert.Panics(t, func() {
		g.SplitBatched(graph.Atom, feats)
	})
}

// TestBondEndIndex tests the endpoint slice view.
func TestBondEndIndex(t *testing.T) {
	g := mustMolecule(t, 3, [][2]int{{0, 1}, {1, 2}})
	src, dst := g.BondEndIndex()
	assert.Equal(t, []int{0, 1}, src)
	assert.Equal(t, []int{1, 2}, dst)
}
