package model_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reaxnet-ml/reaxnet/internal/autodiff"
	"github.com/reaxnet-ml/reaxnet/internal/backend/cpu"
	"github.com/reaxnet-ml/reaxnet/internal/graph"
	"github.com/reaxnet-ml/reaxnet/internal/model"
	"github.com/reaxnet-ml/reaxnet/internal/reaction"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

func testOptions() model.Options {
	return model.Options{
		AtomFeatureSize:   5,
		BondFeatureSize:   3,
		GlobalFeatureSize: 2,
		EmbeddingSize:     8,
		GatedHiddenSizes:  []int{8, 8},
		GatedActivation:   "relu",
		GatedResidual:     true,
		Set2SetIterations: 2,
		Set2SetLayers:     1,
		FCHiddenSizes:     []int{16},
		FCActivation:      "relu",
		OutputSize:        1,
	}
}

// fixture builds a batch of three molecules and one A → B + C reaction.
func fixture(t *testing.T, backend tensor.Backend) (*graph.Hetero, graph.FeatureMap, []*reaction.Reaction) {
	t.Helper()
	a, err := graph.NewMolecule(3, [][2]int{{0, 1}, {1, 2}})
	require.NoError(t, err)
	b, err := graph.NewMolecule(2, [][2]int{{0, 1}})
	require.NoError(t, err)
	c, err := graph.NewMolecule(1, nil)
	require.NoError(t, err)
	g, err := graph.Batch([]*graph.Hetero{a, b, c})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(31))
	feats := graph.FeatureMap{
		graph.Atom:   tensor.Randn(tensor.Shape{6, 5}, rng, backend),
		graph.Bond:   tensor.Randn(tensor.Shape{4, 3}, rng, backend),
		graph.Global: tensor.Randn(tensor.Shape{3, 2}, rng, backend),
	}
	rxns := []*reaction.Reaction{{
		ID:          "r",
		Reactants:   []int{0},
		Products:    []int{1, 2},
		AtomMapping: []int{0, 1, 2},
		BondMapping: [][]int{{0}, {}},
	}}
	return g, feats, rxns
}

// TestNewValidatesOptions tests constructor validation.
func TestNewValidatesOptions(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(1))

	bad := testOptions()
	bad.GatedHiddenSizes = nil
	_, err := model.New(bad, rng, backend)
	assert.Error(t, err)

	bad = testOptions()
	bad.GatedActivation = "nope"
	_, err = model.New(bad, rng, backend)
	assert.Error(t, err)

	bad = testOptions()
	bad.OutputSize = 0
	_, err = model.New(bad, rng, backend)
	assert.Error(t, err)
}

// TestForwardShape tests the prediction shape.
func TestForwardShape(t *testing.T) {
	backend := cpu.New()
	g, feats, rxns := fixture(t, backend)

	m, err := model.New(testOptions(), rand.New(rand.NewSource(1)), backend)
	require.NoError(t, err)
	m.SetTraining(false)

	pred, err := m.Forward(g, feats, rxns, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 1}, pred.Shape())
}

// TestEvalDeterminism tests that eval-mode forward passes agree.
func TestEvalDeterminism(t *testing.T) {
	backend := cpu.New()
	g, feats, rxns := fixture(t, backend)

	opts := testOptions()
	opts.GatedDropout = 0.3
	opts.FCDropout = 0.3
	m, err := model.New(opts, rand.New(rand.NewSource(1)), backend)
	require.NoError(t, err)
	m.SetTraining(false)

	p1, err := m.Forward(g, feats, rxns, nil, nil)
	require.NoError(t, err)
	p2, err := m.Forward(g, feats, rxns, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, p1.Data(), p2.Data())
}

// TestFeaturesBeforeFC tests the embedding-output width (5x last gated).
func TestFeaturesBeforeFC(t *testing.T) {
	backend := cpu.New()
	g, feats, rxns := fixture(t, backend)

	m, err := model.New(testOptions(), rand.New(rand.NewSource(1)), backend)
	require.NoError(t, err)
	m.SetTraining(false)

	ft, err := m.FeaturesBeforeFC(g, feats, rxns, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 40}, ft.Shape())
}

// TestFeaturesAtEachLayer tests the layer trace: 1 + numGated entries,
// one chunk per input molecule, chunk rows matching each molecule's bonds.
func TestFeaturesAtEachLayer(t *testing.T) {
	backend := cpu.New()
	g, feats, _ := fixture(t, backend)

	m, err := model.New(testOptions(), rand.New(rand.NewSource(1)), backend)
	require.NoError(t, err)
	m.SetTraining(false)

	trace := m.FeaturesAtEachLayer(g, feats, nil, nil)
	require.Len(t, trace, 3) // embedding + 2 gated layers
	for l, chunks := range trace {
		require.Len(t, chunks, 3, "layer %d", l)
		assert.Equal(t, 2, chunks[0].Shape().Rows(), "layer %d molecule 0", l)
		assert.Equal(t, 1, chunks[1].Shape().Rows(), "layer %d molecule 1", l)
		assert.Equal(t, 1, chunks[2].Shape().Rows(), "layer %d molecule 2", l)
	}
}

// TestForwardPropagatesBuilderErrors tests error surfacing.
func TestForwardPropagatesBuilderErrors(t *testing.T) {
	backend := cpu.New()
	g, feats, rxns := fixture(t, backend)
	rxns[0].Reactants = []int{0, 1}

	m, err := model.New(testOptions(), rand.New(rand.NewSource(1)), backend)
	require.NoError(t, err)

	_, err = m.Forward(g, feats, rxns, nil, nil)
	assert.ErrorIs(t, err, reaction.ErrReactionArity)
}

// TestParametersReceiveGradients tests a full forward/backward pass.
func TestParametersReceiveGradients(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	g, feats, rxns := fixture(t, backend)

	m, err := model.New(testOptions(), rand.New(rand.NewSource(1)), backend)
	require.NoError(t, err)
	m.SetTraining(false)

	tape.StartRecording()
	defer tape.StopRecording()

	pred, err := m.Forward(g, feats, rxns, nil, nil)
	require.NoError(t, err)
	grads := autodiff.Backward(pred.Sum(), backend)

	withGrad := 0
	for _, p := range m.Parameters() {
		if _, err := autodiff.GradFor(grads, p.Tensor()); err == nil {
			withGrad++
		}
	}
	// Every parameter sits on the forward path.
	assert.Equal(t, len(m.Parameters()), withGrad)
}
