package train

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reaxnet-ml/reaxnet/internal/autodiff"
	"github.com/reaxnet-ml/reaxnet/internal/backend/cpu"
	"github.com/reaxnet-ml/reaxnet/internal/dataset"
	"github.com/reaxnet-ml/reaxnet/internal/graph"
	"github.com/reaxnet-ml/reaxnet/internal/model"
	"github.com/reaxnet-ml/reaxnet/internal/optim"
	"github.com/reaxnet-ml/reaxnet/internal/reaction"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// TestEarlyStoppingImprovement tests the reset on every new best score.
func TestEarlyStoppingImprovement(t *testing.T) {
	e := earlyStopping{patience: 2}

	improved, stop := e.step(1.0)
	assert.True(t, improved)
	assert.False(t, stop)

	improved, stop = e.step(1.5)
	assert.False(t, improved)
	assert.False(t, stop)

	// New best resets the bad counter.
	improved, stop = e.step(0.5)
	assert.True(t, improved)
	assert.False(t, stop)

	_, stop = e.step(0.6)
	assert.False(t, stop)
	_, stop = e.step(0.6)
	assert.True(t, stop)
}

// TestEarlyStoppingZeroPatience tests that zero patience never halts.
func TestEarlyStoppingZeroPatience(t *testing.T) {
	e := earlyStopping{}
	e.step(1.0)
	for i := 0; i < 20; i++ {
		_, stop := e.step(2.0)
		assert.False(t, stop)
	}
}

// trainSample builds one A -> B + C sample with the given label and scale.
func trainSample(t *testing.T, label float32, scale float32, backend tensor.Backend, fill float32) *dataset.Sample {
	t.Helper()
	a, err := graph.NewMolecule(2, [][2]int{{0, 1}})
	require.NoError(t, err)
	b, err := graph.NewMolecule(1, nil)
	require.NoError(t, err)
	c, err := graph.NewMolecule(1, nil)
	require.NoError(t, err)
	g, err := graph.Batch([]*graph.Hetero{a, b, c})
	require.NoError(t, err)

	return &dataset.Sample{
		Graph: g,
		Features: graph.FeatureMap{
			graph.Atom:   tensor.Full(tensor.Shape{4, 2}, fill, backend),
			graph.Bond:   tensor.Full(tensor.Shape{3, 2}, fill/2, backend),
			graph.Global: tensor.Full(tensor.Shape{3, 2}, -fill, backend),
		},
		Reaction: &reaction.Reaction{
			Reactants:   []int{0},
			Products:    []int{1, 2},
			AtomMapping: []int{0, 1},
			BondMapping: [][]int{{}, {}},
		},
		Label: []float32{label},
		Scale: scale,
	}
}

func trainDataset(t *testing.T, backend tensor.Backend, scale float32) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New([]*dataset.Sample{
		trainSample(t, 0.5, scale, backend, 1),
		trainSample(t, -0.5, scale, backend, 2),
		trainSample(t, 0.2, scale, backend, 3),
	})
	require.NoError(t, err)
	return ds
}

func trainModel(t *testing.T, backend tensor.Backend) *model.ReactionNetwork {
	t.Helper()
	m, err := model.New(model.Options{
		AtomFeatureSize:   2,
		BondFeatureSize:   2,
		GlobalFeatureSize: 2,
		EmbeddingSize:     4,
		GatedHiddenSizes:  []int{4},
		GatedActivation:   "relu",
		Set2SetIterations: 1,
		Set2SetLayers:     1,
		FCHiddenSizes:     []int{4},
		FCActivation:      "relu",
		OutputSize:        1,
	}, rand.New(rand.NewSource(3)), backend)
	require.NoError(t, err)
	return m
}

// TestFitRunsAllEpochs tests a short end-to-end run without early stopping.
func TestFitRunsAllEpochs(t *testing.T) {
	backend := autodiff.New(cpu.New())
	ds := trainDataset(t, backend, 1)

	m := trainModel(t, backend)
	opt := optim.NewAdam(m.Parameters(), optim.AdamConfig{LR: 0.01})
	tr := New(m, opt, nil, backend, Config{Epochs: 3, BatchSize: 2, Seed: 1}, nil)

	res, err := tr.Fit(ds, ds)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Epochs)
	assert.False(t, math.IsInf(float64(res.BestMAE), 0))
	assert.GreaterOrEqual(t, res.Best, 1)
	assert.LessOrEqual(t, res.Best, 3)

	// The tape must be clean after training so later passes start fresh.
	assert.Equal(t, 0, backend.Tape().NumOps())
	assert.False(t, backend.Tape().IsRecording())
}

// TestFitReducesLoss tests that training actually moves the parameters.
func TestFitReducesLoss(t *testing.T) {
	backend := autodiff.New(cpu.New())
	ds := trainDataset(t, backend, 1)

	m := trainModel(t, backend)
	opt := optim.NewAdam(m.Parameters(), optim.AdamConfig{LR: 0.01})
	tr := New(m, opt, nil, backend, Config{Epochs: 1, BatchSize: 3, Seed: 1}, nil)

	before, err := tr.Evaluate(ds)
	require.NoError(t, err)

	tr2 := New(m, opt, nil, backend, Config{Epochs: 30, BatchSize: 3, Seed: 1}, nil)
	_, err = tr2.Fit(ds, ds)
	require.NoError(t, err)

	after, err := tr2.Evaluate(ds)
	require.NoError(t, err)
	assert.Less(t, after, before)
}

// TestEvaluateScalesErrors tests the label-scale weighting of the MAE.
func TestEvaluateScalesErrors(t *testing.T) {
	backend := autodiff.New(cpu.New())
	m := trainModel(t, backend)
	tr := New(m, optim.NewSGD(m.Parameters(), optim.SGDConfig{}), nil, backend, Config{Epochs: 1, BatchSize: 4}, nil)

	plain, err := tr.Evaluate(trainDataset(t, backend, 1))
	require.NoError(t, err)
	doubled, err := tr.Evaluate(trainDataset(t, backend, 2))
	require.NoError(t, err)
	assert.InDelta(t, 2*plain, doubled, 1e-5)
}

// TestEvaluateRestoresTrainingMode tests the mode toggling contract.
func TestEvaluateRestoresTrainingMode(t *testing.T) {
	backend := autodiff.New(cpu.New())
	ds := trainDataset(t, backend, 1)
	m := trainModel(t, backend)
	tr := New(m, optim.NewSGD(m.Parameters(), optim.SGDConfig{}), nil, backend, Config{Epochs: 1, BatchSize: 4}, nil)

	_, err := tr.Evaluate(ds)
	require.NoError(t, err)
	assert.Equal(t, 0, backend.Tape().NumOps())
}
