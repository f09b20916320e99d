package nn_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reaxnet-ml/reaxnet/internal/autodiff"
	"github.com/reaxnet-ml/reaxnet/internal/backend/cpu"
	"github.com/reaxnet-ml/reaxnet/internal/graph"
	"github.com/reaxnet-ml/reaxnet/internal/nn"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// TestLinearForward tests the linear layer output shape and bias.
func TestLinearForward(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(1))
	l := nn.NewLinear("test", 3, 4, true, rng, backend)

	x := tensor.Ones(tensor.Shape{2, 3}, backend)
	y := l.Forward(x)
	assert.Equal(t, tensor.Shape{2, 4}, y.Shape())
	assert.Len(t, l.Parameters(), 2)

	bias := nn.NewLinear("nobias", 3, 4, false, rng, backend)
	assert.Len(t, bias.Parameters(), 1)
}

// TestLinearPanicsOnBadShape tests input validation.
func TestLinearPanicsOnBadShape(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(1))
	l := nn.NewLinear("test", 3, 4, true, rng, backend)

	assert.Panics(t, func() {
		l.Forward(tensor.Ones(tensor.Shape{2, 5}, backend))
	})
}

// TestActivationByName tests the configuration lookup.
func TestActivationByName(t *testing.T) {
	for _, name := range []string{"relu", "ReLU", "sigmoid", "Tanh", "softplus"} {
		_, err := nn.ActivationByName(name)
		assert.NoError(t, err, name)
	}
	_, err := nn.ActivationByName("swish")
	assert.Error(t, err)
}

// TestDropoutEvalIsIdentity tests eval-mode passthrough.
func TestDropoutEvalIsIdentity(t *testing.T) {
	backend := cpu.New()
	d := nn.NewDropout(0.5, rand.New(rand.NewSource(1)), backend)
	d.SetTraining(false)

	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	y := d.Forward(x)
	assert.Equal(t, x.Data(), y.Data())
}

// TestDropoutTrainScalesSurvivors tests inverted dropout scaling.
func TestDropoutTrainScalesSurvivors(t *testing.T) {
	backend := cpu.New()
	d := nn.NewDropout(0.5, rand.New(rand.NewSource(1)), backend)
	d.SetTraining(true)

	x := tensor.Ones(tensor.Shape{50, 20}, backend)
	y := d.Forward(x)
	for _, v := range y.Data() {
		if v != 0 && math.Abs(float64(v-2)) > 1e-6 {
			t.Fatalf("dropout output %v, want 0 or 2", v)
		}
	}
	// With p=0.5 over 1000 elements, both outcomes must appear.
	zeros := 0
	for _, v := range y.Data() {
		if v == 0 {
			zeros++
		}
	}
	assert.Greater(t, zeros, 300)
	assert.Less(t, zeros, 700)
}

// TestBatchNormTrainNormalizes tests batch statistics normalization.
func TestBatchNormTrainNormalizes(t *testing.T) {
	backend := cpu.New()
	bn := nn.NewBatchNorm("test", 2, backend)
	bn.SetTraining(true)

	x, _ := tensor.FromSlice([]float32{1, 10, 2, 20, 3, 30, 4, 40}, tensor.Shape{4, 2}, backend)
	y := bn.Forward(x)

	// Each column should come out with ~zero mean and ~unit variance.
	for c := 0; c < 2; c++ {
		var mean float64
		for r := 0; r < 4; r++ {
			mean += float64(y.At(r, c))
		}
		mean /= 4
		assert.InDelta(t, 0, mean, 1e-4, "column %d mean", c)

		var variance float64
		for r := 0; r < 4; r++ {
			d := float64(y.At(r, c)) - mean
			variance += d * d
		}
		variance /= 4
		assert.InDelta(t, 1, variance, 1e-2, "column %d variance", c)
	}
}

// TestBatchNormEvalIsDeterministic tests running-stat normalization.
func TestBatchNormEvalIsDeterministic(t *testing.T) {
	backend := cpu.New()
	bn := nn.NewBatchNorm("test", 2, backend)

	bn.SetTraining(true)
	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2}, backend)
	bn.Forward(x)

	bn.SetTraining(false)
	y1 := bn.Forward(x)
	y2 := bn.Forward(x)
	assert.Equal(t, y1.Data(), y2.Data())
}

// TestUnifySizeProjectsEveryType tests the per-type embedding widths.
func TestUnifySizeProjectsEveryType(t *testing.T) {
	backend := cpu.New()
	rng := rand.New(rand.NewSource(3))
	u := nn.NewUnifySize(map[graph.NodeType]int{
		graph.Atom:   5,
		graph.Bond:   3,
		graph.Global: 2,
	}, 8, rng, backend)

	feats := graph.FeatureMap{
		graph.Atom:   tensor.Ones(tensor.Shape{4, 5}, backend),
		graph.Bond:   tensor.Ones(tensor.Shape{2, 3}, backend),
		graph.Global: tensor.Ones(tensor.Shape{1, 2}, backend),
	}
	out := u.Forward(feats)
	for nt, ft := range out {
		assert.Equal(t, 8, ft.Shape().Cols(), string(nt))
	}
	assert.Len(t, u.Parameters(), 3)
}

func testGraph(t *testing.T, backend tensor.Backend) (*graph.Hetero, graph.FeatureMap) {
	t.Helper()
	a, err := graph.NewMolecule(3, [][2]int{{0, 1}, {1, 2}})
	require.NoError(t, err)
	b, err := graph.NewMolecule(2, [][2]int{{0, 1}})
	require.NoError(t, err)
	g, err := graph.Batch([]*graph.Hetero{a, b})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(11))
	return g, graph.FeatureMap{
		graph.Atom:   tensor.Randn(tensor.Shape{5, 4}, rng, backend),
		graph.Bond:   tensor.Randn(tensor.Shape{3, 4}, rng, backend),
		graph.Global: tensor.Randn(tensor.Shape{2, 4}, rng, backend),
	}
}

// TestGatedGraphConvShapes tests that a message-passing round preserves
// row counts and projects to the output width.
func TestGatedGraphConvShapes(t *testing.T) {
	backend := cpu.New()
	g, feats := testGraph(t, backend)

	act, _ := nn.ActivationByName("relu")
	conv := nn.NewGatedGraphConv("conv", nn.GatedGraphConvOptions{
		InSize:     4,
		OutSize:    6,
		Activation: act,
	}, rand.New(rand.NewSource(5)), backend)

	out := conv.Forward(g, feats, nil, nil)
	assert.Equal(t, tensor.Shape{5, 6}, out[graph.Atom].Shape())
	assert.Equal(t, tensor.Shape{3, 6}, out[graph.Bond].Shape())
	assert.Equal(t, tensor.Shape{2, 6}, out[graph.Global].Shape())
}

// TestGatedGraphConvIsPure tests that forward leaves its inputs intact and
// is deterministic in eval mode.
func TestGatedGraphConvIsPure(t *testing.T) {
	backend := cpu.New()
	g, feats := testGraph(t, backend)

	act, _ := nn.ActivationByName("relu")
	conv := nn.NewGatedGraphConv("conv", nn.GatedGraphConvOptions{
		InSize:     4,
		OutSize:    4,
		Residual:   true,
		Activation: act,
	}, rand.New(rand.NewSource(5)), backend)

	before := append([]float32(nil), feats[graph.Atom].Data()...)
	y1 := conv.Forward(g, feats, nil, nil)
	y2 := conv.Forward(g, feats, nil, nil)

	assert.Equal(t, before, feats[graph.Atom].Data())
	assert.Equal(t, y1[graph.Atom].Data(), y2[graph.Atom].Data())
	assert.Equal(t, y1[graph.Bond].Data(), y2[graph.Bond].Data())
}

// TestGatedGraphConvGraphNorm tests that the norm multipliers scale the
// pre-activation features.
func TestGatedGraphConvGraphNorm(t *testing.T) {
	backend := cpu.New()
	g, feats := testGraph(t, backend)

	act, _ := nn.ActivationByName("tanh")
	conv := nn.NewGatedGraphConv("conv", nn.GatedGraphConvOptions{
		InSize:     4,
		OutSize:    4,
		GraphNorm:  true,
		Activation: act,
	}, rand.New(rand.NewSource(5)), backend)

	ones := tensor.Ones(tensor.Shape{5, 1}, backend)
	onesBond := tensor.Ones(tensor.Shape{3, 1}, backend)
	half := tensor.Full(tensor.Shape{5, 1}, 0.5, backend)

	y1 := conv.Forward(g, feats, ones, onesBond)
	y2 := conv.Forward(g, feats, half, onesBond)
	assert.NotEqual(t, y1[graph.Atom].Data(), y2[graph.Atom].Data())
}

// TestSet2SetOutputShape tests the readout width.
func TestSet2SetOutputShape(t *testing.T) {
	backend := cpu.New()
	s := nn.NewSet2Set("s2s", 4, 3, 2, rand.New(rand.NewSource(9)), backend)

	x := tensor.Randn(tensor.Shape{6, 4}, rand.New(rand.NewSource(2)), backend)
	out := s.Forward(x, []int{0, 0, 0, 1, 1, 1}, 2)
	assert.Equal(t, tensor.Shape{2, 8}, out.Shape())
}

// TestSet2SetPermutationInvariance tests that reordering rows within a
// segment does not change the readout.
func TestSet2SetPermutationInvariance(t *testing.T) {
	backend := cpu.New()
	s := nn.NewSet2Set("s2s", 3, 4, 1, rand.New(rand.NewSource(9)), backend)

	data := []float32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
		10, 11, 12,
	}
	permuted := []float32{
		4, 5, 6,
		1, 2, 3,
		7, 8, 9,
		10, 11, 12,
	}
	segments := []int{0, 0, 1, 1}

	x1, _ := tensor.FromSlice(data, tensor.Shape{4, 3}, backend)
	x2, _ := tensor.FromSlice(permuted, tensor.Shape{4, 3}, backend)

	y1 := s.Forward(x1, segments, 2)
	y2 := s.Forward(x2, segments, 2)
	for i := range y1.Data() {
		assert.InDelta(t, y1.Data()[i], y2.Data()[i], 1e-5, "element %d", i)
	}
}

// TestSet2SetThenCatWidth tests the concatenated readout width (5x input).
func TestSet2SetThenCatWidth(t *testing.T) {
	backend := cpu.New()
	g, feats := testGraph(t, backend)

	s := nn.NewSet2SetThenCat("readout", 4, 2, 1, rand.New(rand.NewSource(9)), backend)
	out := s.Forward(g, feats)
	assert.Equal(t, tensor.Shape{2, 20}, out.Shape())
}

// TestMSELoss tests the mean squared error value.
func TestMSELoss(t *testing.T) {
	backend := cpu.New()
	pred, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	target, _ := tensor.FromSlice([]float32{1, 0, 3, 0}, tensor.Shape{2, 2}, backend)

	loss := nn.MSELoss(pred, target)
	assert.InDelta(t, 5.0, loss.Item(), 1e-6) // (0 + 4 + 0 + 16) / 4
}

// TestL1Loss tests the mean absolute error value.
func TestL1Loss(t *testing.T) {
	backend := cpu.New()
	pred, _ := tensor.FromSlice([]float32{1, -2, 3}, tensor.Shape{1, 3}, backend)
	target, _ := tensor.FromSlice([]float32{0, 2, 3}, tensor.Shape{1, 3}, backend)

	loss := nn.L1Loss(pred, target)
	assert.InDelta(t, 5.0/3.0, loss.Item(), 1e-6)
}

// TestLossGradientFlows tests that MSE backpropagates through a linear
// layer built on the autodiff backend.
func TestLossGradientFlows(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	rng := rand.New(rand.NewSource(21))
	l := nn.NewLinear("fit", 2, 1, true, rng, backend)

	tape.StartRecording()
	defer tape.StopRecording()

	x, _ := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	target, _ := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2, 1}, backend)
	loss := nn.MSELoss(l.Forward(x), target)

	grads := autodiff.Backward(loss, backend)
	for _, p := range l.Parameters() {
		g, err := autodiff.GradFor(grads, p.Tensor())
		require.NoError(t, err, p.Name())
		assert.True(t, g.Shape().Equal(p.Tensor().Shape()), p.Name())
	}
}
