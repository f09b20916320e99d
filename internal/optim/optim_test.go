package optim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reaxnet-ml/reaxnet/internal/backend/cpu"
	"github.com/reaxnet-ml/reaxnet/internal/nn"
	"github.com/reaxnet-ml/reaxnet/internal/optim"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

func makeParam(t *testing.T, name string, values []float32) *nn.Parameter {
	t.Helper()
	raw, err := tensor.RawFromSlice(values, tensor.Shape{1, len(values)})
	require.NoError(t, err)
	return nn.NewParameter(name, tensor.New(raw, cpu.New()))
}

func gradFor(t *testing.T, p *nn.Parameter, values []float32) map[*tensor.RawTensor]*tensor.RawTensor {
	t.Helper()
	raw, err := tensor.RawFromSlice(values, tensor.Shape{1, len(values)})
	require.NoError(t, err)
	return map[*tensor.RawTensor]*tensor.RawTensor{p.Tensor().Raw(): raw}
}

// TestSGDStep tests the plain gradient descent update.
func TestSGDStep(t *testing.T) {
	p := makeParam(t, "w", []float32{1, 2})
	opt := optim.NewSGD([]*nn.Parameter{p}, optim.SGDConfig{LR: 0.1})

	opt.Step(gradFor(t, p, []float32{1, -2}))
	assert.InDeltaSlice(t, []float32{0.9, 2.2}, p.Tensor().Data(), 1e-6)
}

// TestSGDMomentum tests velocity accumulation over two steps.
func TestSGDMomentum(t *testing.T) {
	p := makeParam(t, "w", []float32{0})
	opt := optim.NewSGD([]*nn.Parameter{p}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	// Step 1: velocity = 1, param = -0.1.
	opt.Step(gradFor(t, p, []float32{1}))
	assert.InDelta(t, -0.1, p.Tensor().Data()[0], 1e-6)

	// Step 2: velocity = 0.9*1 + 1 = 1.9, param = -0.1 - 0.19 = -0.29.
	opt.Step(gradFor(t, p, []float32{1}))
	assert.InDelta(t, -0.29, p.Tensor().Data()[0], 1e-6)
}

// TestSGDWeightDecay tests the decay term g = grad + wd*param.
func TestSGDWeightDecay(t *testing.T) {
	p := makeParam(t, "w", []float32{2})
	opt := optim.NewSGD([]*nn.Parameter{p}, optim.SGDConfig{LR: 0.1, WeightDecay: 0.5})

	// g = 0 + 0.5*2 = 1, param = 2 - 0.1 = 1.9.
	opt.Step(gradFor(t, p, []float32{0}))
	assert.InDelta(t, 1.9, p.Tensor().Data()[0], 1e-6)
}

// TestSGDSkipsParamsWithoutGradient tests that untouched parameters stay.
func TestSGDSkipsParamsWithoutGradient(t *testing.T) {
	p := makeParam(t, "w", []float32{3})
	other := makeParam(t, "unused", []float32{7})
	opt := optim.NewSGD([]*nn.Parameter{p, other}, optim.SGDConfig{LR: 0.1})

	opt.Step(gradFor(t, p, []float32{1}))
	assert.InDelta(t, 2.9, p.Tensor().Data()[0], 1e-6)
	assert.Equal(t, float32(7), other.Tensor().Data()[0])
	assert.Nil(t, other.Grad())
}

// TestAdamFirstStep tests that bias correction makes the first update a
// full lr-sized move against the gradient sign.
func TestAdamFirstStep(t *testing.T) {
	p := makeParam(t, "w", []float32{1, 1})
	opt := optim.NewAdam([]*nn.Parameter{p}, optim.AdamConfig{LR: 0.1})

	// m_hat = g, v_hat = g², update = lr * g/|g| = lr * sign(g).
	opt.Step(gradFor(t, p, []float32{0.5, -0.5}))
	assert.InDeltaSlice(t, []float32{0.9, 1.1}, p.Tensor().Data(), 1e-4)
}

// TestAdamDefaults tests config defaulting.
func TestAdamDefaults(t *testing.T) {
	p := makeParam(t, "w", []float32{0})
	opt := optim.NewAdam([]*nn.Parameter{p}, optim.AdamConfig{})
	assert.Equal(t, float32(0.001), opt.GetLR())
}

// TestAdamSecondStepShrinks tests that a sign-flipped gradient produces a
// smaller second step than a repeated one.
func TestAdamSecondStepShrinks(t *testing.T) {
	repeat := makeParam(t, "w", []float32{0})
	flip := makeParam(t, "w", []float32{0})
	optRepeat := optim.NewAdam([]*nn.Parameter{repeat}, optim.AdamConfig{LR: 0.1})
	optFlip := optim.NewAdam([]*nn.Parameter{flip}, optim.AdamConfig{LR: 0.1})

	optRepeat.Step(gradFor(t, repeat, []float32{1}))
	optFlip.Step(gradFor(t, flip, []float32{1}))
	afterFirst := repeat.Tensor().Data()[0]

	optRepeat.Step(gradFor(t, repeat, []float32{1}))
	optFlip.Step(gradFor(t, flip, []float32{-1}))

	moveRepeat := afterFirst - repeat.Tensor().Data()[0]
	moveFlip := flip.Tensor().Data()[0] - afterFirst
	assert.Greater(t, moveRepeat, moveFlip)
}

// TestZeroGrad tests gradient slot clearing.
func TestZeroGrad(t *testing.T) {
	p := makeParam(t, "w", []float32{1})
	opt := optim.NewSGD([]*nn.Parameter{p}, optim.SGDConfig{})

	opt.Step(gradFor(t, p, []float32{1}))
	require.NotNil(t, p.Grad())

	opt.ZeroGrad()
	assert.Nil(t, p.Grad())
}

// TestSetLR tests learning rate mutation through the interface.
func TestSetLR(t *testing.T) {
	p := makeParam(t, "w", []float32{1})
	var opt optim.Optimizer = optim.NewAdam([]*nn.Parameter{p}, optim.AdamConfig{LR: 0.5})

	opt.SetLR(0.25)
	assert.Equal(t, float32(0.25), opt.GetLR())
}

// TestReduceLROnPlateau tests decay after the patience runs out.
func TestReduceLROnPlateau(t *testing.T) {
	p := makeParam(t, "w", []float32{1})
	opt := optim.NewSGD([]*nn.Parameter{p}, optim.SGDConfig{LR: 1})
	sched := optim.NewReduceLROnPlateau(opt, optim.ReduceLROnPlateauConfig{Factor: 0.5, Patience: 2})

	assert.False(t, sched.Step(1.0)) // first score sets the best
	assert.False(t, sched.Step(1.5)) // bad 1
	assert.False(t, sched.Step(1.5)) // bad 2, still within patience
	assert.True(t, sched.Step(1.5))  // bad 3, decay
	assert.Equal(t, float32(0.5), opt.GetLR())

	// Improvement resets the counter.
	assert.False(t, sched.Step(0.5))
	assert.False(t, sched.Step(0.9))
	assert.False(t, sched.Step(0.9))
	assert.True(t, sched.Step(0.9))
	assert.Equal(t, float32(0.25), opt.GetLR())
}

// TestReduceLROnPlateauMinLR tests clamping at the floor.
func TestReduceLROnPlateauMinLR(t *testing.T) {
	p := makeParam(t, "w", []float32{1})
	opt := optim.NewSGD([]*nn.Parameter{p}, optim.SGDConfig{LR: 0.1})
	sched := optim.NewReduceLROnPlateau(opt, optim.ReduceLROnPlateauConfig{Factor: 0.1, Patience: 1, MinLR: 0.05})

	sched.Step(1.0)
	sched.Step(2.0)
	assert.True(t, sched.Step(2.0))
	assert.Equal(t, float32(0.05), opt.GetLR())

	// Already at the floor: no further decay reported.
	sched.Step(2.0)
	assert.False(t, sched.Step(2.0))
	assert.Equal(t, float32(0.05), opt.GetLR())
}
