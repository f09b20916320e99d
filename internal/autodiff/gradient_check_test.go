package autodiff_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/reaxnet-ml/reaxnet/internal/autodiff"
	"github.com/reaxnet-ml/reaxnet/internal/backend/cpu"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// checkGradients compares the tape gradient of sum(f(x)) against central
// finite differences at every element of x.
func checkGradients(t *testing.T, name string, shape tensor.Shape, f func(x *tensor.Tensor) *tensor.Tensor) {
	t.Helper()

	const epsilon = 1e-2
	const tolerance = 2e-2

	rng := rand.New(rand.NewSource(7))
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	data := make([]float32, shape.NumElements())
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}

	eval := func(values []float32) float32 {
		x, err := tensor.FromSlice(values, shape, backend)
		if err != nil {
			t.Fatalf("%s: FromSlice: %v", name, err)
		}
		return f(x).Sum().Item()
	}

	// Tape gradient.
	tape.Clear()
	tape.StartRecording()
	x, _ := tensor.FromSlice(data, shape, backend)
	loss := f(x).Sum()
	grads := autodiff.Backward(loss, backend)
	tape.StopRecording()
	gx, err := autodiff.GradFor(grads, x)
	if err != nil {
		t.Fatalf("%s: GradFor: %v", name, err)
	}

	// Finite differences, element by element.
	for i := range data {
		bumped := make([]float32, len(data))
		copy(bumped, data)
		bumped[i] = data[i] + epsilon
		plus := eval(bumped)
		bumped[i] = data[i] - epsilon
		minus := eval(bumped)
		numerical := (plus - minus) / (2 * epsilon)

		got := gx.Data()[i]
		if math.Abs(float64(got-numerical)) > tolerance {
			t.Errorf("%s: grad[%d] = %v, numerical %v", name, i, got, numerical)
		}
	}
}

func TestGradientCheck_Elementwise(t *testing.T) {
	backend := autodiff.New(cpu.New())
	c, _ := tensor.FromSlice([]float32{0.5, -1.5, 2, 0.25, 1, -0.75}, tensor.Shape{2, 3}, backend)

	checkGradients(t, "add", tensor.Shape{2, 3}, func(x *tensor.Tensor) *tensor.Tensor {
		return x.Add(c)
	})
	checkGradients(t, "mul", tensor.Shape{2, 3}, func(x *tensor.Tensor) *tensor.Tensor {
		return x.Mul(c)
	})
	checkGradients(t, "div", tensor.Shape{2, 3}, func(x *tensor.Tensor) *tensor.Tensor {
		return c.Div(x.Mul(x).AddScalar(1))
	})
	checkGradients(t, "sub", tensor.Shape{2, 3}, func(x *tensor.Tensor) *tensor.Tensor {
		return c.Sub(x)
	})
}

func TestGradientCheck_Unary(t *testing.T) {
	checkGradients(t, "tanh", tensor.Shape{2, 2}, func(x *tensor.Tensor) *tensor.Tensor {
		return x.Tanh()
	})
	checkGradients(t, "sigmoid", tensor.Shape{2, 2}, func(x *tensor.Tensor) *tensor.Tensor {
		return x.Sigmoid()
	})
	checkGradients(t, "exp", tensor.Shape{2, 2}, func(x *tensor.Tensor) *tensor.Tensor {
		return x.MulScalar(0.5).Exp()
	})
	checkGradients(t, "softplus", tensor.Shape{2, 2}, func(x *tensor.Tensor) *tensor.Tensor {
		return x.Softplus()
	})
	checkGradients(t, "sqrt", tensor.Shape{2, 2}, func(x *tensor.Tensor) *tensor.Tensor {
		return x.Mul(x).AddScalar(1).Sqrt()
	})
}

func TestGradientCheck_MatMul(t *testing.T) {
	backend := autodiff.New(cpu.New())
	w, _ := tensor.FromSlice([]float32{0.5, -1, 2, 0.25, 1.5, -0.5}, tensor.Shape{3, 2}, backend)

	checkGradients(t, "matmul", tensor.Shape{2, 3}, func(x *tensor.Tensor) *tensor.Tensor {
		return x.MatMul(w)
	})
	checkGradients(t, "matmul-transpose", tensor.Shape{2, 3}, func(x *tensor.Tensor) *tensor.Tensor {
		return x.Transpose().MatMul(x)
	})
}

func TestGradientCheck_Reductions(t *testing.T) {
	checkGradients(t, "sumdim0", tensor.Shape{3, 2}, func(x *tensor.Tensor) *tensor.Tensor {
		return x.SumDim(0, true).Mul(x.SumDim(0, true))
	})
	checkGradients(t, "meandim1", tensor.Shape{3, 2}, func(x *tensor.Tensor) *tensor.Tensor {
		return x.MeanDim(1, true).Tanh()
	})
}

func TestGradientCheck_GraphOps(t *testing.T) {
	checkGradients(t, "indexselect", tensor.Shape{4, 2}, func(x *tensor.Tensor) *tensor.Tensor {
		return tensor.IndexSelectRows(x, []int{3, 1, 1, 0}).Tanh()
	})
	checkGradients(t, "scatteradd", tensor.Shape{4, 2}, func(x *tensor.Tensor) *tensor.Tensor {
		return tensor.ScatterAddRows(x, []int{0, 1, 1, 0}, 2).Tanh()
	})
	checkGradients(t, "cat-split", tensor.Shape{4, 2}, func(x *tensor.Tensor) *tensor.Tensor {
		parts := tensor.SplitRows(x, []int{1, 3})
		return tensor.Cat([]*tensor.Tensor{parts[1], parts[0]}, 0).Sigmoid()
	})
}

// TestGradientCheck_SegmentSoftmax exercises the detached max shift: the
// gradient of a shifted softmax matches the unshifted softmax gradient.
func TestGradientCheck_SegmentSoftmax(t *testing.T) {
	segments := []int{0, 0, 1, 1}
	checkGradients(t, "segment-softmax", tensor.Shape{4, 1}, func(x *tensor.Tensor) *tensor.Tensor {
		max := tensor.SegmentMax(x, segments, 2)
		ex := x.Sub(tensor.IndexSelectRows(max, segments)).Exp()
		denom := tensor.ScatterAddRows(ex, segments, 2)
		alpha := ex.Div(tensor.IndexSelectRows(denom, segments))
		return alpha.Mul(alpha)
	})
}
