// Package autodiff implements reverse-mode automatic differentiation as a
// decorator around any tensor.Backend.
//
// Backend wraps an inner backend and records every differentiable operation
// on a GradientTape during the forward pass; walking the tape backwards
// yields gradients for all inputs, keyed by raw tensor identity.
//
// Usage:
//
//	b := autodiff.New(cpu.New())
//	b.Tape().StartRecording()
//	// ... forward pass through tensor operations ...
//	grads := autodiff.Backward(loss, b)
//	grad := grads[param.Tensor().Raw()]
package autodiff

import (
	"github.com/reaxnet-ml/reaxnet/internal/autodiff/ops"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// Backend wraps a tensor.Backend and records operations on a gradient tape.
type Backend struct {
	inner tensor.Backend
	tape  *GradientTape
}

// New creates an autodiff Backend wrapping the given backend.
func New(inner tensor.Backend) *Backend {
	return &Backend{inner: inner, tape: NewGradientTape()}
}

// Tape returns the gradient tape for manual control (start/stop recording,
// clearing between iterations).
func (b *Backend) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend.
func (b *Backend) Inner() tensor.Backend {
	return b.inner
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Add performs element-wise addition and records the operation.
func (b *Backend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Add(x, y)
	b.tape.Record(ops.NewAddOp(x, y, out))
	return out
}

// Sub performs element-wise subtraction and records the operation.
func (b *Backend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sub(x, y)
	b.tape.Record(ops.NewSubOp(x, y, out))
	return out
}

// Mul performs element-wise multiplication and records the operation.
func (b *Backend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Mul(x, y)
	b.tape.Record(ops.NewMulOp(x, y, out))
	return out
}

// Div performs element-wise division and records the operation.
func (b *Backend) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Div(x, y)
	b.tape.Record(ops.NewDivOp(x, y, out))
	return out
}

// MatMul performs matrix multiplication and records the operation.
func (b *Backend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.MatMul(x, y)
	b.tape.Record(ops.NewMatMulOp(x, y, out))
	return out
}

// Transpose transposes and records the operation.
func (b *Backend) Transpose(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Transpose(x)
	b.tape.Record(ops.NewTransposeOp(x, out))
	return out
}

// AddScalar adds a scalar and records the operation.
func (b *Backend) AddScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	out := b.inner.AddScalar(x, s)
	b.tape.Record(ops.NewAddScalarOp(x, out))
	return out
}

// MulScalar multiplies by a scalar and records the operation.
func (b *Backend) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	out := b.inner.MulScalar(x, s)
	b.tape.Record(ops.NewMulScalarOp(x, out, s))
	return out
}

// Exp applies exp and records the operation.
func (b *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Exp(x)
	b.tape.Record(ops.NewExpOp(x, out))
	return out
}

// Sqrt applies sqrt and records the operation.
func (b *Backend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sqrt(x)
	b.tape.Record(ops.NewSqrtOp(x, out))
	return out
}

// Tanh applies tanh and records the operation.
func (b *Backend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Tanh(x)
	b.tape.Record(ops.NewTanhOp(x, out))
	return out
}

// Sigmoid applies the logistic function and records the operation.
func (b *Backend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sigmoid(x)
	b.tape.Record(ops.NewSigmoidOp(x, out))
	return out
}

// Softplus applies softplus and records the operation.
func (b *Backend) Softplus(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Softplus(x)
	b.tape.Record(ops.NewSoftplusOp(x, out))
	return out
}

// ReLU applies ReLU and records the operation.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.ReLU(x)
	b.tape.Record(ops.NewReLUOp(x, out))
	return out
}

// Sum reduces to the total sum and records the operation.
func (b *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sum(x)
	b.tape.Record(ops.NewSumOp(x, out))
	return out
}

// SumDim sums along a dimension and records the operation.
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	out := b.inner.SumDim(x, dim, keepDim)
	b.tape.Record(ops.NewSumDimOp(x, out, dim, keepDim))
	return out
}

// MeanDim averages along a dimension and records the operation.
func (b *Backend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	out := b.inner.MeanDim(x, dim, keepDim)
	b.tape.Record(ops.NewMeanDimOp(x, out, dim, keepDim))
	return out
}

// Cat concatenates tensors and records the operation.
func (b *Backend) Cat(xs []*tensor.RawTensor, dim int) *tensor.RawTensor {
	out := b.inner.Cat(xs, dim)
	b.tape.Record(ops.NewCatOp(xs, out, dim))
	return out
}

// SplitRows splits into row chunks and records the multi-output operation.
func (b *Backend) SplitRows(x *tensor.RawTensor, sizes []int) []*tensor.RawTensor {
	outs := b.inner.SplitRows(x, sizes)
	b.tape.Record(ops.NewSplitRowsOp(x, outs))
	return outs
}

// IndexSelectRows gathers rows and records the operation.
func (b *Backend) IndexSelectRows(x *tensor.RawTensor, index []int) *tensor.RawTensor {
	out := b.inner.IndexSelectRows(x, index)
	b.tape.Record(ops.NewIndexSelectRowsOp(x, out, index))
	return out
}

// ScatterAddRows scatters rows and records the operation.
func (b *Backend) ScatterAddRows(x *tensor.RawTensor, index []int, numRows int) *tensor.RawTensor {
	out := b.inner.ScatterAddRows(x, index, numRows)
	b.tape.Record(ops.NewScatterAddRowsOp(x, out, index))
	return out
}

// SegmentMax delegates without recording: it serves only as a detached
// numeric stabilizer for segment softmax, and treating the shift as a
// constant leaves softmax gradients unchanged.
func (b *Backend) SegmentMax(x *tensor.RawTensor, segments []int, numSegments int) *tensor.RawTensor {
	return b.inner.SegmentMax(x, segments, numSegments)
}
