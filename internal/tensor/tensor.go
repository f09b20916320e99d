// Package tensor provides the dense float32 tensor substrate for the
// reaction network: shapes, raw buffers, the Backend compute interface and
// a high-level Tensor wrapper with fluent operations.
//
// Structure is carried beside data, never inside it: graph-aware code passes
// index slices (gather/scatter/segment arguments) into Backend operations
// rather than encoding connectivity in tensors.
package tensor

import "fmt"

// Tensor couples a RawTensor with the backend that operates on it.
//
// Operations never mutate their inputs; each returns a new Tensor on the
// same backend. When the backend is an autodiff decorator, every operation
// performed through these methods is recorded for the backward pass.
type Tensor struct {
	raw     *RawTensor
	backend Backend
}

// New creates a Tensor from a raw tensor and a backend.
func New(raw *RawTensor, b Backend) *Tensor {
	return &Tensor{raw: raw, backend: b}
}

// Raw returns the underlying raw tensor.
func (t *Tensor) Raw() *RawTensor {
	return t.raw
}

// Backend returns the backend this tensor is bound to.
func (t *Tensor) Backend() Backend {
	return t.backend
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.raw.Shape()
}

// Data returns the underlying buffer (read-only by convention).
func (t *Tensor) Data() []float32 {
	return t.raw.Data()
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return t.raw.NumElements()
}

// At returns the element at row i, column j of a 2D tensor.
func (t *Tensor) At(i, j int) float32 {
	return t.raw.At(i, j)
}

// Clone returns a deep copy with fresh buffer identity.
func (t *Tensor) Clone() *Tensor {
	return New(t.raw.Clone(), t.backend)
}

// Item returns the single element of a one-element tensor.
func (t *Tensor) Item() float32 {
	if t.raw.NumElements() != 1 {
		panic(fmt.Sprintf("item: tensor has %d elements, want 1", t.raw.NumElements()))
	}
	return t.raw.Data()[0]
}

// Add performs element-wise addition with broadcasting.
func (t *Tensor) Add(o *Tensor) *Tensor {
	return New(t.backend.Add(t.raw, o.raw), t.backend)
}

// Sub performs element-wise subtraction with broadcasting.
func (t *Tensor) Sub(o *Tensor) *Tensor {
	return New(t.backend.Sub(t.raw, o.raw), t.backend)
}

// Mul performs element-wise multiplication with broadcasting.
func (t *Tensor) Mul(o *Tensor) *Tensor {
	return New(t.backend.Mul(t.raw, o.raw), t.backend)
}

// Div performs element-wise division with broadcasting.
func (t *Tensor) Div(o *Tensor) *Tensor {
	return New(t.backend.Div(t.raw, o.raw), t.backend)
}

// MatMul performs 2D matrix multiplication.
func (t *Tensor) MatMul(o *Tensor) *Tensor {
	return New(t.backend.MatMul(t.raw, o.raw), t.backend)
}

// Transpose returns the 2D transpose.
func (t *Tensor) Transpose() *Tensor {
	return New(t.backend.Transpose(t.raw), t.backend)
}

// AddScalar adds a scalar to every element.
func (t *Tensor) AddScalar(s float32) *Tensor {
	return New(t.backend.AddScalar(t.raw, s), t.backend)
}

// MulScalar multiplies every element by a scalar.
func (t *Tensor) MulScalar(s float32) *Tensor {
	return New(t.backend.MulScalar(t.raw, s), t.backend)
}

// Exp applies the element-wise exponential.
func (t *Tensor) Exp() *Tensor {
	return New(t.backend.Exp(t.raw), t.backend)
}

// Sqrt applies the element-wise square root.
func (t *Tensor) Sqrt() *Tensor {
	return New(t.backend.Sqrt(t.raw), t.backend)
}

// Tanh applies the element-wise hyperbolic tangent.
func (t *Tensor) Tanh() *Tensor {
	return New(t.backend.Tanh(t.raw), t.backend)
}

// Sigmoid applies the element-wise logistic function.
func (t *Tensor) Sigmoid() *Tensor {
	return New(t.backend.Sigmoid(t.raw), t.backend)
}

// Softplus applies the element-wise softplus log(1+exp(x)).
func (t *Tensor) Softplus() *Tensor {
	return New(t.backend.Softplus(t.raw), t.backend)
}

// ReLU applies the element-wise rectified linear unit.
func (t *Tensor) ReLU() *Tensor {
	return New(t.backend.ReLU(t.raw), t.backend)
}

// Sum reduces to the total sum with shape [1,1].
func (t *Tensor) Sum() *Tensor {
	return New(t.backend.Sum(t.raw), t.backend)
}

// SumDim sums along a dimension of a 2D tensor.
func (t *Tensor) SumDim(dim int, keepDim bool) *Tensor {
	return New(t.backend.SumDim(t.raw, dim, keepDim), t.backend)
}

// MeanDim averages along a dimension of a 2D tensor.
func (t *Tensor) MeanDim(dim int, keepDim bool) *Tensor {
	return New(t.backend.MeanDim(t.raw, dim, keepDim), t.backend)
}

// Cat concatenates tensors along a dimension. All tensors must share a
// backend; the result lives on that backend.
func Cat(ts []*Tensor, dim int) *Tensor {
	if len(ts) == 0 {
		panic("cat: no tensors to concatenate")
	}
	raws := make([]*RawTensor, len(ts))
	for i, t := range ts {
		raws[i] = t.raw
	}
	return New(ts[0].backend.Cat(raws, dim), ts[0].backend)
}

// SplitRows splits a 2D tensor into chunks of the given row counts.
func SplitRows(t *Tensor, sizes []int) []*Tensor {
	raws := t.backend.SplitRows(t.raw, sizes)
	out := make([]*Tensor, len(raws))
	for i, r := range raws {
		out[i] = New(r, t.backend)
	}
	return out
}

// IndexSelectRows gathers rows of a 2D tensor: out[i] = t[index[i]].
func IndexSelectRows(t *Tensor, index []int) *Tensor {
	return New(t.backend.IndexSelectRows(t.raw, index), t.backend)
}

// ScatterAddRows scatters rows of a 2D tensor into numRows accumulator
// rows: out[index[i]] += t[i].
func ScatterAddRows(t *Tensor, index []int, numRows int) *Tensor {
	return New(t.backend.ScatterAddRows(t.raw, index, numRows), t.backend)
}

// SegmentMax computes the per-segment row-wise maximum. The result is
// detached from any gradient tape.
func SegmentMax(t *Tensor, segments []int, numSegments int) *Tensor {
	return New(t.backend.SegmentMax(t.raw, segments, numSegments), t.backend)
}
