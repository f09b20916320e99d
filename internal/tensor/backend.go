package tensor

// Backend defines the interface that compute backends must implement.
// Backends handle the actual computation for tensor operations.
//
// Implementations:
//   - cpu.Backend: pure Go kernels
//   - autodiff.Backend: decorator that records operations on a gradient tape
//     before delegating to an inner backend
//
// All binary elementwise operations support 2D NumPy-style broadcasting
// ({N,H} with {N,1}, {1,H} or {1,1}). Shape violations are programmer
// errors and panic.
type Backend interface {
	// Element-wise binary operations
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix operations (2D only)
	MatMul(a, b *RawTensor) *RawTensor
	Transpose(x *RawTensor) *RawTensor

	// Scalar operations
	AddScalar(x *RawTensor, s float32) *RawTensor
	MulScalar(x *RawTensor, s float32) *RawTensor

	// Element-wise math and activations
	Exp(x *RawTensor) *RawTensor
	Sqrt(x *RawTensor) *RawTensor
	Tanh(x *RawTensor) *RawTensor
	Sigmoid(x *RawTensor) *RawTensor
	Softplus(x *RawTensor) *RawTensor
	ReLU(x *RawTensor) *RawTensor

	// Reductions
	Sum(x *RawTensor) *RawTensor                           // total sum, shape [1,1]
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor // sum along dimension of a 2D tensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// Row manipulation. These carry the graph structure through feature
	// tensors: gather/scatter by node index and split/concat by per-graph
	// node counts.
	Cat(xs []*RawTensor, dim int) *RawTensor
	SplitRows(x *RawTensor, sizes []int) []*RawTensor
	IndexSelectRows(x *RawTensor, index []int) *RawTensor
	ScatterAddRows(x *RawTensor, index []int, numRows int) *RawTensor

	// SegmentMax computes the per-segment row-wise maximum: out[s] holds the
	// element-wise max over rows i with segments[i] == s. Segments with no
	// rows yield zero rows. Not differentiated: it is used only as a
	// detached stabilizer for segment softmax.
	SegmentMax(x *RawTensor, segments []int, numSegments int) *RawTensor

	// Name returns the backend name.
	Name() string
}
