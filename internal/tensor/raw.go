package tensor

import "fmt"

// RawTensor is the low-level tensor representation: a dense, row-major
// float32 buffer plus its shape.
//
// The reaction network is float32 end to end, so RawTensor carries no
// runtime dtype. Every operation allocates a fresh result; raw tensors are
// never mutated after creation. Pointer identity is what the autodiff tape
// keys gradients on, so aliasing a buffer across two logical tensors would
// corrupt backward passes.
type RawTensor struct {
	data  []float32
	shape Shape
}

// NewRaw creates a zero-filled RawTensor with the given shape.
func NewRaw(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	return &RawTensor{
		data:  make([]float32, shape.NumElements()),
		shape: shape.Clone(),
	}, nil
}

// Empty creates a zero-filled RawTensor, panicking on an invalid shape.
// Kernels use this since an invalid shape there is a programmer error.
func Empty(shape Shape) *RawTensor {
	r, err := NewRaw(shape)
	if err != nil {
		panic(fmt.Sprintf("tensor: %v", err))
	}
	return r
}

// RawFromSlice creates a RawTensor backed by a copy of data.
func RawFromSlice(data []float32, shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, shape.NumElements())
	}
	buf := make([]float32, len(data))
	copy(buf, data)
	return &RawTensor{data: buf, shape: shape.Clone()}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Data returns the underlying buffer. Callers must treat it as read-only
// once the tensor has been handed to an operation.
func (r *RawTensor) Data() []float32 {
	return r.data
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// At returns the element at row i, column j of a 2D tensor.
func (r *RawTensor) At(i, j int) float32 {
	cols := r.shape.Cols()
	return r.data[i*cols+j]
}

// Set writes the element at row i, column j of a 2D tensor.
// Intended for construction-time population only.
func (r *RawTensor) Set(i, j int, v float32) {
	cols := r.shape.Cols()
	r.data[i*cols+j] = v
}

// Clone returns a deep copy with a fresh buffer (and fresh identity).
func (r *RawTensor) Clone() *RawTensor {
	buf := make([]float32, len(r.data))
	copy(buf, r.data)
	return &RawTensor{data: buf, shape: r.shape.Clone()}
}
