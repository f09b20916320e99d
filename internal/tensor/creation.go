package tensor

import "math/rand"

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape, b Backend) *Tensor {
	return New(Empty(shape), b)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape, b Backend) *Tensor {
	return Full(shape, 1, b)
}

// Full creates a tensor filled with a specific value.
func Full(shape Shape, value float32, b Backend) *Tensor {
	r := Empty(shape)
	data := r.Data()
	for i := range data {
		data[i] = value
	}
	return New(r, b)
}

// FromSlice creates a tensor from a copy of data.
func FromSlice(data []float32, shape Shape, b Backend) (*Tensor, error) {
	r, err := RawFromSlice(data, shape)
	if err != nil {
		return nil, err
	}
	return New(r, b), nil
}

// Randn creates a tensor with values drawn from N(0, 1) using rng.
func Randn(shape Shape, rng *rand.Rand, b Backend) *Tensor {
	r := Empty(shape)
	data := r.Data()
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return New(r, b)
}

// Rand creates a tensor with values drawn from U(0, 1) using rng.
func Rand(shape Shape, rng *rand.Rand, b Backend) *Tensor {
	r := Empty(shape)
	data := r.Data()
	for i := range data {
		data[i] = rng.Float32()
	}
	return New(r, b)
}
