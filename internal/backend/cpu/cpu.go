// Package cpu implements the pure-Go compute backend.
//
// Kernels allocate a fresh result for every operation; inputs are never
// written to. Shape violations panic: they are programmer errors, not
// runtime data errors.
package cpu

import (
	"math"

	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// Backend implements tensor.Backend with pure-Go kernels.
type Backend struct{}

// New creates a new CPU backend.
func New() *Backend {
	return &Backend{}
}

// Name returns the backend name.
func (c *Backend) Name() string {
	return "CPU"
}

// Add performs element-wise addition with broadcasting.
func (c *Backend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binaryOp("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (c *Backend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binaryOp("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (c *Backend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binaryOp("mul", a, b, func(x, y float32) float32 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (c *Backend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binaryOp("div", a, b, func(x, y float32) float32 { return x / y })
}

// AddScalar adds s to every element.
func (c *Backend) AddScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return unaryOp(x, func(v float32) float32 { return v + s })
}

// MulScalar multiplies every element by s.
func (c *Backend) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return unaryOp(x, func(v float32) float32 { return v * s })
}

// Exp applies the element-wise exponential.
func (c *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return unaryOp(x, func(v float32) float32 { return float32(math.Exp(float64(v))) })
}

// Sqrt applies the element-wise square root.
func (c *Backend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return unaryOp(x, func(v float32) float32 { return float32(math.Sqrt(float64(v))) })
}

// Tanh applies the element-wise hyperbolic tangent.
func (c *Backend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return unaryOp(x, func(v float32) float32 { return float32(math.Tanh(float64(v))) })
}

// Sigmoid applies the element-wise logistic function.
func (c *Backend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return unaryOp(x, sigmoid)
}

// Softplus applies log(1 + exp(x)) with overflow protection for large x.
func (c *Backend) Softplus(x *tensor.RawTensor) *tensor.RawTensor {
	return unaryOp(x, func(v float32) float32 {
		if v > 20 {
			return v
		}
		return float32(math.Log1p(math.Exp(float64(v))))
	})
}

// ReLU applies max(0, x) element-wise.
func (c *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return unaryOp(x, func(v float32) float32 {
		if v > 0 {
			return v
		}
		return 0
	})
}

func sigmoid(v float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(-float64(v))))
}

// unaryOp applies f element-wise into a fresh tensor.
func unaryOp(x *tensor.RawTensor, f func(float32) float32) *tensor.RawTensor {
	out := tensor.Empty(x.Shape())
	src := x.Data()
	dst := out.Data()
	for i, v := range src {
		dst[i] = f(v)
	}
	return out
}
