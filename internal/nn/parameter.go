package nn

import "github.com/reaxnet-ml/reaxnet/internal/tensor"

// Parameter represents a trainable parameter: a tensor plus its gradient
// slot, filled in by the optimizer from the tape's backward result.
type Parameter struct {
	name   string
	tensor *tensor.Tensor
	grad   *tensor.RawTensor
}

// NewParameter creates a new trainable parameter.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{name: name, tensor: t}
}

// Name returns the parameter name (e.g. "gated3.bond_self.weight").
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.tensor
}

// Grad returns the gradient, or nil before the first backward pass.
func (p *Parameter) Grad() *tensor.RawTensor {
	return p.grad
}

// SetGrad sets the gradient.
func (p *Parameter) SetGrad(g *tensor.RawTensor) {
	p.grad = g
}

// ZeroGrad clears the gradient.
func (p *Parameter) ZeroGrad() {
	p.grad = nil
}
