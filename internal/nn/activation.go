package nn

import (
	"fmt"
	"strings"

	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// Activation is a stateless element-wise nonlinearity.
type Activation interface {
	Apply(x *tensor.Tensor) *tensor.Tensor
}

// ReLU applies max(0, x).
type ReLU struct{}

// Apply applies the activation.
func (ReLU) Apply(x *tensor.Tensor) *tensor.Tensor { return x.ReLU() }

// Sigmoid applies the logistic function.
type Sigmoid struct{}

// Apply applies the activation.
func (Sigmoid) Apply(x *tensor.Tensor) *tensor.Tensor { return x.Sigmoid() }

// Tanh applies the hyperbolic tangent.
type Tanh struct{}

// Apply applies the activation.
func (Tanh) Apply(x *tensor.Tensor) *tensor.Tensor { return x.Tanh() }

// Softplus applies log(1 + exp(x)).
type Softplus struct{}

// Apply applies the activation.
func (Softplus) Apply(x *tensor.Tensor) *tensor.Tensor { return x.Softplus() }

// ActivationByName resolves a configuration string ("ReLU", "Sigmoid",
// "Tanh", "Softplus"; case-insensitive) to an activation.
func ActivationByName(name string) (Activation, error) {
	switch strings.ToLower(name) {
	case "relu":
		return ReLU{}, nil
	case "sigmoid":
		return Sigmoid{}, nil
	case "tanh":
		return Tanh{}, nil
	case "softplus":
		return Softplus{}, nil
	default:
		return nil, fmt.Errorf("unknown activation %q", name)
	}
}
