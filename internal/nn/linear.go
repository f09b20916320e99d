package nn

import (
	"fmt"
	"math/rand"

	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ Wᵀ + b.
//
// The weight matrix has shape [outFeatures, inFeatures] and the bias (when
// present) shape [1, outFeatures] so it broadcasts over the batch. Weights
// use Xavier initialization, biases start at zero.
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter
	bias        *Parameter // nil when the layer is bias-free
	backend     tensor.Backend
}

// NewLinear creates a Linear layer. withBias controls whether a bias term
// is learned.
func NewLinear(name string, inFeatures, outFeatures int, withBias bool, rng *rand.Rand, backend tensor.Backend) *Linear {
	l := &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight: NewParameter(name+".weight",
			Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, rng, backend)),
		backend: backend,
	}
	if withBias {
		l.bias = NewParameter(name+".bias", tensor.Zeros(tensor.Shape{1, outFeatures}, backend))
	}
	return l
}

// Forward computes y = x @ Wᵀ + b.
//
// Input shape [batch, inFeatures], output shape [batch, outFeatures].
func (l *Linear) Forward(x *tensor.Tensor) *tensor.Tensor {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("linear: expected 2D input, got %v", shape))
	}
	if shape[1] != l.inFeatures {
		panic(fmt.Sprintf("linear: expected %d input features, got %d", l.inFeatures, shape[1]))
	}

	out := x.MatMul(l.weight.Tensor().Transpose())
	if l.bias != nil {
		out = out.Add(l.bias.Tensor())
	}
	return out
}

// InFeatures returns the input width.
func (l *Linear) InFeatures() int { return l.inFeatures }

// OutFeatures returns the output width.
func (l *Linear) OutFeatures() int { return l.outFeatures }

// Parameters returns the weight (and bias, when present).
func (l *Linear) Parameters() []*Parameter {
	if l.bias == nil {
		return []*Parameter{l.weight}
	}
	return []*Parameter{l.weight, l.bias}
}
