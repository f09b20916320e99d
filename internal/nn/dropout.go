package nn

import (
	"math/rand"

	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// Dropout zeroes elements with probability p during training and rescales
// survivors by 1/(1-p) (inverted dropout). In evaluation mode it is the
// identity, which keeps eval forward passes deterministic.
type Dropout struct {
	p        float32
	training bool
	rng      *rand.Rand
	backend  tensor.Backend
}

// NewDropout creates a Dropout layer. A p of 0 disables it entirely.
func NewDropout(p float32, rng *rand.Rand, backend tensor.Backend) *Dropout {
	return &Dropout{p: p, rng: rng, backend: backend}
}

// SetTraining toggles training mode.
func (d *Dropout) SetTraining(training bool) {
	d.training = training
}

// Forward applies dropout. The mask is a constant with respect to the
// gradient tape; gradients flow to x through the recorded multiplication.
func (d *Dropout) Forward(x *tensor.Tensor) *tensor.Tensor {
	if !d.training || d.p <= 0 {
		return x
	}
	mask := tensor.Empty(x.Shape())
	md := mask.Data()
	scale := 1 / (1 - d.p)
	for i := range md {
		if d.rng.Float32() >= d.p {
			md[i] = scale
		}
	}
	return x.Mul(tensor.New(mask, d.backend))
}

// Parameters returns no parameters; dropout is not trainable.
func (d *Dropout) Parameters() []*Parameter { return nil }
