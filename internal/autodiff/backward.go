package autodiff

import (
	"fmt"

	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// Backward computes gradients of t with respect to every tensor on the
// tape, seeding the output gradient with ones.
//
// The tensor must be the output of an operation recorded on b's tape
// (typically a scalar loss).
func Backward(t *tensor.Tensor, b *Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	if b.tape.NumOps() == 0 {
		panic("backward: no operations recorded (did you forget Tape().StartRecording()?)")
	}

	outputGrad := tensor.Empty(t.Shape())
	data := outputGrad.Data()
	for i := range data {
		data[i] = 1
	}
	return b.tape.Backward(outputGrad, b)
}

// GradFor returns the gradient for a tensor from a backward result, or an
// error if none was computed (the tensor did not influence the output).
func GradFor(grads map[*tensor.RawTensor]*tensor.RawTensor, t *tensor.Tensor) (*tensor.RawTensor, error) {
	g, ok := grads[t.Raw()]
	if !ok {
		return nil, fmt.Errorf("no gradient recorded for tensor with shape %v", t.Shape())
	}
	return g, nil
}
