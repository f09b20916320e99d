// Package optim implements the optimization algorithms used to train the
// reaction network: SGD with momentum, Adam, and a reduce-on-plateau
// learning rate scheduler.
package optim

import (
	"github.com/reaxnet-ml/reaxnet/internal/nn"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies gradient updates to all parameters. grads maps a
	// parameter's raw tensor (by identity) to its gradient, as produced
	// by the tape's backward pass. Parameters without a gradient are
	// skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears all parameter gradient slots.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32

	// SetLR updates the learning rate, for schedulers.
	SetLR(lr float32)
}

// getGradient retrieves the gradient for a parameter, or nil when the
// parameter did not participate in the recorded computation.
func getGradient(param *nn.Parameter, grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Tensor().Raw()]
}
