package nn

import (
	"fmt"

	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// MSELoss returns the mean squared error between prediction and target,
// both [N, D], as a [1,1] tensor.
func MSELoss(pred, target *tensor.Tensor) *tensor.Tensor {
	checkSameShape("mse", pred, target)
	diff := pred.Sub(target)
	return diff.Mul(diff).Sum().MulScalar(1 / float32(pred.NumElements()))
}

// L1Loss returns the mean absolute error between prediction and target,
// both [N, D], as a [1,1] tensor. The absolute value is built from two
// rectifications so it stays differentiable on the tape.
func L1Loss(pred, target *tensor.Tensor) *tensor.Tensor {
	checkSameShape("l1", pred, target)
	diff := pred.Sub(target)
	abs := diff.ReLU().Add(diff.MulScalar(-1).ReLU())
	return abs.Sum().MulScalar(1 / float32(pred.NumElements()))
}

func checkSameShape(name string, a, b *tensor.Tensor) {
	if !a.Shape().Equal(b.Shape()) {
		panic(fmt.Sprintf("%s: shape mismatch %v vs %v", name, a.Shape(), b.Shape()))
	}
}
