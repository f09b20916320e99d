package ops

import (
	"fmt"

	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// reduceBroadcast sums outputGrad along dimensions that were broadcast in
// the forward pass so the gradient matches the input's shape.
//
// All network tensors are 2D; the broadcast cases are {N,1}, {1,H} and
// {1,1} against {N,H}.
func reduceBroadcast(grad *tensor.RawTensor, target tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(target) {
		return grad
	}
	gs := grad.Shape()
	if len(gs) != 2 || len(target) != 2 {
		panic(fmt.Sprintf("reduceBroadcast: expected 2D shapes, got %v -> %v", gs, target))
	}

	out := grad
	if target[0] == 1 && gs[0] != 1 {
		out = backend.SumDim(out, 0, true)
	}
	if target[1] == 1 && gs[1] != 1 {
		out = backend.SumDim(out, 1, true)
	}
	if !out.Shape().Equal(target) {
		panic(fmt.Sprintf("reduceBroadcast: cannot reduce %v to %v", gs, target))
	}
	return out
}

// onesLike creates a tensor of ones with x's shape.
func onesLike(x *tensor.RawTensor) *tensor.RawTensor {
	out := tensor.Empty(x.Shape())
	data := out.Data()
	for i := range data {
		data[i] = 1
	}
	return out
}

// reshape2D copies a gradient into a fresh raw tensor with the given 2D
// shape. Used to restore the kept dimension before broadcasting a reduced
// gradient back over its source.
func reshape2D(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out, err := tensor.RawFromSlice(x.Data(), shape)
	if err != nil {
		panic(fmt.Sprintf("reshape2D: %v", err))
	}
	return out
}
