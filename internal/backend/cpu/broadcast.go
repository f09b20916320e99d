package cpu

import (
	"fmt"

	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// binaryOp applies f element-wise with NumPy-style broadcasting.
//
// The fast path handles identical shapes with a straight loop. The broadcast
// path walks the output linearly and maps each output coordinate back to the
// operand coordinates, treating size-1 dimensions as stride 0.
func binaryOp(name string, a, b *tensor.RawTensor, f func(x, y float32) float32) *tensor.RawTensor {
	if a.Shape().Equal(b.Shape()) {
		out := tensor.Empty(a.Shape())
		ad, bd, od := a.Data(), b.Data(), out.Data()
		for i := range od {
			od[i] = f(ad[i], bd[i])
		}
		return out
	}

	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	out := tensor.Empty(outShape)
	aStrides := broadcastStrides(a.Shape(), outShape)
	bStrides := broadcastStrides(b.Shape(), outShape)
	outStrides := rowMajorStrides(outShape)

	ad, bd, od := a.Data(), b.Data(), out.Data()
	coords := make([]int, len(outShape))
	for i := range od {
		// Decompose linear index into output coordinates.
		rem := i
		for d := range outShape {
			coords[d] = rem / outStrides[d]
			rem %= outStrides[d]
		}
		ai, bi := 0, 0
		for d := range outShape {
			ai += coords[d] * aStrides[d]
			bi += coords[d] * bStrides[d]
		}
		od[i] = f(ad[ai], bd[bi])
	}
	return out
}

// rowMajorStrides computes standard row-major strides for a shape.
func rowMajorStrides(s tensor.Shape) []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// broadcastStrides computes the strides of shape s viewed as outShape,
// with 0 strides for broadcast (size-1 or missing) dimensions.
func broadcastStrides(s, outShape tensor.Shape) []int {
	own := rowMajorStrides(s)
	strides := make([]int, len(outShape))
	offset := len(outShape) - len(s)
	for d := range outShape {
		sd := d - offset
		if sd < 0 || s[sd] == 1 && outShape[d] != 1 {
			strides[d] = 0
		} else {
			strides[d] = own[sd]
		}
	}
	return strides
}
