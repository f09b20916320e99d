package cpu

import (
	"fmt"

	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
func (c *Backend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %v @ %v", aShape, bShape))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	out := tensor.Empty(tensor.Shape{m, n})
	ad, bd, od := a.Data(), b.Data(), out.Data()

	// ikj loop order keeps the inner loop contiguous over both b and out.
	for i := 0; i < m; i++ {
		aRow := ad[i*k : (i+1)*k]
		oRow := od[i*n : (i+1)*n]
		for kk := 0; kk < k; kk++ {
			av := aRow[kk]
			if av == 0 {
				continue
			}
			bRow := bd[kk*n : (kk+1)*n]
			for j := 0; j < n; j++ {
				oRow[j] += av * bRow[j]
			}
		}
	}
	return out
}

// Transpose returns the 2D transpose.
func (c *Backend) Transpose(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("transpose: only 2D tensors supported, got %v", shape))
	}
	rows, cols := shape[0], shape[1]
	out := tensor.Empty(tensor.Shape{cols, rows})
	xd, od := x.Data(), out.Data()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			od[j*rows+i] = xd[i*cols+j]
		}
	}
	return out
}
