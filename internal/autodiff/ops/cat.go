package ops

import (
	"fmt"

	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// CatOp represents concatenation of 2D tensors along dim 0 or 1.
//
// Backward slices the output gradient back into per-input chunks.
type CatOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	dim    int
}

// NewCatOp creates a new CatOp.
func NewCatOp(inputs []*tensor.RawTensor, output *tensor.RawTensor, dim int) *CatOp {
	return &CatOp{inputs: inputs, output: output, dim: dim}
}

// Backward splits the output gradient along the concatenation dimension.
func (op *CatOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	if op.dim == 0 {
		sizes := make([]int, len(op.inputs))
		for i, in := range op.inputs {
			sizes[i] = in.Shape().Rows()
		}
		return backend.SplitRows(outputGrad, sizes)
	}
	return splitCols(outputGrad, op.inputs)
}

// splitCols slices a gradient into column chunks matching the inputs.
func splitCols(grad *tensor.RawTensor, inputs []*tensor.RawTensor) []*tensor.RawTensor {
	rows, cols := grad.Shape().Rows(), grad.Shape().Cols()
	gd := grad.Data()

	out := make([]*tensor.RawTensor, len(inputs))
	colOffset := 0
	for idx, in := range inputs {
		ic := in.Shape().Cols()
		chunk := tensor.Empty(tensor.Shape{rows, ic})
		cd := chunk.Data()
		for i := 0; i < rows; i++ {
			copy(cd[i*ic:(i+1)*ic], gd[i*cols+colOffset:i*cols+colOffset+ic])
		}
		out[idx] = chunk
		colOffset += ic
	}
	if colOffset != cols {
		panic(fmt.Sprintf("cat backward: input columns sum to %d, gradient has %d", colOffset, cols))
	}
	return out
}

// Inputs returns the concatenated input tensors.
func (op *CatOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the output tensor.
func (op *CatOp) Output() *tensor.RawTensor { return op.output }

// SplitRowsOp represents splitting a 2D tensor into row chunks. It is the
// one multi-output operation on the tape: gradients for all chunks are
// concatenated back into a single input gradient.
type SplitRowsOp struct {
	input   *tensor.RawTensor
	outputs []*tensor.RawTensor
}

// NewSplitRowsOp creates a new SplitRowsOp.
func NewSplitRowsOp(input *tensor.RawTensor, outputs []*tensor.RawTensor) *SplitRowsOp {
	return &SplitRowsOp{input: input, outputs: outputs}
}

// Backward is unused for multi-output operations; the tape calls
// BackwardMulti instead.
func (op *SplitRowsOp) Backward(_ *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	panic("SplitRowsOp: use BackwardMulti")
}

// BackwardMulti concatenates the chunk gradients in order.
func (op *SplitRowsOp) BackwardMulti(outputGrads []*tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Cat(outputGrads, 0)}
}

// Inputs returns the input tensor.
func (op *SplitRowsOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the first output chunk (tape bookkeeping only).
func (op *SplitRowsOp) Output() *tensor.RawTensor { return op.outputs[0] }

// Outputs returns all output chunks.
func (op *SplitRowsOp) Outputs() []*tensor.RawTensor { return op.outputs }
