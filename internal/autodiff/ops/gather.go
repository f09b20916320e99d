package ops

import "github.com/reaxnet-ml/reaxnet/internal/tensor"

// IndexSelectRowsOp represents a row gather: out[i] = x[index[i]].
//
// Backward scatter-adds the output gradient back: rows selected multiple
// times accumulate their gradients.
type IndexSelectRowsOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	index  []int
}

// NewIndexSelectRowsOp creates a new IndexSelectRowsOp.
func NewIndexSelectRowsOp(input, output *tensor.RawTensor, index []int) *IndexSelectRowsOp {
	return &IndexSelectRowsOp{input: input, output: output, index: index}
}

// Backward scatter-adds the gradient into the input's row space.
func (op *IndexSelectRowsOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	numRows := op.input.Shape().Rows()
	return []*tensor.RawTensor{backend.ScatterAddRows(outputGrad, op.index, numRows)}
}

// Inputs returns the input tensor.
func (op *IndexSelectRowsOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the output tensor.
func (op *IndexSelectRowsOp) Output() *tensor.RawTensor { return op.output }

// ScatterAddRowsOp represents a row scatter-add: out[index[i]] += x[i].
//
// Backward gathers the output gradient back to the source rows.
type ScatterAddRowsOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	index  []int
}

// NewScatterAddRowsOp creates a new ScatterAddRowsOp.
func NewScatterAddRowsOp(input, output *tensor.RawTensor, index []int) *ScatterAddRowsOp {
	return &ScatterAddRowsOp{input: input, output: output, index: index}
}

// Backward gathers the gradient rows that each source row contributed to.
func (op *ScatterAddRowsOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.IndexSelectRows(outputGrad, op.index)}
}

// Inputs returns the input tensor.
func (op *ScatterAddRowsOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the output tensor.
func (op *ScatterAddRowsOp) Output() *tensor.RawTensor { return op.output }
