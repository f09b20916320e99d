package ops

import "github.com/reaxnet-ml/reaxnet/internal/tensor"

// SumOp represents the total sum reduction to shape [1,1].
type SumOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{input: input, output: output}
}

// Backward broadcasts the scalar gradient to the input shape.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Mul(onesLike(op.input), outputGrad)}
}

// Inputs returns the input tensor.
func (op *SumOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the output tensor.
func (op *SumOp) Output() *tensor.RawTensor { return op.output }

// SumDimOp represents a sum along one dimension of a 2D tensor.
type SumDimOp struct {
	input   *tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewSumDimOp creates a new SumDimOp.
func NewSumDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{input: input, output: output, dim: dim, keepDim: keepDim}
}

// Backward broadcasts the gradient back along the reduced dimension.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := keptDimGrad(outputGrad, op.input.Shape(), op.dim, op.keepDim)
	return []*tensor.RawTensor{backend.Mul(onesLike(op.input), grad)}
}

// Inputs returns the input tensor.
func (op *SumDimOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the output tensor.
func (op *SumDimOp) Output() *tensor.RawTensor { return op.output }

// MeanDimOp represents a mean along one dimension of a 2D tensor.
type MeanDimOp struct {
	input   *tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewMeanDimOp creates a new MeanDimOp.
func NewMeanDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *MeanDimOp {
	return &MeanDimOp{input: input, output: output, dim: dim, keepDim: keepDim}
}

// Backward broadcasts the gradient back, scaled by 1/size of the reduced
// dimension.
func (op *MeanDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := keptDimGrad(outputGrad, op.input.Shape(), op.dim, op.keepDim)
	scale := 1 / float32(op.input.Shape()[op.dim])
	spread := backend.MulScalar(backend.Mul(onesLike(op.input), grad), scale)
	return []*tensor.RawTensor{spread}
}

// Inputs returns the input tensor.
func (op *MeanDimOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the output tensor.
func (op *MeanDimOp) Output() *tensor.RawTensor { return op.output }

// keptDimGrad restores a reduced gradient to its keep-dim 2D form so
// broadcasting can spread it back over the input.
func keptDimGrad(grad *tensor.RawTensor, inputShape tensor.Shape, dim int, keepDim bool) *tensor.RawTensor {
	if keepDim {
		return grad
	}
	if dim == 0 {
		return reshape2D(grad, tensor.Shape{1, inputShape[1]})
	}
	return reshape2D(grad, tensor.Shape{inputShape[0], 1})
}
