package nn

import (
	"fmt"

	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// BatchNorm normalizes each feature column over the batch dimension.
//
// Training mode normalizes with batch statistics and maintains running
// estimates; evaluation mode normalizes with the running estimates, so
// eval forward passes are deterministic. Running statistics are updated
// outside the gradient tape.
type BatchNorm struct {
	numFeatures int
	eps         float32
	momentum    float32
	gamma       *Parameter
	beta        *Parameter
	runningMean *tensor.RawTensor // [1, H], detached
	runningVar  *tensor.RawTensor // [1, H], detached
	training    bool
	backend     tensor.Backend
}

// NewBatchNorm creates a BatchNorm layer over numFeatures columns.
func NewBatchNorm(name string, numFeatures int, backend tensor.Backend) *BatchNorm {
	rv := tensor.Empty(tensor.Shape{1, numFeatures})
	for i := range rv.Data() {
		rv.Data()[i] = 1
	}
	return &BatchNorm{
		numFeatures: numFeatures,
		eps:         1e-5,
		momentum:    0.1,
		gamma:       NewParameter(name+".gamma", tensor.Ones(tensor.Shape{1, numFeatures}, backend)),
		beta:        NewParameter(name+".beta", tensor.Zeros(tensor.Shape{1, numFeatures}, backend)),
		runningMean: tensor.Empty(tensor.Shape{1, numFeatures}),
		runningVar:  rv,
		backend:     backend,
	}
}

// SetTraining toggles training mode.
func (b *BatchNorm) SetTraining(training bool) {
	b.training = training
}

// Forward normalizes x of shape [N, H].
func (b *BatchNorm) Forward(x *tensor.Tensor) *tensor.Tensor {
	shape := x.Shape()
	if len(shape) != 2 || shape[1] != b.numFeatures {
		panic(fmt.Sprintf("batchnorm: expected [N,%d] input, got %v", b.numFeatures, shape))
	}

	var mean, variance *tensor.Tensor
	if b.training {
		mean = x.MeanDim(0, true)
		centered := x.Sub(mean)
		variance = centered.Mul(centered).MeanDim(0, true)
		b.updateRunning(mean.Raw(), variance.Raw())
	} else {
		mean = tensor.New(b.runningMean.Clone(), b.backend)
		variance = tensor.New(b.runningVar.Clone(), b.backend)
	}

	norm := x.Sub(mean).Div(variance.AddScalar(b.eps).Sqrt())
	return norm.Mul(b.gamma.Tensor()).Add(b.beta.Tensor())
}

// updateRunning folds batch statistics into the running estimates with
// plain float math so nothing lands on the tape.
func (b *BatchNorm) updateRunning(mean, variance *tensor.RawTensor) {
	rm, rv := b.runningMean.Data(), b.runningVar.Data()
	md, vd := mean.Data(), variance.Data()
	m := b.momentum
	for i := range rm {
		rm[i] = (1-m)*rm[i] + m*md[i]
		rv[i] = (1-m)*rv[i] + m*vd[i]
	}
}

// Parameters returns gamma and beta.
func (b *BatchNorm) Parameters() []*Parameter {
	return []*Parameter{b.gamma, b.beta}
}
