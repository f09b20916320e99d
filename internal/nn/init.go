package nn

import (
	"math"
	"math/rand"

	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// Xavier initializes a weight tensor with the Glorot uniform distribution
// U(-sqrt(6/(fanIn+fanOut)), +sqrt(6/(fanIn+fanOut))), which keeps
// activation variance roughly constant across layers.
func Xavier(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand, b tensor.Backend) *tensor.Tensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	r := tensor.Empty(shape)
	data := r.Data()
	for i := range data {
		data[i] = float32((rng.Float64()*2 - 1) * bound)
	}
	return tensor.New(r, b)
}
