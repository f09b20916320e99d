package cpu

import (
	"fmt"
	"math"

	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// Sum reduces to the total sum with shape [1,1].
func (c *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	var total float32
	for _, v := range x.Data() {
		total += v
	}
	out := tensor.Empty(tensor.Shape{1, 1})
	out.Data()[0] = total
	return out
}

// SumDim sums a 2D tensor along dim (0 or 1).
func (c *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return reduceDim("sumdim", x, dim, keepDim, false)
}

// MeanDim averages a 2D tensor along dim (0 or 1).
func (c *Backend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return reduceDim("meandim", x, dim, keepDim, true)
}

func reduceDim(name string, x *tensor.RawTensor, dim int, keepDim, mean bool) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("%s: only 2D tensors supported, got %v", name, shape))
	}
	if dim != 0 && dim != 1 {
		panic(fmt.Sprintf("%s: invalid dim %d for 2D tensor", name, dim))
	}
	rows, cols := shape[0], shape[1]
	xd := x.Data()

	var out *tensor.RawTensor
	switch {
	case dim == 0 && keepDim:
		out = tensor.Empty(tensor.Shape{1, cols})
	case dim == 0:
		out = tensor.Empty(tensor.Shape{cols})
	case keepDim:
		out = tensor.Empty(tensor.Shape{rows, 1})
	default:
		out = tensor.Empty(tensor.Shape{rows})
	}
	od := out.Data()

	if dim == 0 {
		for i := 0; i < rows; i++ {
			row := xd[i*cols : (i+1)*cols]
			for j, v := range row {
				od[j] += v
			}
		}
		if mean {
			inv := 1 / float32(rows)
			for j := range od {
				od[j] *= inv
			}
		}
	} else {
		for i := 0; i < rows; i++ {
			var s float32
			for _, v := range xd[i*cols : (i+1)*cols] {
				s += v
			}
			if mean {
				s /= float32(cols)
			}
			od[i] = s
		}
	}
	return out
}

// SegmentMax computes the per-segment row-wise maximum of a 2D tensor.
// Rows of segments without members stay zero.
func (c *Backend) SegmentMax(x *tensor.RawTensor, segments []int, numSegments int) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("segmentmax: only 2D tensors supported, got %v", shape))
	}
	rows, cols := shape[0], shape[1]
	if len(segments) != rows {
		panic(fmt.Sprintf("segmentmax: %d segment ids for %d rows", len(segments), rows))
	}

	out := tensor.Empty(tensor.Shape{numSegments, cols})
	od := out.Data()
	seen := make([]bool, numSegments)
	xd := x.Data()
	for i := 0; i < rows; i++ {
		s := segments[i]
		if s < 0 || s >= numSegments {
			panic(fmt.Sprintf("segmentmax: segment id %d out of range [0,%d)", s, numSegments))
		}
		row := xd[i*cols : (i+1)*cols]
		dst := od[s*cols : (s+1)*cols]
		if !seen[s] {
			copy(dst, row)
			seen[s] = true
			continue
		}
		for j, v := range row {
			dst[j] = float32(math.Max(float64(dst[j]), float64(v)))
		}
	}
	return out
}
