package cpu

import (
	"fmt"

	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// Cat concatenates 2D tensors along dim 0 (rows) or dim 1 (columns).
func (c *Backend) Cat(xs []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(xs) == 0 {
		panic("cat: no tensors to concatenate")
	}
	if dim != 0 && dim != 1 {
		panic(fmt.Sprintf("cat: invalid dim %d for 2D tensors", dim))
	}
	first := xs[0].Shape()
	if len(first) != 2 {
		panic(fmt.Sprintf("cat: only 2D tensors supported, got %v", first))
	}

	if dim == 0 {
		cols := first.Cols()
		rows := 0
		for _, x := range xs {
			if x.Shape().Cols() != cols {
				panic(fmt.Sprintf("cat: column mismatch %v vs %d", x.Shape(), cols))
			}
			rows += x.Shape().Rows()
		}
		out := tensor.Empty(tensor.Shape{rows, cols})
		od := out.Data()
		offset := 0
		for _, x := range xs {
			n := copy(od[offset:], x.Data())
			offset += n
		}
		return out
	}

	rows := first.Rows()
	cols := 0
	for _, x := range xs {
		if x.Shape().Rows() != rows {
			panic(fmt.Sprintf("cat: row mismatch %v vs %d", x.Shape(), rows))
		}
		cols += x.Shape().Cols()
	}
	out := tensor.Empty(tensor.Shape{rows, cols})
	od := out.Data()
	colOffset := 0
	for _, x := range xs {
		xc := x.Shape().Cols()
		xd := x.Data()
		for i := 0; i < rows; i++ {
			copy(od[i*cols+colOffset:i*cols+colOffset+xc], xd[i*xc:(i+1)*xc])
		}
		colOffset += xc
	}
	return out
}

// SplitRows splits a 2D tensor into chunks with the given row counts.
// The counts must sum exactly to the tensor's row count.
func (c *Backend) SplitRows(x *tensor.RawTensor, sizes []int) []*tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("splitrows: only 2D tensors supported, got %v", shape))
	}
	rows, cols := shape[0], shape[1]
	total := 0
	for _, s := range sizes {
		if s <= 0 {
			panic(fmt.Sprintf("splitrows: invalid chunk size %d", s))
		}
		total += s
	}
	if total != rows {
		panic(fmt.Sprintf("splitrows: sizes sum to %d but tensor has %d rows", total, rows))
	}

	out := make([]*tensor.RawTensor, len(sizes))
	xd := x.Data()
	offset := 0
	for i, s := range sizes {
		chunk := tensor.Empty(tensor.Shape{s, cols})
		copy(chunk.Data(), xd[offset*cols:(offset+s)*cols])
		out[i] = chunk
		offset += s
	}
	return out
}

// IndexSelectRows gathers rows: out[i] = x[index[i]].
func (c *Backend) IndexSelectRows(x *tensor.RawTensor, index []int) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("indexselectrows: only 2D tensors supported, got %v", shape))
	}
	rows, cols := shape[0], shape[1]
	out := tensor.Empty(tensor.Shape{len(index), cols})
	xd, od := x.Data(), out.Data()
	for i, idx := range index {
		if idx < 0 || idx >= rows {
			panic(fmt.Sprintf("indexselectrows: index %d out of range [0,%d)", idx, rows))
		}
		copy(od[i*cols:(i+1)*cols], xd[idx*cols:(idx+1)*cols])
	}
	return out
}

// ScatterAddRows scatters rows into a fresh [numRows, cols] accumulator:
// out[index[i]] += x[i].
func (c *Backend) ScatterAddRows(x *tensor.RawTensor, index []int, numRows int) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("scatteraddrows: only 2D tensors supported, got %v", shape))
	}
	rows, cols := shape[0], shape[1]
	if len(index) != rows {
		panic(fmt.Sprintf("scatteraddrows: %d indices for %d rows", len(index), rows))
	}
	out := tensor.Empty(tensor.Shape{numRows, cols})
	xd, od := x.Data(), out.Data()
	for i, idx := range index {
		if idx < 0 || idx >= numRows {
			panic(fmt.Sprintf("scatteraddrows: index %d out of range [0,%d)", idx, numRows))
		}
		src := xd[i*cols : (i+1)*cols]
		dst := od[idx*cols : (idx+1)*cols]
		for j, v := range src {
			dst[j] += v
		}
	}
	return out
}
