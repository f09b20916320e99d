package nn

import (
	"fmt"
	"math/rand"

	"github.com/reaxnet-ml/reaxnet/internal/graph"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// lstmLayer is one layer of the stacked LSTM cell driving Set2Set. Gate
// transforms are kept as separate linears; the input transforms carry the
// bias.
type lstmLayer struct {
	wi, wf, wg, wo *Linear
	ui, uf, ug, uo *Linear
}

func newLSTMLayer(name string, inDim, hiddenDim int, rng *rand.Rand, backend tensor.Backend) *lstmLayer {
	return &lstmLayer{
		wi: NewLinear(name+".wi", inDim, hiddenDim, true, rng, backend),
		wf: NewLinear(name+".wf", inDim, hiddenDim, true, rng, backend),
		wg: NewLinear(name+".wg", inDim, hiddenDim, true, rng, backend),
		wo: NewLinear(name+".wo", inDim, hiddenDim, true, rng, backend),
		ui: NewLinear(name+".ui", hiddenDim, hiddenDim, false, rng, backend),
		uf: NewLinear(name+".uf", hiddenDim, hiddenDim, false, rng, backend),
		ug: NewLinear(name+".ug", hiddenDim, hiddenDim, false, rng, backend),
		uo: NewLinear(name+".uo", hiddenDim, hiddenDim, false, rng, backend),
	}
}

// step advances the layer one time step.
func (l *lstmLayer) step(x, h, c *tensor.Tensor) (hNew, cNew *tensor.Tensor) {
	i := l.wi.Forward(x).Add(l.ui.Forward(h)).Sigmoid()
	f := l.wf.Forward(x).Add(l.uf.Forward(h)).Sigmoid()
	g := l.wg.Forward(x).Add(l.ug.Forward(h)).Tanh()
	o := l.wo.Forward(x).Add(l.uo.Forward(h)).Sigmoid()
	cNew = f.Mul(c).Add(i.Mul(g))
	hNew = o.Mul(cNew.Tanh())
	return hNew, cNew
}

func (l *lstmLayer) parameters() []*Parameter {
	return CollectParameters(l.wi, l.wf, l.wg, l.wo, l.ui, l.uf, l.ug, l.uo)
}

// Set2Set is an order-invariant readout over a set of node feature rows.
// An internal stacked LSTM produces a query per graph, the query attends
// over that graph's rows with a segment softmax, and the attended readout
// is fed back as the next input. The result per graph is [query, readout]
// of width 2×inputDim.
type Set2Set struct {
	inputDim  int
	numIters  int
	numLayers int
	layers    []*lstmLayer
	backend   tensor.Backend
}

// NewSet2Set creates a Set2Set readout with the given number of process
// iterations and stacked LSTM layers.
func NewSet2Set(name string, inputDim, numIters, numLayers int, rng *rand.Rand, backend tensor.Backend) *Set2Set {
	layers := make([]*lstmLayer, numLayers)
	in := 2 * inputDim
	for i := range layers {
		layers[i] = newLSTMLayer(fmt.Sprintf("%s.lstm%d", name, i), in, inputDim, rng, backend)
		in = inputDim
	}
	return &Set2Set{
		inputDim:  inputDim,
		numIters:  numIters,
		numLayers: numLayers,
		layers:    layers,
		backend:   backend,
	}
}

// Forward reads out x of shape [N, inputDim] into one row of width
// 2×inputDim per segment. segments[i] is the segment (graph) id of row i.
func (s *Set2Set) Forward(x *tensor.Tensor, segments []int, numSegments int) *tensor.Tensor {
	qStar := tensor.Zeros(tensor.Shape{numSegments, 2 * s.inputDim}, s.backend)
	hs := make([]*tensor.Tensor, s.numLayers)
	cs := make([]*tensor.Tensor, s.numLayers)
	for i := range hs {
		hs[i] = tensor.Zeros(tensor.Shape{numSegments, s.inputDim}, s.backend)
		cs[i] = tensor.Zeros(tensor.Shape{numSegments, s.inputDim}, s.backend)
	}

	for it := 0; it < s.numIters; it++ {
		in := qStar
		for l, layer := range s.layers {
			hs[l], cs[l] = layer.step(in, hs[l], cs[l])
			in = hs[l]
		}
		q := hs[s.numLayers-1]

		scores := x.Mul(tensor.IndexSelectRows(q, segments)).SumDim(1, true)
		alpha := segmentSoftmax(scores, segments, numSegments)
		readout := tensor.ScatterAddRows(alpha.Mul(x), segments, numSegments)
		qStar = tensor.Cat([]*tensor.Tensor{q, readout}, 1)
	}
	return qStar
}

// segmentSoftmax normalizes scores [N,1] within each segment. The
// per-segment maximum shift is detached, which leaves gradients exact.
func segmentSoftmax(scores *tensor.Tensor, segments []int, numSegments int) *tensor.Tensor {
	max := tensor.SegmentMax(scores, segments, numSegments)
	ex := scores.Sub(tensor.IndexSelectRows(max, segments)).Exp()
	denom := tensor.ScatterAddRows(ex, segments, numSegments)
	return ex.Div(tensor.IndexSelectRows(denom, segments))
}

// Parameters returns the LSTM parameters of all layers.
func (s *Set2Set) Parameters() []*Parameter {
	var out []*Parameter
	for _, l := range s.layers {
		out = append(out, l.parameters()...)
	}
	return out
}

// Set2SetThenCat reads out atoms and bonds with independent Set2Set
// modules and concatenates the per-graph results with the global feature
// row, yielding one vector of width 5×inputDim per graph.
type Set2SetThenCat struct {
	atoms *Set2Set
	bonds *Set2Set
}

// NewSet2SetThenCat creates the combined readout.
func NewSet2SetThenCat(name string, inputDim, numIters, numLayers int, rng *rand.Rand, backend tensor.Backend) *Set2SetThenCat {
	return &Set2SetThenCat{
		atoms: NewSet2Set(name+".atom", inputDim, numIters, numLayers, rng, backend),
		bonds: NewSet2Set(name+".bond", inputDim, numIters, numLayers, rng, backend),
	}
}

// Forward reads out a batched graph into one row per molecule graph.
func (s *Set2SetThenCat) Forward(g *graph.Hetero, feats graph.FeatureMap) *tensor.Tensor {
	n := g.NumMolecules()
	return tensor.Cat([]*tensor.Tensor{
		s.atoms.Forward(feats[graph.Atom], g.AtomMolecule(), n),
		s.bonds.Forward(feats[graph.Bond], g.BondMolecule(), n),
		feats[graph.Global],
	}, 1)
}

// Parameters returns the parameters of both readouts.
func (s *Set2SetThenCat) Parameters() []*Parameter {
	return CollectParameters(s.atoms, s.bonds)
}
