package nn

import (
	"math/rand"

	"github.com/reaxnet-ml/reaxnet/internal/graph"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// gateEps keeps the attention denominator away from zero when every
// incident gate saturates low.
const gateEps = 1e-6

// GatedGraphConvOptions configures a gated message-passing layer.
type GatedGraphConvOptions struct {
	InSize     int
	OutSize    int
	Residual   bool
	BatchNorm  bool
	GraphNorm  bool
	Activation Activation
	Dropout    float32
}

// GatedGraphConv is one round of gated message passing over a
// heterogeneous molecule graph. Bond features update first from their
// endpoint atoms and the molecule global, atoms then aggregate gated
// messages over incident bonds, and the global node pools the updated
// atom and bond features.
//
// The layer is a pure function of (graph, features, norms): it never
// stores features and the same instance serves any batch.
type GatedGraphConv struct {
	opts GatedGraphConvOptions

	// bond update: W·e + U·h_src + V·h_dst + gB·u
	linW, linU, linV, linGB *Linear
	// atom update: A·h + gated sum of B·h over incident bonds + C·u
	linA, linB, linC *Linear
	// global update: G·u + mean(atoms) + mean(bonds)
	linG *Linear

	bnAtom, bnBond, bnGlobal *BatchNorm
	dropout                  *Dropout
	backend                  tensor.Backend
}

// NewGatedGraphConv creates a gated message-passing layer.
func NewGatedGraphConv(name string, opts GatedGraphConvOptions, rng *rand.Rand, backend tensor.Backend) *GatedGraphConv {
	in, out := opts.InSize, opts.OutSize
	c := &GatedGraphConv{
		opts:    opts,
		linW:    NewLinear(name+".bond.edge", in, out, true, rng, backend),
		linU:    NewLinear(name+".bond.src", in, out, true, rng, backend),
		linV:    NewLinear(name+".bond.dst", in, out, true, rng, backend),
		linGB:   NewLinear(name+".bond.global", in, out, true, rng, backend),
		linA:    NewLinear(name+".atom.self", in, out, true, rng, backend),
		linB:    NewLinear(name+".atom.neighbor", in, out, true, rng, backend),
		linC:    NewLinear(name+".atom.global", in, out, true, rng, backend),
		linG:    NewLinear(name+".global.self", in, out, true, rng, backend),
		dropout: NewDropout(opts.Dropout, rng, backend),
		backend: backend,
	}
	if opts.BatchNorm {
		c.bnAtom = NewBatchNorm(name+".bn.atom", out, backend)
		c.bnBond = NewBatchNorm(name+".bn.bond", out, backend)
		c.bnGlobal = NewBatchNorm(name+".bn.global", out, backend)
	}
	return c
}

// Forward runs one message-passing round. normAtom and normBond are
// per-node scalar multipliers of shape [N,1] (graph norm); they are
// ignored when GraphNorm is off and may then be nil.
func (c *GatedGraphConv) Forward(g *graph.Hetero, feats graph.FeatureMap, normAtom, normBond *tensor.Tensor) graph.FeatureMap {
	h := feats[graph.Atom]
	e := feats[graph.Bond]
	u := feats[graph.Global]
	src, dst := g.BondEndIndex()
	atomMol := g.AtomMolecule()
	bondMol := g.BondMolecule()
	numMols := g.NumMolecules()

	// Bond update.
	eNew := c.linW.Forward(e).
		Add(tensor.IndexSelectRows(c.linU.Forward(h), src)).
		Add(tensor.IndexSelectRows(c.linV.Forward(h), dst)).
		Add(tensor.IndexSelectRows(c.linGB.Forward(u), bondMol))
	eNew = c.finishNode(eNew, e, normBond, c.bnBond)

	// Atom update: each bond carries a gated message to both of its ends,
	// using the other end's transformed features.
	gates := eNew.Sigmoid()
	bh := c.linB.Forward(h)
	numAtoms := h.Shape().Rows()
	msgSum := tensor.ScatterAddRows(gates.Mul(tensor.IndexSelectRows(bh, dst)), src, numAtoms).
		Add(tensor.ScatterAddRows(gates.Mul(tensor.IndexSelectRows(bh, src)), dst, numAtoms))
	gateSum := tensor.ScatterAddRows(gates, src, numAtoms).
		Add(tensor.ScatterAddRows(gates, dst, numAtoms))
	hNew := c.linA.Forward(h).
		Add(msgSum.Div(gateSum.AddScalar(gateEps))).
		Add(tensor.IndexSelectRows(c.linC.Forward(u), atomMol))
	hNew = c.finishNode(hNew, h, normAtom, c.bnAtom)

	// Global update: self transform plus mean-pooled updated atoms and bonds.
	uNew := c.linG.Forward(u).
		Add(meanPool(hNew, atomMol, g.BatchNumNodes(graph.Atom), numMols, c.backend)).
		Add(meanPool(eNew, bondMol, g.BatchNumNodes(graph.Bond), numMols, c.backend))
	uNew = c.finishNode(uNew, u, nil, c.bnGlobal)

	return graph.FeatureMap{graph.Atom: hNew, graph.Bond: eNew, graph.Global: uNew}
}

// finishNode applies the post-update chain shared by all node types:
// graph norm, batch norm, activation, residual, dropout.
func (c *GatedGraphConv) finishNode(x, in, norm *tensor.Tensor, bn *BatchNorm) *tensor.Tensor {
	if c.opts.GraphNorm && norm != nil {
		x = x.Mul(norm)
	}
	if bn != nil {
		x = bn.Forward(x)
	}
	if c.opts.Activation != nil {
		x = c.opts.Activation.Apply(x)
	}
	if c.opts.Residual && c.opts.InSize == c.opts.OutSize {
		x = x.Add(in)
	}
	return c.dropout.Forward(x)
}

// meanPool averages node rows per molecule: out[m] = mean of x rows whose
// molecule id is m. counts must be positive for every molecule.
func meanPool(x *tensor.Tensor, mol []int, counts []int, numMols int, backend tensor.Backend) *tensor.Tensor {
	sum := tensor.ScatterAddRows(x, mol, numMols)
	inv := tensor.Empty(tensor.Shape{numMols, 1})
	for m, n := range counts {
		inv.Data()[m] = 1 / float32(n)
	}
	return sum.Mul(tensor.New(inv, backend))
}

// SetTraining toggles training mode on dropout and batch norm.
func (c *GatedGraphConv) SetTraining(training bool) {
	c.dropout.SetTraining(training)
	for _, bn := range []*BatchNorm{c.bnAtom, c.bnBond, c.bnGlobal} {
		if bn != nil {
			bn.SetTraining(training)
		}
	}
}

// OutSize returns the output feature width.
func (c *GatedGraphConv) OutSize() int { return c.opts.OutSize }

// Parameters returns all trainable parameters of the layer.
func (c *GatedGraphConv) Parameters() []*Parameter {
	mods := []Module{c.linW, c.linU, c.linV, c.linGB, c.linA, c.linB, c.linC, c.linG}
	for _, bn := range []*BatchNorm{c.bnAtom, c.bnBond, c.bnGlobal} {
		if bn != nil {
			mods = append(mods, bn)
		}
	}
	return CollectParameters(mods...)
}
