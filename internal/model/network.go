// Package model assembles the reaction-property prediction network:
// per-type embedding, gated message-passing layers, reaction-graph
// construction, Set2Set readout and a fully connected head.
package model

import (
	"fmt"
	"math/rand"

	"github.com/reaxnet-ml/reaxnet/internal/graph"
	"github.com/reaxnet-ml/reaxnet/internal/nn"
	"github.com/reaxnet-ml/reaxnet/internal/reaction"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// Options configures a ReactionNetwork.
type Options struct {
	AtomFeatureSize   int
	BondFeatureSize   int
	GlobalFeatureSize int

	EmbeddingSize int

	GatedHiddenSizes []int
	GatedActivation  string
	GatedBatchNorm   bool
	GatedGraphNorm   bool
	GatedResidual    bool
	GatedDropout     float32

	Set2SetIterations int
	Set2SetLayers     int

	FCHiddenSizes []int
	FCActivation  string
	FCBatchNorm   bool
	FCDropout     float32

	OutputSize int
}

// fcLayer is one block of the fully connected head.
type fcLayer struct {
	linear     *nn.Linear
	batchNorm  *nn.BatchNorm
	activation nn.Activation
	dropout    *nn.Dropout
}

// ReactionNetwork predicts one property vector per reaction from batched
// molecule graphs, their features and reaction descriptors.
type ReactionNetwork struct {
	opts        Options
	embedding   *nn.UnifySize
	gatedLayers []*nn.GatedGraphConv
	readout     *nn.Set2SetThenCat
	fcLayers    []fcLayer
	output      *nn.Linear
	backend     tensor.Backend
}

// New builds a ReactionNetwork. Parameters are initialized from rng.
func New(opts Options, rng *rand.Rand, backend tensor.Backend) (*ReactionNetwork, error) {
	if len(opts.GatedHiddenSizes) == 0 {
		return nil, fmt.Errorf("model: need at least one gated layer")
	}
	if opts.OutputSize < 1 {
		return nil, fmt.Errorf("model: output size must be positive, got %d", opts.OutputSize)
	}
	gatedAct, err := nn.ActivationByName(opts.GatedActivation)
	if err != nil {
		return nil, fmt.Errorf("model: gated layer: %w", err)
	}
	fcAct, err := nn.ActivationByName(opts.FCActivation)
	if err != nil {
		return nil, fmt.Errorf("model: fc layer: %w", err)
	}

	m := &ReactionNetwork{opts: opts, backend: backend}
	m.embedding = nn.NewUnifySize(map[graph.NodeType]int{
		graph.Atom:   opts.AtomFeatureSize,
		graph.Bond:   opts.BondFeatureSize,
		graph.Global: opts.GlobalFeatureSize,
	}, opts.EmbeddingSize, rng, backend)

	in := opts.EmbeddingSize
	for i, out := range opts.GatedHiddenSizes {
		m.gatedLayers = append(m.gatedLayers, nn.NewGatedGraphConv(
			fmt.Sprintf("gated%d", i),
			nn.GatedGraphConvOptions{
				InSize:     in,
				OutSize:    out,
				Residual:   opts.GatedResidual,
				BatchNorm:  opts.GatedBatchNorm,
				GraphNorm:  opts.GatedGraphNorm,
				Activation: gatedAct,
				Dropout:    opts.GatedDropout,
			}, rng, backend))
		in = out
	}

	readoutDim := opts.GatedHiddenSizes[len(opts.GatedHiddenSizes)-1]
	m.readout = nn.NewSet2SetThenCat("readout", readoutDim, opts.Set2SetIterations, opts.Set2SetLayers, rng, backend)

	// Set2Set yields 2x the input width for atoms and bonds plus the global
	// row, so the head starts at 5x the last gated size.
	in = 5 * readoutDim
	for i, out := range opts.FCHiddenSizes {
		l := fcLayer{
			linear:     nn.NewLinear(fmt.Sprintf("fc%d", i), in, out, true, rng, backend),
			activation: fcAct,
			dropout:    nn.NewDropout(opts.FCDropout, rng, backend),
		}
		if opts.FCBatchNorm {
			l.batchNorm = nn.NewBatchNorm(fmt.Sprintf("fc%d.bn", i), out, backend)
		}
		m.fcLayers = append(m.fcLayers, l)
		in = out
	}
	m.output = nn.NewLinear("output", in, opts.OutputSize, true, rng, backend)
	return m, nil
}

// Forward predicts [numReactions, outputSize] properties. normAtom and
// normBond are per-node graph-norm multipliers of shape [N,1]; they may be
// nil when graph norm is disabled.
func (m *ReactionNetwork) Forward(g *graph.Hetero, feats graph.FeatureMap, reactions []*reaction.Reaction, normAtom, normBond *tensor.Tensor) (*tensor.Tensor, error) {
	readout, err := m.FeaturesBeforeFC(g, feats, reactions, normAtom, normBond)
	if err != nil {
		return nil, err
	}
	x := readout
	for _, l := range m.fcLayers {
		x = l.linear.Forward(x)
		if l.batchNorm != nil {
			x = l.batchNorm.Forward(x)
		}
		x = l.activation.Apply(x)
		x = l.dropout.Forward(x)
	}
	return m.output.Forward(x), nil
}

// FeaturesBeforeFC runs the pipeline through the readout and returns the
// per-reaction feature vectors that feed the head, for embedding analysis.
func (m *ReactionNetwork) FeaturesBeforeFC(g *graph.Hetero, feats graph.FeatureMap, reactions []*reaction.Reaction, normAtom, normBond *tensor.Tensor) (*tensor.Tensor, error) {
	feats = m.embedding.Forward(feats)
	for _, layer := range m.gatedLayers {
		feats = layer.Forward(g, feats, normAtom, normBond)
	}
	rg, rfeats, err := reaction.MolGraphsToReactionGraph(g, feats, reactions)
	if err != nil {
		return nil, err
	}
	return m.readout.Forward(rg, rfeats), nil
}

// FeaturesAtEachLayer returns the per-molecule bond feature chunks after
// the embedding and after every gated layer: 1 + numGatedLayers entries,
// each with one chunk per molecule of the input batch.
func (m *ReactionNetwork) FeaturesAtEachLayer(g *graph.Hetero, feats graph.FeatureMap, normAtom, normBond *tensor.Tensor) [][]*tensor.Tensor {
	out := make([][]*tensor.Tensor, 0, 1+len(m.gatedLayers))
	feats = m.embedding.Forward(feats)
	out = append(out, g.SplitBatched(graph.Bond, feats[graph.Bond]))
	for _, layer := range m.gatedLayers {
		feats = layer.Forward(g, feats, normAtom, normBond)
		out = append(out, g.SplitBatched(graph.Bond, feats[graph.Bond]))
	}
	return out
}

// SetTraining toggles training mode on every dropout and batch norm.
func (m *ReactionNetwork) SetTraining(training bool) {
	for _, layer := range m.gatedLayers {
		layer.SetTraining(training)
	}
	for _, l := range m.fcLayers {
		if l.batchNorm != nil {
			l.batchNorm.SetTraining(training)
		}
		l.dropout.SetTraining(training)
	}
}

// Parameters returns every trainable parameter of the network.
func (m *ReactionNetwork) Parameters() []*nn.Parameter {
	mods := []nn.Module{m.embedding}
	for _, layer := range m.gatedLayers {
		mods = append(mods, layer)
	}
	mods = append(mods, m.readout)
	for _, l := range m.fcLayers {
		mods = append(mods, l.linear)
		if l.batchNorm != nil {
			mods = append(mods, l.batchNorm)
		}
	}
	mods = append(mods, m.output)
	return nn.CollectParameters(mods...)
}
