// Package dataset holds in-memory reaction samples and prepares batches
// for training: molecule graphs are concatenated per batch and reaction
// molecule indices are remapped into batch-local positions.
package dataset

import (
	"fmt"
	"math/rand"

	"github.com/reaxnet-ml/reaxnet/internal/graph"
	"github.com/reaxnet-ml/reaxnet/internal/reaction"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// Sample is one reaction with its molecule graphs and features. The
// reaction's molecule indices are local to the sample's own graph.
type Sample struct {
	ID       string
	Graph    *graph.Hetero // this sample's molecules, batched
	Features graph.FeatureMap
	Reaction *reaction.Reaction
	Label    []float32
	Scale    float32 // label scale for metric rescaling, 1 when unset
}

// Batch is a training batch: all molecules of its samples concatenated,
// with reactions remapped to batch-local molecule indices.
type Batch struct {
	Graph     *graph.Hetero
	Features  graph.FeatureMap
	Reactions []*reaction.Reaction
	Labels    *tensor.RawTensor // [numReactions, labelDim]
	Scales    []float32
}

// Dataset is an in-memory collection of samples.
type Dataset struct {
	samples []*Sample
}

// New creates a dataset. Every sample must carry a graph, features, a
// reaction and a label of uniform width.
func New(samples []*Sample) (*Dataset, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("dataset: no samples")
	}
	labelDim := len(samples[0].Label)
	for i, s := range samples {
		if s.Graph == nil || s.Features == nil || s.Reaction == nil {
			return nil, fmt.Errorf("dataset: sample %d (%s) is incomplete", i, s.ID)
		}
		if len(s.Label) != labelDim {
			return nil, fmt.Errorf("dataset: sample %d (%s) has label width %d, want %d", i, s.ID, len(s.Label), labelDim)
		}
		if s.Scale == 0 {
			s.Scale = 1
		}
	}
	return &Dataset{samples: samples}, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.samples) }

// Samples returns the underlying samples. Read-only.
func (d *Dataset) Samples() []*Sample { return d.samples }

// TrainValidationTestSplit partitions the dataset by the given fractions
// after a seeded shuffle. The train split receives the remainder.
func (d *Dataset) TrainValidationTestSplit(validation, test float64, seed int64) (train, val, tst *Dataset, err error) {
	if validation < 0 || test < 0 || validation+test >= 1 {
		return nil, nil, nil, fmt.Errorf("dataset: invalid split fractions validation=%v test=%v", validation, test)
	}
	n := len(d.samples)
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	numVal := int(validation * float64(n))
	numTest := int(test * float64(n))
	numTrain := n - numVal - numTest
	if numTrain < 1 || (validation > 0 && numVal < 1) || (test > 0 && numTest < 1) {
		return nil, nil, nil, fmt.Errorf("dataset: %d samples cannot satisfy split validation=%v test=%v", n, validation, test)
	}

	pick := func(idx []int) *Dataset {
		out := make([]*Sample, len(idx))
		for i, j := range idx {
			out[i] = d.samples[j]
		}
		return &Dataset{samples: out}
	}
	train = pick(perm[:numTrain])
	val = pick(perm[numTrain : numTrain+numVal])
	tst = pick(perm[numTrain+numVal:])
	return train, val, tst, nil
}

// Batches groups samples into batches of at most batchSize, optionally
// shuffled. Each batch concatenates its samples' molecules and shifts the
// reaction molecule indices by the running molecule count.
func (d *Dataset) Batches(batchSize int, shuffle bool, rng *rand.Rand) ([]*Batch, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("dataset: batch size must be positive, got %d", batchSize)
	}
	order := make([]int, len(d.samples))
	for i := range order {
		order[i] = i
	}
	if shuffle {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	var batches []*Batch
	for start := 0; start < len(order); start += batchSize {
		end := start + batchSize
		if end > len(order) {
			end = len(order)
		}
		b, err := d.collate(order[start:end])
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// collate builds one batch from the samples at the given indices.
func (d *Dataset) collate(idx []int) (*Batch, error) {
	graphs := make([]*graph.Hetero, len(idx))
	featParts := map[graph.NodeType][]*tensor.Tensor{}
	reactions := make([]*reaction.Reaction, len(idx))
	scales := make([]float32, len(idx))
	labelDim := len(d.samples[idx[0]].Label)
	labels := tensor.Empty(tensor.Shape{len(idx), labelDim})

	molOffset := 0
	for i, j := range idx {
		s := d.samples[j]
		graphs[i] = s.Graph
		for _, nt := range graph.NodeTypes {
			featParts[nt] = append(featParts[nt], s.Features[nt])
		}
		reactions[i] = shiftReaction(s.Reaction, molOffset)
		copy(labels.Data()[i*labelDim:(i+1)*labelDim], s.Label)
		scales[i] = s.Scale
		molOffset += s.Graph.NumMolecules()
	}

	g, err := graph.Batch(graphs)
	if err != nil {
		return nil, err
	}
	feats := graph.FeatureMap{}
	for _, nt := range graph.NodeTypes {
		feats[nt] = tensor.Cat(featParts[nt], 0)
	}
	return &Batch{Graph: g, Features: feats, Reactions: reactions, Labels: labels, Scales: scales}, nil
}

// GraphNorms returns the per-node graph-norm multipliers for the batch:
// each atom and bond row gets 1/count of its molecule's nodes of that type.
func (b *Batch) GraphNorms() (normAtom, normBond *tensor.RawTensor) {
	norm := func(nt graph.NodeType, mol []int) *tensor.RawTensor {
		counts := b.Graph.BatchNumNodes(nt)
		out := tensor.Empty(tensor.Shape{len(mol), 1})
		for i, m := range mol {
			out.Data()[i] = 1 / float32(counts[m])
		}
		return out
	}
	return norm(graph.Atom, b.Graph.AtomMolecule()), norm(graph.Bond, b.Graph.BondMolecule())
}

// shiftReaction copies a reaction with its molecule indices moved into the
// batch-local index space. Mappings are row-local and stay as they are.
func shiftReaction(r *reaction.Reaction, offset int) *reaction.Reaction {
	shift := func(in []int) []int {
		out := make([]int, len(in))
		for i, v := range in {
			out[i] = v + offset
		}
		return out
	}
	return &reaction.Reaction{
		ID:          r.ID,
		Reactants:   shift(r.Reactants),
		Products:    shift(r.Products),
		AtomMapping: r.AtomMapping,
		BondMapping: r.BondMapping,
	}
}
