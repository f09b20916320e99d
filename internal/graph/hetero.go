// Package graph provides the heterogeneous molecule-graph container used by
// the reaction network.
//
// A Hetero graph has three node types: atom, bond and global. Bonds are
// nodes (not edges) so they can carry learned features; connectivity is the
// bond→(atom, atom) incidence plus the molecule membership of every node.
// Exactly one global node exists per molecule.
//
// Structure is immutable after construction. Features never live on the
// graph: they travel beside it as a FeatureMap, so two forward passes can
// share one graph without interference.
package graph

import (
	"fmt"

	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// NodeType identifies one of the heterogeneous node types.
type NodeType string

// The three node types of a molecule graph.
const (
	Atom   NodeType = "atom"
	Bond   NodeType = "bond"
	Global NodeType = "global"
)

// NodeTypes lists all node types in canonical order.
var NodeTypes = []NodeType{Atom, Bond, Global}

// FeatureMap maps a node type to its 2D feature tensor. Row i of the
// tensor belongs to the i-th node of that type in batch order.
type FeatureMap map[NodeType]*tensor.Tensor

// Hetero is a (possibly batched) heterogeneous molecule graph.
type Hetero struct {
	numMols  int
	bondEnds [][2]int           // batched atom indices per bond node
	counts   map[NodeType][]int // per-molecule node counts per type
	atomMol  []int              // molecule id per atom node
	bondMol  []int              // molecule id per bond node
}

// NewMolecule builds a single-molecule graph from its atom count and bond
// incidence list. A molecule without bonds gets one placeholder bond node
// (a self-loop on atom 0) so heterogeneous batching always has at least one
// bond row per molecule; its feature row is supplied by the featurizer and
// dropped again during reaction-graph construction.
func NewMolecule(numAtoms int, bonds [][2]int) (*Hetero, error) {
	if numAtoms < 1 {
		return nil, fmt.Errorf("molecule must have at least one atom, got %d", numAtoms)
	}
	if len(bonds) == 0 {
		bonds = [][2]int{{0, 0}}
	}
	ends := make([][2]int, len(bonds))
	for i, b := range bonds {
		if b[0] < 0 || b[0] >= numAtoms || b[1] < 0 || b[1] >= numAtoms {
			return nil, fmt.Errorf("bond %d ends %v out of range for %d atoms", i, b, numAtoms)
		}
		ends[i] = b
	}

	g := &Hetero{
		numMols:  1,
		bondEnds: ends,
		counts: map[NodeType][]int{
			Atom:   {numAtoms},
			Bond:   {len(ends)},
			Global: {1},
		},
		atomMol: make([]int, numAtoms),
		bondMol: make([]int, len(ends)),
	}
	return g, nil
}

// Batch concatenates molecule graphs into one batched graph. Node order per
// type is the concatenation of the inputs in the given order; bond ends are
// shifted into the batched atom index space.
func Batch(gs []*Hetero) (*Hetero, error) {
	if len(gs) == 0 {
		return nil, fmt.Errorf("batch: no graphs")
	}
	out := &Hetero{
		counts: map[NodeType][]int{Atom: {}, Bond: {}, Global: {}},
	}
	atomOffset := 0
	for _, g := range gs {
		for _, nt := range NodeTypes {
			out.counts[nt] = append(out.counts[nt], g.counts[nt]...)
		}
		for _, e := range g.bondEnds {
			out.bondEnds = append(out.bondEnds, [2]int{e[0] + atomOffset, e[1] + atomOffset})
		}
		atomOffset += g.NumNodes(Atom)
		out.numMols += g.numMols
	}
	out.atomMol = make([]int, out.NumNodes(Atom))
	out.bondMol = make([]int, out.NumNodes(Bond))
	fillMembership(out.counts[Atom], out.atomMol)
	fillMembership(out.counts[Bond], out.bondMol)
	return out, nil
}

// fillMembership writes the molecule id of each node given per-molecule
// counts.
func fillMembership(counts []int, membership []int) {
	idx := 0
	for mol, c := range counts {
		for k := 0; k < c; k++ {
			membership[idx] = mol
			idx++
		}
	}
}

// Unbatch splits a batched graph back into per-molecule graphs, exactly
// inverting Batch.
func Unbatch(g *Hetero) []*Hetero {
	out := make([]*Hetero, g.numMols)
	atomOffset, bondOffset := 0, 0
	for m := 0; m < g.numMols; m++ {
		na := g.counts[Atom][m]
		nb := g.counts[Bond][m]
		ends := make([][2]int, nb)
		for i := 0; i < nb; i++ {
			e := g.bondEnds[bondOffset+i]
			ends[i] = [2]int{e[0] - atomOffset, e[1] - atomOffset}
		}
		out[m] = &Hetero{
			numMols:  1,
			bondEnds: ends,
			counts: map[NodeType][]int{
				Atom:   {na},
				Bond:   {nb},
				Global: {1},
			},
			atomMol: make([]int, na),
			bondMol: make([]int, nb),
		}
		atomOffset += na
		bondOffset += nb
	}
	return out
}

// NumMolecules returns the number of molecules in the batch.
func (g *Hetero) NumMolecules() int {
	return g.numMols
}

// NumNodes returns the total node count of a type across the batch.
func (g *Hetero) NumNodes(nt NodeType) int {
	total := 0
	for _, c := range g.counts[nt] {
		total += c
	}
	return total
}

// BatchNumNodes returns the per-molecule node counts of a type. The slice
// is owned by the graph; callers must not modify it.
func (g *Hetero) BatchNumNodes(nt NodeType) []int {
	return g.counts[nt]
}

// BondEnds returns the bond→(atom, atom) incidence in the batched atom
// index space. Read-only.
func (g *Hetero) BondEnds() [][2]int {
	return g.bondEnds
}

// BondEndIndex returns the two endpoint index slices of all bonds: src[k]
// and dst[k] are the batched atom indices of bond k's ends.
func (g *Hetero) BondEndIndex() (src, dst []int) {
	src = make([]int, len(g.bondEnds))
	dst = make([]int, len(g.bondEnds))
	for k, e := range g.bondEnds {
		src[k] = e[0]
		dst[k] = e[1]
	}
	return src, dst
}

// AtomMolecule returns the molecule id of every atom node. Read-only.
func (g *Hetero) AtomMolecule() []int {
	return g.atomMol
}

// BondMolecule returns the molecule id of every bond node. Read-only.
func (g *Hetero) BondMolecule() []int {
	return g.bondMol
}

// SplitBatched splits a batched per-type feature tensor into one chunk per
// molecule, preserving row order. It panics when the per-molecule counts do
// not match the tensor's row count: that is a programmer-level invariant
// violation, not a data error.
func (g *Hetero) SplitBatched(nt NodeType, t *tensor.Tensor) []*tensor.Tensor {
	want := g.NumNodes(nt)
	got := t.Shape().Rows()
	if want != got {
		panic(fmt.Sprintf("graph: %s feature tensor has %d rows, batch metadata says %d", nt, got, want))
	}
	return tensor.SplitRows(t, g.counts[nt])
}
