package reaction

import (
	"fmt"

	"github.com/reaxnet-ml/reaxnet/internal/graph"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// MolGraphsToReactionGraph converts a batched molecule graph and its
// feature map into a batched reaction graph, one graph per reaction.
//
// Each reaction graph takes its connectivity from its reactant. Per node
// type, the feature is product minus reactant: product atom rows are
// reordered into reactant atom order via the atom mapping, product bond
// rows (minus placeholder rows of bond-free products, plus one zero row for
// the broken bond) via the flattened bond mapping, and product global rows
// are sum-pooled. All tensor operations go through the feature backend, so
// gradients flow back to the molecule features when the backend records.
func MolGraphsToReactionGraph(g *graph.Hetero, feats graph.FeatureMap, reactions []*Reaction) (*graph.Hetero, graph.FeatureMap, error) {
	if len(reactions) == 0 {
		return nil, nil, fmt.Errorf("no reactions")
	}

	mols := graph.Unbatch(g)
	atomFt := g.SplitBatched(graph.Atom, feats[graph.Atom])
	bondFt := g.SplitBatched(graph.Bond, feats[graph.Bond])
	globalFt := g.SplitBatched(graph.Global, feats[graph.Global])

	rxnGraphs := make([]*graph.Hetero, len(reactions))
	rxnAtom := make([]*tensor.Tensor, len(reactions))
	rxnBond := make([]*tensor.Tensor, len(reactions))
	rxnGlobal := make([]*tensor.Tensor, len(reactions))

	for i, rxn := range reactions {
		if err := rxn.Validate(); err != nil {
			return nil, nil, err
		}
		if err := checkIndices(rxn, len(mols)); err != nil {
			return nil, nil, err
		}
		reactant := rxn.Reactants[0]
		rxnGraphs[i] = mols[reactant]

		atom, err := atomDifference(rxn, atomFt)
		if err != nil {
			return nil, nil, err
		}
		bond, err := bondDifference(rxn, mols, bondFt)
		if err != nil {
			return nil, nil, err
		}
		rxnAtom[i] = atom
		rxnBond[i] = bond
		rxnGlobal[i] = globalDifference(rxn, globalFt)
	}

	rg, err := graph.Batch(rxnGraphs)
	if err != nil {
		return nil, nil, err
	}
	rfeats := graph.FeatureMap{
		graph.Atom:   tensor.Cat(rxnAtom, 0),
		graph.Bond:   tensor.Cat(rxnBond, 0),
		graph.Global: tensor.Cat(rxnGlobal, 0),
	}
	return rg, rfeats, nil
}

func checkIndices(rxn *Reaction, numMols int) error {
	for _, m := range rxn.Reactants {
		if m < 0 || m >= numMols {
			return fmt.Errorf("reaction %s reactant index %d out of range for %d molecules", rxn.ID, m, numMols)
		}
	}
	for _, m := range rxn.Products {
		if m < 0 || m >= numMols {
			return fmt.Errorf("reaction %s product index %d out of range for %d molecules", rxn.ID, m, numMols)
		}
	}
	return nil
}

// atomDifference reorders concatenated product atom rows into reactant
// atom order and subtracts the reactant rows.
func atomDifference(rxn *Reaction, atomFt []*tensor.Tensor) (*tensor.Tensor, error) {
	parts := make([]*tensor.Tensor, len(rxn.Products))
	for p, m := range rxn.Products {
		parts[p] = atomFt[m]
	}
	products := tensor.Cat(parts, 0)

	reactantFt := atomFt[rxn.Reactants[0]]
	numRows := products.Shape().Rows()
	if len(rxn.AtomMapping) != numRows {
		return nil, fmt.Errorf("reaction %s atom mapping has %d entries for %d product atom rows: %w",
			rxn.ID, len(rxn.AtomMapping), numRows, ErrMappingLength)
	}
	if numRows != reactantFt.Shape().Rows() {
		return nil, fmt.Errorf("reaction %s has %d product atoms for %d reactant atoms: %w",
			rxn.ID, numRows, reactantFt.Shape().Rows(), ErrMappingLength)
	}
	seen := make([]bool, numRows)
	for i, row := range rxn.AtomMapping {
		if row < 0 || row >= numRows {
			return nil, fmt.Errorf("reaction %s atom mapping entry %d is %d of %d rows: %w",
				rxn.ID, i, row, numRows, ErrMappingLength)
		}
		if seen[row] {
			return nil, fmt.Errorf("reaction %s atom mapping uses product row %d twice: %w",
				rxn.ID, row, ErrMappingLength)
		}
		seen[row] = true
	}

	return tensor.IndexSelectRows(products, rxn.AtomMapping).Sub(reactantFt), nil
}

// bondDifference assembles product bond rows in reactant bond order and
// subtracts the reactant rows. Placeholder rows of bond-free products are
// dropped; the broken bond gathers the appended zero row, so its
// difference is minus the reactant bond feature.
func bondDifference(rxn *Reaction, mols []*graph.Hetero, bondFt []*tensor.Tensor) (*tensor.Tensor, error) {
	var parts []*tensor.Tensor
	for p, m := range rxn.Products {
		pm := rxn.BondMapping[p]
		if len(pm) == 0 {
			continue
		}
		ft := bondFt[m]
		if len(pm) != ft.Shape().Rows() {
			return nil, fmt.Errorf("reaction %s product %d bond mapping has %d entries for %d bond rows: %w",
				rxn.ID, p, len(pm), ft.Shape().Rows(), ErrMappingLength)
		}
		parts = append(parts, ft)
	}

	reactantFt := bondFt[rxn.Reactants[0]]
	numBonds := mols[rxn.Reactants[0]].NumNodes(graph.Bond)
	m, err := rxn.BondMappingAsList(numBonds)
	if err != nil {
		return nil, err
	}

	hidden := reactantFt.Shape().Cols()
	parts = append(parts, tensor.Zeros(tensor.Shape{1, hidden}, reactantFt.Backend()))
	products := tensor.Cat(parts, 0)
	if products.Shape().Rows() != numBonds+1 {
		return nil, fmt.Errorf("reaction %s has %d kept product bond rows for %d reactant bonds: %w",
			rxn.ID, products.Shape().Rows()-1, numBonds, ErrBrokenBondCount)
	}

	return tensor.IndexSelectRows(products, m).Sub(reactantFt), nil
}

// globalDifference sum-pools product global rows and subtracts the
// reactant row.
func globalDifference(rxn *Reaction, globalFt []*tensor.Tensor) *tensor.Tensor {
	parts := make([]*tensor.Tensor, len(rxn.Products))
	for p, m := range rxn.Products {
		parts[p] = globalFt[m]
	}
	pooled := tensor.Cat(parts, 0).SumDim(0, true)
	return pooled.Sub(globalFt[rxn.Reactants[0]])
}
