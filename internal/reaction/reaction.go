// Package reaction builds reaction graphs from batched molecule graphs.
//
// A reaction graph inherits the connectivity of its single reactant; its
// features are the difference between the (reordered, pooled) product
// features and the reactant features. Bond breaking shows up as a reactant
// bond with no product counterpart, whose product-side feature row is zero.
package reaction

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by reaction validation. Callers match them with
// errors.Is; the wrapped message carries the reaction ID and the offending
// values.
var (
	// ErrReactionArity reports a reaction without exactly one reactant.
	ErrReactionArity = errors.New("reaction must have exactly one reactant")
	// ErrMappingLength reports a correspondence map whose length or index
	// range does not match the rows it indexes.
	ErrMappingLength = errors.New("mapping does not match feature rows")
	// ErrBrokenBondCount reports a reaction that does not break exactly one
	// reactant bond.
	ErrBrokenBondCount = errors.New("reaction must break exactly one reactant bond")
)

// Reaction describes one reaction over molecules of a batch.
//
// Reactants and Products hold molecule indices into the batch. AtomMapping
// are gather indices in reactant atom order: AtomMapping[i] is the row of
// the concatenated product atom features that holds reactant atom i.
// BondMapping holds, per product in order, the reactant bond position of
// each of that product's bonds; a bond-free product (whose graph carries
// only a placeholder bond node) has an empty list, and its placeholder
// rows are dropped during reaction-graph construction.
type Reaction struct {
	ID          string
	Reactants   []int
	Products    []int
	AtomMapping []int
	BondMapping [][]int
}

// Validate checks the reaction's arity.
func (r *Reaction) Validate() error {
	if len(r.Reactants) != 1 {
		return fmt.Errorf("reaction %s has %d reactants: %w", r.ID, len(r.Reactants), ErrReactionArity)
	}
	if len(r.Products) == 0 {
		return fmt.Errorf("reaction %s has no products: %w", r.ID, ErrReactionArity)
	}
	if len(r.Products) != len(r.BondMapping) {
		return fmt.Errorf("reaction %s has %d products but %d bond mappings: %w",
			r.ID, len(r.Products), len(r.BondMapping), ErrMappingLength)
	}
	return nil
}

// BondMappingAsList flattens the per-product bond mappings into gather
// indices in reactant bond order. Kept product bond rows are numbered in
// product order; the single reactant bond no product covers (the broken
// bond) points one past them, at the zero row the builder appends.
func (r *Reaction) BondMappingAsList(numReactantBonds int) ([]int, error) {
	m := make([]int, numReactantBonds)
	for i := range m {
		m[i] = -1
	}
	row := 0
	for p, pm := range r.BondMapping {
		for j, target := range pm {
			if target < 0 || target >= numReactantBonds {
				return nil, fmt.Errorf("reaction %s product %d bond %d maps to reactant bond %d of %d: %w",
					r.ID, p, j, target, numReactantBonds, ErrMappingLength)
			}
			if m[target] != -1 {
				return nil, fmt.Errorf("reaction %s maps reactant bond %d twice: %w", r.ID, target, ErrMappingLength)
			}
			m[target] = row
			row++
		}
	}
	broken := -1
	for i, v := range m {
		if v != -1 {
			continue
		}
		if broken != -1 {
			return nil, fmt.Errorf("reaction %s leaves reactant bonds %d and %d unmapped: %w",
				r.ID, broken, i, ErrBrokenBondCount)
		}
		broken = i
	}
	if broken == -1 {
		return nil, fmt.Errorf("reaction %s maps every reactant bond: %w", r.ID, ErrBrokenBondCount)
	}
	m[broken] = row
	return m, nil
}
