package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/reaxnet-ml/reaxnet/internal/graph"
	"github.com/reaxnet-ml/reaxnet/internal/reaction"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// moleculeRecord is one pre-featurized molecule in the JSON sample format.
type moleculeRecord struct {
	NumAtoms       int         `json:"num_atoms"`
	Bonds          [][2]int    `json:"bonds"`
	AtomFeatures   [][]float32 `json:"atom_features"`
	BondFeatures   [][]float32 `json:"bond_features"`
	GlobalFeatures []float32   `json:"global_features"`
}

// sampleRecord is one reaction sample in the JSON format.
type sampleRecord struct {
	ID        string           `json:"id"`
	Molecules []moleculeRecord `json:"molecules"`
	Reaction  struct {
		Reactants   []int   `json:"reactants"`
		Products    []int   `json:"products"`
		AtomMapping []int   `json:"atom_mapping"`
		BondMapping [][]int `json:"bond_mapping"`
	} `json:"reaction"`
	Label []float32 `json:"label"`
	Scale float32   `json:"scale"`
}

// LoadJSON reads pre-featurized reaction samples from a JSON file.
// Samples without an id get a fresh UUID.
func LoadJSON(path string, backend tensor.Backend) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f, backend)
}

// ReadJSON decodes reaction samples from r. See LoadJSON.
func ReadJSON(r io.Reader, backend tensor.Backend) (*Dataset, error) {
	var records []sampleRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("dataset: decode samples: %w", err)
	}

	samples := make([]*Sample, len(records))
	for i, rec := range records {
		s, err := buildSample(rec, backend)
		if err != nil {
			return nil, fmt.Errorf("dataset: sample %d: %w", i, err)
		}
		samples[i] = s
	}
	return New(samples)
}

func buildSample(rec sampleRecord, backend tensor.Backend) (*Sample, error) {
	if len(rec.Molecules) == 0 {
		return nil, fmt.Errorf("no molecules")
	}
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	graphs := make([]*graph.Hetero, len(rec.Molecules))
	var atomRows, bondRows, globalRows [][]float32
	for m, mol := range rec.Molecules {
		g, err := graph.NewMolecule(mol.NumAtoms, mol.Bonds)
		if err != nil {
			return nil, fmt.Errorf("molecule %d: %w", m, err)
		}
		graphs[m] = g
		if len(mol.AtomFeatures) != mol.NumAtoms {
			return nil, fmt.Errorf("molecule %d has %d atom feature rows for %d atoms", m, len(mol.AtomFeatures), mol.NumAtoms)
		}
		atomRows = append(atomRows, mol.AtomFeatures...)

		bonds := mol.BondFeatures
		if len(mol.Bonds) == 0 {
			// Placeholder bond node of a bond-free molecule: one zero row.
			if len(bonds) != 0 {
				return nil, fmt.Errorf("molecule %d has no bonds but %d bond feature rows", m, len(bonds))
			}
			bonds = [][]float32{make([]float32, bondWidth(rec.Molecules))}
		} else if len(bonds) != len(mol.Bonds) {
			return nil, fmt.Errorf("molecule %d has %d bond feature rows for %d bonds", m, len(bonds), len(mol.Bonds))
		}
		bondRows = append(bondRows, bonds...)
		globalRows = append(globalRows, mol.GlobalFeatures)
	}

	g, err := graph.Batch(graphs)
	if err != nil {
		return nil, err
	}
	feats := graph.FeatureMap{}
	for nt, rows := range map[graph.NodeType][][]float32{
		graph.Atom:   atomRows,
		graph.Bond:   bondRows,
		graph.Global: globalRows,
	} {
		t, err := rowTensor(rows, backend)
		if err != nil {
			return nil, fmt.Errorf("%s features: %w", nt, err)
		}
		feats[nt] = t
	}

	return &Sample{
		ID:       id,
		Graph:    g,
		Features: feats,
		Reaction: &reaction.Reaction{
			ID:          id,
			Reactants:   rec.Reaction.Reactants,
			Products:    rec.Reaction.Products,
			AtomMapping: rec.Reaction.AtomMapping,
			BondMapping: rec.Reaction.BondMapping,
		},
		Label: rec.Label,
		Scale: rec.Scale,
	}, nil
}

// bondWidth finds the bond feature width from the first molecule that has
// bond feature rows. Bond-free molecules borrow it for their placeholder
// row.
func bondWidth(mols []moleculeRecord) int {
	for _, m := range mols {
		if len(m.BondFeatures) > 0 {
			return len(m.BondFeatures[0])
		}
	}
	return 0
}

// rowTensor packs feature rows into a [len(rows), width] tensor.
func rowTensor(rows [][]float32, backend tensor.Backend) (*tensor.Tensor, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows")
	}
	width := len(rows[0])
	if width == 0 {
		return nil, fmt.Errorf("zero-width rows")
	}
	raw := tensor.Empty(tensor.Shape{len(rows), width})
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has width %d, want %d", i, len(row), width)
		}
		copy(raw.Data()[i*width:(i+1)*width], row)
	}
	return tensor.New(raw, backend), nil
}
