package nn

import (
	"math/rand"

	"github.com/reaxnet-ml/reaxnet/internal/graph"
	"github.com/reaxnet-ml/reaxnet/internal/tensor"
)

// UnifySize projects each node type's raw feature vectors into a shared
// hidden dimension with a bias-free linear map per type. Raw atom, bond
// and global featurizations have different widths; everything downstream
// assumes one width.
type UnifySize struct {
	linears map[graph.NodeType]*Linear
}

// NewUnifySize creates the per-type embedding. inSizes maps each node type
// to its raw feature width.
func NewUnifySize(inSizes map[graph.NodeType]int, outSize int, rng *rand.Rand, backend tensor.Backend) *UnifySize {
	linears := make(map[graph.NodeType]*Linear, len(inSizes))
	for _, nt := range graph.NodeTypes {
		in, ok := inSizes[nt]
		if !ok {
			continue
		}
		linears[nt] = NewLinear("embedding."+string(nt), in, outSize, false, rng, backend)
	}
	return &UnifySize{linears: linears}
}

// Forward embeds every node type present in the feature map.
func (u *UnifySize) Forward(feats graph.FeatureMap) graph.FeatureMap {
	out := make(graph.FeatureMap, len(feats))
	for nt, ft := range feats {
		out[nt] = u.linears[nt].Forward(ft)
	}
	return out
}

// Parameters returns the parameters of all per-type projections.
func (u *UnifySize) Parameters() []*Parameter {
	var out []*Parameter
	for _, nt := range graph.NodeTypes {
		if l, ok := u.linears[nt]; ok {
			out = append(out, l.Parameters()...)
		}
	}
	return out
}
