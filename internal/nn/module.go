// Package nn implements the neural-network building blocks of the reaction
// network: trainable parameters, linear layers, activations, dropout, batch
// normalization, the per-type embedding, the gated graph convolution and
// the Set2Set readout.
//
// Layers are pure feature transformers: they never mutate their inputs and
// never store features on graph structures. Graph-aware layers take the
// graph and a feature map and return a new feature map.
package nn

// Module is the base interface for components that own trainable
// parameters. Forward signatures vary by layer kind (plain tensors for
// Linear, graph + feature map for graph layers), so only parameter
// collection is shared.
type Module interface {
	// Parameters returns all trainable parameters of this module,
	// including nested module parameters.
	Parameters() []*Parameter
}

// CollectParameters flattens the parameters of several modules.
func CollectParameters(modules ...Module) []*Parameter {
	var out []*Parameter
	for _, m := range modules {
		out = append(out, m.Parameters()...)
	}
	return out
}
