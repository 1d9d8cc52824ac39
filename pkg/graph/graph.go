package graph

// GraphVersion is the version tag carried by every canonical graph.
// Bumping it changes every PipelineId, so it only moves when the
// canonical encoding itself changes incompatibly.
const GraphVersion = 1

// PortSpec declares the input/output ports of a node.
type PortSpec struct {
	// Inputs are the named input ports, in declaration order.
	Inputs []string `json:"inputs,omitempty"`

	// Outputs are the named output ports, in declaration order.
	Outputs []string `json:"outputs,omitempty"`
}

// NodeSpec is one step in a pipeline definition. Immutable once built.
type NodeSpec struct {
	// Role is the semantic role of the node (e.g. "source", "transform").
	Role string `json:"role"`

	// Processor is the fully-qualified processor identity.
	Processor string `json:"processor"`

	// Params is the shallow parameter mapping for the node.
	Params map[string]interface{} `json:"params,omitempty"`

	// Ports is the declared input/output port specification.
	Ports PortSpec `json:"ports,omitempty"`
}

// Node is a NodeSpec plus its derived identity.
type Node struct {
	NodeSpec

	// NodeUUID is the name-derived identifier for this node, hashed from
	// the canonical encoding of (role, processor, params, ports).
	NodeUUID string `json:"node_uuid"`
}

// GraphV1 is the canonical, versioned representation of a pipeline.
// Edges are an implicit linear chain over Nodes; the canonical encoding
// of each node is independent of topology so that adding explicit edges
// later leaves node_uuid values unchanged for graphs that remain linear.
type GraphV1 struct {
	// Version is the fixed graph version tag.
	Version int `json:"version"`

	// Nodes is the ordered node list.
	Nodes []Node `json:"nodes"`
}

// canonicalTuple is the exact shape hashed into a node_uuid. Field names
// are fixed; new optional fields must be omitted when empty so existing
// identifiers stay stable.
type canonicalTuple struct {
	Role      string                 `json:"role"`
	Processor string                 `json:"processor"`
	Params    map[string]interface{} `json:"params,omitempty"`
	Ports     *PortSpec              `json:"ports,omitempty"`
}

func (s NodeSpec) canonical() canonicalTuple {
	t := canonicalTuple{
		Role:      s.Role,
		Processor: s.Processor,
	}
	if len(s.Params) > 0 {
		t.Params = s.Params
	}
	if len(s.Ports.Inputs) > 0 || len(s.Ports.Outputs) > 0 {
		ports := s.Ports
		t.Ports = &ports
	}
	return t
}
