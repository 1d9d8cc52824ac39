package graph

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/weftline/weft/pkg/errdefs"
)

// Build normalizes a pipeline definition into a canonical GraphV1.
//
// Supported source forms:
//   - *GraphV1: revalidated and re-derived (identities recomputed).
//   - []NodeSpec: an ordered node list.
//   - map[string]interface{}: a decoded definition with a "nodes" list.
//   - string: a path to a YAML pipeline definition file.
//
// Build is a pure function of its input: no side effects, safe to call
// concurrently. Malformed node specs fail with a configuration error
// naming the offending node index.
func Build(definition interface{}) (*GraphV1, error) {
	specs, err := nodeSpecs(definition)
	if err != nil {
		return nil, err
	}

	if len(specs) == 0 {
		return nil, errdefs.NewConfigurationError("pipeline definition has no nodes", nil).
			WithCode(errdefs.ErrCodeEmptyPipeline)
	}

	g := &GraphV1{
		Version: GraphVersion,
		Nodes:   make([]Node, 0, len(specs)),
	}

	for i, spec := range specs {
		if err := validateSpec(spec, i); err != nil {
			return nil, err
		}

		id, err := NodeUUID(spec)
		if err != nil {
			return nil, errdefs.NewConfigurationError("node identity derivation failed", err).
				WithCode(errdefs.ErrCodeBadNodeSpec).
				WithNode(i)
		}

		g.Nodes = append(g.Nodes, Node{NodeSpec: spec, NodeUUID: id})
	}

	return g, nil
}

// nodeSpecs extracts the ordered node list from any supported source form.
func nodeSpecs(definition interface{}) ([]NodeSpec, error) {
	switch def := definition.(type) {
	case nil:
		return nil, errdefs.NewConfigurationError("pipeline definition is nil", nil).
			WithCode(errdefs.ErrCodeEmptyPipeline)

	case *GraphV1:
		specs := make([]NodeSpec, len(def.Nodes))
		for i, n := range def.Nodes {
			specs[i] = n.NodeSpec
		}
		return specs, nil

	case []NodeSpec:
		return def, nil

	case map[string]interface{}:
		return specsFromMapping(def)

	case string:
		return specsFromFile(def)

	default:
		return nil, errdefs.NewConfigurationError(
			fmt.Sprintf("unsupported pipeline definition type %T", definition), nil).
			WithCode(errdefs.ErrCodeBadNodeSpec)
	}
}

// specsFromFile loads a YAML pipeline definition from disk.
func specsFromFile(path string) ([]NodeSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errdefs.NewConfigurationError("failed to read pipeline definition file", err).
			WithDetail("path", path)
	}

	var mapping map[string]interface{}
	if err := yaml.Unmarshal(raw, &mapping); err != nil {
		return nil, errdefs.NewConfigurationError("failed to parse pipeline definition file", err).
			WithDetail("path", path)
	}

	return specsFromMapping(mapping)
}

// specsFromMapping extracts node specs from a decoded definition mapping.
func specsFromMapping(mapping map[string]interface{}) ([]NodeSpec, error) {
	rawNodes, ok := mapping["nodes"]
	if !ok {
		return nil, errdefs.NewConfigurationError("pipeline definition has no nodes section", nil).
			WithCode(errdefs.ErrCodeEmptyPipeline)
	}

	list, ok := rawNodes.([]interface{})
	if !ok {
		return nil, errdefs.NewConfigurationError("nodes section is not a list", nil).
			WithCode(errdefs.ErrCodeBadNodeSpec)
	}

	specs := make([]NodeSpec, 0, len(list))
	for i, raw := range list {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			return nil, errdefs.NewConfigurationError("node spec is not a mapping", nil).
				WithCode(errdefs.ErrCodeBadNodeSpec).
				WithNode(i)
		}

		spec := NodeSpec{}
		if role, ok := entry["role"].(string); ok {
			spec.Role = role
		}
		if proc, ok := entry["processor"].(string); ok {
			spec.Processor = proc
		}
		if rawParams, present := entry["params"]; present {
			params, ok := rawParams.(map[string]interface{})
			if !ok {
				return nil, errdefs.NewConfigurationError("params section is not a mapping", nil).
					WithCode(errdefs.ErrCodeBadNodeSpec).
					WithNode(i)
			}
			spec.Params = params
		}
		if rawPorts, present := entry["ports"]; present {
			ports, ok := rawPorts.(map[string]interface{})
			if !ok {
				return nil, errdefs.NewConfigurationError("ports section is not a mapping", nil).
					WithCode(errdefs.ErrCodeBadNodeSpec).
					WithNode(i)
			}
			spec.Ports = portSpecFromMapping(ports)
		}

		specs = append(specs, spec)
	}

	return specs, nil
}

func portSpecFromMapping(mapping map[string]interface{}) PortSpec {
	var ports PortSpec
	if inputs, ok := mapping["inputs"].([]interface{}); ok {
		for _, in := range inputs {
			if s, ok := in.(string); ok {
				ports.Inputs = append(ports.Inputs, s)
			}
		}
	}
	if outputs, ok := mapping["outputs"].([]interface{}); ok {
		for _, out := range outputs {
			if s, ok := out.(string); ok {
				ports.Outputs = append(ports.Outputs, s)
			}
		}
	}
	return ports
}

// validateSpec checks one node spec for structural problems.
func validateSpec(spec NodeSpec, index int) error {
	if spec.Processor == "" {
		return errdefs.NewConfigurationError("node spec has no processor reference", nil).
			WithCode(errdefs.ErrCodeBadNodeSpec).
			WithNode(index)
	}

	if spec.Role == "" {
		return errdefs.NewConfigurationError("node spec has no role", nil).
			WithCode(errdefs.ErrCodeBadNodeSpec).
			WithNode(index)
	}

	if err := checkDuplicatePorts(spec.Ports.Inputs); err != nil {
		return errdefs.NewConfigurationError("duplicate input port", err).
			WithCode(errdefs.ErrCodeDuplicatePort).
			WithNode(index)
	}
	if err := checkDuplicatePorts(spec.Ports.Outputs); err != nil {
		return errdefs.NewConfigurationError("duplicate output port", err).
			WithCode(errdefs.ErrCodeDuplicatePort).
			WithNode(index)
	}

	return nil
}

func checkDuplicatePorts(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return fmt.Errorf("port %q declared twice", name)
		}
		seen[name] = true
	}
	return nil
}
