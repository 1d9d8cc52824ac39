package config

// PipelineConfig is a parsed pipeline definition document: the ordered
// node list plus the optional top-level sections selecting the execution
// backend, trace driver behavior, and run-space expansion.
type PipelineConfig struct {
	// Name is an optional human-readable pipeline name.
	Name string `yaml:"name" json:"name,omitempty"`

	// Nodes is the ordered node list.
	Nodes []NodeConfig `yaml:"nodes" json:"nodes" validate:"required,min=1,dive"`

	// Backend selects the orchestration backend.
	Backend BackendConfig `yaml:"backend" json:"backend,omitempty"`

	// Trace configures the trace driver.
	Trace TraceConfig `yaml:"trace" json:"trace,omitempty"`

	// Runspace configures fan-out expansion; nil means a single run.
	Runspace *RunspaceConfig `yaml:"runspace" json:"runspace,omitempty"`
}

// NodeConfig is one node entry in a pipeline definition.
type NodeConfig struct {
	// Role is the semantic role of the node.
	Role string `yaml:"role" json:"role" validate:"required"`

	// Processor is the fully-qualified processor identity.
	Processor string `yaml:"processor" json:"processor" validate:"required"`

	// Params is the shallow parameter mapping.
	Params map[string]interface{} `yaml:"params" json:"params,omitempty"`

	// Ports is the optional port specification.
	Ports PortsConfig `yaml:"ports" json:"ports,omitempty"`
}

// PortsConfig declares a node's input and output ports.
type PortsConfig struct {
	Inputs  []string `yaml:"inputs" json:"inputs,omitempty"`
	Outputs []string `yaml:"outputs" json:"outputs,omitempty"`
}

// BackendConfig selects the orchestrator implementation by registry name.
type BackendConfig struct {
	// Orchestrator is the registered orchestrator name. Empty selects
	// the default sequential orchestrator.
	Orchestrator string `yaml:"orchestrator" json:"orchestrator,omitempty"`

	// MaxParallel caps concurrent runs for backends that support it.
	MaxParallel int `yaml:"max_parallel" json:"max_parallel,omitempty" validate:"omitempty,min=1"`
}

// TraceConfig configures trace emission.
type TraceConfig struct {
	// Dir is the directory trace streams are written to.
	Dir string `yaml:"dir" json:"dir,omitempty"`

	// Strict makes schema rejections fatal to the run.
	Strict bool `yaml:"strict" json:"strict,omitempty"`
}

// RunspaceConfig is the fan-out expansion section.
type RunspaceConfig struct {
	// Axes are the parameter axes to expand.
	Axes []AxisConfig `yaml:"axes" json:"axes" validate:"required,min=1,dive"`

	// Mode is the combination mode.
	Mode string `yaml:"mode" json:"mode" validate:"required,oneof=by_position combinatorial"`

	// MaxRuns is the optional run-count ceiling; 0 means unbounded.
	MaxRuns int `yaml:"max_runs" json:"max_runs,omitempty" validate:"omitempty,min=1"`
}

// AxisConfig declares one axis and exactly one value source: an inline
// list, an external YAML file, or a Starlark script. Source exclusivity
// is enforced at load time.
type AxisConfig struct {
	// Name is the axis name; it becomes a context key in every run.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Values is the inline value list.
	Values []interface{} `yaml:"values" json:"values,omitempty"`

	// File is a path to a YAML file holding the value list.
	File string `yaml:"file" json:"file,omitempty"`

	// Script is a path to a Starlark script whose `values` global holds
	// the value list.
	Script string `yaml:"script" json:"script,omitempty"`
}
