package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/weftline/weft/pkg/errdefs"
	"github.com/weftline/weft/pkg/graph"
	"github.com/weftline/weft/pkg/runspace"
)

var validate = validator.New()

// Load reads, parses, and validates a pipeline definition file.
func Load(path string) (*PipelineConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errdefs.NewConfigurationError("failed to read pipeline definition", err).
			WithDetail("path", path)
	}
	return Parse(raw)
}

// Parse parses and validates a pipeline definition document.
func Parse(raw []byte) (*PipelineConfig, error) {
	var cfg PipelineConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errdefs.NewConfigurationError("failed to parse pipeline definition", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, errdefs.NewConfigurationError("pipeline definition failed validation", err)
	}

	if cfg.Runspace != nil {
		for i, axis := range cfg.Runspace.Axes {
			if err := axis.checkSingleSource(); err != nil {
				return nil, errdefs.NewConfigurationError("invalid axis value source", err).
					WithAxis(axis.Name).
					WithDetail("axis_index", i)
			}
		}
	}

	return &cfg, nil
}

// checkSingleSource enforces exactly one value source per axis.
func (a AxisConfig) checkSingleSource() error {
	sources := 0
	if len(a.Values) > 0 {
		sources++
	}
	if a.File != "" {
		sources++
	}
	if a.Script != "" {
		sources++
	}
	if sources != 1 {
		return fmt.Errorf("axis %q must declare exactly one of values, file, or script (found %d)", a.Name, sources)
	}
	return nil
}

// NodeSpecs converts the configured node list into graph node specs.
func (c *PipelineConfig) NodeSpecs() []graph.NodeSpec {
	specs := make([]graph.NodeSpec, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		specs = append(specs, graph.NodeSpec{
			Role:      n.Role,
			Processor: n.Processor,
			Params:    n.Params,
			Ports: graph.PortSpec{
				Inputs:  n.Ports.Inputs,
				Outputs: n.Ports.Outputs,
			},
		})
	}
	return specs
}

// ResolveAxes resolves every configured axis to the uniform shape the
// planner consumes, fingerprinting external sources. Any unreadable
// source fails the whole resolution before a plan exists, so no partial
// launch can start.
func ResolveAxes(axes []AxisConfig) ([]runspace.Axis, error) {
	resolved := make([]runspace.Axis, 0, len(axes))
	for _, axis := range axes {
		r, err := resolveAxis(axis)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}
	return resolved, nil
}

func resolveAxis(axis AxisConfig) (runspace.Axis, error) {
	switch {
	case len(axis.Values) > 0:
		return runspace.Axis{
			Name:   axis.Name,
			Values: axis.Values,
			Source: "inline",
		}, nil

	case axis.File != "":
		raw, err := os.ReadFile(axis.File)
		if err != nil {
			return runspace.Axis{}, errdefs.NewValidationError("failed to read axis value file", err).
				WithCode(errdefs.ErrCodeAxisSource).
				WithAxis(axis.Name).
				WithDetail("path", axis.File)
		}

		var values []interface{}
		if err := yaml.Unmarshal(raw, &values); err != nil {
			return runspace.Axis{}, errdefs.NewValidationError("axis value file is not a YAML list", err).
				WithCode(errdefs.ErrCodeAxisSource).
				WithAxis(axis.Name).
				WithDetail("path", axis.File)
		}

		return runspace.Axis{
			Name:        axis.Name,
			Values:      values,
			Source:      axis.File,
			Fingerprint: fingerprint(raw),
		}, nil

	case axis.Script != "":
		raw, err := os.ReadFile(axis.Script)
		if err != nil {
			return runspace.Axis{}, errdefs.NewValidationError("failed to read axis script", err).
				WithCode(errdefs.ErrCodeAxisSource).
				WithAxis(axis.Name).
				WithDetail("path", axis.Script)
		}

		values, err := EvaluateAxisScript(axis.Name, string(raw))
		if err != nil {
			return runspace.Axis{}, err
		}

		return runspace.Axis{
			Name:        axis.Name,
			Values:      values,
			Source:      axis.Script,
			Fingerprint: fingerprint(raw),
		}, nil

	default:
		return runspace.Axis{}, errdefs.NewValidationError("axis has no value source", nil).
			WithCode(errdefs.ErrCodeAxisSource).
			WithAxis(axis.Name)
	}
}

// fingerprint is the SHA-256 hex digest of an external source's content,
// retained on the plan for audit.
func fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
