package pipectx

import (
	"github.com/weftline/weft/pkg/errdefs"
)

// ParamSpec declares one processor parameter: its name and, optionally,
// a default value applied when neither node configuration nor context
// supplies one.
type ParamSpec struct {
	// Name is the parameter name.
	Name string `json:"name"`

	// Default is the declared default value, meaningful only when
	// HasDefault is true.
	Default interface{} `json:"default,omitempty"`

	// HasDefault distinguishes "default is nil" from "no default".
	HasDefault bool `json:"has_default,omitempty"`
}

// ResolveParam resolves one declared parameter in strict priority order:
// explicit node configuration value, then a context value under the same
// key, then the declared default. Each probe is a map lookup; resolution
// never scans unrelated keys.
//
// When no source applies, resolution fails with a validation error naming
// the parameter and the processor.
func ResolveParam(spec ParamSpec, nodeConfig map[string]interface{}, ctx Context, processor string) (interface{}, error) {
	if v, ok := nodeConfig[spec.Name]; ok {
		return v, nil
	}

	if ctx != nil {
		if v, ok := ctx.Get(spec.Name); ok {
			return v, nil
		}
	}

	if spec.HasDefault {
		return spec.Default, nil
	}

	return nil, errdefs.NewValidationError(
		"parameter not supplied by node configuration, context, or default", nil).
		WithCode(errdefs.ErrCodeParamUnresolved).
		WithParameter(spec.Name).
		WithProcessor(processor)
}

// ResolveParams resolves every declared parameter, failing on the first
// parameter no source supplies.
func ResolveParams(specs []ParamSpec, nodeConfig map[string]interface{}, ctx Context, processor string) (map[string]interface{}, error) {
	resolved := make(map[string]interface{}, len(specs))
	for _, spec := range specs {
		v, err := ResolveParam(spec, nodeConfig, ctx, processor)
		if err != nil {
			return nil, err
		}
		resolved[spec.Name] = v
	}
	return resolved, nil
}
