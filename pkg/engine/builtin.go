package engine

import (
	"context"
	"fmt"

	"github.com/weftline/weft/pkg/pipectx"
)

// Built-in processor identities.
const (
	ProcessorConstant = "weft.math.constant"
	ProcessorAdd      = "weft.math.add"
	ProcessorMultiply = "weft.math.multiply"
	ProcessorDrop     = "weft.context.drop"
)

// valueKey is the context key the built-in math processors chain through.
const valueKey = "value"

// RegisterBuiltins registers the built-in processors into the registry.
func RegisterBuiltins(r *ProcessorRegistry) {
	r.Register(&ConstantProcessor{})
	r.Register(&AddProcessor{})
	r.Register(&MultiplyProcessor{})
	r.Register(&DropProcessor{})
}

// ConstantProcessor seeds the context value from its "value" parameter.
type ConstantProcessor struct{}

// Name returns the processor identity.
func (p *ConstantProcessor) Name() string { return ProcessorConstant }

// DeclaredParams returns the parameter declarations.
func (p *ConstantProcessor) DeclaredParams() []pipectx.ParamSpec {
	return []pipectx.ParamSpec{{Name: "value"}}
}

// CreatedKeys returns the keys this processor may create.
func (p *ConstantProcessor) CreatedKeys() []string { return []string{valueKey} }

// SuppressedKeys returns the keys this processor may delete.
func (p *ConstantProcessor) SuppressedKeys() []string { return nil }

// Process writes the configured constant into the context.
func (p *ConstantProcessor) Process(_ context.Context, _ pipectx.Context, obs *pipectx.Observer, params map[string]interface{}) error {
	return obs.NotifyUpdate(valueKey, params["value"])
}

// AddProcessor adds its "addend" parameter to the current context value.
type AddProcessor struct{}

// Name returns the processor identity.
func (p *AddProcessor) Name() string { return ProcessorAdd }

// DeclaredParams returns the parameter declarations.
func (p *AddProcessor) DeclaredParams() []pipectx.ParamSpec {
	return []pipectx.ParamSpec{{Name: "addend", Default: 0.0, HasDefault: true}}
}

// CreatedKeys returns the keys this processor may create.
func (p *AddProcessor) CreatedKeys() []string { return []string{valueKey} }

// SuppressedKeys returns the keys this processor may delete.
func (p *AddProcessor) SuppressedKeys() []string { return nil }

// Process reads the current value, adds the addend, and writes it back.
func (p *AddProcessor) Process(_ context.Context, data pipectx.Context, obs *pipectx.Observer, params map[string]interface{}) error {
	current, err := numericContextValue(data, valueKey)
	if err != nil {
		return err
	}
	addend, err := asFloat(params["addend"])
	if err != nil {
		return fmt.Errorf("addend: %w", err)
	}
	return obs.NotifyUpdate(valueKey, current+addend)
}

// MultiplyProcessor multiplies the current context value by its "factor"
// parameter.
type MultiplyProcessor struct{}

// Name returns the processor identity.
func (p *MultiplyProcessor) Name() string { return ProcessorMultiply }

// DeclaredParams returns the parameter declarations.
func (p *MultiplyProcessor) DeclaredParams() []pipectx.ParamSpec {
	return []pipectx.ParamSpec{{Name: "factor", Default: 1.0, HasDefault: true}}
}

// CreatedKeys returns the keys this processor may create.
func (p *MultiplyProcessor) CreatedKeys() []string { return []string{valueKey} }

// SuppressedKeys returns the keys this processor may delete.
func (p *MultiplyProcessor) SuppressedKeys() []string { return nil }

// Process reads the current value, applies the factor, and writes it back.
func (p *MultiplyProcessor) Process(_ context.Context, data pipectx.Context, obs *pipectx.Observer, params map[string]interface{}) error {
	current, err := numericContextValue(data, valueKey)
	if err != nil {
		return err
	}
	factor, err := asFloat(params["factor"])
	if err != nil {
		return fmt.Errorf("factor: %w", err)
	}
	return obs.NotifyUpdate(valueKey, current*factor)
}

// DropProcessor suppresses the context keys named by its "keys" parameter.
type DropProcessor struct{}

// Name returns the processor identity.
func (p *DropProcessor) Name() string { return ProcessorDrop }

// DeclaredParams returns the parameter declarations.
func (p *DropProcessor) DeclaredParams() []pipectx.ParamSpec {
	return []pipectx.ParamSpec{{Name: "keys"}}
}

// CreatedKeys returns the keys this processor may create.
func (p *DropProcessor) CreatedKeys() []string { return nil }

// SuppressedKeys returns the keys this processor may delete.
func (p *DropProcessor) SuppressedKeys() []string { return []string{valueKey} }

// Process deletes each named key through the observer.
func (p *DropProcessor) Process(_ context.Context, _ pipectx.Context, obs *pipectx.Observer, params map[string]interface{}) error {
	keys, ok := params["keys"].([]interface{})
	if !ok {
		return fmt.Errorf("keys parameter must be a list, got %T", params["keys"])
	}
	for _, k := range keys {
		name, ok := k.(string)
		if !ok {
			return fmt.Errorf("key name must be a string, got %T", k)
		}
		if err := obs.NotifyDelete(name); err != nil {
			return err
		}
	}
	return nil
}

// numericContextValue reads a context key as a float64.
func numericContextValue(data pipectx.Context, key string) (float64, error) {
	raw, ok := data.Get(key)
	if !ok {
		return 0, fmt.Errorf("context key %q not set", key)
	}
	v, err := asFloat(raw)
	if err != nil {
		return 0, fmt.Errorf("context key %q: %w", key, err)
	}
	return v, nil
}

// asFloat coerces the numeric representations YAML and JSON decoding
// produce into a float64.
func asFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
