package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/weftline/weft/pkg/errdefs"
)

const minimalPipeline = `
name: demo
nodes:
  - role: source
    processor: weft.math.constant
    params:
      value: 1.0
  - role: transform
    processor: weft.math.add
    params:
      addend: 2.0
`

func TestParse_MinimalPipeline(t *testing.T) {
	cfg, err := Parse([]byte(minimalPipeline))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.Name != "demo" {
		t.Errorf("Expected name demo, got %s", cfg.Name)
	}
	if len(cfg.Nodes) != 2 {
		t.Fatalf("Expected 2 nodes, got %d", len(cfg.Nodes))
	}

	specs := cfg.NodeSpecs()
	if specs[1].Processor != "weft.math.add" {
		t.Errorf("Expected second spec processor weft.math.add, got %s", specs[1].Processor)
	}
	if specs[1].Params["addend"] != 2.0 {
		t.Errorf("Expected addend 2.0, got %v", specs[1].Params["addend"])
	}
}

func TestParse_MissingNodesRejected(t *testing.T) {
	_, err := Parse([]byte(`name: empty`))
	if err == nil {
		t.Fatal("Expected validation error for missing nodes")
	}
	if !errdefs.IsConfiguration(err) {
		t.Errorf("Expected configuration error, got: %v", err)
	}
}

func TestParse_NodeMissingProcessorRejected(t *testing.T) {
	doc := `
nodes:
  - role: source
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatal("Expected validation error for node without processor")
	}
}

func TestParse_InvalidCombineModeRejected(t *testing.T) {
	doc := minimalPipeline + `
runspace:
  mode: diagonal
  axes:
    - name: value
      values: [1, 2]
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatal("Expected validation error for unknown combine mode")
	}
}

func TestParse_AxisWithTwoSourcesRejected(t *testing.T) {
	doc := minimalPipeline + `
runspace:
  mode: by_position
  axes:
    - name: value
      values: [1, 2]
      file: values.yaml
`
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("Expected error for axis with two value sources")
	}

	var e *errdefs.Error
	if !errors.As(err, &e) || e.Axis != "value" {
		t.Errorf("Expected error to name the axis, got: %v", err)
	}
}

func TestResolveAxes_InlineValues(t *testing.T) {
	axes, err := ResolveAxes([]AxisConfig{
		{Name: "value", Values: []interface{}{1.0, 2.0}},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(axes) != 1 || len(axes[0].Values) != 2 {
		t.Fatalf("Unexpected resolution: %+v", axes)
	}
	if axes[0].Source != "inline" || axes[0].Fingerprint != "" {
		t.Errorf("Inline axis should not carry a fingerprint: %+v", axes[0])
	}
}

func TestResolveAxes_FileSourceFingerprinted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "values.yaml")
	if err := os.WriteFile(path, []byte("- 10\n- 20\n- 30\n"), 0o644); err != nil {
		t.Fatalf("Failed to write axis file: %v", err)
	}

	axes, err := ResolveAxes([]AxisConfig{{Name: "factor", File: path}})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(axes[0].Values) != 3 {
		t.Errorf("Expected 3 values, got %d", len(axes[0].Values))
	}
	if axes[0].Source != path {
		t.Errorf("Expected source %s, got %s", path, axes[0].Source)
	}
	if len(axes[0].Fingerprint) != 64 {
		t.Errorf("Expected 64-char fingerprint, got %q", axes[0].Fingerprint)
	}

	// Same bytes fingerprint identically on re-resolution.
	again, err := ResolveAxes([]AxisConfig{{Name: "factor", File: path}})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if again[0].Fingerprint != axes[0].Fingerprint {
		t.Error("Fingerprint changed across resolutions of identical content")
	}
}

func TestResolveAxes_UnreadableFileFailsBeforePlan(t *testing.T) {
	_, err := ResolveAxes([]AxisConfig{
		{Name: "ok", Values: []interface{}{1}},
		{Name: "broken", File: filepath.Join(t.TempDir(), "missing.yaml")},
	})
	if err == nil {
		t.Fatal("Expected error for unreadable axis file")
	}

	var e *errdefs.Error
	if !errors.As(err, &e) || e.Code != errdefs.ErrCodeAxisSource {
		t.Errorf("Expected AXIS_SOURCE_UNREADABLE code, got: %v", err)
	}
	if e.Axis != "broken" {
		t.Errorf("Expected error to name axis broken, got %q", e.Axis)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	if err := os.WriteFile(path, []byte(minimalPipeline), 0o644); err != nil {
		t.Fatalf("Failed to write pipeline file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(cfg.Nodes) != 2 {
		t.Errorf("Expected 2 nodes, got %d", len(cfg.Nodes))
	}
}
