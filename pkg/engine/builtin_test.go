package engine

import (
	"context"
	"testing"

	"github.com/weftline/weft/pkg/pipectx"
)

func TestAddProcessor_AppliesAddend(t *testing.T) {
	data := pipectx.NewSingleContextFrom(map[string]interface{}{"value": 4.0})
	proc := &AddProcessor{}
	obs := pipectx.NewObserver(data, proc.Name(), proc.CreatedKeys(), proc.SuppressedKeys())

	err := proc.Process(context.Background(), data, obs, map[string]interface{}{"addend": 2.5})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	v, _ := data.Get("value")
	if v != 6.5 {
		t.Errorf("Expected 6.5, got %v", v)
	}
}

func TestAddProcessor_MissingValueFails(t *testing.T) {
	data := pipectx.NewSingleContext()
	proc := &AddProcessor{}
	obs := pipectx.NewObserver(data, proc.Name(), proc.CreatedKeys(), proc.SuppressedKeys())

	if err := proc.Process(context.Background(), data, obs, map[string]interface{}{"addend": 1.0}); err == nil {
		t.Fatal("Expected error when value key is unset")
	}
}

func TestMultiplyProcessor_IntegerCoercion(t *testing.T) {
	// YAML decodes whole numbers as int; the processor coerces them.
	data := pipectx.NewSingleContextFrom(map[string]interface{}{"value": 3})
	proc := &MultiplyProcessor{}
	obs := pipectx.NewObserver(data, proc.Name(), proc.CreatedKeys(), proc.SuppressedKeys())

	err := proc.Process(context.Background(), data, obs, map[string]interface{}{"factor": 4})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	v, _ := data.Get("value")
	if v != 12.0 {
		t.Errorf("Expected 12.0, got %v", v)
	}
}

func TestConstantProcessor_SeedsValue(t *testing.T) {
	data := pipectx.NewSingleContext()
	proc := &ConstantProcessor{}
	obs := pipectx.NewObserver(data, proc.Name(), proc.CreatedKeys(), proc.SuppressedKeys())

	err := proc.Process(context.Background(), data, obs, map[string]interface{}{"value": 7.0})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if v, ok := data.Get("value"); !ok || v != 7.0 {
		t.Errorf("Expected seeded value 7.0, got %v", v)
	}
}

func TestDropProcessor_SuppressesDeclaredKey(t *testing.T) {
	data := pipectx.NewSingleContextFrom(map[string]interface{}{"value": 1.0})
	proc := &DropProcessor{}
	obs := pipectx.NewObserver(data, proc.Name(), proc.CreatedKeys(), proc.SuppressedKeys())

	err := proc.Process(context.Background(), data, obs, map[string]interface{}{
		"keys": []interface{}{"value"},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if data.Has("value") {
		t.Error("Expected value key to be suppressed")
	}
}

func TestDropProcessor_UndeclaredKeyRejected(t *testing.T) {
	data := pipectx.NewSingleContextFrom(map[string]interface{}{"secret": 1.0})
	proc := &DropProcessor{}
	obs := pipectx.NewObserver(data, proc.Name(), proc.CreatedKeys(), proc.SuppressedKeys())

	err := proc.Process(context.Background(), data, obs, map[string]interface{}{
		"keys": []interface{}{"secret"},
	})
	if err == nil {
		t.Fatal("Expected rejection for undeclared suppression")
	}
	if data.Has("secret") != true {
		t.Error("Rejected suppression still removed the key")
	}
}

func TestAsFloat_RejectsNonNumeric(t *testing.T) {
	if _, err := asFloat("3.0"); err == nil {
		t.Error("Expected error for string input")
	}
	if v, err := asFloat(int64(5)); err != nil || v != 5.0 {
		t.Errorf("Expected int64 coercion, got %v, %v", v, err)
	}
}
