package drift

import (
	"strings"
	"testing"
)

func TestParseSchema(t *testing.T) {
	schema, err := ParseSchema(map[string]string{
		"temp_c":   "number",
		"provider": "string",
		"tags":     "array",
	})
	if err != nil {
		t.Fatalf("ParseSchema: %v", err)
	}
	if len(schema) != 3 {
		t.Errorf("schema has %d fields, want 3", len(schema))
	}

	if _, err := ParseSchema(map[string]string{"x": "integer"}); err == nil {
		t.Error("Expected error for unknown type name")
	}

	empty, err := ParseSchema(nil)
	if err != nil || empty != nil {
		t.Errorf("ParseSchema(nil) = %v, %v; want nil, nil", empty, err)
	}
}

func TestValidate_Conforming(t *testing.T) {
	schema := Schema{"temp_c": KindNumber, "provider": KindString}

	body := []byte(`{"temp_c":15,"provider":"weatherapi","extra":true}`)
	if msg := schema.Validate(body); msg != "" {
		t.Errorf("Expected no drift, got %q", msg)
	}
}

func TestValidate_MissingField(t *testing.T) {
	schema := Schema{"temp_c": KindNumber, "provider": KindString}

	msg := schema.Validate([]byte(`{"temp_c":15}`))
	if !strings.Contains(msg, `missing field "provider"`) {
		t.Errorf("Expected missing-field message, got %q", msg)
	}
}

func TestValidate_TypeMismatch(t *testing.T) {
	schema := Schema{"temp_c": KindNumber}

	msg := schema.Validate([]byte(`{"temp_c":"15"}`))
	if !strings.Contains(msg, "expected number, got string") {
		t.Errorf("Expected type-mismatch message, got %q", msg)
	}
}

func TestValidate_AnyKind(t *testing.T) {
	schema := Schema{"payload": KindAny}

	if msg := schema.Validate([]byte(`{"payload":[1,2]}`)); msg != "" {
		t.Errorf("Expected any to accept arrays, got %q", msg)
	}
	if msg := schema.Validate([]byte(`{"payload":"x"}`)); msg != "" {
		t.Errorf("Expected any to accept strings, got %q", msg)
	}
}

func TestValidate_NonObject(t *testing.T) {
	schema := Schema{"a": KindString}

	if msg := schema.Validate([]byte(`[1,2,3]`)); !strings.Contains(msg, "expected a JSON object") {
		t.Errorf("Expected non-object message, got %q", msg)
	}
	if msg := schema.Validate([]byte(`{{`)); !strings.Contains(msg, "not valid JSON") {
		t.Errorf("Expected invalid-JSON message, got %q", msg)
	}
}

func TestValidate_DeterministicOrder(t *testing.T) {
	schema := Schema{"b": KindString, "a": KindString}

	first := schema.Validate([]byte(`{}`))
	for i := 0; i < 10; i++ {
		if got := schema.Validate([]byte(`{}`)); got != first {
			t.Fatalf("Validate output not deterministic: %q vs %q", first, got)
		}
	}
}
