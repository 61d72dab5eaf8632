package transform

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCompile_Empty(t *testing.T) {
	fn, err := Compile("")
	if err != nil {
		t.Fatalf("Compile(\"\"): %v", err)
	}
	if fn != nil {
		t.Error("Expected nil Fn for empty expression")
	}
}

func TestCompile_Invalid(t *testing.T) {
	if _, err := Compile("{broken"); err == nil {
		t.Error("Expected compile error for malformed expression")
	}
}

func TestApply_Reshape(t *testing.T) {
	fn, err := Compile("{temp_c: temp, provider: meta.provider}")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	body := []byte(`{"temp":15}`)
	out := Apply(fn, body, Meta{Provider: "weatherapi", Status: 200, LatencyMs: 42})

	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal transformed body: %v", err)
	}

	want := map[string]any{"temp_c": float64(15), "provider": "weatherapi"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("transformed body = %v, want %v", got, want)
	}
}

func TestApply_FailOpenOnNullResult(t *testing.T) {
	// The expression references a field that does not exist; JMESPath
	// evaluates to null and the original body must pass through.
	fn, err := Compile("missing.field")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	body := []byte(`{"temp":15}`)
	out := Apply(fn, body, Meta{})
	if string(out) != string(body) {
		t.Errorf("Expected original body, got %s", out)
	}
}

func TestApply_FailOpenOnInvalidJSON(t *testing.T) {
	fn, err := Compile("temp")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	body := []byte(`not json at all`)
	out := Apply(fn, body, Meta{})
	if string(out) != string(body) {
		t.Errorf("Expected original body for invalid JSON, got %s", out)
	}
}

func TestApply_NonObjectBody(t *testing.T) {
	fn, err := Compile("{first: data[0], provider: meta.provider}")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	out := Apply(fn, []byte(`[10,20]`), Meta{Provider: "p1"})

	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got["first"] != float64(10) || got["provider"] != "p1" {
		t.Errorf("unexpected result: %v", got)
	}
}

func TestApply_NilFn(t *testing.T) {
	body := []byte(`{"a":1}`)
	if out := Apply(nil, body, Meta{}); string(out) != string(body) {
		t.Error("Expected body unchanged with nil transform")
	}
}
