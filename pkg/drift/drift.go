package drift

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FieldKind is the expected JSON type of a schema field.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindNumber  FieldKind = "number"
	KindBoolean FieldKind = "boolean"
	KindObject  FieldKind = "object"
	KindArray   FieldKind = "array"
	KindAny     FieldKind = "any"
)

// Schema is a structural contract: top-level field names mapped to their
// expected JSON types.
type Schema map[string]FieldKind

// ParseSchema converts a configuration field map into a Schema, rejecting
// unknown type names.
func ParseSchema(fields map[string]string) (Schema, error) {
	if len(fields) == 0 {
		return nil, nil
	}

	schema := make(Schema, len(fields))
	for name, kind := range fields {
		switch FieldKind(kind) {
		case KindString, KindNumber, KindBoolean, KindObject, KindArray, KindAny:
			schema[name] = FieldKind(kind)
		default:
			return nil, fmt.Errorf("field %q: unknown schema type %q", name, kind)
		}
	}
	return schema, nil
}

// Validate checks a response body against the schema and returns a
// human-readable description of every mismatch, or "" when the body
// conforms. Extra fields not named by the schema are allowed.
func (s Schema) Validate(body []byte) string {
	if len(s) == 0 {
		return ""
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return "response body is not valid JSON"
	}

	obj, ok := data.(map[string]any)
	if !ok {
		return fmt.Sprintf("expected a JSON object, got %s", kindOf(data))
	}

	var problems []string
	for _, name := range sortedFields(s) {
		want := s[name]
		value, present := obj[name]
		if !present {
			problems = append(problems, fmt.Sprintf("missing field %q", name))
			continue
		}
		if want == KindAny {
			continue
		}
		if got := kindOf(value); got != want {
			problems = append(problems, fmt.Sprintf("field %q: expected %s, got %s", name, want, got))
		}
	}

	return strings.Join(problems, "; ")
}

// kindOf maps a decoded JSON value to its FieldKind.
func kindOf(v any) FieldKind {
	switch v.(type) {
	case string:
		return KindString
	case float64:
		return KindNumber
	case bool:
		return KindBoolean
	case map[string]any:
		return KindObject
	case []any:
		return KindArray
	case nil:
		return "null"
	default:
		return "unknown"
	}
}

// sortedFields returns schema field names in stable order so mismatch
// messages are deterministic.
func sortedFields(s Schema) []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
