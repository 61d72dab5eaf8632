package transform

import (
	"encoding/json"
	"fmt"

	"github.com/jmespath/go-jmespath"
)

// Fn evaluates a compiled transform against decoded JSON data.
// It returns the reshaped value, or an error if evaluation fails.
type Fn func(data any) (any, error)

// Meta is request context made available to transform expressions under the
// "meta" key, so expressions can project provider and latency information
// into the response body.
type Meta struct {
	Provider  string `json:"provider"`
	Status    int    `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
}

// Compile parses a JMESPath expression into a reusable Fn.
// An empty expression compiles to nil, meaning no transform.
func Compile(expr string) (Fn, error) {
	if expr == "" {
		return nil, nil
	}

	compiled, err := jmespath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid transform expression %q: %w", expr, err)
	}

	return func(data any) (any, error) {
		return compiled.Search(data)
	}, nil
}

// Apply runs fn over a JSON body and returns the reshaped body.
//
// The original body is augmented with meta before evaluation: object bodies
// gain a "meta" key alongside their own fields, non-object bodies are
// wrapped as {"meta": ..., "data": ...}. On any failure, or when the
// expression evaluates to null, the original body is returned unchanged.
func Apply(fn Fn, body []byte, meta Meta) []byte {
	if fn == nil {
		return body
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	result, err := fn(augment(data, meta))
	if err != nil || result == nil {
		return body
	}

	out, err := json.Marshal(result)
	if err != nil {
		return body
	}
	return out
}

// augment merges meta into the decoded body for expression evaluation.
func augment(data any, meta Meta) any {
	metaMap := map[string]any{
		"provider":   meta.Provider,
		"status":     float64(meta.Status),
		"latency_ms": float64(meta.LatencyMs),
	}

	if obj, ok := data.(map[string]any); ok {
		augmented := make(map[string]any, len(obj)+1)
		for k, v := range obj {
			augmented[k] = v
		}
		augmented["meta"] = metaMap
		return augmented
	}

	return map[string]any{"meta": metaMap, "data": data}
}
