// Package transform reshapes upstream JSON responses into a unified schema
// using JMESPath expressions.
//
// Expressions are compiled once when connector policies are loaded, not per
// request. At request time the transform is applied with a strict fail-open
// contract: any evaluation problem (invalid JSON, expression error, null
// result) returns the original body unchanged. A bad transform must never
// turn a successful upstream call into a client-visible error.
package transform
