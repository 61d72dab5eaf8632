// Package drift detects structural mismatches between a connector's
// transformed response and its expected schema contract.
//
// A schema is a flat map of top-level field names to JSON type names.
// Validation is advisory: a mismatch never alters the response body or
// status, it only produces a message the gateway attaches as an
// observability marker.
package drift
