// Package policy compiles raw connector configuration into immutable
// runtime policies.
//
// Compilation happens once per configuration load: allow-list regular
// expressions are compiled and anchored, transform expressions are parsed,
// expected schemas are checked, and auth blocks become credential specs.
// The resulting Connector values are never mutated; a configuration reload
// produces a complete replacement map.
//
// Path validation is security sensitive. Request paths are normalized
// (percent-decoding, slash collapsing, trailing-slash stripping) before
// being matched in full against the allow-list, and any path still carrying
// a ".." segment after normalization is rejected outright. This ordering
// prevents encoding- and traversal-based bypasses of the allow-list.
package policy
