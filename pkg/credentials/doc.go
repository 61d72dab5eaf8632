// Package credentials resolves provider credential specifications into
// concrete request material (a header or query parameter) at call time.
//
// Supported auth kinds form a closed set: bearer tokens, API keys placed in
// a header or query parameter, and OAuth2 client-credentials with automatic
// token refresh. Resolution is bounded in time and resolved values are never
// persisted beyond process memory.
//
// The gateway consumes the Resolver interface only; a failed resolution is
// treated as a provider-attempt failure, not a fatal error.
package credentials
