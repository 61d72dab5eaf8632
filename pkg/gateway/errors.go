package gateway

import (
	"fmt"
	"strings"
)

// PolicyNotFoundError means the request named a connector that is not
// configured.
type PolicyNotFoundError struct {
	Connector string
}

// Error implements the error interface.
func (e *PolicyNotFoundError) Error() string {
	return fmt.Sprintf("unknown connector %q", e.Connector)
}

// PathForbiddenError means the requested path failed the connector's
// allow-list after normalization.
type PathForbiddenError struct {
	Connector string
	Path      string
}

// Error implements the error interface.
func (e *PathForbiddenError) Error() string {
	return fmt.Sprintf("path %q is not allowed for connector %q", e.Path, e.Connector)
}

// RateLimitedError means the connector's token bucket refused the request.
type RateLimitedError struct {
	Connector string
}

// Error implements the error interface.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for connector %q", e.Connector)
}

// BudgetExceededError means the connector's monthly budget is exhausted and
// its policy blocks further spend.
type BudgetExceededError struct {
	Connector string
	MaxUSD    float64
}

// Error implements the error interface.
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("monthly budget of $%.4f exhausted for connector %q", e.MaxUSD, e.Connector)
}

// UpstreamClientError means a provider answered with a 4xx status. Client
// errors are terminal: the request itself is at fault, so trying another
// provider would fail the same way. The upstream body is deliberately not
// carried; callers get the status and provider only.
type UpstreamClientError struct {
	Connector  string
	Provider   string
	StatusCode int
}

// Error implements the error interface.
func (e *UpstreamClientError) Error() string {
	return fmt.Sprintf("provider %q rejected the request with status %d", e.Provider, e.StatusCode)
}

// AttemptError summarizes one failed provider attempt for the exhaustion
// report.
type AttemptError struct {
	// Provider is the provider name.
	Provider string

	// Kind classifies the failure: "timeout", "network", "upstream_5xx",
	// or "credentials".
	Kind string
}

// AllProvidersExhaustedError means every eligible provider attempt failed.
type AllProvidersExhaustedError struct {
	Connector string
	Attempts  []AttemptError
}

// Error implements the error interface.
func (e *AllProvidersExhaustedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Provider + ": " + a.Kind
	}
	return fmt.Sprintf("all providers failed for connector %q [%s]", e.Connector, strings.Join(parts, ", "))
}
