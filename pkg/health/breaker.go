package health

import "time"

// CircuitState is the per-provider circuit breaker state.
type CircuitState int

const (
	// Closed is the normal state: the provider is eligible for selection.
	Closed CircuitState = iota

	// Open means the provider failed repeatedly and is skipped until the
	// recovery window elapses.
	Open

	// HalfOpen allows a single trial attempt after the recovery window.
	HalfOpen
)

// String returns the state name for logging and status endpoints.
func (s CircuitState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Circuit breaker tuning. Five consecutive qualifying failures open the
// circuit; sixty seconds later the next selection pass permits one trial.
const (
	FailureThreshold = 5
	RecoveryWindow   = 60 * time.Second
)
