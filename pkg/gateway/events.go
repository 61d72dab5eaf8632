package gateway

import "time"

// EventSink receives gateway lifecycle events. The metrics collector is the
// production implementation; tests plug in recording sinks.
//
// Implementations must be safe for concurrent use and must not block:
// events fire on the request path.
type EventSink interface {
	// RequestCompleted fires once per proxied request with the final
	// outcome status and total handling duration.
	RequestCompleted(connector string, status int, duration time.Duration)

	// CacheHit and CacheMiss fire on cache-eligible requests.
	CacheHit(connector string)
	CacheMiss(connector string)

	// RateLimited fires when admission is refused.
	RateLimited(connector string)

	// UpstreamAttempt fires once per provider attempt that executed.
	// outcome is "success", "timeout", "network", "upstream_5xx", or
	// "upstream_4xx"; latency is the attempt duration.
	UpstreamAttempt(connector, provider, outcome string, latency time.Duration)

	// BudgetSpend fires after cost is recorded for an attempt.
	BudgetSpend(connector string, usd float64)

	// BudgetExhausted fires when a pre-flight check finds the ceiling
	// reached, with the enforced action ("block" or "downgrade_provider").
	BudgetExhausted(connector, action string)

	// DriftDetected fires when a response violates the expected schema.
	DriftDetected(connector, provider string)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RequestCompleted(string, int, time.Duration)           {}
func (NopSink) CacheHit(string)                                       {}
func (NopSink) CacheMiss(string)                                      {}
func (NopSink) RateLimited(string)                                    {}
func (NopSink) UpstreamAttempt(string, string, string, time.Duration) {}
func (NopSink) BudgetSpend(string, float64)                           {}
func (NopSink) BudgetExhausted(string, string)                        {}
func (NopSink) DriftDetected(string, string)                          {}
