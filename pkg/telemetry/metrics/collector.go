// Package metrics exposes gateway activity as Prometheus metrics.
//
// The Collector implements the gateway's event sink and the health tracker's
// transition listener, so wiring it in is a matter of passing it to both
// constructors. All metrics live in a private registry exposed through
// Handler.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lukaslondono77/ApiBridgePro/pkg/config"
	"github.com/lukaslondono77/ApiBridgePro/pkg/health"
)

const subsystem = "gateway"

// Collector registers and records all gateway metrics.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	rateLimited *prometheus.CounterVec

	upstreamAttempts *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	budgetSpent     *prometheus.CounterVec
	budgetExhausted *prometheus.CounterVec

	driftTotal *prometheus.CounterVec

	circuitState       *prometheus.GaugeVec
	circuitTransitions *prometheus.CounterVec
}

// NewCollector creates a collector from the metrics configuration. If
// registry is nil a private registry is created.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "apibridge"
	}

	c := &Collector{
		enabled:  cfg.Enabled,
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "requests_total",
				Help:      "Total number of proxied requests by final status",
			},
			[]string{"connector", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "request_duration_seconds",
				Help:      "End-to-end request handling duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 15.0},
			},
			[]string{"connector"},
		),

		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_hits_total",
				Help:      "Responses served from the cache",
			},
			[]string{"connector"},
		),

		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_misses_total",
				Help:      "Cache-eligible requests that went upstream",
			},
			[]string{"connector"},
		),

		rateLimited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rate_limited_total",
				Help:      "Requests refused by the admission token bucket",
			},
			[]string{"connector"},
		),

		upstreamAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "upstream_attempts_total",
				Help:      "Provider attempts by outcome",
			},
			[]string{"connector", "provider", "outcome"},
		),

		upstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "upstream_latency_seconds",
				Help:      "Upstream attempt latency in seconds",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 15.0},
			},
			[]string{"connector", "provider"},
		),

		budgetSpent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "budget_spent_usd_total",
				Help:      "Estimated upstream spend in USD",
			},
			[]string{"connector"},
		),

		budgetExhausted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "budget_exhausted_total",
				Help:      "Pre-flight checks that found the monthly ceiling reached",
			},
			[]string{"connector", "action"},
		),

		driftTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "schema_drift_total",
				Help:      "Responses that violated the expected schema",
			},
			[]string{"connector", "provider"},
		),

		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "circuit_state",
				Help:      "Circuit breaker state (0=closed, 1=open, 2=half_open)",
			},
			[]string{"connector", "provider"},
		),

		circuitTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "circuit_transitions_total",
				Help:      "Circuit breaker state transitions by target state",
			},
			[]string{"connector", "provider", "to"},
		),
	}

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.cacheHits,
		c.cacheMisses,
		c.rateLimited,
		c.upstreamAttempts,
		c.upstreamLatency,
		c.budgetSpent,
		c.budgetExhausted,
		c.driftTotal,
		c.circuitState,
		c.circuitTransitions,
	)

	return c
}

// RequestCompleted implements the gateway event sink.
func (c *Collector) RequestCompleted(connector string, status int, duration time.Duration) {
	if !c.enabled {
		return
	}
	c.requestsTotal.WithLabelValues(connector, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(connector).Observe(duration.Seconds())
}

// CacheHit implements the gateway event sink.
func (c *Collector) CacheHit(connector string) {
	if !c.enabled {
		return
	}
	c.cacheHits.WithLabelValues(connector).Inc()
}

// CacheMiss implements the gateway event sink.
func (c *Collector) CacheMiss(connector string) {
	if !c.enabled {
		return
	}
	c.cacheMisses.WithLabelValues(connector).Inc()
}

// RateLimited implements the gateway event sink.
func (c *Collector) RateLimited(connector string) {
	if !c.enabled {
		return
	}
	c.rateLimited.WithLabelValues(connector).Inc()
}

// UpstreamAttempt implements the gateway event sink.
func (c *Collector) UpstreamAttempt(connector, provider, outcome string, latency time.Duration) {
	if !c.enabled {
		return
	}
	c.upstreamAttempts.WithLabelValues(connector, provider, outcome).Inc()
	c.upstreamLatency.WithLabelValues(connector, provider).Observe(latency.Seconds())
}

// BudgetSpend implements the gateway event sink.
func (c *Collector) BudgetSpend(connector string, usd float64) {
	if !c.enabled {
		return
	}
	c.budgetSpent.WithLabelValues(connector).Add(usd)
}

// BudgetExhausted implements the gateway event sink.
func (c *Collector) BudgetExhausted(connector, action string) {
	if !c.enabled {
		return
	}
	c.budgetExhausted.WithLabelValues(connector, action).Inc()
}

// DriftDetected implements the gateway event sink.
func (c *Collector) DriftDetected(connector, provider string) {
	if !c.enabled {
		return
	}
	c.driftTotal.WithLabelValues(connector, provider).Inc()
}

// CircuitTransition implements the health tracker's transition listener.
func (c *Collector) CircuitTransition(connector, provider string, from, to health.CircuitState) {
	if !c.enabled {
		return
	}
	c.circuitState.WithLabelValues(connector, provider).Set(float64(to))
	c.circuitTransitions.WithLabelValues(connector, provider, to.String()).Inc()
}
