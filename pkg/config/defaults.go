package config

import "strconv"

// Default values applied to unset configuration fields.
const (
	DefaultListenAddress   = ":8080"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultMetricsPath     = "/metrics"
	DefaultMetricsNS       = "apibridge"
	DefaultCacheMaxEntries = 10000
	DefaultSweepSchedule   = "@every 1m"
	DefaultBudgetBackend   = "memory"

	DefaultRateCapacity  = 10
	DefaultRateRefill    = 5.0
	DefaultTimeoutMs     = 15000
	DefaultRetries       = 1
	DefaultSelectPolicy  = "fastest_healthy_then_cheapest"
	DefaultBudgetAction = "block"
	DefaultProviderName = "default"
)

// ApplyDefaults fills unset fields with default values.
//
// Connector-level defaulting also normalizes the base_url shorthand into a
// one-element provider list, so downstream code only ever deals with
// providers.
func ApplyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNS
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = DefaultCacheMaxEntries
	}
	if cfg.Maintenance.SweepSchedule == "" {
		cfg.Maintenance.SweepSchedule = DefaultSweepSchedule
	}
	if cfg.BudgetStore.Backend == "" {
		cfg.BudgetStore.Backend = DefaultBudgetBackend
	}

	for name, conn := range cfg.Connectors {
		applyConnectorDefaults(&conn)
		cfg.Connectors[name] = conn
	}
}

// applyConnectorDefaults fills one connector's unset fields.
func applyConnectorDefaults(conn *ConnectorConfig) {
	// base_url shorthand becomes a single provider.
	if len(conn.Providers) == 0 && conn.BaseURL != "" {
		conn.Providers = []ProviderConfig{{
			Name:    DefaultProviderName,
			BaseURL: conn.BaseURL,
			Weight:  1,
		}}
	}

	for i := range conn.Providers {
		if conn.Providers[i].Name == "" {
			conn.Providers[i].Name = "p" + strconv.Itoa(i)
		}
	}

	if len(conn.AllowPaths) == 0 {
		conn.AllowPaths = []string{"^/.*$"}
	}
	if conn.RateLimit.Capacity == 0 {
		conn.RateLimit.Capacity = DefaultRateCapacity
	}
	if conn.RateLimit.RefillPerSec == 0 {
		conn.RateLimit.RefillPerSec = DefaultRateRefill
	}
	if conn.Strategy.TimeoutMs == 0 {
		conn.Strategy.TimeoutMs = DefaultTimeoutMs
	}
	if conn.Strategy.Policy == "" {
		conn.Strategy.Policy = DefaultSelectPolicy
	}
	if conn.Budget != nil && conn.Budget.OnExceed == "" {
		conn.Budget.OnExceed = DefaultBudgetAction
	}
	if len(conn.PassthroughHeaders) == 0 {
		conn.PassthroughHeaders = []string{"content-type"}
	}
}
