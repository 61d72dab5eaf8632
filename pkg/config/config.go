package config

// Config is the root configuration for the gateway.
type Config struct {
	// ListenAddress is the host:port the HTTP server binds to.
	ListenAddress string `yaml:"listen_address"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// CORS configures cross-origin access to the gateway.
	CORS CORSConfig `yaml:"cors"`

	// Billing configures cost accounting behavior.
	Billing BillingConfig `yaml:"billing"`

	// Cache configures the shared response cache.
	Cache CacheConfig `yaml:"cache"`

	// BudgetStore selects the backing store for budget state.
	BudgetStore BudgetStoreConfig `yaml:"budget_store"`

	// Maintenance configures background housekeeping.
	Maintenance MaintenanceConfig `yaml:"maintenance"`

	// Connectors maps connector names to their policies.
	Connectors map[string]ConnectorConfig `yaml:"connectors"`
}

// TelemetryConfig groups observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is the output format: json or text.
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns the /metrics endpoint on.
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	Namespace string `yaml:"namespace"`
}

// CORSConfig controls cross-origin access.
type CORSConfig struct {
	// AllowedOrigins lists permitted origins. Empty means same-origin only
	// in production deployments; a single "*" allows all origins.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// BillingConfig controls how upstream attempts are charged against budgets.
type BillingConfig struct {
	// ChargeFailedAttempts charges cost for attempts that reached the
	// network but did not return 2xx (timeouts, 4xx, 5xx). Defaults to
	// true: a failed call to a metered provider is assumed billable.
	ChargeFailedAttempts *bool `yaml:"charge_failed_attempts"`
}

// CacheConfig bounds the shared response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses before LRU
	// eviction kicks in.
	MaxEntries int `yaml:"max_entries"`
}

// BudgetStoreConfig selects the budget state backend.
type BudgetStoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`

	// SQLitePath is the database file path for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`
}

// MaintenanceConfig schedules background housekeeping.
type MaintenanceConfig struct {
	// SweepSchedule is a cron expression (robfig/cron syntax, "@every 1m"
	// style accepted) for cache sweeps and budget pruning.
	SweepSchedule string `yaml:"sweep_schedule"`
}

// ConnectorConfig declares one connector policy.
type ConnectorConfig struct {
	// BaseURL is shorthand for a single unnamed provider. Mutually
	// exclusive with Providers; normalized into a one-element provider
	// list at load time.
	BaseURL string `yaml:"base_url"`

	// Providers lists the interchangeable upstream backends in declared
	// order.
	Providers []ProviderConfig `yaml:"providers"`

	// AllowPaths are regular expressions a request path must fully match.
	AllowPaths []string `yaml:"allow_paths"`

	// RateLimit is the per-connector token bucket.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// CacheTTLSeconds enables GET response caching when > 0.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`

	// Strategy controls timeouts, retries, and provider selection.
	Strategy StrategyConfig `yaml:"strategy"`

	// Auth is the connector-level credential spec, used when a provider
	// does not declare its own.
	Auth *AuthConfig `yaml:"auth"`

	// Budget is the optional monthly spend limit.
	Budget *BudgetConfig `yaml:"budget"`

	// CostPerCallUSD is the estimated cost of one upstream call.
	CostPerCallUSD float64 `yaml:"cost_per_call_usd"`

	// StaticHeaders are injected into every outbound request.
	StaticHeaders map[string]string `yaml:"static_headers"`

	// StaticParams are query parameters injected into every outbound
	// request.
	StaticParams map[string]string `yaml:"static_params"`

	// Transforms declares response reshaping.
	Transforms TransformsConfig `yaml:"transforms"`

	// ExpectedSchema maps top-level response fields to JSON type names for
	// schema-drift detection. It describes the body the caller receives,
	// after any response transform.
	ExpectedSchema map[string]string `yaml:"expected_schema"`

	// PassthroughHeaders lists upstream response headers forwarded to the
	// caller. Defaults to content-type.
	PassthroughHeaders []string `yaml:"passthrough_headers"`
}

// ProviderConfig declares one upstream backend.
type ProviderConfig struct {
	// Name identifies the provider within its connector.
	Name string `yaml:"name"`

	// BaseURL is the upstream base URL.
	BaseURL string `yaml:"base_url"`

	// Weight is the selection priority tie-break; higher weight is
	// preferred, and the highest-weight provider is the budget-downgrade
	// fallback.
	Weight int `yaml:"weight"`

	// Auth overrides the connector-level credential spec.
	Auth *AuthConfig `yaml:"auth"`
}

// RateLimitConfig sizes a connector's token bucket.
type RateLimitConfig struct {
	Capacity     int     `yaml:"capacity"`
	RefillPerSec float64 `yaml:"refill_per_sec"`
}

// StrategyConfig controls the retry/timeout/selection behavior.
type StrategyConfig struct {
	// TimeoutMs bounds each upstream attempt.
	TimeoutMs int `yaml:"timeout_ms"`

	// Retries is the number of additional providers tried after the first
	// attempt fails.
	Retries int `yaml:"retries"`

	// Policy names the selection policy. Currently only
	// "fastest_healthy_then_cheapest" is supported.
	Policy string `yaml:"policy"`
}

// AuthConfig declares credential material for a provider or connector.
type AuthConfig struct {
	// Type is one of: bearer, api_key_header, api_key_query,
	// oauth2_client_credentials.
	Type string `yaml:"type"`

	// Name is the header or query parameter name for api_key kinds.
	Name string `yaml:"name"`

	// Value is the key material for api_key kinds.
	Value string `yaml:"value"`

	// Token is the static token for the bearer kind.
	Token string `yaml:"token"`

	// OAuth2 client-credentials fields.
	TokenURL     string            `yaml:"token_url"`
	ClientID     string            `yaml:"client_id"`
	ClientSecret string            `yaml:"client_secret"`
	Scope        string            `yaml:"scope"`
	ExtraParams  map[string]string `yaml:"extra_params"`
}

// BudgetConfig is a monthly spend limit.
type BudgetConfig struct {
	// MonthlyUSDMax is the spend ceiling for a calendar month.
	MonthlyUSDMax float64 `yaml:"monthly_usd_max"`

	// OnExceed is "block" or "downgrade_provider".
	OnExceed string `yaml:"on_exceed"`
}

// TransformsConfig declares response transforms.
type TransformsConfig struct {
	Response ResponseTransformConfig `yaml:"response"`
}

// ResponseTransformConfig holds the response JMESPath expression.
type ResponseTransformConfig struct {
	JMES string `yaml:"jmes"`
}

// ChargeFailed reports the effective billing policy for failed attempts,
// defaulting to true when unset.
func (b BillingConfig) ChargeFailed() bool {
	if b.ChargeFailedAttempts == nil {
		return true
	}
	return *b.ChargeFailedAttempts
}
