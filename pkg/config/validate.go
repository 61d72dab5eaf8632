package config

import (
	"fmt"
	"net/url"
	"regexp"
)

// Validate checks a configuration for structural errors. It is called after
// defaults are applied, so zero values that have defaults never reach it.
func Validate(cfg *Config) error {
	if len(cfg.Connectors) == 0 {
		return fmt.Errorf("no connectors configured")
	}

	switch cfg.BudgetStore.Backend {
	case "memory":
	case "sqlite":
		if cfg.BudgetStore.SQLitePath == "" {
			return fmt.Errorf("budget_store: sqlite backend requires sqlite_path")
		}
	default:
		return fmt.Errorf("budget_store: unknown backend %q", cfg.BudgetStore.Backend)
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging: unknown level %q", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging: unknown format %q", cfg.Telemetry.Logging.Format)
	}

	for name, conn := range cfg.Connectors {
		if err := validateConnector(name, &conn); err != nil {
			return err
		}
	}

	return nil
}

// validateConnector checks one connector policy.
func validateConnector(name string, conn *ConnectorConfig) error {
	if len(conn.Providers) == 0 {
		return fmt.Errorf("connector %q: no providers and no base_url", name)
	}

	seen := make(map[string]bool, len(conn.Providers))
	for _, p := range conn.Providers {
		if p.BaseURL == "" {
			return fmt.Errorf("connector %q: provider %q has no base_url", name, p.Name)
		}
		if _, err := url.Parse(p.BaseURL); err != nil {
			return fmt.Errorf("connector %q: provider %q: invalid base_url: %w", name, p.Name, err)
		}
		if p.Weight < 0 {
			return fmt.Errorf("connector %q: provider %q: negative weight", name, p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("connector %q: duplicate provider name %q", name, p.Name)
		}
		seen[p.Name] = true

		if err := validateAuth(name, p.Name, p.Auth); err != nil {
			return err
		}
	}

	if err := validateAuth(name, "", conn.Auth); err != nil {
		return err
	}

	for _, pattern := range conn.AllowPaths {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("connector %q: invalid allow_paths pattern %q: %w", name, pattern, err)
		}
	}

	if conn.RateLimit.Capacity < 1 {
		return fmt.Errorf("connector %q: rate_limit.capacity must be >= 1", name)
	}
	if conn.RateLimit.RefillPerSec <= 0 {
		return fmt.Errorf("connector %q: rate_limit.refill_per_sec must be > 0", name)
	}
	if conn.CacheTTLSeconds < 0 {
		return fmt.Errorf("connector %q: cache_ttl_seconds must be >= 0", name)
	}
	if conn.CostPerCallUSD < 0 {
		return fmt.Errorf("connector %q: cost_per_call_usd must be >= 0", name)
	}
	if conn.Strategy.Retries < 0 {
		return fmt.Errorf("connector %q: strategy.retries must be >= 0", name)
	}
	if conn.Strategy.TimeoutMs < 1 {
		return fmt.Errorf("connector %q: strategy.timeout_ms must be >= 1", name)
	}
	if conn.Strategy.Policy != DefaultSelectPolicy {
		return fmt.Errorf("connector %q: unknown strategy.policy %q", name, conn.Strategy.Policy)
	}

	if conn.Budget != nil {
		if conn.Budget.MonthlyUSDMax <= 0 {
			return fmt.Errorf("connector %q: budget.monthly_usd_max must be > 0", name)
		}
		switch conn.Budget.OnExceed {
		case "block", "downgrade_provider":
		default:
			return fmt.Errorf("connector %q: budget.on_exceed must be block or downgrade_provider", name)
		}
	}

	return nil
}

// validateAuth checks an auth block's type and required fields.
func validateAuth(connector, provider string, auth *AuthConfig) error {
	if auth == nil {
		return nil
	}

	where := fmt.Sprintf("connector %q", connector)
	if provider != "" {
		where = fmt.Sprintf("connector %q provider %q", connector, provider)
	}

	switch auth.Type {
	case "", "none":
	case "bearer":
		if auth.Token == "" {
			return fmt.Errorf("%s: bearer auth requires token", where)
		}
	case "api_key_header", "api_key_query":
		if auth.Name == "" || auth.Value == "" {
			return fmt.Errorf("%s: %s auth requires name and value", where, auth.Type)
		}
	case "oauth2_client_credentials":
		if auth.TokenURL == "" || auth.ClientID == "" || auth.ClientSecret == "" {
			return fmt.Errorf("%s: oauth2_client_credentials auth requires token_url, client_id, client_secret", where)
		}
	default:
		return fmt.Errorf("%s: unknown auth type %q", where, auth.Type)
	}

	return nil
}
