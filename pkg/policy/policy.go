package policy

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lukaslondono77/ApiBridgePro/pkg/config"
	"github.com/lukaslondono77/ApiBridgePro/pkg/credentials"
	"github.com/lukaslondono77/ApiBridgePro/pkg/drift"
	"github.com/lukaslondono77/ApiBridgePro/pkg/transform"
)

// Provider is one compiled upstream backend of a connector.
type Provider struct {
	// Name identifies the provider within its connector.
	Name string

	// Key is the globally unique health/budget key: "connector:provider".
	Key string

	// BaseURL is the upstream base URL with any trailing slash removed.
	BaseURL string

	// Weight is the selection priority bonus. Higher weight is preferred
	// when latencies are comparable, and the highest-weight provider is
	// the fallback used when a budget downgrade is in effect.
	Weight int

	// Auth is the credential spec for this provider, already merged with
	// the connector-level default. Nil means no credentials.
	Auth *credentials.Spec
}

// OnExceed is the budget enforcement action.
type OnExceed int

const (
	// Block rejects requests once the monthly budget is exhausted.
	Block OnExceed = iota

	// DowngradeProvider constrains selection to the cheapest provider
	// instead of rejecting.
	DowngradeProvider
)

// Budget is a compiled monthly spend limit.
type Budget struct {
	MonthlyUSDMax float64
	OnExceed      OnExceed
}

// Connector is an immutable compiled connector policy.
type Connector struct {
	// Name is the connector identifier.
	Name string

	// Providers are the upstream backends in declared order.
	Providers []Provider

	// allowPaths are the anchored allow-list patterns.
	allowPaths []*regexp.Regexp

	// RateCapacity and RateRefillPerSec size the admission token bucket.
	RateCapacity     int
	RateRefillPerSec float64

	// CacheTTL enables GET response caching when > 0.
	CacheTTL time.Duration

	// Timeout bounds each upstream attempt.
	Timeout time.Duration

	// Retries is the number of additional providers tried after the first
	// failed attempt.
	Retries int

	// Budget is the optional monthly spend limit.
	Budget *Budget

	// CostPerCallUSD is the estimated cost of one upstream attempt.
	CostPerCallUSD float64

	// Transform is the compiled response transform, nil when absent.
	Transform transform.Fn

	// Schema is the expected response contract, nil when absent.
	Schema drift.Schema

	// StaticHeaders and StaticParams are injected into every outbound
	// request.
	StaticHeaders map[string]string
	StaticParams  map[string]string

	// PassthroughHeaders are the lowercased upstream response headers
	// forwarded to the caller.
	PassthroughHeaders []string
}

// Compile turns a validated configuration into the runtime policy map.
func Compile(cfg *config.Config) (map[string]*Connector, error) {
	policies := make(map[string]*Connector, len(cfg.Connectors))

	for name, raw := range cfg.Connectors {
		conn, err := compileConnector(name, &raw)
		if err != nil {
			return nil, err
		}
		policies[name] = conn
	}

	return policies, nil
}

// compileConnector compiles one connector policy.
func compileConnector(name string, raw *config.ConnectorConfig) (*Connector, error) {
	conn := &Connector{
		Name:               name,
		RateCapacity:       raw.RateLimit.Capacity,
		RateRefillPerSec:   raw.RateLimit.RefillPerSec,
		CacheTTL:           time.Duration(raw.CacheTTLSeconds) * time.Second,
		Timeout:            time.Duration(raw.Strategy.TimeoutMs) * time.Millisecond,
		Retries:            raw.Strategy.Retries,
		CostPerCallUSD:     raw.CostPerCallUSD,
		StaticHeaders:      raw.StaticHeaders,
		StaticParams:       raw.StaticParams,
		PassthroughHeaders: lowercaseAll(raw.PassthroughHeaders),
	}

	for _, pattern := range raw.AllowPaths {
		// Anchor explicitly so matches are always against the whole path,
		// regardless of how the pattern was written.
		re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
		if err != nil {
			return nil, fmt.Errorf("connector %q: allow_paths pattern %q: %w", name, pattern, err)
		}
		conn.allowPaths = append(conn.allowPaths, re)
	}

	connectorAuth, err := compileAuth(name, "", raw.Auth)
	if err != nil {
		return nil, err
	}

	for _, p := range raw.Providers {
		auth, err := compileAuth(name, p.Name, p.Auth)
		if err != nil {
			return nil, err
		}
		if auth == nil {
			auth = connectorAuth
		}
		conn.Providers = append(conn.Providers, Provider{
			Name:    p.Name,
			Key:     name + ":" + p.Name,
			BaseURL: strings.TrimRight(p.BaseURL, "/"),
			Weight:  p.Weight,
			Auth:    auth,
		})
	}

	if raw.Budget != nil {
		action := Block
		if raw.Budget.OnExceed == "downgrade_provider" {
			action = DowngradeProvider
		}
		conn.Budget = &Budget{
			MonthlyUSDMax: raw.Budget.MonthlyUSDMax,
			OnExceed:      action,
		}
	}

	if expr := raw.Transforms.Response.JMES; expr != "" {
		fn, err := transform.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("connector %q: %w", name, err)
		}
		conn.Transform = fn
	}

	schema, err := drift.ParseSchema(raw.ExpectedSchema)
	if err != nil {
		return nil, fmt.Errorf("connector %q: expected_schema: %w", name, err)
	}
	conn.Schema = schema

	return conn, nil
}

// compileAuth converts an auth block into a credential spec.
func compileAuth(connector, provider string, raw *config.AuthConfig) (*credentials.Spec, error) {
	if raw == nil {
		return nil, nil
	}

	kind, err := credentials.ParseAuthKind(raw.Type)
	if err != nil {
		return nil, fmt.Errorf("connector %q provider %q: %w", connector, provider, err)
	}
	if kind == credentials.AuthNone {
		return nil, nil
	}

	key := connector
	if provider != "" {
		key = connector + ":" + provider
	}

	var scopes []string
	if raw.Scope != "" {
		scopes = strings.Fields(raw.Scope)
	}

	return &credentials.Spec{
		Kind:         kind,
		Key:          key,
		Name:         raw.Name,
		Value:        raw.Value,
		Token:        raw.Token,
		TokenURL:     raw.TokenURL,
		ClientID:     raw.ClientID,
		ClientSecret: raw.ClientSecret,
		Scopes:       scopes,
		ExtraParams:  raw.ExtraParams,
	}, nil
}

// lowercaseAll lowercases every element of a header list.
func lowercaseAll(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.ToLower(h)
	}
	return out
}
