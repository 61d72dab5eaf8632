package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lukaslondono77/ApiBridgePro/pkg/budget"
	"github.com/lukaslondono77/ApiBridgePro/pkg/cache"
	"github.com/lukaslondono77/ApiBridgePro/pkg/config"
	"github.com/lukaslondono77/ApiBridgePro/pkg/credentials"
	"github.com/lukaslondono77/ApiBridgePro/pkg/gateway"
	"github.com/lukaslondono77/ApiBridgePro/pkg/health"
	"github.com/lukaslondono77/ApiBridgePro/pkg/policy"
	"github.com/lukaslondono77/ApiBridgePro/pkg/ratelimit"
	"github.com/lukaslondono77/ApiBridgePro/pkg/telemetry/metrics"
)

// newTestServer builds the full stack around the given connector configs
// and returns the assembled handler.
func newTestServer(t *testing.T, connectors map[string]config.ConnectorConfig) http.Handler {
	t.Helper()

	cfg := &config.Config{
		Telemetry: config.TelemetryConfig{
			Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		},
		Connectors: connectors,
	}
	config.ApplyDefaults(cfg)

	policies, err := policy.Compile(cfg)
	if err != nil {
		t.Fatalf("policy.Compile() error: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	collector := metrics.NewCollector(cfg.Telemetry.Metrics, prometheus.NewRegistry())
	tracker := health.NewTracker(collector.CircuitTransition)
	guard := budget.NewGuard(budget.NewMemoryStore())

	gw := gateway.New(gateway.Options{
		Policies:             policies,
		Limiter:              ratelimit.NewLimiter(),
		Cache:                cache.New(100),
		Tracker:              tracker,
		Guard:                guard,
		Resolver:             credentials.NewResolver(0),
		Sink:                 collector,
		Logger:               logger,
		ChargeFailedAttempts: cfg.Billing.ChargeFailed(),
	})

	srv := New(Options{
		Config:    cfg,
		Gateway:   gw,
		Tracker:   tracker,
		Guard:     guard,
		Collector: collector,
		Logger:    logger,
	})
	return srv.routes()
}

func TestServer_ProxyEndToEnd(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/current" {
			w.WriteHeader(404)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"temp":15}`))
	}))
	defer upstream.Close()

	handler := newTestServer(t, map[string]config.ConnectorConfig{
		"weather": {
			Providers: []config.ProviderConfig{{Name: "weatherapi", BaseURL: upstream.URL}},
			Transforms: config.TransformsConfig{
				Response: config.ResponseTransformConfig{
					JMES: `{temp_c: temp, provider: meta.provider}`,
				},
			},
			CacheTTLSeconds: 60,
		},
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/proxy/weather/current?city=Madrid", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if payload["temp_c"] != float64(15) || payload["provider"] != "weatherapi" {
		t.Errorf("payload = %v", payload)
	}

	if rec.Header().Get("X-ApiBridge-Provider") != "weatherapi" {
		t.Errorf("provider header = %q", rec.Header().Get("X-ApiBridge-Provider"))
	}
	if rec.Header().Get("X-ApiBridge-Cache") != "miss" {
		t.Errorf("cache header = %q", rec.Header().Get("X-ApiBridge-Cache"))
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing request ID header")
	}

	// Second identical request is served from the cache.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/proxy/weather/current?city=Madrid", nil))
	if rec.Header().Get("X-ApiBridge-Cache") != "hit" {
		t.Errorf("cache header = %q on repeat", rec.Header().Get("X-ApiBridge-Cache"))
	}
}

func TestServer_UnknownConnectorIs404(t *testing.T) {
	handler := newTestServer(t, map[string]config.ConnectorConfig{
		"weather": {BaseURL: "http://127.0.0.1:0"},
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/proxy/nope/x", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if payload["error"] == "" {
		t.Errorf("payload = %v", payload)
	}
}

func TestServer_ForbiddenPathIs403(t *testing.T) {
	handler := newTestServer(t, map[string]config.ConnectorConfig{
		"weather": {
			BaseURL:    "http://127.0.0.1:0",
			AllowPaths: []string{`^/current$`},
		},
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/proxy/weather/internal/admin", nil))

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestServer_UpstreamClientErrorBodyNotForwarded(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"upstream_secret_detail":"key xyz is expired"}`))
	}))
	defer upstream.Close()

	handler := newTestServer(t, map[string]config.ConnectorConfig{
		"weather": {BaseURL: upstream.URL},
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/proxy/weather/x", nil))

	if rec.Code != 401 {
		t.Fatalf("status = %d, want upstream 401 preserved", rec.Code)
	}
	if !json.Valid(rec.Body.Bytes()) {
		t.Fatalf("body = %q, want JSON error envelope", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "upstream_secret_detail") {
		t.Error("upstream error body leaked to the caller")
	}
}

func TestServer_Healthz(t *testing.T) {
	handler := newTestServer(t, map[string]config.ConnectorConfig{
		"weather": {BaseURL: "http://127.0.0.1:0"},
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestServer_ProviderStatus(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer broken.Close()

	handler := newTestServer(t, map[string]config.ConnectorConfig{
		"weather": {
			Providers:      []config.ProviderConfig{{Name: "openweather", BaseURL: broken.URL}},
			CostPerCallUSD: 0.001,
		},
	})

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/proxy/weather/x", nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/status/providers", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}

	var payload struct {
		Providers []struct {
			Connector           string `json:"connector"`
			Provider            string `json:"provider"`
			CircuitState        string `json:"circuit_state"`
			ConsecutiveFailures int    `json:"consecutive_failures"`
		} `json:"providers"`
		BudgetUSD map[string]float64 `json:"budget_spent_usd"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if len(payload.Providers) != 1 {
		t.Fatalf("providers = %v", payload.Providers)
	}
	p := payload.Providers[0]
	if p.Connector != "weather" || p.Provider != "openweather" || p.ConsecutiveFailures != 1 {
		t.Errorf("provider status = %+v", p)
	}
	if payload.BudgetUSD["weather"] != 0.001 {
		t.Errorf("budget spend = %v", payload.BudgetUSD)
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	handler := newTestServer(t, map[string]config.ConnectorConfig{
		"weather": {BaseURL: "http://127.0.0.1:0"},
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Errorf("metrics scrape status = %d", rec.Code)
	}
}
