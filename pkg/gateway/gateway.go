// Package gateway implements the request pipeline of the proxy.
//
// A request passes through policy lookup, path validation, rate limiting,
// the response cache, the budget guard, and finally the provider failover
// loop. Each upstream attempt reports its outcome to the health tracker so
// provider ordering adapts to observed latency and failures. Successful
// responses are transformed, checked against the expected schema, charged
// against the budget, and cached.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/lukaslondono77/ApiBridgePro/pkg/budget"
	"github.com/lukaslondono77/ApiBridgePro/pkg/cache"
	"github.com/lukaslondono77/ApiBridgePro/pkg/credentials"
	"github.com/lukaslondono77/ApiBridgePro/pkg/health"
	"github.com/lukaslondono77/ApiBridgePro/pkg/policy"
	"github.com/lukaslondono77/ApiBridgePro/pkg/ratelimit"
	"github.com/lukaslondono77/ApiBridgePro/pkg/transform"
)

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 10 << 20

// hopByHopHeaders are connection-level headers never forwarded in either
// direction. Accept-Encoding is also stripped so the transport negotiates
// compression itself and hands the pipeline an uncompressed body.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Host":                true,
	"Content-Length":      true,
	"Accept-Encoding":     true,
}

// Request is one inbound proxy request after routing.
type Request struct {
	Connector string
	Method    string
	Path      string
	Query     url.Values
	Header    http.Header
	Body      []byte
}

// Response is the pipeline outcome delivered back to the HTTP layer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Provider is the provider that served the request, empty on a cache
	// hit.
	Provider string

	// LatencyMs is the serving attempt's upstream latency.
	LatencyMs int64

	// CacheHit reports whether the response came from the cache.
	CacheHit bool

	// DriftMsg describes a schema violation, empty when the response
	// conforms or no schema is configured.
	DriftMsg string
}

// Options wires a Gateway's collaborators.
type Options struct {
	Policies map[string]*policy.Connector
	Limiter  *ratelimit.Limiter
	Cache    *cache.Cache
	Tracker  *health.Tracker
	Guard    *budget.Guard
	Resolver credentials.Resolver

	// Client is the upstream HTTP client. Attempt timeouts come from
	// per-connector policy, so the client itself carries no timeout.
	Client *http.Client

	Sink   EventSink
	Logger *slog.Logger

	// ChargeFailedAttempts controls whether failed upstream attempts
	// count against the budget.
	ChargeFailedAttempts bool
}

// Gateway executes the proxy pipeline. Policies are swapped atomically on
// configuration reload; in-flight requests keep the table they started with.
type Gateway struct {
	policies atomic.Pointer[map[string]*policy.Connector]

	limiter  *ratelimit.Limiter
	cache    *cache.Cache
	tracker  *health.Tracker
	guard    *budget.Guard
	resolver credentials.Resolver
	client   *http.Client
	sink     EventSink
	logger   *slog.Logger

	chargeFailedAttempts bool

	// now is the clock source, overridable in tests.
	now func() time.Time
}

// New creates a Gateway from its options. Nil Sink and Logger default to
// no-ops.
func New(opts Options) *Gateway {
	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}

	g := &Gateway{
		limiter:              opts.Limiter,
		cache:                opts.Cache,
		tracker:              opts.Tracker,
		guard:                opts.Guard,
		resolver:             opts.Resolver,
		client:               opts.Client,
		sink:                 opts.Sink,
		logger:               opts.Logger,
		chargeFailedAttempts: opts.ChargeFailedAttempts,
		now:                  time.Now,
	}
	g.policies.Store(&opts.Policies)
	return g
}

// ReplacePolicies swaps the policy table after a configuration reload.
// Cached responses and rate limiter state are discarded since the new
// policies may have changed TTLs and bucket sizes.
func (g *Gateway) ReplacePolicies(policies map[string]*policy.Connector) {
	g.policies.Store(&policies)
	g.cache.Clear()
	g.limiter.ResetAll()
}

// Connector returns the compiled policy for a connector name.
func (g *Gateway) Connector(name string) (*policy.Connector, bool) {
	conn, ok := (*g.policies.Load())[name]
	return conn, ok
}

// Handle runs the full pipeline for one request. The returned error, if
// non-nil, is one of the typed errors in this package.
func (g *Gateway) Handle(ctx context.Context, req *Request) (*Response, error) {
	start := g.now()

	conn, ok := g.Connector(req.Connector)
	if !ok {
		return nil, &PolicyNotFoundError{Connector: req.Connector}
	}

	if !conn.PathAllowed(req.Path) {
		return nil, &PathForbiddenError{Connector: conn.Name, Path: req.Path}
	}
	path := policy.NormalizePath(req.Path)

	if !g.limiter.Allow(conn.Name, conn.RateCapacity, conn.RateRefillPerSec) {
		g.sink.RateLimited(conn.Name)
		return nil, &RateLimitedError{Connector: conn.Name}
	}

	cacheable := req.Method == http.MethodGet && conn.CacheTTL > 0
	var cacheKey string
	if cacheable {
		cacheKey = cache.Key(conn.Name, req.Method, path, req.Query)
		if entry, ok := g.cache.Get(cacheKey); ok {
			g.sink.CacheHit(conn.Name)
			g.sink.RequestCompleted(conn.Name, entry.StatusCode, g.now().Sub(start))
			return &Response{
				StatusCode: entry.StatusCode,
				Header:     entry.Header.Clone(),
				Body:       entry.Body,
				CacheHit:   true,
			}, nil
		}
		g.sink.CacheMiss(conn.Name)
	}

	providers := conn.Providers
	if conn.Budget != nil {
		exceeded, err := g.guard.Exceeded(ctx, conn.Name, conn.Budget.MonthlyUSDMax, conn.CostPerCallUSD)
		if err != nil {
			g.logger.Error("budget check failed", "connector", conn.Name, "error", err)
		}
		if exceeded {
			switch conn.Budget.OnExceed {
			case policy.Block:
				g.sink.BudgetExhausted(conn.Name, "block")
				return nil, &BudgetExceededError{Connector: conn.Name, MaxUSD: conn.Budget.MonthlyUSDMax}
			case policy.DowngradeProvider:
				g.sink.BudgetExhausted(conn.Name, "downgrade_provider")
				providers = cheapestProvider(providers)
			}
		}
	}

	resp, err := g.attemptProviders(ctx, conn, providers, req, path)
	if err != nil {
		status := errorStatus(err)
		g.sink.RequestCompleted(conn.Name, status, g.now().Sub(start))
		return nil, err
	}

	if cacheable && resp.StatusCode < 300 {
		g.cache.Put(cacheKey, resp.StatusCode, resp.Header, resp.Body, conn.CacheTTL)
	}

	g.sink.RequestCompleted(conn.Name, resp.StatusCode, g.now().Sub(start))
	return resp, nil
}

// attemptProviders runs the failover loop over the ordered provider list.
func (g *Gateway) attemptProviders(ctx context.Context, conn *policy.Connector, providers []policy.Provider, req *Request, path string) (*Response, error) {
	order := g.tracker.SelectOrder(conn.Name, providers)

	maxAttempts := conn.Retries + 1
	if maxAttempts > len(order) {
		maxAttempts = len(order)
	}

	var attempts []AttemptError
	for i := 0; i < maxAttempts; i++ {
		p := order[i]

		resp, errKind, latency := g.attempt(ctx, conn, p, req, path)
		if errKind == "" {
			return g.finish(conn, p, resp, latency), nil
		}

		if errKind == kindUpstream4xx {
			// The request itself is at fault. No other provider would
			// accept it, so fail now with the upstream status.
			return nil, &UpstreamClientError{
				Connector:  conn.Name,
				Provider:   p.Name,
				StatusCode: resp.StatusCode,
			}
		}

		g.logger.Warn("provider attempt failed",
			"connector", conn.Name,
			"provider", p.Name,
			"kind", errKind,
			"latency_ms", latency.Milliseconds())
		attempts = append(attempts, AttemptError{Provider: p.Name, Kind: errKind})
	}

	return nil, &AllProvidersExhaustedError{Connector: conn.Name, Attempts: attempts}
}

// Attempt outcome kinds.
const (
	kindTimeout     = "timeout"
	kindNetwork     = "network"
	kindUpstream5xx = "upstream_5xx"
	kindUpstream4xx = "upstream_4xx"
	kindCredentials = "credentials"
)

// attempt executes one upstream call. An empty errKind means success; on
// kindUpstream4xx the response carries the upstream status code.
func (g *Gateway) attempt(ctx context.Context, conn *policy.Connector, p policy.Provider, req *Request, path string) (resp *Response, errKind string, latency time.Duration) {
	var cred credentials.Credential
	if p.Auth != nil {
		var err error
		cred, err = g.resolver.Resolve(ctx, p.Auth)
		if err != nil {
			g.logger.Error("credential resolution failed",
				"connector", conn.Name, "provider", p.Name, "error", err)
			// The attempt never reached the provider: no latency sample,
			// no circuit failure, no charge.
			g.tracker.RecordFailure(conn.Name, p.Name, -1, false)
			return nil, kindCredentials, 0
		}
	}

	outReq, err := g.buildRequest(ctx, conn, p, req, path, cred)
	if err != nil {
		g.tracker.RecordFailure(conn.Name, p.Name, -1, false)
		return nil, kindNetwork, 0
	}

	attemptCtx, cancel := context.WithTimeout(ctx, conn.Timeout)
	defer cancel()

	start := g.now()
	httpResp, err := g.client.Do(outReq.WithContext(attemptCtx))
	latency = g.now().Sub(start)

	if err != nil {
		kind := kindNetwork
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			kind = kindTimeout
		}
		g.tracker.RecordFailure(conn.Name, p.Name, float64(latency.Milliseconds()), true)
		g.chargeAttempt(ctx, conn, false)
		g.sink.UpstreamAttempt(conn.Name, p.Name, kind, latency)
		return nil, kind, latency
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		g.tracker.RecordFailure(conn.Name, p.Name, float64(latency.Milliseconds()), true)
		g.chargeAttempt(ctx, conn, false)
		g.sink.UpstreamAttempt(conn.Name, p.Name, kindNetwork, latency)
		return nil, kindNetwork, latency
	}

	resp = &Response{
		StatusCode: httpResp.StatusCode,
		Header:     filterResponseHeaders(httpResp.Header, conn.PassthroughHeaders),
		Body:       body,
		Provider:   p.Name,
		LatencyMs:  latency.Milliseconds(),
	}

	switch {
	case httpResp.StatusCode >= 500:
		g.tracker.RecordFailure(conn.Name, p.Name, float64(latency.Milliseconds()), true)
		g.chargeAttempt(ctx, conn, false)
		g.sink.UpstreamAttempt(conn.Name, p.Name, kindUpstream5xx, latency)
		return resp, kindUpstream5xx, latency

	case httpResp.StatusCode >= 400:
		// The provider answered, so its latency counts, but a client
		// error says nothing about provider health.
		g.tracker.RecordFailure(conn.Name, p.Name, float64(latency.Milliseconds()), false)
		g.chargeAttempt(ctx, conn, false)
		g.sink.UpstreamAttempt(conn.Name, p.Name, kindUpstream4xx, latency)
		return resp, kindUpstream4xx, latency

	default:
		g.tracker.RecordSuccess(conn.Name, p.Name, float64(latency.Milliseconds()))
		g.chargeAttempt(ctx, conn, true)
		g.sink.UpstreamAttempt(conn.Name, p.Name, "success", latency)
		return resp, "", latency
	}
}

// finish applies the response transform and schema check to a successful
// attempt. The schema describes the body the caller receives, so validation
// runs on the transformed bytes.
func (g *Gateway) finish(conn *policy.Connector, p policy.Provider, resp *Response, latency time.Duration) *Response {
	if conn.Transform != nil {
		meta := transform.Meta{
			Provider:  p.Name,
			Status:    resp.StatusCode,
			LatencyMs: latency.Milliseconds(),
		}
		resp.Body = transform.Apply(conn.Transform, resp.Body, meta)
		resp.Header.Set("Content-Type", "application/json")
	}

	if conn.Schema != nil {
		if msg := conn.Schema.Validate(resp.Body); msg != "" {
			resp.DriftMsg = msg
			g.sink.DriftDetected(conn.Name, p.Name)
			g.logger.Warn("schema drift detected",
				"connector", conn.Name, "provider", p.Name, "drift", msg)
		}
	}

	return resp
}

// buildRequest assembles the outbound upstream request.
func (g *Gateway) buildRequest(ctx context.Context, conn *policy.Connector, p policy.Provider, req *Request, path string, cred credentials.Credential) (*http.Request, error) {
	query := url.Values{}
	for k, vs := range req.Query {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	for k, v := range conn.StaticParams {
		query.Set(k, v)
	}
	if cred.Placement == credentials.PlaceQuery {
		query.Set(cred.Name, cred.Value)
	}

	target := p.BaseURL + path
	if encoded := query.Encode(); encoded != "" {
		target += "?" + encoded
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	outReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}

	for k, vs := range req.Header {
		if hopByHopHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		for _, v := range vs {
			outReq.Header.Add(k, v)
		}
	}
	for k, v := range conn.StaticHeaders {
		outReq.Header.Set(k, v)
	}
	if cred.Placement == credentials.PlaceHeader && cred.Name != "" {
		outReq.Header.Set(cred.Name, cred.Value)
	}

	return outReq, nil
}

// chargeAttempt records the connector's per-call cost for an attempt that
// reached the network.
func (g *Gateway) chargeAttempt(ctx context.Context, conn *policy.Connector, success bool) {
	if conn.CostPerCallUSD <= 0 {
		return
	}
	if !success && !g.chargeFailedAttempts {
		return
	}
	if err := g.guard.Record(ctx, conn.Name, conn.CostPerCallUSD); err != nil {
		g.logger.Error("budget record failed", "connector", conn.Name, "error", err)
		return
	}
	g.sink.BudgetSpend(conn.Name, conn.CostPerCallUSD)
}

// cheapestProvider returns the single highest-weight provider, the
// designated low-cost fallback for budget downgrades.
func cheapestProvider(providers []policy.Provider) []policy.Provider {
	if len(providers) == 0 {
		return providers
	}
	best := providers[0]
	for _, p := range providers[1:] {
		if p.Weight > best.Weight {
			best = p
		}
	}
	return []policy.Provider{best}
}

// filterResponseHeaders keeps only the connector's passthrough headers.
func filterResponseHeaders(upstream http.Header, passthrough []string) http.Header {
	out := http.Header{}
	for _, name := range passthrough {
		canonical := http.CanonicalHeaderKey(name)
		for _, v := range upstream.Values(canonical) {
			out.Add(canonical, v)
		}
	}
	return out
}

// errorStatus maps a pipeline error to the HTTP status reported in metrics.
func errorStatus(err error) int {
	var (
		notFound  *PolicyNotFoundError
		forbidden *PathForbiddenError
		limited   *RateLimitedError
		budgetErr *BudgetExceededError
		clientErr *UpstreamClientError
		exhausted *AllProvidersExhaustedError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &limited):
		return http.StatusTooManyRequests
	case errors.As(err, &budgetErr):
		return http.StatusPaymentRequired
	case errors.As(err, &clientErr):
		return clientErr.StatusCode
	case errors.As(err, &exhausted):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
