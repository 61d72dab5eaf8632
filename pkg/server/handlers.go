package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lukaslondono77/ApiBridgePro/pkg/gateway"
	"github.com/lukaslondono77/ApiBridgePro/pkg/health"
)

// maxRequestBytes caps inbound request bodies.
const maxRequestBytes = 10 << 20

// driftHeaderLimit caps the drift detail header so a verbose schema report
// cannot blow up the response head.
const driftHeaderLimit = 180

// Observability headers attached to proxied responses.
const (
	headerProvider = "X-ApiBridge-Provider"
	headerLatency  = "X-ApiBridge-Latency-Ms"
	headerCache    = "X-ApiBridge-Cache"
	headerDrift    = "X-ApiBridge-Drift"
	headerDriftMsg = "X-ApiBridge-Drift-Msg"
)

// handleProxy is the main proxy endpoint: /proxy/{connector}/{path}.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	req := &gateway.Request{
		Connector: vars["connector"],
		Method:    r.Method,
		Path:      "/" + vars["path"],
		Query:     r.URL.Query(),
		Header:    r.Header,
		Body:      body,
	}

	resp, err := s.gateway.Handle(r.Context(), req)
	if err != nil {
		s.writeGatewayError(w, err)
		return
	}

	header := w.Header()
	for k, vs := range resp.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}

	if resp.CacheHit {
		header.Set(headerCache, "hit")
	} else {
		header.Set(headerCache, "miss")
		header.Set(headerProvider, resp.Provider)
		header.Set(headerLatency, strconv.FormatInt(resp.LatencyMs, 10))
	}
	if resp.DriftMsg != "" {
		header.Set(headerDrift, "true")
		header.Set(headerDriftMsg, truncate(resp.DriftMsg, driftHeaderLimit))
	}

	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

// writeGatewayError maps pipeline errors to HTTP statuses and a JSON error
// envelope. Upstream 4xx bodies are never passed through; callers get the
// status and a summary only.
func (s *Server) writeGatewayError(w http.ResponseWriter, err error) {
	var (
		notFound  *gateway.PolicyNotFoundError
		forbidden *gateway.PathForbiddenError
		limited   *gateway.RateLimitedError
		budgetErr *gateway.BudgetExceededError
		clientErr *gateway.UpstreamClientError
		exhausted *gateway.AllProvidersExhaustedError
	)

	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &forbidden):
		writeError(w, http.StatusForbidden, forbidden.Error())
	case errors.As(err, &limited):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, limited.Error())
	case errors.As(err, &budgetErr):
		writeError(w, http.StatusPaymentRequired, budgetErr.Error())
	case errors.As(err, &clientErr):
		w.Header().Set(headerProvider, clientErr.Provider)
		writeError(w, clientErr.StatusCode, clientErr.Error())
	case errors.As(err, &exhausted):
		writeError(w, http.StatusBadGateway, exhausted.Error())
	default:
		s.logger.Error("unexpected gateway error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// providerStatusResponse is the /status/providers payload.
type providerStatusResponse struct {
	Providers []health.ProviderStatus `json:"providers"`
	BudgetUSD map[string]float64      `json:"budget_spent_usd"`
}

// handleProviderStatus exposes circuit state, latency estimates, and current
// month spend for every tracked provider.
func (s *Server) handleProviderStatus(w http.ResponseWriter, r *http.Request) {
	statuses := s.tracker.Snapshot()

	spend := make(map[string]float64)
	for _, status := range statuses {
		if _, ok := spend[status.Connector]; ok {
			continue
		}
		usd, err := s.guard.Spent(r.Context(), status.Connector)
		if err != nil {
			s.logger.Error("budget lookup failed", "connector", status.Connector, "error", err)
			continue
		}
		spend[status.Connector] = usd
	}

	writeJSON(w, http.StatusOK, providerStatusResponse{
		Providers: statuses,
		BudgetUSD: spend,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error":  msg,
		"status": status,
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
