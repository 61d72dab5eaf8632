package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/lukaslondono77/ApiBridgePro/pkg/server/middleware"
)

// routes builds the router and middleware chain.
func (s *Server) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/status/providers", s.handleProviderStatus).Methods(http.MethodGet)

	if s.collector != nil && s.cfg.Telemetry.Metrics.Enabled {
		path := s.cfg.Telemetry.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, s.collector.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/proxy/{connector}/{path:.*}", s.handleProxy)

	allowedOrigins := s.cfg.CORS.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
	})

	var handler http.Handler = c.Handler(r)
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(s.logger)(handler)
	return handler
}
