// Package server provides the HTTP front of the proxy: routing, CORS, the
// middleware chain, and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lukaslondono77/ApiBridgePro/pkg/budget"
	"github.com/lukaslondono77/ApiBridgePro/pkg/config"
	"github.com/lukaslondono77/ApiBridgePro/pkg/gateway"
	"github.com/lukaslondono77/ApiBridgePro/pkg/health"
	"github.com/lukaslondono77/ApiBridgePro/pkg/telemetry/metrics"
)

// shutdownTimeout bounds how long in-flight requests may drain.
const shutdownTimeout = 15 * time.Second

// Options wires the server's collaborators.
type Options struct {
	Config    *config.Config
	Gateway   *gateway.Gateway
	Tracker   *health.Tracker
	Guard     *budget.Guard
	Collector *metrics.Collector
	Logger    *slog.Logger
}

// Server is the HTTP server hosting the proxy and its operational endpoints.
type Server struct {
	cfg       *config.Config
	gateway   *gateway.Gateway
	tracker   *health.Tracker
	guard     *budget.Guard
	collector *metrics.Collector
	logger    *slog.Logger

	httpServer   *http.Server
	shutdownOnce sync.Once
}

// New creates a server. All options except Collector are required.
func New(opts Options) *Server {
	return &Server{
		cfg:       opts.Config,
		gateway:   opts.Gateway,
		tracker:   opts.Tracker,
		guard:     opts.Guard,
		collector: opts.Collector,
		logger:    opts.Logger,
	}
}

// Start runs the server and blocks until the context is cancelled, a
// shutdown signal arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", s.cfg.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			err = s.httpServer.Shutdown(shutdownCtx)
		}
		s.logger.Info("server stopped")
	})
	return err
}
