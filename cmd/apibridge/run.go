package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/lukaslondono77/ApiBridgePro/pkg/budget"
	"github.com/lukaslondono77/ApiBridgePro/pkg/cache"
	"github.com/lukaslondono77/ApiBridgePro/pkg/config"
	"github.com/lukaslondono77/ApiBridgePro/pkg/credentials"
	"github.com/lukaslondono77/ApiBridgePro/pkg/gateway"
	"github.com/lukaslondono77/ApiBridgePro/pkg/health"
	"github.com/lukaslondono77/ApiBridgePro/pkg/maintenance"
	"github.com/lukaslondono77/ApiBridgePro/pkg/policy"
	"github.com/lukaslondono77/ApiBridgePro/pkg/ratelimit"
	"github.com/lukaslondono77/ApiBridgePro/pkg/server"
	"github.com/lukaslondono77/ApiBridgePro/pkg/telemetry/logging"
	"github.com/lukaslondono77/ApiBridgePro/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway",
	Long: `Start the gateway with the specified configuration.

The server proxies requests under /proxy/{connector}/... to the connector's
upstream providers and exposes /healthz, /status/providers, and the metrics
endpoint. The configuration file is watched and reloaded on change.

Examples:
  # Start with the default config
  apibridge run

  # Start with a custom config
  apibridge run --config /etc/apibridge/config.yaml

  # Override the listen address
  apibridge run --listen 0.0.0.0:9000

  # Validate config without starting
  apibridge run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.listenAddress != "" {
		cfg.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger := logging.New(cfg.Telemetry.Logging)
	slog.SetDefault(logger)

	policies, err := policy.Compile(cfg)
	if err != nil {
		return fmt.Errorf("failed to compile policies: %w", err)
	}

	if runFlags.dryRun {
		fmt.Printf("Configuration valid: %d connector(s)\n", len(policies))
		return nil
	}

	store, err := newBudgetStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	guard := budget.NewGuard(store)

	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
	tracker := health.NewTracker(collector.CircuitTransition)
	responseCache := cache.New(cfg.Cache.MaxEntries)

	gw := gateway.New(gateway.Options{
		Policies:             policies,
		Limiter:              ratelimit.NewLimiter(),
		Cache:                responseCache,
		Tracker:              tracker,
		Guard:                guard,
		Resolver:             credentials.NewResolver(0),
		Client:               &http.Client{},
		Sink:                 collector,
		Logger:               logger,
		ChargeFailedAttempts: cfg.Billing.ChargeFailed(),
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	watcher, err := config.NewWatcher(cfgFile, func(newCfg *config.Config) {
		newPolicies, err := policy.Compile(newCfg)
		if err != nil {
			logger.Error("config reload rejected", "error", err)
			return
		}
		gw.ReplacePolicies(newPolicies)
		logger.Info("configuration reloaded", "connectors", len(newPolicies))
	})
	if err != nil {
		logger.Warn("config watching unavailable", "error", err)
	} else {
		watcher.Start()
		defer watcher.Stop()
	}

	janitor := maintenance.NewJanitor(responseCache, guard, logger)
	if err := janitor.Start(ctx, cfg.Maintenance.SweepSchedule); err != nil {
		return err
	}
	defer janitor.Stop()

	srv := server.New(server.Options{
		Config:    cfg,
		Gateway:   gw,
		Tracker:   tracker,
		Guard:     guard,
		Collector: collector,
		Logger:    logger,
	})
	return srv.Start(ctx)
}

// newBudgetStore creates the configured budget backend.
func newBudgetStore(cfg *config.Config) (budget.Store, error) {
	switch cfg.BudgetStore.Backend {
	case "sqlite":
		store, err := budget.NewSQLiteStore(cfg.BudgetStore.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open budget store: %w", err)
		}
		return store, nil
	default:
		return budget.NewMemoryStore(), nil
	}
}
