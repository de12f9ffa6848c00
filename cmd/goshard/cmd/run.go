package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/goshard/internal/bootstrap"
	"github.com/dbsmedya/goshard/internal/database"
	"github.com/dbsmedya/goshard/internal/diagnostics"
	"github.com/dbsmedya/goshard/internal/discovery"
	"github.com/dbsmedya/goshard/internal/handle"
	"github.com/dbsmedya/goshard/internal/logger"
	"github.com/dbsmedya/goshard/internal/metrics"
	"github.com/dbsmedya/goshard/internal/sharding"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect all data sources and run until interrupted",
	Long: `Run initializes the sharding configuration from the config file, connects
every data source and starts the background services:

  - Command diagnostics for all data sources
  - Database context leak monitoring
  - Prometheus metrics endpoint (when metrics_addr is set)

The process runs until it receives SIGINT or SIGTERM.

Example:
  goshard run --config goshard.yaml --metrics-addr :9090`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	gate := sharding.NewGate()
	if err := sharding.InitFromConfig(gate, cfg); err != nil {
		return err
	}
	provider, err := gate.Provider()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mt := metrics.NewProm(reg, "goshard")

	ctx, cancel := database.SetupSignalHandler(cmd.Context(), func(sig os.Signal) {
		log.Infof("Received %s, shutting down", sig)
	})
	defer cancel()

	bus := diagnostics.NewBus(diagnostics.WithBusLogger(log))
	registry := handle.NewRegistry()

	dbManager := database.NewManager(provider, bus, registry, log)
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to databases: %w", err)
	}
	defer dbManager.Close()

	cache := discovery.NewCache(
		discovery.NewDirSource(resolveBaseDir(cfg.Sharding.BaseDir)),
		discovery.Filter{AllowList: gate.AssemblyNames},
		log,
		discovery.WithMetrics(mt),
	)

	if cfg.Sharding.MetricsAddr != "" {
		srv := serveMetrics(cfg.Sharding.MetricsAddr, reg, log)
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	b := bootstrap.New(bootstrap.Services{
		Config:    cfg,
		Gate:      gate,
		Bus:       bus,
		Registry:  registry,
		Discovery: cache,
		Database:  dbManager,
		Logger:    log,
		Metrics:   mt,
	})

	log.Infof("Running with %d data source(s)", len(dbManager.Names()))
	return b.Run(ctx)
}

func serveMetrics(addr string, reg *prometheus.Registry, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infof("Metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server failed: %v", err)
		}
	}()
	return srv
}

func resolveBaseDir(dir string) string {
	if dir == "" {
		return discovery.DefaultBaseDir()
	}
	return dir
}
