package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/symcached/symcached/internal/config"
	"github.com/symcached/symcached/internal/httpapi"
	"github.com/symcached/symcached/internal/logger"
	"github.com/symcached/symcached/internal/metrics"
	"github.com/symcached/symcached/internal/sweep"
	"github.com/symcached/symcached/internal/telemetry"
	"github.com/symcached/symcached/pkg/cache"
	"github.com/symcached/symcached/pkg/queue"
	"github.com/symcached/symcached/pkg/symbolclient"
	"github.com/symcached/symcached/pkg/symver"
	"github.com/symcached/symcached/pkg/transcoder"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the symcache-server transcoding proxy",
	Long: `Start the symcache-server transcoding cache proxy.

Use --config to point at a YAML configuration file, or rely on
SYMCACHED_-prefixed environment variables and compiled-in defaults.

Examples:
  # Start with a config file
  symcache-server serve --config /etc/symcached/symcached.yaml

  # Start with environment variable overrides
  SYMCACHED_LOGGING_LEVEL=DEBUG symcache-server serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	if err := initLogger(cfg); err != nil {
		return err
	}
	logger.Info("configuration loaded", "source", configSource(GetConfigFile()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.ProfilingEnabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.ProfilingURL,
	})
	if err != nil {
		return fmt.Errorf("initializing profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
	}
	m := metrics.New(reg)

	minVersion, err := symver.Parse(cfg.Server.MinFormatVersion)
	if err != nil {
		return fmt.Errorf("parsing server.min_format_version: %w", err)
	}
	asyncThreshold, err := symver.Parse(cfg.Server.AsyncThreshold)
	if err != nil {
		return fmt.Errorf("parsing server.async_threshold: %w", err)
	}
	transcoderVersion, err := symver.Parse(cfg.Transcoder.Version)
	if err != nil {
		return fmt.Errorf("parsing transcoder.version: %w", err)
	}

	if _, err := os.Stat(cfg.Cache.Root); err != nil {
		return fmt.Errorf("cache.root %q must exist at startup: %w", cfg.Cache.Root, err)
	}
	if _, err := os.Stat(cfg.Transcoder.Path); err != nil {
		return fmt.Errorf("transcoder.path %q must exist at startup: %w", cfg.Transcoder.Path, err)
	}

	repo := cache.New(cfg.Cache.Root)

	symbolClient, err := symbolclient.New(cfg.SymbolServer.BaseURL,
		symbolclient.WithRateLimit(cfg.SymbolServer.RateLimitPerSecond, cfg.SymbolServer.RateLimitBurst))
	if err != nil {
		return fmt.Errorf("constructing symbol-server client: %w", err)
	}

	orch := transcoder.New(repo, symbolClient, cfg.Transcoder.Path, m)

	q := queue.New(orch, queue.WithWorkerCount(cfg.Queue.WorkerCount), queue.WithMetrics(m))
	if err := q.Start(); err != nil {
		return fmt.Errorf("starting background queue: %w", err)
	}
	defer q.Stop()

	var sweeper *sweep.Sweeper
	if cfg.Sweep.Enabled {
		sweeper = sweep.New(cfg.Cache.Root, cfg.Sweep.MaxAge, m)
		if err := sweeper.Start(cfg.Sweep.CronSchedule); err != nil {
			return fmt.Errorf("starting sweeper: %w", err)
		}
		defer sweeper.Stop()
		logger.Info("orphan-staging sweeper enabled", "schedule", cfg.Sweep.CronSchedule, "max_age", cfg.Sweep.MaxAge)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Cache:                repo,
		Orchestrator:         orch,
		Queue:                q,
		Metrics:              m,
		MinFormatVersion:     minVersion,
		AsyncThreshold:       asyncThreshold,
		TranscoderVersion:    transcoderVersion,
		RequestTimeout:       cfg.Server.RequestTimeout,
		TranscoderBinaryPath: cfg.Transcoder.Path,
		Auth: httpapi.AuthConfig{
			Enabled: cfg.Auth.Enabled,
			Secret:  cfg.Auth.Secret,
			Issuer:  cfg.Auth.Issuer,
		},
	})

	artifactServer := &http.Server{
		Addr:    cfg.Server.ListenAddress,
		Handler: router,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = &http.Server{
			Addr:    cfg.Metrics.ListenAddress,
			Handler: httpapi.NewMetricsRouter(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		}
	}

	serverErrs := make(chan error, 2)
	go func() {
		logger.Info("artifact listener starting", "address", cfg.Server.ListenAddress)
		if err := artifactServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrs <- fmt.Errorf("artifact listener: %w", err)
		}
	}()
	if metricsServer != nil {
		go func() {
			logger.Info("metrics listener starting", "address", cfg.Metrics.ListenAddress)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrs <- fmt.Errorf("metrics listener: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("symcache-server is running. Press Ctrl+C to stop.")

	select {
	case sig := <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown", "signal", sig.String())
	case err := <-serverErrs:
		signal.Stop(sigChan)
		logger.Error("server error, initiating shutdown", "error", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := artifactServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("artifact listener shutdown error", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics listener shutdown error", "error", err)
		}
	}

	logger.Info("symcache-server stopped")
	return nil
}
