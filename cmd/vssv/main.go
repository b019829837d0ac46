// Package main provides the entry point for the vssv secret vault server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sipico/vssv/internal/api"
	"github.com/sipico/vssv/internal/config"
	"github.com/sipico/vssv/internal/logging"
	"github.com/sipico/vssv/internal/metrics"
	"github.com/sipico/vssv/internal/storage"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// components holds the wired application.
type components struct {
	logger         *slog.Logger
	logLevel       *slog.LevelVar
	store          *storage.SQLStorage
	registry       *prometheus.Registry
	mainRouter     http.Handler
	metricsHandler http.Handler
}

// initializeComponents builds the logger, storage, metrics and routers from cfg.
func initializeComponents(cfg *config.Config) (*components, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logLevel := new(slog.LevelVar)
	logLevel.Set(level)

	logger, err := logging.NewLogger(os.Stderr, cfg.LogFormat, logLevel)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Init(registry, version); err != nil {
		return nil, fmt.Errorf("metrics initialization failed: %w", err)
	}

	store, err := storage.New(storage.Driver(cfg.DatabaseDriver), cfg.DatabaseURL, cfg.DBMaxConnections)
	if err != nil {
		return nil, fmt.Errorf("storage initialization failed: %w", err)
	}

	handler := api.NewHandler(store, api.Options{
		TrustRealIP:   cfg.UseXRealIP,
		MaxSecretSize: cfg.MaxSecretSize,
		Version:       api.NewVersionInfo(version),
	}, logger)

	return &components{
		logger:         logger,
		logLevel:       logLevel,
		store:          store,
		registry:       registry,
		mainRouter:     api.NewRouter(handler, logger),
		metricsHandler: metrics.Handler(registry),
	}, nil
}

// createServer creates the API HTTP server.
func createServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Listen,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// createMetricsServer creates the listener serving /metrics, or nil when
// metrics are disabled.
func createMetricsServer(cfg *config.Config, handler http.Handler) *http.Server {
	if cfg.MetricsListen == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	return &http.Server{
		Addr:              cfg.MetricsListen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// run loads the configuration and serves until ctx is cancelled, then shuts
// the servers down gracefully.
func run(ctx context.Context, opts config.LoadOptions) error {
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}

	c, err := initializeComponents(cfg)
	if err != nil {
		return err
	}
	defer c.store.Close() //nolint:errcheck

	if opts.File != "" {
		w, err := config.NewWatcher(opts, c.logLevel, c.logger)
		if err != nil {
			c.logger.Warn("config file will not be watched", "error", err)
		} else {
			go func() {
				if err := w.Run(ctx); err != nil {
					c.logger.Warn("config watcher stopped", "error", err)
				}
			}()
		}
	}

	servers := []*http.Server{createServer(cfg, c.mainRouter)}
	if ms := createMetricsServer(cfg, c.metricsHandler); ms != nil {
		servers = append(servers, ms)
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			shutdown(servers, cfg.ShutdownTimeout, c.logger)
			return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
		}
		c.logger.Info("listening", "addr", ln.Addr().String())
		go func(srv *http.Server, ln net.Listener) {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(srv, ln)
	}

	c.logger.Info("vssv started",
		"version", version,
		"driver", cfg.DatabaseDriver,
		"use_x_real_ip", cfg.UseXRealIP,
	)

	var serveErr error
	select {
	case <-ctx.Done():
		c.logger.Info("shutting down")
	case serveErr = <-errCh:
		c.logger.Error("server failed", "error", serveErr)
	}

	shutdown(servers, cfg.ShutdownTimeout, c.logger)
	return serveErr
}

func shutdown(servers []*http.Server, timeout time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown failed", "addr", srv.Addr, "error", err)
		}
	}
}

// migrate applies the schema and exits.
func migrate(opts config.LoadOptions) error {
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}

	store, err := storage.New(storage.Driver(cfg.DatabaseDriver), cfg.DatabaseURL, 1)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	return store.Close()
}
