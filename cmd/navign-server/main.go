// Navign server daemon -- hosts the C6 challenge issuer over HTTP (spec
// §4.5, §6) and exposes Prometheus metrics.
package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/indoor-mall-nav/navign-sub000/internal/config"
	"github.com/indoor-mall-nav/navign-sub000/internal/httpapi"
	navignmetrics "github.com/indoor-mall-nav/navign-sub000/internal/metrics"
	"github.com/indoor-mall-nav/navign-sub000/internal/pathfind"
	"github.com/indoor-mall-nav/navign-sub000/internal/router"
	"github.com/indoor-mall-nav/navign-sub000/internal/unlocker"
	appversion "github.com/indoor-mall-nav/navign-sub000/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()))
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("navign-server starting",
		slog.String("version", appversion.Version),
		slog.String("http_addr", cfg.HTTP.Addr),
		slog.String("metrics_addr", cfg.Metrics.Addr),
	)

	reg := prometheus.NewRegistry()
	collector := navignmetrics.NewCollector(reg)

	serverKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		logger.Error("failed to generate server signing key", slog.String("error", err.Error()))
		return 1
	}

	service := unlocker.NewService(
		unlocker.NewMemBeaconSecretStore(),
		unlocker.NewMemInstanceStore(),
		unlocker.NewMemUserKeyStore(),
		serverKey,
		logger,
		unlocker.WithServiceMetrics(collector),
	)

	// Floorplan authoring is out of scope (spec §1): the router/pathfind
	// registries are wired live here but populated by an out-of-band
	// loading step, the same posture unlocker's stores take for beacon
	// secrets and user keys.
	routers := router.NewRegistry()
	pathfinder := pathfind.NewRegistry()

	if err := runServers(cfg, service, routers, pathfinder, collector, reg, logger, *configPath, logLevel); err != nil {
		logger.Error("navign-server exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("navign-server stopped")
	return 0
}

func runServers(
	cfg *config.Config,
	service *unlocker.Service,
	routers *router.Registry,
	pathfinder *pathfind.Registry,
	collector *navignmetrics.Collector,
	reg *prometheus.Registry,
	logger *slog.Logger,
	configPath string,
	logLevel *slog.LevelVar,
) error {
	httpSrv := newAPIServer(cfg, service, routers, pathfinder, collector, logger)
	metricsSrv := newMetricsServer(cfg.Metrics, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	lc := net.ListenConfig{}

	g.Go(func() error {
		logger.Info("HTTP API listening", slog.String("addr", cfg.HTTP.Addr))
		return listenAndServe(gCtx, &lc, httpSrv, cfg.HTTP.Addr)
	})

	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Metrics.Addr),
			slog.String("path", cfg.Metrics.Path),
		)
		return listenAndServe(gCtx, &lc, metricsSrv, cfg.Metrics.Addr)
	})

	sigHUP := make(chan os.Signal, 1)
	signal.Notify(sigHUP, syscall.SIGHUP)
	g.Go(func() error {
		defer signal.Stop(sigHUP)
		handleSIGHUP(gCtx, sigHUP, configPath, logLevel, logger)
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, logger, httpSrv, metricsSrv)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run servers: %w", err)
	}
	return nil
}

func handleSIGHUP(ctx context.Context, sigHUP <-chan os.Signal, configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigHUP:
			logger.Info("received SIGHUP, reloading configuration")
			newCfg, err := loadConfig(configPath)
			if err != nil {
				logger.Error("failed to reload configuration, keeping current settings",
					slog.String("error", err.Error()))
				continue
			}
			oldLevel := logLevel.Level()
			newLevel := config.ParseLogLevel(newCfg.Log.Level)
			logLevel.Set(newLevel)
			logger.Info("configuration reloaded",
				slog.String("old_log_level", oldLevel.String()),
				slog.String("new_log_level", newLevel.String()),
			)
		}
	}
}

func gracefulShutdown(ctx context.Context, logger *slog.Logger, servers ...*http.Server) error {
	logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown server: %w", err))
		}
	}
	return shutdownErr
}

func listenAndServe(ctx context.Context, lc *net.ListenConfig, srv *http.Server, addr string) error {
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

func newAPIServer(
	cfg *config.Config,
	service *unlocker.Service,
	routers *router.Registry,
	pathfinder *pathfind.Registry,
	collector *navignmetrics.Collector,
	logger *slog.Logger,
) *http.Server {
	mux := http.NewServeMux()
	httpapi.NewHandler(service).Register(mux)
	httpapi.NewRoutingHandler(routers, pathfinder, collector).Register(mux)

	handler := httpapi.Chain(mux,
		httpapi.RecoveryMiddleware(logger),
		httpapi.LoggingMiddleware(logger),
		httpapi.JWTMiddleware([]byte(cfg.Auth.JWTSecret), logger),
	)

	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	cfg := config.DefaultConfig()
	return cfg, nil
}

func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
