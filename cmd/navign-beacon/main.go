// Navign beacon daemon -- beacon-resident half of the unlock protocol
// (spec §4.1, §4.4, §4.7): validates proofs, drives the actuator state
// machine, and serves BLE GATT characteristic traffic over a framed
// byte-stream stand-in transport (no GATT peripheral library exists in
// this codebase's dependency surface; see cmd/navign-beacon/session.go).
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
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/indoor-mall-nav/navign-sub000/internal/beacon"
	"github.com/indoor-mall-nav/navign-sub000/internal/beaconsession"
	"github.com/indoor-mall-nav/navign-sub000/internal/config"
	navignmetrics "github.com/indoor-mall-nav/navign-sub000/internal/metrics"
)

// tickInterval is how often the actuator state machine samples the clock
// (spec §4.7's hold timers are evaluated on a polling loop, mirroring the
// teacher's watchdog keepalive cadence).
const tickInterval = 200 * time.Millisecond

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	listenAddr := flag.String("listen", ":7443", "beacon GATT stand-in listen address")
	deviceType := flag.String("device-type", "relay", "actuator kind: relay, servo, remote_rf")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()))
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLogger(cfg.Log, logLevel)

	devicePrivateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		logger.Error("failed to generate device key", slog.String("error", err.Error()))
		return 1
	}

	actuator := newActuator(*deviceType)
	if actuator == nil {
		logger.Error("unrecognized device type", slog.String("device_type", *deviceType))
		return 1
	}

	reg := prometheus.NewRegistry()
	collector := navignmetrics.NewCollector(reg)

	validator := beacon.NewValidator(devicePrivateKey, nil)
	sm := beacon.NewStateMachine(actuator, nil, logger)

	beaconID := fmt.Sprintf("beacon-%s", *listenAddr)

	logger.Info("navign-beacon starting",
		slog.String("listen", *listenAddr),
		slog.String("device_type", *deviceType),
	)

	if err := runServers(cfg, beaconID, *listenAddr, devicePrivateKey, actuator, validator, sm, collector, reg, logger); err != nil {
		logger.Error("navign-beacon exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("navign-beacon stopped")
	return 0
}

func runServers(
	cfg *config.Config,
	beaconID string,
	listenAddr string,
	devicePrivateKey *ecdsa.PrivateKey,
	actuator beacon.Actuator,
	validator *beacon.Validator,
	sm *beacon.StateMachine,
	collector *navignmetrics.Collector,
	reg *prometheus.Registry,
	logger *slog.Logger,
) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}

	smMu := &sync.Mutex{}

	srv := newSession(beaconID, deriveDeviceID(beaconID), devicePrivateKey, actuator, validator, sm, smMu, collector, logger)

	metricsSrv := newMetricsServer(cfg.Metrics, reg)

	g.Go(func() error {
		return serveConnections(gCtx, ln, srv, logger)
	})

	g.Go(func() error {
		lc := net.ListenConfig{}
		metricsLn, lErr := lc.Listen(gCtx, "tcp", cfg.Metrics.Addr)
		if lErr != nil {
			return fmt.Errorf("listen metrics on %s: %w", cfg.Metrics.Addr, lErr)
		}
		logger.Info("metrics server listening", slog.String("addr", cfg.Metrics.Addr))
		if serveErr := metricsSrv.Serve(metricsLn); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve metrics: %w", serveErr)
		}
		return nil
	})

	g.Go(func() error {
		return runTicker(gCtx, beaconID, sm, smMu, collector, logger)
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("initiating graceful shutdown")
		_ = ln.Close()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run servers: %w", err)
	}
	return nil
}

// serveConnections accepts one beacon-client connection at a time,
// matching spec §5's single-threaded beacon main loop: a real BLE
// peripheral serves exactly one central at a time per characteristic.
func serveConnections(ctx context.Context, ln net.Listener, srv *beaconsession.Session, logger *slog.Logger) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		if err := srv.Handle(ctx, conn); err != nil {
			logger.Warn("session ended with error", slog.String("error", err.Error()))
		}
	}
}

func runTicker(ctx context.Context, beaconID string, sm *beacon.StateMachine, smMu *sync.Mutex, collector *navignmetrics.Collector, logger *slog.Logger) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			smMu.Lock()
			before := sm.State()
			sm.Tick(now)
			after := sm.State()
			smMu.Unlock()
			if after != before {
				collector.RecordActuatorTransition(beaconID, before.String(), after.String())
				logger.Debug("actuator state transition",
					slog.String("from", before.String()),
					slog.String("to", after.String()),
				)
			}
		}
	}
}

func newActuator(kind string) beacon.Actuator {
	switch kind {
	case "relay":
		return &beacon.RelayActuator{}
	case "servo":
		return &beacon.ServoActuator{}
	case "remote_rf":
		return &beacon.RemoteRFActuator{}
	default:
		return nil
	}
}

func deriveDeviceID(beaconID string) [24]byte {
	var id [24]byte
	copy(id[:], beaconID)
	return id
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLogger(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
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

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
