package main

import (
	"crypto/ecdsa"
	"log/slog"
	"sync"

	"github.com/indoor-mall-nav/navign-sub000/internal/beacon"
	"github.com/indoor-mall-nav/navign-sub000/internal/beaconsession"
	navignmetrics "github.com/indoor-mall-nav/navign-sub000/internal/metrics"
)

// newSession builds the beacon daemon's connection handler. The handler
// itself lives in internal/beaconsession so cross-package tests can drive
// a real wire-level beacon over a net.Pipe() without importing package
// main.
func newSession(
	beaconID string,
	deviceID [24]byte,
	devicePrivateKey *ecdsa.PrivateKey,
	actuator beacon.Actuator,
	validator *beacon.Validator,
	sm *beacon.StateMachine,
	smMu *sync.Mutex,
	collector *navignmetrics.Collector,
	logger *slog.Logger,
) *beaconsession.Session {
	return beaconsession.New(beaconID, deviceID, devicePrivateKey, actuator, validator, sm, smMu, collector, logger)
}
