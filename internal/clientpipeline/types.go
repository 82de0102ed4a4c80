// Package clientpipeline drives the phone-side unlock dance (spec §4.6):
// BLE scan/select, nonce request, server initiate, a local biometric gate,
// server verify, beacon unlock, and outcome report. It is a straight-line
// async function rather than a task+channel coroutine, since Go's
// goroutines need no coroutine shim (Design Notes §9).
package clientpipeline

import (
	"context"
	"errors"
	"time"

	"github.com/indoor-mall-nav/navign-sub000/internal/proto"
)

// State names the pipeline's current suspension point, mirroring the
// explicit state handling in the teacher's session driver.
type State int

const (
	StateScanning State = iota
	StateNonceRequested
	StateServerInitiated
	StateBiometricGate
	StateServerVerify
	StateBeaconUnlock
	StateOutcome
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "Scanning"
	case StateNonceRequested:
		return "NonceRequested"
	case StateServerInitiated:
		return "ServerInitiated"
	case StateBiometricGate:
		return "BiometricGate"
	case StateServerVerify:
		return "ServerVerify"
	case StateBeaconUnlock:
		return "BeaconUnlock"
	case StateOutcome:
		return "Outcome"
	case StateDone:
		return "Done"
	case StateAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

var (
	// ErrNoTargetFound indicates the BLE scan never surfaced a device
	// matching the requested target.
	ErrNoTargetFound = errors.New("clientpipeline: no matching beacon found")
	// ErrBiometricDenied indicates the user declined the local biometric
	// prompt. Per spec §4.6 step 4, the server is never told.
	ErrBiometricDenied = errors.New("clientpipeline: biometric confirmation denied")
)

// InitiateResult is the phone-visible result of the server initiate call.
type InitiateResult struct {
	InstanceID     string
	ChallengeNonce [16]byte
}

// StatusResult is the phone-visible result of the server verify call: the
// 72-byte base64(server_signature || beacon_verifier) blob, already split.
type StatusResult struct {
	ServerSignature [64]byte
	BeaconVerifier  [8]byte
}

// ServerClient is the HTTPS half of the pipeline (spec §6), kept as an
// interface so tests substitute a fake instead of a live server.
type ServerClient interface {
	Initiate(ctx context.Context, deviceID string, beaconNonce [16]byte, identifier [8]byte) (InitiateResult, error)
	Status(ctx context.Context, instanceID string, deviceSignature [64]byte, now uint64) (StatusResult, error)
	Outcome(ctx context.Context, instanceID string, success bool, outcome string) error
}

// BLETransport is the BLE half of the pipeline (spec §4.1-§4.4), kept as
// an interface so tests substitute a fake instead of real radio hardware.
type BLETransport interface {
	Scan(ctx context.Context) ([]proto.DeviceResponse, error)
	RequestNonce(ctx context.Context, target proto.DeviceResponse) (proto.NonceResponse, error)
	Unlock(ctx context.Context, target proto.DeviceResponse, req proto.UnlockRequest) (proto.UnlockResponse, error)
}

// BiometricGate asks the local platform to confirm the user's identity.
// A nil gate is treated as always-confirm (non-biometric platforms).
type BiometricGate func(ctx context.Context) (bool, error)

// Outcome is the terminal result of a Run.
type Outcome struct {
	Success    bool
	Reason     proto.ReasonCode
	InstanceID string
}

// Clock returns the current time; overridable in tests.
type Clock func() time.Time
