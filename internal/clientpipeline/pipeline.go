package clientpipeline

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/indoor-mall-nav/navign-sub000/internal/beaconkey"
	"github.com/indoor-mall-nav/navign-sub000/internal/proto"
)

// Pipeline drives one end-to-end unlock attempt. A Pipeline is not
// reusable across concurrent Run calls; construct a fresh one per attempt.
type Pipeline struct {
	ble       BLETransport
	server    ServerClient
	deviceID  string
	deviceKey *ecdsa.PrivateKey
	gate      BiometricGate
	clock     Clock
	logger    *slog.Logger

	state State
}

// New returns a Pipeline ready to Run. gate may be nil on platforms
// without a biometric sensor, in which case it always confirms.
func New(ble BLETransport, server ServerClient, deviceID string, deviceKey *ecdsa.PrivateKey, gate BiometricGate, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		ble:       ble,
		server:    server,
		deviceID:  deviceID,
		deviceKey: deviceKey,
		gate:      gate,
		clock:     time.Now,
		logger:    logger.With(slog.String("component", "clientpipeline")),
	}
}

// State returns the pipeline's current suspension point.
func (p *Pipeline) State() State { return p.state }

// matches reports whether a scanned device is the one the caller wants to
// unlock. The wire protocol's DeviceResponse carries no merchant/area
// fields (those are resolved one layer up, by the app's entity lookup
// before Run is ever called), so selection is by device ID equality.
func matches(candidate proto.DeviceResponse, targetDeviceID string) bool {
	return string(candidate.DeviceID[:]) == targetDeviceID
}

// Run executes the seven-step dance (spec §4.6) to completion, cancellation,
// or biometric denial. Each step suspends on I/O through ble or server; no
// goroutines are spawned, matching the "straight-line async" choice in
// Design Notes §9.
func (p *Pipeline) Run(ctx context.Context, targetDeviceID string) (Outcome, error) {
	p.state = StateScanning
	devices, err := p.ble.Scan(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("clientpipeline: scan: %w", err)
	}
	var target proto.DeviceResponse
	found := false
	for _, d := range devices {
		if matches(d, targetDeviceID) {
			target = d
			found = true
			break
		}
	}
	if !found {
		return Outcome{}, ErrNoTargetFound
	}

	p.state = StateNonceRequested
	nonceResp, err := p.ble.RequestNonce(ctx, target)
	if err != nil {
		return Outcome{}, fmt.Errorf("clientpipeline: request nonce: %w", err)
	}

	p.state = StateServerInitiated
	initRes, err := p.server.Initiate(ctx, p.deviceID, nonceResp.Nonce, nonceResp.Identifier)
	if err != nil {
		return Outcome{}, fmt.Errorf("clientpipeline: server initiate: %w", err)
	}

	p.state = StateBiometricGate
	if p.gate != nil {
		ok, err := p.gate(ctx)
		if err != nil {
			return Outcome{}, fmt.Errorf("clientpipeline: biometric gate: %w", err)
		}
		if !ok {
			p.state = StateAborted
			p.logger.Info("biometric confirmation denied, aborting without notifying server",
				slog.String("instance_id", initRes.InstanceID))
			return Outcome{}, ErrBiometricDenied
		}
	}

	p.state = StateServerVerify
	now := uint64(p.clock().Unix())
	deviceSig, err := beaconkey.Sign(p.deviceKey, challengeHash(initRes.ChallengeNonce, now))
	if err != nil {
		return Outcome{}, fmt.Errorf("clientpipeline: sign challenge: %w", err)
	}
	statusRes, err := p.server.Status(ctx, initRes.InstanceID, deviceSig, now)
	if err != nil {
		return Outcome{}, fmt.Errorf("clientpipeline: server verify: %w", err)
	}

	p.state = StateBeaconUnlock
	var deviceBytes [8]byte
	copy(deviceBytes[:], beaconkey.Tail(deviceSig, 8))
	proof := proto.Proof{
		Nonce:           nonceResp.Nonce,
		DeviceBytes:     deviceBytes,
		VerifyBytes:     statusRes.BeaconVerifier,
		Timestamp:       now,
		ServerSignature: statusRes.ServerSignature,
	}
	unlockResp, err := p.ble.Unlock(ctx, target, proto.UnlockRequest{Proof: proof})
	if err != nil {
		return Outcome{}, fmt.Errorf("clientpipeline: beacon unlock: %w", err)
	}

	p.state = StateOutcome
	outcomeStr := "unlocked"
	if !unlockResp.Success {
		outcomeStr = "rejected:" + unlockResp.Reason.String()
	}
	if err := p.server.Outcome(ctx, initRes.InstanceID, unlockResp.Success, outcomeStr); err != nil {
		return Outcome{}, fmt.Errorf("clientpipeline: report outcome: %w", err)
	}

	p.state = StateDone
	return Outcome{
		Success:    unlockResp.Success,
		Reason:     unlockResp.Reason,
		InstanceID: initRes.InstanceID,
	}, nil
}

// challengeHash returns SHA-256(challenge_nonce || now(BE u64)), the input
// the device key signs at step 5 (spec §4.6).
func challengeHash(challengeNonce [16]byte, now uint64) []byte {
	buf := make([]byte, 0, 16+8)
	buf = append(buf, challengeNonce[:]...)
	buf = binary.BigEndian.AppendUint64(buf, now)
	sum := sha256.Sum256(buf)
	return sum[:]
}
