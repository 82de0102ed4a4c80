package unlocker

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/indoor-mall-nav/navign-sub000/internal/beaconkey"
	"github.com/indoor-mall-nav/navign-sub000/internal/nonceutil"
)

const (
	initiatePayloadLen = 16 + 8  // beacon_nonce || beacon_sig_tail
	statusPayloadLen   = 64 + 8  // device_signature || timestamp
	outcomeBlobLen     = 64 + 8  // server_signature || beacon_verifier
)

// InitiateRequest is the decoded input to Service.Initiate (spec §4.5
// Initiate). Payload is the already base64-decoded request body; the HTTP
// boundary (internal/httpapi) owns base64 and JSON framing.
type InitiateRequest struct {
	EntityID string
	BeaconID string
	UserID   string
	DeviceID string
	Payload  []byte
	Now      time.Time
}

// InitiateResult is the JSON-shaped response of Initiate.
type InitiateResult struct {
	InstanceID   string
	ChallengeHex string
}

// StatusRequest is the decoded input to Service.Status (spec §4.5 Status).
type StatusRequest struct {
	InstanceID string
	UserID     string
	Payload    []byte
	Now        time.Time
}

// StatusResult is the 72-byte server_signature||beacon_verifier blob,
// base64-encoded by the HTTP boundary.
type StatusResult struct {
	Blob [outcomeBlobLen]byte
}

// OutcomeRequest is the decoded input to Service.Outcome (spec §4.5
// Outcome).
type OutcomeRequest struct {
	InstanceID string
	UserID     string
	Success    bool
	Outcome    string
}

// MetricsRecorder observes instance lifecycle events. Never nil on a
// constructed Service -- uses noopMetrics when no recorder is configured.
type MetricsRecorder interface {
	RecordInstanceCreated()
	RecordInstanceExpired()
	RecordInstanceCompleted(success bool)
}

type noopMetrics struct{}

func (noopMetrics) RecordInstanceCreated()       {}
func (noopMetrics) RecordInstanceExpired()       {}
func (noopMetrics) RecordInstanceCompleted(bool) {}

// ServiceOption configures optional Service dependencies.
type ServiceOption func(*Service)

// WithServiceMetrics attaches a MetricsRecorder to the service. If mr is
// nil, the service keeps its noop recorder.
func WithServiceMetrics(mr MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if mr != nil {
			s.metrics = mr
		}
	}
}

// Service implements the C6 server challenge issuer (spec §4.5): it holds
// the store interfaces for beacon secrets, instances, and user keys, plus
// the server's own global ECDSA signing key.
type Service struct {
	secrets   BeaconSecretStore
	instances InstanceStore
	userKeys  UserKeyStore
	serverKey *ecdsa.PrivateKey
	logger    *slog.Logger
	metrics   MetricsRecorder
}

// NewService constructs a Service. serverKey is the server's global
// ECDSA P-256 signing key used to produce server_signature in Status.
func NewService(secrets BeaconSecretStore, instances InstanceStore, userKeys UserKeyStore, serverKey *ecdsa.PrivateKey, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		secrets:   secrets,
		instances: instances,
		userKeys:  userKeys,
		serverKey: serverKey,
		logger:    logger.With(slog.String("component", "unlocker.service")),
		metrics:   noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initiate implements spec §4.5's Initiate endpoint.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (InitiateResult, error) {
	if len(req.Payload) != initiatePayloadLen {
		return InitiateResult{}, wrap("initiate", ErrMalformedPayload)
	}
	var beaconNonce [16]byte
	copy(beaconNonce[:], req.Payload[:16])
	beaconSigTail := req.Payload[16:24]

	secret, err := s.secrets.Get(ctx, req.BeaconID)
	if err != nil {
		return InitiateResult{}, err
	}
	if secret.EntityID != req.EntityID {
		return InitiateResult{}, wrap("initiate", ErrBeaconEntityMismatch)
	}

	challenge := beaconBootChallenge(beaconNonce, secret.LastBootEpoch, secret.Counter)
	hash := sha256.Sum256(challenge)
	expectedSig, err := beaconkey.Sign(secret.PrivateKey, hash[:])
	if err != nil {
		return InitiateResult{}, fmt.Errorf("initiate: reconstruct boot signature: %w", err)
	}
	expectedTail := beaconkey.Tail(expectedSig, 8)
	if !constantTimeEqual(expectedTail, beaconSigTail) {
		return InitiateResult{}, wrap("initiate", ErrInvalidBeaconSignatureTail)
	}

	challengeNonce, err := nonceutil.Generate()
	if err != nil {
		return InitiateResult{}, fmt.Errorf("initiate: generate challenge nonce: %w", err)
	}

	inst := UnlockInstance{
		ID:             uuid.NewString(),
		BeaconID:       req.BeaconID,
		EntityID:       req.EntityID,
		UserID:         req.UserID,
		DeviceID:       req.DeviceID,
		BeaconNonce:    beaconNonce,
		ChallengeNonce: [16]byte(challengeNonce),
		InitiatedAt:    req.Now,
		Stage:          StageInitiated,
	}
	if err := s.instances.Create(ctx, inst); err != nil {
		return InitiateResult{}, fmt.Errorf("initiate: persist instance: %w", err)
	}
	s.metrics.RecordInstanceCreated()

	s.logger.Info("unlock instance initiated",
		slog.String("instance_id", inst.ID),
		slog.String("beacon_id", req.BeaconID),
		slog.String("user_id", req.UserID),
	)

	return InitiateResult{
		InstanceID:   inst.ID,
		ChallengeHex: challengeNonce.String(),
	}, nil
}

// Status implements spec §4.5's Status endpoint.
func (s *Service) Status(ctx context.Context, req StatusRequest) (StatusResult, error) {
	if len(req.Payload) != statusPayloadLen {
		return StatusResult{}, wrap("status", ErrMalformedPayload)
	}
	var deviceSig [64]byte
	copy(deviceSig[:], req.Payload[:64])
	timestamp := binary.BigEndian.Uint64(req.Payload[64:72])
	tsTime := time.Unix(int64(timestamp), 0)

	inst, err := s.instances.Get(ctx, req.InstanceID)
	if err != nil {
		return StatusResult{}, err
	}
	if inst.UserID != req.UserID {
		return StatusResult{}, wrap("status", ErrUnauthorized)
	}
	if inst.Stage != StageInitiated {
		return StatusResult{}, wrap("status", ErrStageMismatch)
	}
	if inst.Expired(req.Now) {
		s.metrics.RecordInstanceExpired()
		return StatusResult{}, wrap("status", ErrInstanceExpired)
	}
	// The client timestamp has whole-second resolution, so the window is
	// anchored at InitiatedAt truncated to the second.
	initiated := time.Unix(inst.InitiatedAt.Unix(), 0)
	if tsTime.Before(initiated) || tsTime.After(initiated.Add(StatusFreshnessWindow)) {
		return StatusResult{}, wrap("status", ErrTimestampOutOfWindow)
	}

	userKey, err := s.userKeys.Get(ctx, inst.DeviceID)
	if err != nil {
		return StatusResult{}, err
	}

	deviceChallenge := append(append([]byte(nil), inst.ChallengeNonce[:]...), req.Payload[64:72]...)
	deviceHash := sha256.Sum256(deviceChallenge)
	if !beaconkey.Verify(userKey.PublicKey, deviceHash[:], deviceSig) {
		return StatusResult{}, wrap("status", ErrInvalidDeviceSignature)
	}

	verified, err := s.instances.CompareAndAdvance(ctx, inst, StageVerified)
	if err != nil {
		return StatusResult{}, err
	}

	secret, err := s.secrets.Get(ctx, verified.BeaconID)
	if err != nil {
		return StatusResult{}, err
	}

	proofHash := proofHash(verified.BeaconNonce, timestamp, secret.Counter, deviceSig[:])

	serverSig, err := beaconkey.Sign(s.serverKey, proofHash[:])
	if err != nil {
		return StatusResult{}, fmt.Errorf("status: sign proof hash: %w", err)
	}
	beaconSig, err := beaconkey.Sign(secret.PrivateKey, proofHash[:])
	if err != nil {
		return StatusResult{}, fmt.Errorf("status: re-sign proof hash: %w", err)
	}

	var result StatusResult
	copy(result.Blob[:64], serverSig[:])
	copy(result.Blob[64:], beaconkey.Tail(beaconSig, 8))

	s.logger.Info("unlock instance verified",
		slog.String("instance_id", verified.ID),
	)

	return result, nil
}

// Outcome implements spec §4.5's Outcome endpoint.
func (s *Service) Outcome(ctx context.Context, req OutcomeRequest) error {
	inst, err := s.instances.Get(ctx, req.InstanceID)
	if err != nil {
		return err
	}
	if inst.UserID != req.UserID {
		return wrap("outcome", ErrUnauthorized)
	}
	if inst.Stage != StageVerified {
		return wrap("outcome", ErrStageMismatch)
	}

	inst.Outcome = req.Outcome
	next := StageFailed
	if req.Success {
		next = StageCompleted
	}
	if _, err := s.instances.CompareAndAdvance(ctx, inst, next); err != nil {
		return err
	}

	if req.Success {
		secret, err := s.secrets.Get(ctx, inst.BeaconID)
		if err != nil {
			return err
		}
		if _, err := s.secrets.IncrementCounterIfEqual(ctx, inst.BeaconID, secret.Counter); err != nil {
			return err
		}
	}

	s.metrics.RecordInstanceCompleted(req.Success)
	s.logger.Info("unlock instance closed",
		slog.String("instance_id", inst.ID),
		slog.Bool("success", req.Success),
	)
	return nil
}

// beaconBootChallenge reproduces the challenge the beacon signs at boot
// (spec §4.5 Initiate: "Reconstruct the challenge the beacon would have
// signed").
func beaconBootChallenge(beaconNonce [16]byte, lastEpoch int64, counter uint64) []byte {
	buf := make([]byte, 0, 16+8+8)
	buf = append(buf, beaconNonce[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(lastEpoch))
	buf = binary.BigEndian.AppendUint64(buf, counter)
	return buf
}

// proofHash computes H as specified in spec §4.5 Status step: SHA-256(
// beacon_nonce || timestamp(BE u64) || beacon.counter(BE u64) ||
// last_8_bytes_of(device_signature) ).
func proofHash(beaconNonce [16]byte, timestamp uint64, counter uint64, deviceSignature []byte) [32]byte {
	buf := make([]byte, 0, 16+8+8+8)
	buf = append(buf, beaconNonce[:]...)
	buf = binary.BigEndian.AppendUint64(buf, timestamp)
	buf = binary.BigEndian.AppendUint64(buf, counter)
	buf = append(buf, deviceSignature[len(deviceSignature)-8:]...)
	return sha256.Sum256(buf)
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
