// Package beacon implements the beacon-resident half of the unlock
// protocol: the proof validator (spec §4.4) and the unlock state machine
// with its rate limiter and actuator hold (spec §4.7).
package beacon

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/indoor-mall-nav/navign-sub000/internal/beaconkey"
	"github.com/indoor-mall-nav/navign-sub000/internal/nonceutil"
	"github.com/indoor-mall-nav/navign-sub000/internal/proto"
	"github.com/indoor-mall-nav/navign-sub000/internal/replay"
)

// Sentinel errors for the beacon validation taxonomy (spec §7).
var (
	// ErrRateLimited indicates 5 or more recent attempts have already
	// failed (spec §4.4 step 1).
	ErrRateLimited = errors.New("beacon: rate limited")
	// ErrTimestampTooOld indicates the proof's timestamp is more than the
	// clock tolerance window in the past.
	ErrTimestampTooOld = errors.New("beacon: timestamp too old")
	// ErrTimestampInFuture indicates the proof's timestamp is more than
	// the clock tolerance window in the future.
	ErrTimestampInFuture = errors.New("beacon: timestamp in future")
	// ErrReplayDetected indicates the nonce was already consumed (spec
	// §4.4 step 2).
	ErrReplayDetected = errors.New("beacon: replay detected")
	// ErrVerificationFailed indicates the server signature did not verify
	// against the beacon's stored server public key (spec §4.4 step 5).
	ErrVerificationFailed = errors.New("beacon: server signature verification failed")
	// ErrInvalidSignature indicates the beacon's own recomputed verify
	// bytes did not match the proof's verify_bytes (spec §4.4 step 6).
	ErrInvalidSignature = errors.New("beacon: invalid signature tail")
	// ErrServerPublicKeyNotSet indicates the beacon has not yet been
	// provisioned with a server public key.
	ErrServerPublicKeyNotSet = errors.New("beacon: server public key not set")
)

// rateLimitThreshold is the attempt count at which the beacon starts
// rejecting further attempts (spec §4.4 step 1: "unlock-attempts >= 5").
const rateLimitThreshold = 5

// clockTolerance bounds how far a proof's timestamp may diverge from the
// beacon's own clock (spec §4.3 step 1, reused for the validator's own
// timestamp check so it can report a specific TimestampTooOld/InFuture
// reason instead of the cache's generic replay rejection).
const clockTolerance = replay.RetentionWindow

// ReasonOf maps a Validate error to the wire ReasonCode the beacon reports
// back to the client in an UnlockResponse (spec §4.1, §7).
func ReasonOf(err error) proto.ReasonCode {
	switch {
	case err == nil:
		return proto.ReasonNone
	case errors.Is(err, ErrRateLimited):
		return proto.ReasonRateLimited
	case errors.Is(err, ErrReplayDetected):
		return proto.ReasonReplayDetected
	case errors.Is(err, ErrVerificationFailed):
		return proto.ReasonVerificationFailed
	case errors.Is(err, ErrInvalidSignature):
		return proto.ReasonInvalidSignature
	case errors.Is(err, ErrTimestampTooOld):
		return proto.ReasonTimestampTooOld
	case errors.Is(err, ErrTimestampInFuture):
		return proto.ReasonTimestampInFuture
	default:
		return proto.ReasonInvalidSignature
	}
}

// Validator holds the beacon-side state needed to validate UnlockRequest
// proofs: the replay cache, the monotonic counter, the rate limiter, and
// the two keys involved (the beacon's own fused device key, and the
// server's public key it was provisioned with).
//
// Validator is not safe for concurrent use; the beacon main loop is
// single-threaded (spec §5), so no internal locking is applied.
type Validator struct {
	serverPublicKey  *ecdsa.PublicKey
	devicePrivateKey *ecdsa.PrivateKey
	cache            *replay.Cache

	counter       uint64
	attempts      int
	lastAttemptAt time.Time
}

// NewValidator returns a Validator for a freshly booted beacon: counter
// and attempts both start at zero (spec "Persisted state (beacon): none —
// on reboot, counter resets to zero and the cache is empty").
func NewValidator(devicePrivateKey *ecdsa.PrivateKey, serverPublicKey *ecdsa.PublicKey) *Validator {
	return &Validator{
		serverPublicKey:  serverPublicKey,
		devicePrivateKey: devicePrivateKey,
		cache:            replay.NewCache(),
	}
}

// Counter returns the current monotonic unlock counter.
func (v *Validator) Counter() uint64 { return v.counter }

// Attempts returns the current consecutive-failure count.
func (v *Validator) Attempts() int { return v.attempts }

// Validate runs the full beacon-side proof check (spec §4.4 steps 1-7) and
// mutates the validator's counter/attempts state accordingly. now is the
// beacon's current wallclock time, read once per call per spec §5 ("every
// transition reads now() exactly once").
func (v *Validator) Validate(proof proto.Proof, now time.Time) error {
	if v.serverPublicKey == nil {
		return ErrServerPublicKeyNotSet
	}

	if v.attempts >= rateLimitThreshold && now.Sub(v.lastAttemptAt) < replay.RetentionWindow {
		return ErrRateLimited
	}

	proofTime := time.Unix(int64(proof.Timestamp), 0)
	switch delta := now.Sub(proofTime); {
	case delta > clockTolerance:
		return v.fail(now, ErrTimestampTooOld)
	case -delta > clockTolerance:
		return v.fail(now, ErrTimestampInFuture)
	}

	nonce, err := nonceutil.FromBytes(proof.Nonce[:])
	if err != nil {
		return v.fail(now, fmt.Errorf("%w: %w", ErrReplayDetected, err))
	}
	if !v.cache.CheckAndMark(nonce, proofTime, now) {
		return v.fail(now, ErrReplayDetected)
	}

	challenge := proof.ChallengeBytes(v.counter)
	hash := sha256.Sum256(challenge)

	if !beaconkey.Verify(v.serverPublicKey, hash[:], proof.ServerSignature) {
		return v.fail(now, ErrVerificationFailed)
	}

	deviceSig, err := beaconkey.Sign(v.devicePrivateKey, hash[:])
	if err != nil {
		return v.fail(now, fmt.Errorf("%w: %w", ErrInvalidSignature, err))
	}
	tail := beaconkey.Tail(deviceSig, len(proof.VerifyBytes))
	if !constantTimeEqual(tail, proof.VerifyBytes[:]) {
		return v.fail(now, ErrInvalidSignature)
	}

	v.counter++
	v.attempts = 0
	return nil
}

// fail increments the attempt counter, records the failure time for rate
// limiting, and returns err unchanged so callers can chain it.
func (v *Validator) fail(now time.Time, err error) error {
	v.attempts++
	v.lastAttemptAt = now
	return err
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
