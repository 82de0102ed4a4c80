// Package unlocker implements the server-side challenge issuer (spec §4.5,
// C6): BeaconSecret/UnlockInstance/UserKey storage, and the three-step
// Initiate/Status/Outcome protocol that signs proofs for the beacon to
// validate.
package unlocker

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"
)

// Stage is an UnlockInstance's position in its lifecycle (spec §3). Stage
// only ever advances forward.
type Stage int

const (
	// StageInitiated is set when Initiate succeeds.
	StageInitiated Stage = iota
	// StageVerified is set when Status succeeds.
	StageVerified
	// StageCompleted is a terminal stage: Outcome reported success.
	StageCompleted
	// StageFailed is a terminal stage: Outcome reported failure.
	StageFailed
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageInitiated:
		return "Initiated"
	case StageVerified:
		return "Verified"
	case StageCompleted:
		return "Completed"
	case StageFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// InstanceWindow is how long an UnlockInstance remains usable from
// initiation (spec §3: "usable only within a 3-minute window from
// initiation").
const InstanceWindow = 3 * time.Minute

// StatusFreshnessWindow bounds how far the Status step's client-supplied
// timestamp may be ahead of the instance's initiation timestamp (spec
// §4.5 Status: "freshness (timestamp within [instance.timestamp,
// instance.timestamp+180s])").
const StatusFreshnessWindow = 180 * time.Second

// UnlockInstance is the server-side record of one in-flight unlock attempt
// (spec §3).
type UnlockInstance struct {
	ID             string
	BeaconID       string
	EntityID       string
	UserID         string
	DeviceID       string
	BeaconNonce    [16]byte
	ChallengeNonce [16]byte
	InitiatedAt    time.Time
	Stage          Stage
	Outcome        string
}

// Expired reports whether the instance has aged past InstanceWindow as of
// now.
func (i UnlockInstance) Expired(now time.Time) bool {
	return now.Sub(i.InitiatedAt) > InstanceWindow
}

// BeaconSecret is the server-side per-beacon record (spec §3): the
// beacon's fused ECDSA key, mirrored counter, and boot epoch.
type BeaconSecret struct {
	BeaconID      string
	EntityID      string
	MAC           string
	LastBootEpoch int64
	Counter       uint64
	PrivateKey    *ecdsa.PrivateKey
}

// UserKey is a device's registered ECDSA public key (spec §4.6 step 5,
// recovered in detail from original_source/server/src/schema/user_public.rs),
// used by Status to verify the client's device signature.
type UserKey struct {
	DeviceID  string
	UserID    string
	PublicKey *ecdsa.PublicKey
}

// Sentinel errors for the unlocker taxonomy (spec §7).
var (
	ErrBeaconNotFound             = errors.New("unlocker: beacon not found")
	ErrBeaconEntityMismatch       = errors.New("unlocker: beacon does not belong to entity")
	ErrInvalidBeaconSignatureTail = errors.New("unlocker: beacon signature tail mismatch")
	ErrInstanceNotFound           = errors.New("unlocker: instance not found")
	ErrUnauthorized               = errors.New("unlocker: user does not own instance")
	ErrStageMismatch              = errors.New("unlocker: instance is not in the expected stage")
	ErrInstanceExpired            = errors.New("unlocker: instance window has expired")
	ErrTimestampOutOfWindow       = errors.New("unlocker: timestamp outside freshness window")
	ErrUserKeyNotFound            = errors.New("unlocker: no registered device key")
	ErrInvalidDeviceSignature     = errors.New("unlocker: device signature verification failed")
	ErrCounterConflict            = errors.New("unlocker: counter changed concurrently")
	ErrMalformedPayload           = errors.New("unlocker: malformed request payload")
)

// BeaconSecretStore resolves BeaconSecret records and performs the atomic
// counter increment described in spec §4.5's "Counter atomicity is
// essential" paragraph and §5's CAS requirement.
type BeaconSecretStore interface {
	Get(ctx context.Context, beaconID string) (BeaconSecret, error)
	// IncrementCounterIfEqual advances the stored counter by one iff it
	// currently equals expect, and returns the new value. It returns
	// ErrCounterConflict if the stored value no longer matches expect,
	// standing in for `UPDATE ... WHERE counter = ?` (spec §5).
	IncrementCounterIfEqual(ctx context.Context, beaconID string, expect uint64) (uint64, error)
}

// InstanceStore persists UnlockInstance records across the three protocol
// steps.
type InstanceStore interface {
	Create(ctx context.Context, inst UnlockInstance) error
	Get(ctx context.Context, instanceID string) (UnlockInstance, error)
	// CompareAndAdvance sets inst's stage to next and persists the full
	// record iff the stored record's stage still equals inst.Stage,
	// enforcing spec §3's "each (device, instance) may transition at most
	// once per stage."
	CompareAndAdvance(ctx context.Context, inst UnlockInstance, next Stage) (UnlockInstance, error)
}

// UserKeyStore resolves a device's registered public key.
type UserKeyStore interface {
	Get(ctx context.Context, deviceID string) (UserKey, error)
}

func wrap(prefix string, err error) error {
	return fmt.Errorf("%s: %w", prefix, err)
}
