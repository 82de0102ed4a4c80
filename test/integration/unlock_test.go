//go:build integration

package integration_test

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/indoor-mall-nav/navign-sub000/internal/beacon"
	"github.com/indoor-mall-nav/navign-sub000/internal/beaconkey"
	"github.com/indoor-mall-nav/navign-sub000/internal/httpapi"
	"github.com/indoor-mall-nav/navign-sub000/internal/nonceutil"
	"github.com/indoor-mall-nav/navign-sub000/internal/proto"
	"github.com/indoor-mall-nav/navign-sub000/internal/unlocker"
)

// unlockFixture wires a real unlocker.Service behind an httptest.Server and
// a real beacon.Validator sharing the same beacon/device/server keypairs,
// so a proof the server issues can be fed straight into the beacon side of
// the protocol.
type unlockFixture struct {
	srv       *httptest.Server
	validator *beacon.Validator
	beaconKey *ecdsa.PrivateKey
	deviceKey *ecdsa.PrivateKey
	jwtSecret []byte
}

func newUnlockFixture(t *testing.T) *unlockFixture {
	t.Helper()

	beaconKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	deviceKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	serverKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	secrets := unlocker.NewMemBeaconSecretStore()
	secrets.Put(unlocker.BeaconSecret{
		BeaconID:      "beacon-1",
		EntityID:      "mall-1",
		LastBootEpoch: 1_700_000_000,
		Counter:       0,
		PrivateKey:    beaconKey,
	})
	userKeys := unlocker.NewMemUserKeyStore()
	userKeys.Put(unlocker.UserKey{DeviceID: "device-1", UserID: "user-1", PublicKey: &deviceKey.PublicKey})
	instances := unlocker.NewMemInstanceStore()

	service := unlocker.NewService(secrets, instances, userKeys, serverKey, nil)
	handler := httpapi.NewHandler(service)
	mux := http.NewServeMux()
	handler.Register(mux)

	jwtSecret := []byte("integration-secret")
	chained := httpapi.Chain(mux,
		httpapi.RecoveryMiddleware(nil),
		httpapi.LoggingMiddleware(nil),
		httpapi.JWTMiddleware(jwtSecret, nil))
	srv := httptest.NewServer(chained)
	t.Cleanup(srv.Close)

	validator := beacon.NewValidator(beaconKey, &serverKey.PublicKey)

	return &unlockFixture{
		srv:       srv,
		validator: validator,
		beaconKey: beaconKey,
		deviceKey: deviceKey,
		jwtSecret: jwtSecret,
	}
}

func (f *unlockFixture) bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: userID})
	signed, err := token.SignedString(f.jwtSecret)
	require.NoError(t, err)
	return "Bearer " + signed
}

func buildBE8(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// runUnlockAttempt drives a full Initiate -> Status -> Outcome round trip
// through the real HTTP server and assembles the Proof a client would send
// to the beacon in its UnlockRequest, returning it alongside the timestamp
// used to build it.
func (f *unlockFixture) runUnlockAttempt(t *testing.T, beaconNonce nonceutil.Nonce, counter uint64) (proto.Proof, time.Time) {
	t.Helper()
	client := f.srv.Client()

	bootChallenge := append(append([]byte(nil), beaconNonce.Bytes()...), buildBE8(1_700_000_000)...)
	bootChallenge = append(bootChallenge, buildBE8(counter)...)
	bootHash := sha256.Sum256(bootChallenge)
	bootSig, err := beaconkey.Sign(f.beaconKey, bootHash[:])
	require.NoError(t, err)
	bootTail := beaconkey.Tail(bootSig, 8)

	initiatePayload := base64.StdEncoding.EncodeToString(append(append([]byte(nil), beaconNonce.Bytes()...), bootTail...))
	initBody, _ := json.Marshal(map[string]string{"device_id": "device-1", "payload": initiatePayload})

	req, _ := http.NewRequest(http.MethodPost, f.srv.URL+"/api/entities/mall-1/beacons/beacon-1/unlocker", bytes.NewReader(initBody))
	req.Header.Set("Authorization", f.bearerToken(t, "user-1"))
	resp, err := client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var initRes struct {
		InstanceID   string `json:"instance_id"`
		ChallengeHex string `json:"challenge_hex"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&initRes))
	resp.Body.Close()

	challengeNonce, err := nonceutil.FromHex(initRes.ChallengeHex)
	require.NoError(t, err)

	now := time.Now()
	statusTime := uint64(now.Unix())
	tsBytes := buildBE8(statusTime)
	deviceChallenge := append(append([]byte(nil), challengeNonce.Bytes()...), tsBytes...)
	deviceHash := sha256.Sum256(deviceChallenge)
	deviceSig, err := beaconkey.Sign(f.deviceKey, deviceHash[:])
	require.NoError(t, err)

	statusPayload := base64.StdEncoding.EncodeToString(append(append([]byte(nil), deviceSig[:]...), tsBytes...))
	statusReqBody, _ := json.Marshal(map[string]string{"payload": statusPayload})

	statusURL := f.srv.URL + "/api/entities/mall-1/beacons/beacon-1/unlocker/" + initRes.InstanceID + "/status"
	req, _ = http.NewRequest(http.MethodPut, statusURL, bytes.NewReader(statusReqBody))
	req.Header.Set("Authorization", f.bearerToken(t, "user-1"))
	resp, err = client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var statusRes struct {
		Blob string `json:"blob"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&statusRes))
	resp.Body.Close()

	blob, err := base64.StdEncoding.DecodeString(statusRes.Blob)
	require.NoError(t, err)
	require.Len(t, blob, 72)

	var deviceBytes [8]byte
	copy(deviceBytes[:], beaconkey.Tail(deviceSig, 8))
	var verifyBytes [8]byte
	copy(verifyBytes[:], blob[64:])
	var serverSig [64]byte
	copy(serverSig[:], blob[:64])

	proof := proto.Proof{
		Nonce:           [16]byte(beaconNonce),
		DeviceBytes:     deviceBytes,
		VerifyBytes:     verifyBytes,
		Timestamp:       statusTime,
		ServerSignature: serverSig,
	}

	outcomeReqBody, _ := json.Marshal(map[string]any{"success": true, "outcome": "unlocked"})
	outcomeURL := f.srv.URL + "/api/entities/mall-1/beacons/beacon-1/unlocker/" + initRes.InstanceID + "/outcome"
	req, _ = http.NewRequest(http.MethodPut, outcomeURL, bytes.NewReader(outcomeReqBody))
	req.Header.Set("Authorization", f.bearerToken(t, "user-1"))
	resp, err = client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	return proof, now
}

// TestUnlockCleanRoundTripIncrementsCounter drives a full server-issued
// proof through the real beacon validator end to end: scenario S1, a clean
// unlock that leaves the beacon's counter at 1.
func TestUnlockCleanRoundTripIncrementsCounter(t *testing.T) {
	f := newUnlockFixture(t)

	beaconNonce, err := nonceutil.Generate()
	require.NoError(t, err)

	proof, now := f.runUnlockAttempt(t, beaconNonce, f.validator.Counter())
	require.Equal(t, uint64(0), f.validator.Counter())

	err = f.validator.Validate(proof, now)
	require.NoError(t, err)
	require.Equal(t, uint64(1), f.validator.Counter())
	require.Equal(t, 0, f.validator.Attempts())
}

// TestUnlockReplayedProofRejectedCounterUnchanged replays the exact same
// server-issued proof against the beacon a second time: scenario S2, the
// nonce is already consumed so the replay is rejected and the counter does
// not move.
func TestUnlockReplayedProofRejectedCounterUnchanged(t *testing.T) {
	f := newUnlockFixture(t)

	beaconNonce, err := nonceutil.Generate()
	require.NoError(t, err)

	proof, now := f.runUnlockAttempt(t, beaconNonce, f.validator.Counter())

	require.NoError(t, f.validator.Validate(proof, now))
	require.Equal(t, uint64(1), f.validator.Counter())

	err = f.validator.Validate(proof, now)
	require.ErrorIs(t, err, beacon.ErrReplayDetected)
	require.Equal(t, uint64(1), f.validator.Counter())
	require.Equal(t, 1, f.validator.Attempts())
}
