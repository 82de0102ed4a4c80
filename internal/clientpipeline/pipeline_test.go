package clientpipeline

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/indoor-mall-nav/navign-sub000/internal/beaconkey"
	"github.com/indoor-mall-nav/navign-sub000/internal/nonceutil"
	"github.com/indoor-mall-nav/navign-sub000/internal/proto"
	"github.com/stretchr/testify/require"
)

type fakeBLE struct {
	devices   []proto.DeviceResponse
	nonce     proto.NonceResponse
	unlockRes proto.UnlockResponse
	unlockErr error
}

func (f *fakeBLE) Scan(ctx context.Context) ([]proto.DeviceResponse, error) {
	return f.devices, nil
}

func (f *fakeBLE) RequestNonce(ctx context.Context, target proto.DeviceResponse) (proto.NonceResponse, error) {
	return f.nonce, nil
}

func (f *fakeBLE) Unlock(ctx context.Context, target proto.DeviceResponse, req proto.UnlockRequest) (proto.UnlockResponse, error) {
	return f.unlockRes, f.unlockErr
}

type fakeServer struct {
	challengeNonce [16]byte
	beaconKey      *ecdsa.PrivateKey
	outcomeCalled  bool
	outcomeSuccess bool
}

func (f *fakeServer) Initiate(ctx context.Context, deviceID string, beaconNonce [16]byte, identifier [8]byte) (InitiateResult, error) {
	return InitiateResult{InstanceID: "instance-1", ChallengeNonce: f.challengeNonce}, nil
}

func (f *fakeServer) Status(ctx context.Context, instanceID string, deviceSignature [64]byte, now uint64) (StatusResult, error) {
	hash := challengeHash(f.challengeNonce, now)
	sig, err := beaconkey.Sign(f.beaconKey, hash)
	if err != nil {
		return StatusResult{}, err
	}
	var res StatusResult
	res.ServerSignature = sig
	copy(res.BeaconVerifier[:], beaconkey.Tail(sig, 8))
	return res, nil
}

func (f *fakeServer) Outcome(ctx context.Context, instanceID string, success bool, outcome string) error {
	f.outcomeCalled = true
	f.outcomeSuccess = success
	return nil
}

func testDeviceID(t *testing.T) [24]byte {
	t.Helper()
	var id [24]byte
	copy(id[:], "beacon-device-001")
	return id
}

func newFixture(t *testing.T) (*Pipeline, *fakeBLE, *fakeServer) {
	t.Helper()
	deviceKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	beaconKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	beaconNonce, err := nonceutil.Generate()
	require.NoError(t, err)
	challengeNonce, err := nonceutil.Generate()
	require.NoError(t, err)

	deviceID := testDeviceID(t)
	ble := &fakeBLE{
		devices: []proto.DeviceResponse{
			{Type: proto.DeviceTypeRelay, DeviceID: deviceID},
		},
		nonce: proto.NonceResponse{
			Nonce:      [16]byte(beaconNonce),
			Identifier: [8]byte{1, 2, 3, 4, 5, 6, 7, 8},
		},
		unlockRes: proto.UnlockResponse{Success: true, Reason: proto.ReasonNone},
	}
	server := &fakeServer{challengeNonce: [16]byte(challengeNonce), beaconKey: beaconKey}

	p := New(ble, server, "device-1", deviceKey, nil, nil)
	p.clock = func() time.Time { return time.Unix(1_700_000_500, 0) }
	return p, ble, server
}

func TestRunSucceedsEndToEnd(t *testing.T) {
	p, _, server := newFixture(t)
	deviceID := testDeviceID(t)

	outcome, err := p.Run(context.Background(), string(deviceID[:]))
	require.NoError(t, err)
	require.True(t, outcome.Success)
	require.Equal(t, "instance-1", outcome.InstanceID)
	require.Equal(t, StateDone, p.State())
	require.True(t, server.outcomeCalled)
	require.True(t, server.outcomeSuccess)
}

func TestRunAbortsOnBiometricDenial(t *testing.T) {
	p, _, server := newFixture(t)
	p.gate = func(ctx context.Context) (bool, error) { return false, nil }
	deviceID := testDeviceID(t)

	_, err := p.Run(context.Background(), string(deviceID[:]))
	require.ErrorIs(t, err, ErrBiometricDenied)
	require.Equal(t, StateAborted, p.State())
	require.False(t, server.outcomeCalled)
}

func TestRunFailsWhenNoDeviceMatches(t *testing.T) {
	p, _, _ := newFixture(t)
	_, err := p.Run(context.Background(), "no-such-device")
	require.ErrorIs(t, err, ErrNoTargetFound)
}

func TestRunReportsBeaconRejection(t *testing.T) {
	p, ble, server := newFixture(t)
	ble.unlockRes = proto.UnlockResponse{Success: false, Reason: proto.ReasonReplayDetected}
	deviceID := testDeviceID(t)

	outcome, err := p.Run(context.Background(), string(deviceID[:]))
	require.NoError(t, err)
	require.False(t, outcome.Success)
	require.Equal(t, proto.ReasonReplayDetected, outcome.Reason)
	require.True(t, server.outcomeCalled)
	require.False(t, server.outcomeSuccess)
}
