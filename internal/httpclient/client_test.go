package httpclient_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/indoor-mall-nav/navign-sub000/internal/beaconkey"
	"github.com/indoor-mall-nav/navign-sub000/internal/httpapi"
	"github.com/indoor-mall-nav/navign-sub000/internal/httpclient"
	"github.com/indoor-mall-nav/navign-sub000/internal/nonceutil"
	"github.com/indoor-mall-nav/navign-sub000/internal/unlocker"
)

var jwtSecret = []byte("test-secret")

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: userID})
	signed, err := token.SignedString(jwtSecret)
	require.NoError(t, err)
	return signed
}

func newTestServer(t *testing.T) (*httptest.Server, *ecdsa.PrivateKey, *ecdsa.PrivateKey) {
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

	chained := httpapi.Chain(mux, httpapi.RecoveryMiddleware(nil), httpapi.LoggingMiddleware(nil), httpapi.JWTMiddleware(jwtSecret, nil))
	srv := httptest.NewServer(chained)
	t.Cleanup(srv.Close)
	return srv, beaconKey, deviceKey
}

func buildBE8(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func TestClientUnlockFlowEndToEnd(t *testing.T) {
	srv, beaconKey, deviceKey := newTestServer(t)
	client := httpclient.New(srv.URL, "mall-1", "beacon-1", bearerToken(t, "user-1"))

	ctx := context.Background()

	beaconNonce, err := nonceutil.Generate()
	require.NoError(t, err)
	bootChallenge := append(append([]byte(nil), beaconNonce.Bytes()...), buildBE8(1_700_000_000)...)
	bootChallenge = append(bootChallenge, buildBE8(0)...)
	bootHash := sha256.Sum256(bootChallenge)
	bootSig, err := beaconkey.Sign(beaconKey, bootHash[:])
	require.NoError(t, err)

	var identifier [8]byte
	copy(identifier[:], beaconkey.Tail(bootSig, 8))

	initRes, err := client.Initiate(ctx, "device-1", [16]byte(beaconNonce), identifier)
	require.NoError(t, err)
	require.NotEmpty(t, initRes.InstanceID)

	now := uint64(time.Now().Unix())
	deviceChallenge := append(append([]byte(nil), initRes.ChallengeNonce[:]...), buildBE8(now)...)
	deviceHash := sha256.Sum256(deviceChallenge)
	deviceSig, err := beaconkey.Sign(deviceKey, deviceHash[:])
	require.NoError(t, err)

	statusRes, err := client.Status(ctx, initRes.InstanceID, deviceSig, now)
	require.NoError(t, err)
	require.NotEqual(t, [64]byte{}, statusRes.ServerSignature)

	err = client.Outcome(ctx, initRes.InstanceID, true, "unlocked")
	require.NoError(t, err)
}

func TestClientInitiateWithoutTokenIsRejected(t *testing.T) {
	srv, _, _ := newTestServer(t)
	client := httpclient.New(srv.URL, "mall-1", "beacon-1", "")

	_, err := client.Initiate(context.Background(), "device-1", [16]byte{}, [8]byte{})
	require.Error(t, err)
}
