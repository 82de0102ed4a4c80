package beaconkey

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func genKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return priv
}

func TestSignIsDeterministic(t *testing.T) {
	priv := genKey(t)
	hash := sha256.Sum256([]byte("challenge"))

	sig1, err := Sign(priv, hash[:])
	require.NoError(t, err)
	sig2, err := Sign(priv, hash[:])
	require.NoError(t, err)

	require.Equal(t, sig1, sig2)
	require.True(t, Verify(&priv.PublicKey, hash[:], sig1))
}

func TestSignDiffersAcrossMessages(t *testing.T) {
	priv := genKey(t)
	h1 := sha256.Sum256([]byte("one"))
	h2 := sha256.Sum256([]byte("two"))

	sig1, err := Sign(priv, h1[:])
	require.NoError(t, err)
	sig2, err := Sign(priv, h2[:])
	require.NoError(t, err)

	require.NotEqual(t, sig1, sig2)
}

func TestVerifyRejectsBitFlip(t *testing.T) {
	priv := genKey(t)
	hash := sha256.Sum256([]byte("challenge"))

	sig, err := Sign(priv, hash[:])
	require.NoError(t, err)

	flipped := sig
	flipped[0] ^= 0x01
	require.False(t, Verify(&priv.PublicKey, hash[:], flipped))
}

func TestTailReturnsLastNBytes(t *testing.T) {
	var sig [SignatureSize]byte
	for i := range sig {
		sig[i] = byte(i)
	}
	tail := Tail(sig, 8)
	require.Len(t, tail, 8)
	require.Equal(t, byte(56), tail[0])
	require.Equal(t, byte(63), tail[7])
}
