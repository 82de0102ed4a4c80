package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripAllVariants(t *testing.T) {
	deviceID := [deviceIDSize]byte{}
	copy(deviceID[:], "beacon-front-door-000001")

	nonce := [nonceSize]byte{0xAA, 0xAA, 0xAA}
	ident := [identifierSize]byte{1, 2, 3, 4, 5, 6, 7, 8}

	cases := []Message{
		DeviceRequest{},
		DeviceResponse{Type: DeviceTypeServo, Capabilities: CapHumanPresence, DeviceID: deviceID},
		NonceRequest{},
		NonceResponse{Nonce: nonce, Identifier: ident},
		UnlockRequest{Proof: Proof{
			Nonce:           nonce,
			DeviceBytes:     ident,
			VerifyBytes:     ident,
			Timestamp:       1_700_000_000,
			ServerSignature: [64]byte{9, 9, 9},
		}},
		UnlockResponse{Success: true, Reason: ReasonNone},
		UnlockResponse{Success: false, Reason: ReasonReplayDetected},
	}

	for _, want := range cases {
		encoded := want.Encode(nil)
		got, err := Decode(encoded)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	_, err := Decode([]byte{byte(TagNonceResponse), 0x01})
	require.ErrorIs(t, err, ErrParseError)
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	_, err := Decode([]byte{0xFF})
	require.ErrorIs(t, err, ErrUnknownTag)
}

func TestDecodeDebugAcceptsMinimumLength(t *testing.T) {
	msg, err := Decode([]byte{byte(TagDebugRequest), 0xAB, 0xCD})
	require.NoError(t, err)
	require.Equal(t, DebugRequest{Payload: []byte{0xAB, 0xCD}}, msg)
}

func TestChallengeBytesOrder(t *testing.T) {
	p := Proof{
		Nonce:       [16]byte{1, 2, 3},
		DeviceBytes: [8]byte{4, 5, 6},
		Timestamp:   7,
	}
	got := p.ChallengeBytes(9)
	require.Len(t, got, 16+8+8+8)
	require.Equal(t, p.Nonce[:], got[:16])
	require.Equal(t, uint64(7), beUint64(got[16:24]))
	require.Equal(t, uint64(9), beUint64(got[24:32]))
	require.Equal(t, p.DeviceBytes[:], got[32:40])
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
