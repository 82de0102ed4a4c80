// Package proto implements the bidirectional wire codec for the unlock
// protocol's BLE messages (spec §4.2, §6). Every message variant has a
// fixed byte layout: a one-byte type tag followed by fields in declaration
// order, multi-byte integers big-endian. Decoding never partially consumes
// its input — it either produces a fully valid message or an error.
package proto

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MessageType identifies the wire format of a message (spec §4.1, §6).
// Every message's first byte is its tag; tags are distinct non-zero values.
type MessageType uint8

const (
	// TagDeviceRequest asks a beacon to identify itself.
	TagDeviceRequest MessageType = 1
	// TagDeviceResponse carries the beacon's device type, capabilities, and ID.
	TagDeviceResponse MessageType = 2
	// TagNonceRequest asks a beacon for a fresh challenge nonce.
	TagNonceRequest MessageType = 3
	// TagNonceResponse carries the beacon's nonce and signed identifier.
	TagNonceResponse MessageType = 4
	// TagUnlockRequest carries a Proof for the beacon to validate.
	TagUnlockRequest MessageType = 5
	// TagUnlockResponse carries the beacon's accept/reject decision.
	TagUnlockResponse MessageType = 6
	// TagDebugRequest is reserved for manufacturing use (spec §9 Open Questions).
	TagDebugRequest MessageType = 7
	// TagDebugResponse is reserved for manufacturing use (spec §9 Open Questions).
	TagDebugResponse MessageType = 8
)

// String returns the human-readable name of the message type.
func (t MessageType) String() string {
	switch t {
	case TagDeviceRequest:
		return "DeviceRequest"
	case TagDeviceResponse:
		return "DeviceResponse"
	case TagNonceRequest:
		return "NonceRequest"
	case TagNonceResponse:
		return "NonceResponse"
	case TagUnlockRequest:
		return "UnlockRequest"
	case TagUnlockResponse:
		return "UnlockResponse"
	case TagDebugRequest:
		return "DebugRequest"
	case TagDebugResponse:
		return "DebugResponse"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// Fixed field sizes (spec §4.1, §4.2).
const (
	deviceIDSize    = 24
	nonceSize       = 16
	identifierSize  = 8
	proofSize       = 104
	debugMinimumLen = 1
)

// ExpectedLen is the fixed wire length table from spec §4.1. DebugRequest
// and DebugResponse have a minimum length only, so they are intentionally
// absent here; Decode checks those two tags against debugMinimumLen.
//
//nolint:gochecknoglobals // lookup table is intentionally package-level, same idiom as bfd.fsmTable.
var ExpectedLen = map[MessageType]int{
	TagDeviceRequest:  1,
	TagDeviceResponse: 1 + 1 + 1 + deviceIDSize, // 27
	TagNonceRequest:   1,
	TagNonceResponse:  1 + nonceSize + identifierSize, // 25
	TagUnlockRequest:  1 + proofSize,                  // 105
	TagUnlockResponse: 1 + 1 + 1,                      // 3
}

// ErrParseError indicates a message could not be decoded: wrong tag, wrong
// length, or a malformed field. Decoding never partially consumes its input.
var ErrParseError = errors.New("proto: parse error")

// ErrUnknownTag indicates the first byte of a buffer is not one of the
// known message tags.
var ErrUnknownTag = errors.New("proto: unknown message tag")

// Message is implemented by every wire message variant.
type Message interface {
	// Tag returns the message's wire type tag.
	Tag() MessageType
	// Encode appends the message's wire bytes to dst and returns the result.
	Encode(dst []byte) []byte
}

// Proof is the 104-byte server-signed authorization structure (spec §3).
// Layout: nonce(16) | device_bytes(8) | verify_bytes(8) | timestamp(8, BE) |
// server_signature(64).
type Proof struct {
	Nonce           [nonceSize]byte
	DeviceBytes     [identifierSize]byte
	VerifyBytes     [identifierSize]byte
	Timestamp       uint64
	ServerSignature [64]byte
}

// Encode appends the Proof's 104-byte wire encoding to dst.
func (p Proof) Encode(dst []byte) []byte {
	dst = append(dst, p.Nonce[:]...)
	dst = append(dst, p.DeviceBytes[:]...)
	dst = append(dst, p.VerifyBytes[:]...)
	dst = binary.BigEndian.AppendUint64(dst, p.Timestamp)
	dst = append(dst, p.ServerSignature[:]...)
	return dst
}

// DecodeProof parses exactly proofSize bytes into a Proof. It never
// partially consumes b: on error the returned Proof is the zero value.
func DecodeProof(b []byte) (Proof, error) {
	if len(b) != proofSize {
		return Proof{}, fmt.Errorf("proof: want %d bytes, got %d: %w", proofSize, len(b), ErrParseError)
	}
	var p Proof
	off := 0
	copy(p.Nonce[:], b[off:off+nonceSize])
	off += nonceSize
	copy(p.DeviceBytes[:], b[off:off+identifierSize])
	off += identifierSize
	copy(p.VerifyBytes[:], b[off:off+identifierSize])
	off += identifierSize
	p.Timestamp = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	copy(p.ServerSignature[:], b[off:off+64])
	return p, nil
}

// ChallengeBytes returns the canonical challenge bytes the beacon hashes to
// verify a Proof (spec §4.4 step 3): nonce || timestamp(BE) || counter(BE) ||
// device_bytes.
func (p Proof) ChallengeBytes(counter uint64) []byte {
	buf := make([]byte, 0, nonceSize+8+8+identifierSize)
	buf = append(buf, p.Nonce[:]...)
	buf = binary.BigEndian.AppendUint64(buf, p.Timestamp)
	buf = binary.BigEndian.AppendUint64(buf, counter)
	buf = append(buf, p.DeviceBytes[:]...)
	return buf
}

// DeviceType enumerates the beacon-side actuator hardware (spec §4.7, §9).
type DeviceType uint8

const (
	// DeviceTypeRelay drives a simple relay-actuated lock.
	DeviceTypeRelay DeviceType = 0
	// DeviceTypeServo pulses a duty cycle to move a servo-actuated latch.
	DeviceTypeServo DeviceType = 1
	// DeviceTypeRemoteRF transmits an RF packet to a remote receiver.
	DeviceTypeRemoteRF DeviceType = 2
)

// String returns the human-readable name of the device type.
func (t DeviceType) String() string {
	switch t {
	case DeviceTypeRelay:
		return "Relay"
	case DeviceTypeServo:
		return "Servo"
	case DeviceTypeRemoteRF:
		return "RemoteRF"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// Capability bits reported in DeviceResponse.
const (
	CapHumanPresence uint8 = 1 << iota
	CapBiometricGate
)

// DeviceRequest asks a beacon to identify itself. It carries no payload
// beyond its tag.
type DeviceRequest struct{}

// Tag returns TagDeviceRequest.
func (DeviceRequest) Tag() MessageType { return TagDeviceRequest }

// Encode appends the message's 1-byte wire encoding to dst.
func (m DeviceRequest) Encode(dst []byte) []byte { return append(dst, byte(m.Tag())) }

// DeviceResponse reports the beacon's device type, capability bitmask, and
// 24-byte opaque device ID (spec §4.2).
type DeviceResponse struct {
	Type         DeviceType
	Capabilities uint8
	DeviceID     [deviceIDSize]byte
}

// Tag returns TagDeviceResponse.
func (DeviceResponse) Tag() MessageType { return TagDeviceResponse }

// Encode appends the message's 27-byte wire encoding to dst.
func (m DeviceResponse) Encode(dst []byte) []byte {
	dst = append(dst, byte(m.Tag()), byte(m.Type), m.Capabilities)
	return append(dst, m.DeviceID[:]...)
}

// NonceRequest asks a beacon for a fresh challenge nonce. It carries no
// payload beyond its tag.
type NonceRequest struct{}

// Tag returns TagNonceRequest.
func (NonceRequest) Tag() MessageType { return TagNonceRequest }

// Encode appends the message's 1-byte wire encoding to dst.
func (m NonceRequest) Encode(dst []byte) []byte { return append(dst, byte(m.Tag())) }

// NonceResponse carries the beacon's freshly generated nonce and the
// last-8-bytes "identifier" computed over it (spec §4.6 step 2).
type NonceResponse struct {
	Nonce      [nonceSize]byte
	Identifier [identifierSize]byte
}

// Tag returns TagNonceResponse.
func (NonceResponse) Tag() MessageType { return TagNonceResponse }

// Encode appends the message's 25-byte wire encoding to dst.
func (m NonceResponse) Encode(dst []byte) []byte {
	dst = append(dst, byte(m.Tag()))
	dst = append(dst, m.Nonce[:]...)
	return append(dst, m.Identifier[:]...)
}

// UnlockRequest carries a Proof for the beacon to validate (spec §4.4).
type UnlockRequest struct {
	Proof Proof
}

// Tag returns TagUnlockRequest.
func (UnlockRequest) Tag() MessageType { return TagUnlockRequest }

// Encode appends the message's 105-byte wire encoding to dst.
func (m UnlockRequest) Encode(dst []byte) []byte {
	dst = append(dst, byte(m.Tag()))
	return m.Proof.Encode(dst)
}

// ReasonCode enumerates UnlockResponse failure reasons (spec §7). Zero
// means success.
type ReasonCode uint8

const (
	// ReasonNone indicates success.
	ReasonNone ReasonCode = 0
	// ReasonRateLimited indicates the beacon is rejecting attempts
	// under spec §4.4 step 1.
	ReasonRateLimited ReasonCode = 1
	// ReasonReplayDetected indicates the nonce was already seen.
	ReasonReplayDetected ReasonCode = 2
	// ReasonVerificationFailed indicates the server signature did not verify.
	ReasonVerificationFailed ReasonCode = 3
	// ReasonInvalidSignature indicates the device-local verify-bytes mismatch.
	ReasonInvalidSignature ReasonCode = 4
	// ReasonTimestampTooOld indicates the proof's timestamp is outside the
	// clock tolerance window, in the past.
	ReasonTimestampTooOld ReasonCode = 5
	// ReasonTimestampInFuture indicates the proof's timestamp is outside the
	// clock tolerance window, in the future.
	ReasonTimestampInFuture ReasonCode = 6
)

// String returns the human-readable name of the reason code.
func (r ReasonCode) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case ReasonRateLimited:
		return "RateLimited"
	case ReasonReplayDetected:
		return "ReplayDetected"
	case ReasonVerificationFailed:
		return "VerificationFailed"
	case ReasonInvalidSignature:
		return "InvalidSignature"
	case ReasonTimestampTooOld:
		return "TimestampTooOld"
	case ReasonTimestampInFuture:
		return "TimestampInFuture"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(r))
	}
}

// UnlockResponse carries the beacon's accept/reject decision (spec §4.2,
// §7: the beacon always answers, never drops silently).
type UnlockResponse struct {
	Success bool
	Reason  ReasonCode
}

// Tag returns TagUnlockResponse.
func (UnlockResponse) Tag() MessageType { return TagUnlockResponse }

// Encode appends the message's 3-byte wire encoding to dst.
func (m UnlockResponse) Encode(dst []byte) []byte {
	success := byte(0)
	if m.Success {
		success = 1
	}
	return append(dst, byte(m.Tag()), success, byte(m.Reason))
}

// DebugRequest is reserved for manufacturing use (spec §9 Open Questions).
// Only its minimum length is defined; its payload is opaque.
type DebugRequest struct {
	Payload []byte
}

// Tag returns TagDebugRequest.
func (DebugRequest) Tag() MessageType { return TagDebugRequest }

// Encode appends the message's wire encoding (tag + opaque payload) to dst.
func (m DebugRequest) Encode(dst []byte) []byte {
	dst = append(dst, byte(m.Tag()))
	return append(dst, m.Payload...)
}

// DebugResponse is reserved for manufacturing use (spec §9 Open Questions).
type DebugResponse struct {
	Payload []byte
}

// Tag returns TagDebugResponse.
func (DebugResponse) Tag() MessageType { return TagDebugResponse }

// Encode appends the message's wire encoding (tag + opaque payload) to dst.
func (m DebugResponse) Encode(dst []byte) []byte {
	dst = append(dst, byte(m.Tag()))
	return append(dst, m.Payload...)
}

// Decode parses a complete logical message buffer (as reassembled by the
// blewire framer) into its typed Message. It never partially consumes b:
// a length or tag mismatch returns ErrParseError/ErrUnknownTag and no
// message.
func Decode(b []byte) (Message, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("decode empty buffer: %w", ErrParseError)
	}
	tag := MessageType(b[0])

	if tag == TagDebugRequest || tag == TagDebugResponse {
		if len(b) < debugMinimumLen {
			return nil, fmt.Errorf("decode %s: shorter than minimum %d: %w", tag, debugMinimumLen, ErrParseError)
		}
		payload := append([]byte(nil), b[1:]...)
		if tag == TagDebugRequest {
			return DebugRequest{Payload: payload}, nil
		}
		return DebugResponse{Payload: payload}, nil
	}

	want, ok := ExpectedLen[tag]
	if !ok {
		return nil, fmt.Errorf("decode tag %d: %w", b[0], ErrUnknownTag)
	}
	if len(b) != want {
		return nil, fmt.Errorf("decode %s: want %d bytes, got %d: %w", tag, want, len(b), ErrParseError)
	}

	switch tag {
	case TagDeviceRequest:
		return DeviceRequest{}, nil
	case TagDeviceResponse:
		var m DeviceResponse
		m.Type = DeviceType(b[1])
		m.Capabilities = b[2]
		copy(m.DeviceID[:], b[3:3+deviceIDSize])
		return m, nil
	case TagNonceRequest:
		return NonceRequest{}, nil
	case TagNonceResponse:
		var m NonceResponse
		copy(m.Nonce[:], b[1:1+nonceSize])
		copy(m.Identifier[:], b[1+nonceSize:1+nonceSize+identifierSize])
		return m, nil
	case TagUnlockRequest:
		p, err := DecodeProof(b[1:])
		if err != nil {
			return nil, err
		}
		return UnlockRequest{Proof: p}, nil
	case TagUnlockResponse:
		return UnlockResponse{
			Success: b[1] != 0,
			Reason:  ReasonCode(b[2]),
		}, nil
	default:
		return nil, fmt.Errorf("decode tag %d: %w", b[0], ErrUnknownTag)
	}
}
