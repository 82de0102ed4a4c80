// Package blewire implements the BLE packet framer that reassembles
// multi-segment GATT writes into one logical message, and chunks outbound
// logical messages into 125-byte read windows (spec §4.1, §6).
package blewire

import (
	"errors"
	"fmt"

	"github.com/indoor-mall-nav/navign-sub000/internal/proto"
)

// SegmentSize is the effective BLE GATT write/read payload size (spec §1:
// "~125-byte effective MTU").
const SegmentSize = 125

// ReadWindowSize is the fixed size of the buffer returned by Read, matching
// native BLE attribute read sizing (spec §4.1).
const ReadWindowSize = 128

// MaxBufferSize bounds the inbound receive buffer. A message whose declared
// or accumulated length would exceed this is rejected with ErrBufferFull
// (spec §9: "receive/send buffers of 256 bytes").
const MaxBufferSize = 256

// ErrBufferFull indicates an inbound write would grow the receive buffer
// beyond MaxBufferSize.
var ErrBufferFull = errors.New("blewire: buffer full")

// ErrLengthMismatch indicates a non-zero offset write does not immediately
// follow the bytes already buffered, which would leave a gap.
var ErrLengthMismatch = errors.New("blewire: offset does not match buffered length")

// debugMinimumLen is the minimum length at which a DEBUG message is
// considered complete (spec §4.1: "DEBUG has a minimum length only").
const debugMinimumLen = 1

// Framer reassembles inbound BLE GATT writes into one logical message and
// serves outbound logical messages as a sequence of fixed-size read
// windows. One Framer handles one direction pair (recv + send) for a
// single BLE characteristic, matching the single primary characteristic
// described in spec §6.
type Framer struct {
	recvBuf []byte
	sendBuf []byte
}

// NewFramer returns an empty Framer.
func NewFramer() *Framer {
	return &Framer{}
}

// Write appends an inbound GATT write chunk at the given offset. offset=0
// truncates (resets) the receive buffer, starting a new logical message
// (spec §4.1: "a new offset-0 write truncates the receive buffer").
func (f *Framer) Write(offset int, chunk []byte) error {
	if offset == 0 {
		f.recvBuf = f.recvBuf[:0]
	}
	if offset != len(f.recvBuf) {
		return fmt.Errorf("write at offset %d, buffered %d bytes: %w", offset, len(f.recvBuf), ErrLengthMismatch)
	}
	if offset+len(chunk) > MaxBufferSize {
		return fmt.Errorf("write would grow buffer to %d bytes: %w", offset+len(chunk), ErrBufferFull)
	}
	f.recvBuf = append(f.recvBuf, chunk...)
	return nil
}

// Ready reports whether the receive buffer currently holds one complete
// logical message, decided by the first byte's type-specific length from
// the wire length table (spec §4.1). A buffer whose first byte is not a
// known tag is never ready and never errors, however many bytes follow.
func (f *Framer) Ready() bool {
	if len(f.recvBuf) == 0 {
		return false
	}
	tag := proto.MessageType(f.recvBuf[0])

	if tag == proto.TagDebugRequest || tag == proto.TagDebugResponse {
		return len(f.recvBuf) >= debugMinimumLen
	}

	want, ok := proto.ExpectedLen[tag]
	if !ok {
		return false
	}
	return len(f.recvBuf) == want
}

// Message returns the reassembled logical message once Ready reports true.
// It does not clear the receive buffer; call Reset before starting a new
// message if the transport will not itself issue an offset-0 write.
func (f *Framer) Message() (proto.Message, error) {
	if !f.Ready() {
		return nil, fmt.Errorf("message requested before buffer is ready: %w", proto.ErrParseError)
	}
	return proto.Decode(f.recvBuf)
}

// Reset clears both the receive and send buffers.
func (f *Framer) Reset() {
	f.recvBuf = f.recvBuf[:0]
	f.sendBuf = nil
}

// SetOutbound loads a logical message to be served over subsequent Read
// calls, replacing any message previously queued for send.
func (f *Framer) SetOutbound(msg proto.Message) {
	f.sendBuf = msg.Encode(nil)
}

// Read returns the ReadWindowSize-byte window covering [offset,
// offset+SegmentSize) of the outbound payload, left-justified at the start
// of the window and zero-padded to fill the remainder (spec §4.1: "left-
// padded into a fixed 128-byte output window").
func (f *Framer) Read(offset int) []byte {
	out := make([]byte, ReadWindowSize)
	if offset >= len(f.sendBuf) {
		return out
	}
	end := min(offset+SegmentSize, len(f.sendBuf))
	copy(out, f.sendBuf[offset:end])
	return out
}
