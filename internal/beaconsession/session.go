// Package beaconsession implements the beacon-resident connection handler:
// it reads framed GATT-style requests off a net.Conn, reassembles them with
// blewire.Framer, dispatches them through beacon.Validator/StateMachine, and
// writes back framed responses. Factored out of cmd/navign-beacon so both
// the daemon and cross-package tests can drive a real wire-level beacon
// without a physical radio.
package beaconsession

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/indoor-mall-nav/navign-sub000/internal/beacon"
	"github.com/indoor-mall-nav/navign-sub000/internal/beaconkey"
	"github.com/indoor-mall-nav/navign-sub000/internal/blewire"
	navignmetrics "github.com/indoor-mall-nav/navign-sub000/internal/metrics"
	"github.com/indoor-mall-nav/navign-sub000/internal/nonceutil"
	"github.com/indoor-mall-nav/navign-sub000/internal/proto"
)

// frameHeaderLen is the stand-in transport's 4-byte (offset uint16, length
// uint16) big-endian header preceding each GATT-write chunk, since no real
// BLE peripheral stack backs this listener.
const frameHeaderLen = 4

// Session dispatches one connection's framed requests through the
// blewire.Framer and into the Validator/StateMachine pair, mirroring the
// teacher's per-connection handler shape in internal/netio.
type Session struct {
	BeaconID         string
	DeviceID         [24]byte
	DevicePrivateKey *ecdsa.PrivateKey
	Actuator         beacon.Actuator
	Validator        *beacon.Validator
	SM               *beacon.StateMachine
	SMMu             *sync.Mutex
	Collector        *navignmetrics.Collector
	Logger           *slog.Logger
}

// New returns a Session ready to Handle connections.
func New(beaconID string, deviceID [24]byte, devicePrivateKey *ecdsa.PrivateKey, actuator beacon.Actuator, validator *beacon.Validator, sm *beacon.StateMachine, smMu *sync.Mutex, collector *navignmetrics.Collector, logger *slog.Logger) *Session {
	return &Session{
		BeaconID:         beaconID,
		DeviceID:         deviceID,
		DevicePrivateKey: devicePrivateKey,
		Actuator:         actuator,
		Validator:        validator,
		SM:               sm,
		SMMu:             smMu,
		Collector:        collector,
		Logger:           logger,
	}
}

// Handle services GATT-style request/response exchanges on conn until the
// peer disconnects or ctx is cancelled.
func (s *Session) Handle(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	framer := blewire.NewFramer()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		offset, chunk, err := readFrame(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		if err := framer.Write(offset, chunk); err != nil {
			s.Logger.Warn("framer write rejected", slog.String("error", err.Error()))
			framer.Reset()
			continue
		}
		if !framer.Ready() {
			continue
		}

		msg, err := framer.Message()
		framer.Reset()
		if err != nil {
			s.Logger.Warn("malformed message", slog.String("error", err.Error()))
			continue
		}

		resp := s.Dispatch(msg, time.Now())
		if resp == nil {
			continue
		}
		if err := WriteMessage(conn, resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

// Dispatch handles one decoded request and returns the reply message. Any
// other message type, DebugRequest included, is logged and gets no reply
// (nil).
func (s *Session) Dispatch(msg proto.Message, now time.Time) proto.Message {
	switch m := msg.(type) {
	case proto.DeviceRequest:
		return proto.DeviceResponse{
			Type:         s.Actuator.Kind(),
			Capabilities: 0,
			DeviceID:     s.DeviceID,
		}

	case proto.NonceRequest:
		nonce, err := nonceutil.Generate()
		if err != nil {
			s.Logger.Error("nonce generation failed", slog.String("error", err.Error()))
			return proto.UnlockResponse{Success: false, Reason: proto.ReasonInvalidSignature}
		}
		sig, err := beaconkey.Sign(s.DevicePrivateKey, nonce.Bytes())
		if err != nil {
			s.Logger.Error("nonce signing failed", slog.String("error", err.Error()))
			return proto.UnlockResponse{Success: false, Reason: proto.ReasonInvalidSignature}
		}
		resp := proto.NonceResponse{Nonce: [16]byte(nonce)}
		copy(resp.Identifier[:], beaconkey.Tail(sig, 8))
		return resp

	case proto.UnlockRequest:
		err := s.Validator.Validate(m.Proof, now)
		reason := beacon.ReasonOf(err)
		success := err == nil

		if success {
			s.Collector.RecordProofAccepted(s.BeaconID)
			s.SMMu.Lock()
			before := s.SM.State()
			s.SM.NotifyUnlockSuccess(now)
			after := s.SM.State()
			s.SMMu.Unlock()
			if after != before {
				s.Collector.RecordActuatorTransition(s.BeaconID, before.String(), after.String())
			}
		} else {
			s.Collector.RecordProofRejected(s.BeaconID, reason.String())
			s.Logger.Info("unlock rejected", slog.String("reason", reason.String()))
		}

		return proto.UnlockResponse{Success: success, Reason: reason}

	default:
		s.Logger.Warn("unexpected message type", slog.String("tag", msg.Tag().String()))
		return nil
	}
}

// readFrame reads one (offset, chunk) pair from conn using the stand-in
// transport's 4-byte header: 2-byte big-endian offset, 2-byte big-endian
// chunk length, followed by the chunk bytes.
func readFrame(conn net.Conn) (int, []byte, error) {
	header := make([]byte, frameHeaderLen)
	if _, err := io.ReadFull(conn, header); err != nil {
		return 0, nil, err
	}
	offset := int(header[0])<<8 | int(header[1])
	length := int(header[2])<<8 | int(header[3])

	chunk := make([]byte, length)
	if _, err := io.ReadFull(conn, chunk); err != nil {
		return 0, nil, fmt.Errorf("read chunk: %w", err)
	}
	return offset, chunk, nil
}

// WriteMessage frames msg's encoded bytes as a sequence of
// blewire.SegmentSize chunks, each prefixed with the same (offset, length) header readFrame
// expects, so a conforming client can reassemble it with a Framer of its
// own.
func WriteMessage(conn net.Conn, msg proto.Message) error {
	encoded := msg.Encode(nil)
	for offset := 0; offset < len(encoded); offset += blewire.SegmentSize {
		end := min(offset+blewire.SegmentSize, len(encoded))
		chunk := encoded[offset:end]

		header := []byte{
			byte(offset >> 8), byte(offset),
			byte(len(chunk) >> 8), byte(len(chunk)),
		}
		if _, err := conn.Write(header); err != nil {
			return err
		}
		if _, err := conn.Write(chunk); err != nil {
			return err
		}
	}
	return nil
}

// ReadMessage reads back a framed response written by WriteMessage (or by
// a Session.Handle reply), reassembling it through a fresh blewire.Framer.
func ReadMessage(conn net.Conn) (proto.Message, error) {
	framer := blewire.NewFramer()
	for !framer.Ready() {
		offset, chunk, err := readFrame(conn)
		if err != nil {
			return nil, err
		}
		if err := framer.Write(offset, chunk); err != nil {
			return nil, err
		}
	}
	return framer.Message()
}
