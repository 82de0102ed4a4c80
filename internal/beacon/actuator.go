package beacon

import "github.com/indoor-mall-nav/navign-sub000/internal/proto"

// Actuator is the tagged-dispatch interface for the three beacon actuator
// kinds (spec §4.7, Design Notes §9: "a tagged variant with a single
// tick(now) operation; no trait object is required" — here realized as a
// small interface rather than a type switch, Go's idiom for the same
// shape).
type Actuator interface {
	// Kind returns the actuator's device type.
	Kind() proto.DeviceType
	// SetOpenLine drives the door/gate "open" signal high or low.
	SetOpenLine(high bool)
	// Engage performs the actuator-kind-specific unlock action: drive the
	// relay high, pulse the servo's duty cycle, or transmit the RF packet.
	Engage()
	// Disengage reverses Engage: drop the relay, stop the servo pulse, or
	// go idle on the RF transmitter.
	Disengage()
}

// RelayActuator drives a simple two-state relay line.
type RelayActuator struct {
	openLine bool
	engaged  bool
}

// Kind returns proto.DeviceTypeRelay.
func (a *RelayActuator) Kind() proto.DeviceType { return proto.DeviceTypeRelay }

// SetOpenLine sets the relay's open-line state.
func (a *RelayActuator) SetOpenLine(high bool) { a.openLine = high }

// Engage drives the relay high.
func (a *RelayActuator) Engage() { a.engaged = true }

// Disengage drives the relay low.
func (a *RelayActuator) Disengage() { a.engaged = false }

// OpenLine reports the current open-line state, for tests.
func (a *RelayActuator) OpenLine() bool { return a.openLine }

// Engaged reports whether the relay is currently driven high, for tests.
func (a *RelayActuator) Engaged() bool { return a.engaged }

// ServoActuator pulses a duty cycle briefly rather than holding a line.
type ServoActuator struct {
	openLine bool
	pulsed   int
}

// Kind returns proto.DeviceTypeServo.
func (a *ServoActuator) Kind() proto.DeviceType { return proto.DeviceTypeServo }

// SetOpenLine sets the servo driver's open-line state.
func (a *ServoActuator) SetOpenLine(high bool) { a.openLine = high }

// Engage pulses the servo's duty cycle once.
func (a *ServoActuator) Engage() { a.pulsed++ }

// Disengage is a no-op: a servo pulse is momentary and self-terminating.
func (a *ServoActuator) Disengage() {}

// OpenLine reports the current open-line state, for tests.
func (a *ServoActuator) OpenLine() bool { return a.openLine }

// Pulses reports how many times the servo has been pulsed, for tests.
func (a *ServoActuator) Pulses() int { return a.pulsed }

// RemoteRFActuator transmits an RF packet to a remote receiver instead of
// driving a local line.
type RemoteRFActuator struct {
	openLine  bool
	transmits int
}

// Kind returns proto.DeviceTypeRemoteRF.
func (a *RemoteRFActuator) Kind() proto.DeviceType { return proto.DeviceTypeRemoteRF }

// SetOpenLine sets the local open-line state (kept for UI/status purposes
// even though the lock itself is remote).
func (a *RemoteRFActuator) SetOpenLine(high bool) { a.openLine = high }

// Engage transmits the unlock RF packet.
func (a *RemoteRFActuator) Engage() { a.transmits++ }

// Disengage is a no-op: the remote receiver re-locks on its own timeout.
func (a *RemoteRFActuator) Disengage() {}

// OpenLine reports the current open-line state, for tests.
func (a *RemoteRFActuator) OpenLine() bool { return a.openLine }

// Transmits reports how many RF packets have been sent, for tests.
func (a *RemoteRFActuator) Transmits() int { return a.transmits }
