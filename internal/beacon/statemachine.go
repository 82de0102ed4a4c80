package beacon

import (
	"log/slog"
	"time"
)

// State is the beacon unlock state machine's current state (spec §4.7).
type State int

const (
	// StateIdle is the resting, locked state.
	StateIdle State = iota
	// StateOpen means the "open" line is driven high, waiting for the
	// guest to approach within openHoldDuration.
	StateOpen
	// StateActuatorHigh means the actuator is engaged (relay high, servo
	// pulsing, or RF transmitted) following presence detection.
	StateActuatorHigh
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateOpen:
		return "Open"
	case StateActuatorHigh:
		return "ActuatorHigh"
	default:
		return "Unknown"
	}
}

// Hold durations from spec §4.7: "This gives the guest up to 10s to
// approach; approach detection re-arms the actuator for another 5s of
// hold."
const (
	openHoldDuration     = 10 * time.Second
	actuatorHoldDuration = 5 * time.Second
)

// PresenceFunc reads the beacon's human-presence sensor. It is injected so
// tests can drive the state machine without real hardware.
type PresenceFunc func() bool

// StateMachine implements the beacon unlock state machine (spec §4.7). It
// is driven by a single caller (the beacon main loop, spec §5) and is not
// safe for concurrent use.
type StateMachine struct {
	actuator Actuator
	presence PresenceFunc
	logger   *slog.Logger

	state          State
	lastOpen       time.Time
	lastActuatorOn time.Time
}

// NewStateMachine returns a StateMachine starting in StateIdle.
func NewStateMachine(actuator Actuator, presence PresenceFunc, logger *slog.Logger) *StateMachine {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateMachine{
		actuator: actuator,
		presence: presence,
		logger:   logger.With(slog.String("component", "beacon.statemachine")),
		state:    StateIdle,
	}
}

// State returns the machine's current state.
func (m *StateMachine) State() State { return m.state }

// NotifyUnlockSuccess drives the Idle -> Open transition on a successful
// C5 validation (spec §4.7: "Idle -> Open on C5 success"). Calling it
// while not Idle is a no-op: a success mid-cycle does not restart the
// hold clock.
func (m *StateMachine) NotifyUnlockSuccess(now time.Time) {
	if m.state != StateIdle {
		return
	}
	m.state = StateOpen
	m.lastOpen = now
	m.actuator.SetOpenLine(true)
	m.logger.Info("unlock granted", slog.Time("at", now))
}

// Tick advances the state machine by one wallclock sample (spec §4.7). now
// is read exactly once by the caller and passed in, per spec §5.
func (m *StateMachine) Tick(now time.Time) {
	switch m.state {
	case StateIdle:
		// No timers running; nothing to do until NotifyUnlockSuccess.
	case StateOpen:
		m.tickOpen(now)
	case StateActuatorHigh:
		m.tickActuatorHigh(now)
	}
}

func (m *StateMachine) tickOpen(now time.Time) {
	if m.presence != nil && m.presence() {
		m.actuator.Engage()
		m.lastActuatorOn = now
		m.state = StateActuatorHigh
		m.logger.Info("presence detected, actuator engaged", slog.String("kind", m.actuator.Kind().String()))
		return
	}
	if now.Sub(m.lastOpen) > openHoldDuration {
		m.actuator.SetOpenLine(false)
		m.state = StateIdle
		m.logger.Info("open hold expired, returning to idle")
	}
}

// tickActuatorHigh applies relay re-arming semantics to every actuator
// kind (Design Notes §9 decision 3): continued presence detection resets
// the hold window instead of closing on the original deadline.
func (m *StateMachine) tickActuatorHigh(now time.Time) {
	if m.presence != nil && m.presence() {
		m.lastActuatorOn = now
	}
	if now.Sub(m.lastActuatorOn) > actuatorHoldDuration {
		m.actuator.Disengage()
		m.actuator.SetOpenLine(false)
		m.state = StateIdle
		m.logger.Info("actuator hold expired, returning to idle")
	}
}
