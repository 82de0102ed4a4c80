package beacon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIdleToOpenOnUnlockSuccess(t *testing.T) {
	relay := &RelayActuator{}
	m := NewStateMachine(relay, nil, nil)
	now := time.Unix(1_700_000_000, 0)

	m.NotifyUnlockSuccess(now)
	require.Equal(t, StateOpen, m.State())
	require.True(t, relay.OpenLine())
}

func TestUnlockSuccessIsNoOpWhenNotIdle(t *testing.T) {
	relay := &RelayActuator{}
	m := NewStateMachine(relay, nil, nil)
	now := time.Unix(1_700_000_000, 0)

	m.NotifyUnlockSuccess(now)
	m.NotifyUnlockSuccess(now.Add(5 * time.Second))
	require.Equal(t, now, m.lastOpen)
}

func TestOpenClosesAfterTenSecondsWithoutPresence(t *testing.T) {
	relay := &RelayActuator{}
	absent := func() bool { return false }
	m := NewStateMachine(relay, absent, nil)
	now := time.Unix(1_700_000_000, 0)

	m.NotifyUnlockSuccess(now)
	m.Tick(now.Add(9 * time.Second))
	require.Equal(t, StateOpen, m.State())

	m.Tick(now.Add(11 * time.Second))
	require.Equal(t, StateIdle, m.State())
	require.False(t, relay.OpenLine())
}

func TestPresenceEngagesActuator(t *testing.T) {
	relay := &RelayActuator{}
	present := func() bool { return true }
	m := NewStateMachine(relay, present, nil)
	now := time.Unix(1_700_000_000, 0)

	m.NotifyUnlockSuccess(now)
	m.Tick(now.Add(2 * time.Second))

	require.Equal(t, StateActuatorHigh, m.State())
	require.True(t, relay.Engaged())
}

func TestActuatorHighReturnsToIdleAfterFiveSeconds(t *testing.T) {
	relay := &RelayActuator{}
	present := true
	m := NewStateMachine(relay, func() bool { return present }, nil)
	now := time.Unix(1_700_000_000, 0)

	m.NotifyUnlockSuccess(now)
	m.Tick(now.Add(time.Second))
	require.Equal(t, StateActuatorHigh, m.State())

	present = false
	m.Tick(now.Add(7 * time.Second))
	require.Equal(t, StateIdle, m.State())
	require.False(t, relay.Engaged())
	require.False(t, relay.OpenLine())
}

// TestContinuedPresenceReArmsActuatorHold exercises Design Notes §9
// decision 3: a servo re-detecting presence while ActuatorHigh extends the
// hold window using relay semantics, rather than closing on the original
// 5s deadline.
func TestContinuedPresenceReArmsActuatorHold(t *testing.T) {
	servo := &ServoActuator{}
	present := true
	m := NewStateMachine(servo, func() bool { return present }, nil)
	now := time.Unix(1_700_000_000, 0)

	m.NotifyUnlockSuccess(now)
	m.Tick(now.Add(time.Second))
	require.Equal(t, StateActuatorHigh, m.State())

	// Still present 4s later: within the original window, re-arms it.
	m.Tick(now.Add(5 * time.Second))
	require.Equal(t, StateActuatorHigh, m.State())

	// 4s after the re-arm (9s total), still held thanks to re-arming.
	m.Tick(now.Add(9 * time.Second))
	require.Equal(t, StateActuatorHigh, m.State())

	present = false
	m.Tick(now.Add(15 * time.Second))
	require.Equal(t, StateIdle, m.State())
}
