package replay

import (
	"testing"
	"time"

	"github.com/indoor-mall-nav/navign-sub000/internal/nonceutil"
	"github.com/stretchr/testify/require"
)

func mustNonce(t *testing.T, b byte) nonceutil.Nonce {
	t.Helper()
	var n nonceutil.Nonce
	n[0] = b
	return n
}

// TestFirstSeenThenReplayed is invariant 7 from spec §8: after
// CheckAndMark(n, t) returns true, the next 31 calls with distinct nonces
// still return true, and a repeat of n within 300s returns false.
func TestFirstSeenThenReplayed(t *testing.T) {
	c := NewCache()
	now := time.Unix(1_700_000_000, 0)
	n := mustNonce(t, 0xAA)

	require.True(t, c.CheckAndMark(n, now, now))

	for i := range Capacity - 1 {
		distinct := mustNonce(t, byte(i+1))
		require.True(t, c.CheckAndMark(distinct, now, now))
	}

	require.False(t, c.CheckAndMark(n, now, now.Add(10*time.Second)))
}

func TestOverflowEvictsOldest(t *testing.T) {
	c := NewCache()
	now := time.Unix(1_700_000_000, 0)

	first := mustNonce(t, 0x01)
	require.True(t, c.CheckAndMark(first, now, now))

	for i := range Capacity {
		distinct := mustNonce(t, byte(i+2))
		require.True(t, c.CheckAndMark(distinct, now, now))
	}
	require.Equal(t, Capacity, c.Len())

	// first was evicted to make room, so it is accepted again.
	require.True(t, c.CheckAndMark(first, now, now))
}

func TestClockToleranceRejection(t *testing.T) {
	c := NewCache()
	now := time.Unix(1_700_000_000, 0)
	n := mustNonce(t, 0x01)

	// Scenario S3: timestamp 400s in the past is outside the 300s window.
	stale := now.Add(-400 * time.Second)
	require.False(t, c.CheckAndMark(n, stale, now))
	require.Equal(t, 0, c.Len())
}

func TestLazyEvictionAfterRetentionWindow(t *testing.T) {
	c := NewCache()
	t0 := time.Unix(1_700_000_000, 0)
	n := mustNonce(t, 0x01)

	require.True(t, c.CheckAndMark(n, t0, t0))

	later := t0.Add(RetentionWindow + time.Second)
	// n has aged out, so it is both evicted and accepted again.
	require.True(t, c.CheckAndMark(n, later, later))
}
