// Package replay implements the beacon-side replay-prevention nonce cache
// (spec §3 NonceCache, §4.3).
package replay

import (
	"sync"
	"time"

	"github.com/indoor-mall-nav/navign-sub000/internal/nonceutil"
)

// Capacity is the fixed number of entries the cache retains (spec §4.3:
// "N = 32"). This matches the embedded-constraints note in spec §9: all
// beacon-side buffers are statically sized.
const Capacity = 32

// RetentionWindow is the age past which an entry is evicted, and the clock
// tolerance applied to incoming timestamps (spec §4.3 steps 1-2).
const RetentionWindow = 300 * time.Second

// entry pairs a seen nonce with the timestamp it was observed at.
type entry struct {
	nonce nonceutil.Nonce
	seen  time.Time
}

// Cache is a bounded, ordered set of recently seen nonces with timestamps.
// On overflow the oldest entry is evicted; entries older than
// RetentionWindow are evicted lazily on lookup. Insertion and lookup are
// both O(Capacity), which is acceptable for the fixed small N this cache
// is sized for (spec §4.3: "insertion must be O(N)").
//
// Cache is safe for concurrent use, matching the single-mutex discipline
// used elsewhere in this codebase for small, frequently-touched state.
type Cache struct {
	mu      sync.Mutex
	entries []entry
}

// NewCache returns an empty Cache with room for Capacity entries.
func NewCache() *Cache {
	return &Cache{entries: make([]entry, 0, Capacity)}
}

// CheckAndMark returns true iff nonce was unseen in the retention window
// relative to now, and in that case inserts it. It implements the policy
// from spec §4.3 exactly:
//
//  1. Reject (return false, without inserting) if |now - timestamp| > 300s.
//  2. Evict all entries older than 300s.
//  3. If nonce is already present, return false.
//  4. Else insert, evicting the oldest entry first if at capacity.
func (c *Cache) CheckAndMark(nonce nonceutil.Nonce, timestamp time.Time, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if absDuration(now.Sub(timestamp)) > RetentionWindow {
		return false
	}

	c.evictOlderThanLocked(now)

	for _, e := range c.entries {
		if e.nonce == nonce {
			return false
		}
	}

	if len(c.entries) >= Capacity {
		// Oldest entry is at index 0 since entries are only ever appended
		// in arrival order and evicted from the front.
		c.entries = c.entries[1:]
	}
	c.entries = append(c.entries, entry{nonce: nonce, seen: now})
	return true
}

// evictOlderThanLocked removes entries whose seen time is more than
// RetentionWindow before now. Callers must hold c.mu.
func (c *Cache) evictOlderThanLocked(now time.Time) {
	cutoff := 0
	for cutoff < len(c.entries) && now.Sub(c.entries[cutoff].seen) > RetentionWindow {
		cutoff++
	}
	if cutoff > 0 {
		c.entries = c.entries[cutoff:]
	}
}

// Len returns the number of entries currently retained. Exposed for tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
