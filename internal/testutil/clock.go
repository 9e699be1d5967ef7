package testutil

import (
	"fmt"
	"sync"
	"time"
)

// FixedClock provides a thread-safe, manually advanced clock for tests.
//
// Deterministic replay and golden comparison require the same scenario to
// produce byte-identical reports, so tests never read the wall clock.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock pinned to t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t}
}

// Now returns the current pinned time. Suitable as a WithClock argument.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *FixedClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// SequenceIDs returns an id generator producing "<prefix>-1", "<prefix>-2"
// and so on. Suitable as a WithIDFunc argument.
//
// Thread-safe: safe for concurrent use via internal mutex.
func SequenceIDs(prefix string) func() string {
	var mu sync.Mutex
	var n int
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
