// Package testutil provides deterministic clocks, id generators, and
// action builders shared by tests across packages.
package testutil

import (
	"sync"
	"time"
)

// ManualClock provides a thread-safe wall clock for tests that only
// moves when told to. Coalescing-window behavior becomes exactly
// reproducible: two dispatches at the same manual instant always land
// inside the window, and an Advance past the window always splits
// them.
//
// Thread-safety: all methods are safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock pinned at a fixed arbitrary epoch.
func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Unix(1_700_000_000, 0)}
}

// Now returns the current manual instant. Pass this method as the
// history store's time source.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
