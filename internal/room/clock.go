package room

import "sync/atomic"

// Clock is the per-room monotonic sequence counter. Every accepted
// action is stamped with a strictly increasing value from this clock;
// wall-clock time is never used for ordering.
//
// Thread-safety: safe for concurrent use, though the room's
// single-writer loop is typically the only caller of Next.
type Clock struct {
	seq atomic.Int64
}

// NewClockAt creates a clock resuming from a specific sequence number,
// typically the last sequence persisted in the project's log.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
