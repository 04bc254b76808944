package engine

import "sync/atomic"

// Clock is the monotonic logical clock used to stamp invocation nodes.
// Every node gets a strictly increasing seq number, which makes traces
// deterministically ordered without wall-clock races.
//
// Thread-safety: safe for concurrent use (atomic operations), although
// a single invocation tree only ever advances it from one goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
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
