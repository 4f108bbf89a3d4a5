package engine

import "sync/atomic"

// Clock counts completed ticks of a sketch.
//
// The sample position is the only notion of time inside the engine; wall
// clock time is never consulted. Reads are atomic so that a host can poll
// the position from a UI goroutine while the render loop ticks.
type Clock struct {
	samples atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock by one sample and returns the new position.
func (c *Clock) Next() int64 {
	return c.samples.Add(1)
}

// Current returns the number of completed ticks.
func (c *Clock) Current() int64 {
	return c.samples.Load()
}

// Reset rewinds the clock to 0.
func (c *Clock) Reset() {
	c.samples.Store(0)
}
