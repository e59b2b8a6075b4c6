package sim

import "sync/atomic"

// Clock is a simulated free-running tick counter. Time only moves when
// Set or Advance is called.
type Clock struct {
	now atomic.Uint64
}

// Now implements core.ClockSource
func (c *Clock) Now() uint64 {
	return c.now.Load()
}

// Reset implements core.ClockSource
func (c *Clock) Reset() {
	c.now.Store(0)
}

// Set moves the clock to t. Moving backwards is ignored.
func (c *Clock) Set(t uint64) {
	for {
		now := c.now.Load()
		if t <= now || c.now.CompareAndSwap(now, t) {
			return
		}
	}
}

// Advance moves the clock forward by ticks and returns the new time
func (c *Clock) Advance(ticks uint64) uint64 {
	return c.now.Add(ticks)
}
