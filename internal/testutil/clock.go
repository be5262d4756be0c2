package testutil

import "sync"

// StepClock numbers trace events. It replaces wall time in scenario traces
// so the same scenario always yields the same sequence numbers.
//
// Safe for concurrent use.
type StepClock struct {
	mu  sync.Mutex
	seq int64
}

// NewStepClock returns a clock whose first Tick is 1.
func NewStepClock() *StepClock {
	return &StepClock{}
}

// Tick advances the clock and returns the new value.
func (c *StepClock) Tick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Now returns the last value handed out, or 0 before the first Tick.
func (c *StepClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Rewind sets the clock back to 0 so a scenario can be replayed.
func (c *StepClock) Rewind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
