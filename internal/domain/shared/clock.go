package shared

import (
	"sync"
	"time"
)

// Clock abstracts the ambient ledger clock. All timelocks in the
// protocol are evaluated as simple comparisons against an injected
// clock so that boundary behavior is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns the current wall-clock time
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock is a manually advanced clock for tests and simulations
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a fixed clock starting at the given instant
func NewFixedClock(start time.Time) *FixedClock {
	return &FixedClock{now: start}
}

// Now returns the clock's current instant
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SetNow pins the clock to a specific instant
func (c *FixedClock) SetNow(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
