package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of a FixedClock: 2024-01-01T00:00:00Z.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// FixedClock is a deterministic timestamp source for tests.
//
// Each call to Now returns the start time advanced by step times the number
// of earlier calls, so timestamps are strictly increasing when step > 0 and
// identical across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	calls int64
}

// NewFixedClock creates a clock starting at Epoch that advances one second
// per call.
func NewFixedClock() *FixedClock {
	return NewFixedClockAt(Epoch, time.Second)
}

// NewFixedClockAt creates a clock starting at start that advances by step
// per call. A zero step freezes time.
func NewFixedClockAt(start time.Time, step time.Duration) *FixedClock {
	return &FixedClock{start: start.UTC(), step: step}
}

// Now returns the next timestamp.
//
// Implements driver.Clock.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns how many timestamps have been handed out.
func (c *FixedClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock so the next call returns the start time again.
func (c *FixedClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
