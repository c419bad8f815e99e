package types

import (
	"sync"
	"time"
)

// DefaultResolution matches the precision of a Postgres timestamptz.
const DefaultResolution = time.Microsecond

// Clock hands out strictly increasing UTC timestamps.
//
// RecordedAt is the tiebreaker of the canonical stream order, so two entries
// recorded through the same Clock never share a timestamp even when the wall
// clock stalls or steps backwards.
type Clock struct {
	mu         sync.Mutex
	now        func() time.Time
	resolution time.Duration
	last       time.Time
}

// NewClock returns a Clock reading from now, truncated to resolution.
// A nil now uses time.Now; a non-positive resolution uses DefaultResolution.
func NewClock(now func() time.Time, resolution time.Duration) *Clock {
	if now == nil {
		now = time.Now
	}
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &Clock{now: now, resolution: resolution}
}

// Now returns the next timestamp, always after the previous one.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(c.resolution)
	if !t.After(c.last) {
		t = c.last.Add(c.resolution)
	}
	c.last = t
	return t
}
