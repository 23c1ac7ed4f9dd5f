package engine

import "time"

// Clock is the time source for timed engine phases.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// ManualClock only moves when told to.
type ManualClock struct {
	T time.Time
}

func (c *ManualClock) Now() time.Time {
	return c.T
}

func (c *ManualClock) Advance(d time.Duration) {
	c.T = c.T.Add(d)
}
