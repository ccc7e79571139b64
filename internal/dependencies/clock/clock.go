package clock

import "time"

// Clock provides time operations that can be mocked for testing
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock.
//
// Times are UTC with the monotonic reading stripped: every timestamp this
// clock produces ends up in a shared store and is compared against values
// written by other processes, where only the wall reading is meaningful.
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current wall time
func (c *RealClock) Now() time.Time {
	return time.Now().UTC().Round(0)
}
