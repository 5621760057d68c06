package clock

import "github.com/coder/quartz"

// Clock provides time operations that can be mocked for testing.
// Tests use quartz.NewMock in place of the real clock.
type Clock = quartz.Clock

// New creates a Clock backed by the system clock
func New() Clock {
	return quartz.NewReal()
}
