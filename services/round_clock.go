// services/round_clock.go - Server-anchored countdowns
package services

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// RoundClock stamps round starts and measures the time left against a budget. Every stamp is
// taken from the server clock; clients only extrapolate between polls.
type RoundClock struct {
	clock clockwork.Clock
}

func NewRoundClock(clock clockwork.Clock) *RoundClock {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RoundClock{clock: clock}
}

func (c *RoundClock) Now() time.Time {
	return c.clock.Now().UTC()
}

// Remaining returns budget minus the time elapsed since start, never negative.
func (c *RoundClock) Remaining(start time.Time, budget time.Duration) time.Duration {
	left := budget - c.clock.Since(start)
	if left < 0 {
		return 0
	}
	return left
}

func (c *RoundClock) Expired(start time.Time, budget time.Duration) bool {
	return c.Remaining(start, budget) == 0
}

// ServerTimeMillis is the wall clock reported to clients for drift correction.
func (c *RoundClock) ServerTimeMillis() int64 {
	return c.Now().UnixMilli()
}
