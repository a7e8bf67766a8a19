package core

import (
	"time"
)

// Clock tracks elapsed time and the duration of the last frame.
type Clock struct {
	Start time.Time
	Last  time.Time

	Elapsed float32
	Dt      float32
}

func NewClock(now time.Time) *Clock {
	return &Clock{Start: now, Last: now}
}

// Tick advances the clock to now and returns the frame dt in seconds.
func (c *Clock) Tick(now time.Time) float32 {
	c.Dt = float32(now.Sub(c.Last).Seconds())
	if c.Dt < 0 {
		c.Dt = 0
	}
	c.Last = now
	c.Elapsed += c.Dt
	return c.Dt
}

// Step advances by a fixed dt; used by scripted runs.
func (c *Clock) Step(dt float32) {
	c.Last = c.Last.Add(time.Duration(float64(dt) * float64(time.Second)))
	c.Dt = dt
	c.Elapsed += dt
}

// FPS of the last frame, 0 before the first tick.
func (c *Clock) FPS() float32 {
	if c.Dt <= 0 {
		return 0
	}
	return 1 / c.Dt
}
