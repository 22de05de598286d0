package playback

import "time"

// Clock reports the current offset in the output device's timebase.
// The zero offset is the moment the output pipeline came up.
type Clock interface {
	Now() time.Duration
}

type monotonicClock struct {
	epoch time.Time
}

// NewMonotonicClock returns a clock anchored at the moment of creation.
func NewMonotonicClock() Clock {
	return &monotonicClock{epoch: time.Now()}
}

func (c *monotonicClock) Now() time.Duration {
	return time.Since(c.epoch)
}
