package playback

import "time"

// Clock is the monotonic rendering clock playback is scheduled
// against. Now reports the position since an arbitrary epoch; it
// never decreases.
type Clock interface {
	Now() time.Duration
	After(d time.Duration) <-chan time.Time
}

// SystemClock returns a Clock backed by the runtime's monotonic clock,
// with its epoch at the call.
func SystemClock() Clock {
	return &systemClock{start: time.Now()}
}

type systemClock struct {
	start time.Time
}

func (c *systemClock) Now() time.Duration {
	return time.Since(c.start)
}

func (c *systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
