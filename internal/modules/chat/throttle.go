package chat

import "time"

// throttle admits at most one event per interval. last starts at the claim
// time so the "thinking" broadcast counts as the first event.
type throttle struct {
	interval time.Duration
	last     time.Time
}

func newThrottle(interval time.Duration, start time.Time) *throttle {
	return &throttle{interval: interval, last: start}
}

func (t *throttle) Ready(now time.Time) bool {
	if now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
