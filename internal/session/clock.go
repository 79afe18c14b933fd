package session

import "time"

// Clock supplies the current time. Timers derive elapsed and remaining
// seconds from it instead of counting ticks, so a host that sleeps or is
// backgrounded never drifts.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}
