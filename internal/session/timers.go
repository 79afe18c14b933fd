package session

import (
	"math"
	"time"
)

// stopwatch measures workout time as accumulated duration plus the time
// since the last resume.
type stopwatch struct {
	accumulated time.Duration
	resumedAt   time.Time
	paused      bool
}

func newStopwatch(now time.Time) stopwatch {
	return stopwatch{resumedAt: now}
}

func (w *stopwatch) elapsed(now time.Time) time.Duration {
	d := w.accumulated
	if !w.paused {
		if since := now.Sub(w.resumedAt); since > 0 {
			d += since
		}
	}
	return d
}

func (w *stopwatch) seconds(now time.Time) int {
	return int(w.elapsed(now) / time.Second)
}

func (w *stopwatch) pause(now time.Time) {
	if w.paused {
		return
	}
	w.accumulated = w.elapsed(now)
	w.paused = true
}

func (w *stopwatch) resume(now time.Time) {
	if !w.paused {
		return
	}
	w.resumedAt = now
	w.paused = false
}

// restTimer counts down to endsAt. An inactive timer always reports zero
// remaining.
type restTimer struct {
	active  bool
	seconds int
	endsAt  time.Time
}

func (r *restTimer) start(now time.Time, seconds int) {
	seconds = max(seconds, 0)
	r.active = true
	r.seconds = seconds
	r.endsAt = now.Add(time.Duration(seconds) * time.Second)
}

func (r *restTimer) skip() {
	r.active = false
	r.endsAt = time.Time{}
}

// extend adds extra seconds to a running countdown. Negative values shorten
// it; the configured length never drops below zero. A countdown that already
// ran out is finished here instead of extended.
func (r *restTimer) extend(now time.Time, extra int) {
	if !r.running(now) {
		if r.active {
			r.skip()
		}
		return
	}
	r.seconds = max(r.seconds+extra, 0)
	r.endsAt = r.endsAt.Add(time.Duration(extra) * time.Second)
}

// running reports whether the countdown has time left. It can be false
// while active is still set, between the end time and the next tick.
func (r *restTimer) running(now time.Time) bool {
	return r.active && r.endsAt.After(now)
}

func (r *restTimer) remaining(now time.Time) int {
	if !r.active {
		return 0
	}
	left := r.endsAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// tick deactivates the timer once it reaches zero and reports whether this
// call was the one that finished it.
func (r *restTimer) tick(now time.Time) bool {
	if !r.active || r.remaining(now) > 0 {
		return false
	}
	r.skip()
	return true
}
