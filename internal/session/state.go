package session

import (
	"time"

	"github.com/claude/replog/internal/models"
)

// State returns a deep copy of the session as the screen layer sees it,
// including the clock anchors needed to restore it later.
func (s *Session) State() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()

	exercises := make([]models.Exercise, len(s.exercises))
	for i, ex := range s.exercises {
		exercises[i] = ex.Clone()
	}

	st := models.SessionState{
		ID:                   s.id,
		Name:                 s.name,
		StartedAt:            s.startedAt,
		ElapsedSeconds:       s.watch.seconds(now),
		IsPaused:             s.watch.paused,
		Exercises:            exercises,
		CurrentExerciseIndex: s.current,
		DefaultRestSeconds:   s.defaultRest,
		RestTimerActive:      s.rest.running(now),
		RestTimerSeconds:     s.rest.seconds,
		RestTimerRemaining:   s.rest.remaining(now),
		Status:               s.status,
		PRs:                  append([]models.PREvent{}, s.prs...),
		PlannedMinutes:       s.plannedMinutes,
		UpdatedAt:            s.updatedAt,
		AccumulatedMs:        s.watch.accumulated.Milliseconds(),
	}
	if !s.watch.paused {
		resumed := s.watch.resumedAt
		st.ResumedAt = &resumed
	}
	if s.rest.running(now) {
		ends := s.rest.endsAt
		st.RestEndsAt = &ends
	}
	return st
}

// Restore rebuilds a session from a snapshot taken by State. When the clock
// anchors are missing the timers resume from the recorded counters at the
// current time.
func Restore(st models.SessionState, opts Options) *Session {
	opts.setDefaults()
	now := opts.Clock.Now()
	if opts.ID == "" {
		opts.ID = st.ID
	}

	exercises := make([]models.Exercise, len(st.Exercises))
	for i, ex := range st.Exercises {
		exercises[i] = ex.Clone()
	}

	current := st.CurrentExerciseIndex
	if current < -1 || current >= len(exercises) {
		current = -1
	}

	defaultRest := st.DefaultRestSeconds
	if defaultRest <= 0 {
		defaultRest = opts.DefaultRestSeconds
	}

	status := st.Status
	if status == "" {
		status = models.StatusActive
	}

	s := &Session{
		id:             opts.ID,
		name:           st.Name,
		startedAt:      st.StartedAt,
		plannedMinutes: st.PlannedMinutes,
		exercises:      exercises,
		current:        current,
		defaultRest:    defaultRest,
		status:         status,
		prs:            append([]models.PREvent(nil), st.PRs...),
		updatedAt:      st.UpdatedAt,
	}
	if s.updatedAt.IsZero() {
		s.updatedAt = now
	}

	accumulated := time.Duration(st.AccumulatedMs) * time.Millisecond
	switch {
	case st.IsPaused:
		if accumulated == 0 {
			accumulated = time.Duration(st.ElapsedSeconds) * time.Second
		}
		s.watch = stopwatch{accumulated: accumulated, paused: true}
	case st.ResumedAt != nil:
		s.watch = stopwatch{accumulated: accumulated, resumedAt: *st.ResumedAt}
	default:
		s.watch = stopwatch{accumulated: time.Duration(st.ElapsedSeconds) * time.Second, resumedAt: now}
	}

	if st.RestTimerActive {
		s.rest = restTimer{active: true, seconds: st.RestTimerSeconds}
		if st.RestEndsAt != nil {
			s.rest.endsAt = *st.RestEndsAt
		} else {
			s.rest.endsAt = now.Add(time.Duration(st.RestTimerRemaining) * time.Second)
		}
	} else {
		s.rest = restTimer{seconds: st.RestTimerSeconds}
	}

	s.configure(opts)
	return s
}
