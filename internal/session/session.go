package session

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/claude/replog/internal/models"
)

// DefaultRestSeconds is used when neither the user nor the plan sets one.
const DefaultRestSeconds = 90

// SetField names the set attribute UpdateSet writes.
type SetField int

const (
	FieldReps SetField = iota
	FieldWeight
	FieldRPE
)

func (f SetField) String() string {
	switch f {
	case FieldReps:
		return "reps"
	case FieldWeight:
		return "weight"
	case FieldRPE:
		return "rpe"
	}
	return fmt.Sprintf("SetField(%d)", int(f))
}

// ParseSetField maps the wire name of a set attribute to a SetField.
func ParseSetField(s string) (SetField, error) {
	switch strings.ToLower(s) {
	case "reps":
		return FieldReps, nil
	case "weight":
		return FieldWeight, nil
	case "rpe":
		return FieldRPE, nil
	}
	return 0, fmt.Errorf("unknown set field %q", s)
}

// Launch is the construction input for a session: the plan plus prior
// sets per exercise name.
type Launch struct {
	Workout         models.Workout
	PreviousHistory map[string][]models.PreviousSet
}

// Options configure a Session.
type Options struct {
	ID                 string
	Clock              Clock
	DefaultRestSeconds int
	TickInterval       time.Duration
	Log                *slog.Logger

	// OnRestComplete runs after the tick that brings the rest countdown to
	// zero, outside the session lock. It runs on the ticker goroutine and
	// must not call Stop.
	OnRestComplete func(s *Session)
}

func (o *Options) setDefaults() {
	if o.Clock == nil {
		o.Clock = SystemClock
	}
	if o.DefaultRestSeconds <= 0 {
		o.DefaultRestSeconds = DefaultRestSeconds
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
}

// Session is one in-progress workout. All methods are safe for concurrent
// use; each mutation is atomic with respect to the others and to timer ticks.
type Session struct {
	mu             sync.Mutex
	id             string
	name           string
	startedAt      time.Time
	plannedMinutes int
	exercises      []models.Exercise
	current        int
	defaultRest    int
	status         models.SessionStatus
	prs            []models.PREvent
	watch          stopwatch
	rest           restTimer
	updatedAt      time.Time

	clock          Clock
	interval       time.Duration
	log            *slog.Logger
	onRestComplete func(*Session)

	runMu sync.Mutex
	stop  chan struct{}
	done  chan struct{}
}

// New creates an active session from a launch. Exercises without logged sets
// get TargetSets sets pre-filled with the target reps and, where history
// exists, the previous working weight.
func New(l Launch, opts Options) *Session {
	opts.setDefaults()
	now := opts.Clock.Now()

	exercises := make([]models.Exercise, 0, len(l.Workout.Exercises))
	for _, ex := range l.Workout.Exercises {
		ex = ex.Clone()
		if prev := lookupHistory(l.PreviousHistory, ex.Name); len(prev) > 0 {
			ex.PreviousBest = append([]models.PreviousSet(nil), prev...)
		}
		if len(ex.Sets) == 0 {
			for i := 0; i < ex.TargetSets; i++ {
				set := models.Set{Reps: ex.TargetReps}
				if i < len(ex.PreviousBest) {
					set.Weight = ex.PreviousBest[i].Weight
				}
				ex.Sets = append(ex.Sets, set)
			}
		}
		exercises = append(exercises, ex)
	}

	current := -1
	if len(exercises) > 0 {
		current = 0
	}

	s := &Session{
		id:             opts.ID,
		name:           l.Workout.Title,
		startedAt:      now,
		plannedMinutes: l.Workout.Duration,
		exercises:      exercises,
		current:        current,
		defaultRest:    opts.DefaultRestSeconds,
		status:         models.StatusActive,
		watch:          newStopwatch(now),
		updatedAt:      now,
	}
	s.configure(opts)
	return s
}

func (s *Session) configure(opts Options) {
	s.clock = opts.Clock
	s.interval = opts.TickInterval
	s.log = opts.Log.With("session", s.id)
	s.onRestComplete = opts.OnRestComplete
}

// lookupHistory matches exercise names exactly first, then case-insensitively.
func lookupHistory(history map[string][]models.PreviousSet, name string) []models.PreviousSet {
	if prev, ok := history[name]; ok {
		return prev
	}
	for k, prev := range history {
		if strings.EqualFold(strings.TrimSpace(k), strings.TrimSpace(name)) {
			return prev
		}
	}
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Status returns the lifecycle state.
func (s *Session) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// UpdatedAt returns the time of the last mutation.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// mutable reports the terminal-state error, if any. Caller holds s.mu.
func (s *Session) mutable() error {
	switch s.status {
	case models.StatusCompleted:
		return ErrSessionCompleted
	case models.StatusDiscarded:
		return ErrSessionDiscarded
	}
	return nil
}

func (s *Session) touch() { s.updatedAt = s.clock.Now() }

// set returns the addressed set, or nil when either index is out of range.
// Caller holds s.mu.
func (s *Session) set(exIdx, setIdx int) *models.Set {
	if exIdx < 0 || exIdx >= len(s.exercises) {
		return nil
	}
	sets := s.exercises[exIdx].Sets
	if setIdx < 0 || setIdx >= len(sets) {
		return nil
	}
	return &sets[setIdx]
}

// UpdateSet writes one attribute of a set. Negative reps and weights are
// stored as zero; an RPE of zero or less clears it and values above 10 are
// capped. Out-of-range indices are ignored.
func (s *Session) UpdateSet(exIdx, setIdx int, field SetField, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	set := s.set(exIdx, setIdx)
	if set == nil {
		return nil
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("invalid %s value %v", field, value)
	}

	switch field {
	case FieldReps:
		set.Reps = max(int(math.Round(value)), 0)
	case FieldWeight:
		set.Weight = max(value, 0)
	case FieldRPE:
		if value <= 0 {
			set.RPE = nil
		} else {
			rpe := min(value, 10)
			set.RPE = &rpe
		}
	default:
		return fmt.Errorf("unknown set field %v", field)
	}
	s.touch()
	return nil
}

// CompleteSet marks a set completed and returns the personal record it set,
// if any. completed reports whether the set changed state: completing an
// already-completed set or an out-of-range index does nothing. Starting the
// rest timer afterwards is the caller's job.
func (s *Session) CompleteSet(exIdx, setIdx int) (pr *models.PREvent, completed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return nil, false, err
	}
	set := s.set(exIdx, setIdx)
	if set == nil || set.Completed {
		return nil, false, nil
	}
	set.Completed = true
	s.touch()

	ex := s.exercises[exIdx]
	pr = DetectPR(ex.Name, ex.PreviousBest, *set)
	if pr == nil {
		return nil, true, nil
	}
	pr.ExerciseIndex = exIdx
	pr.SetIndex = setIdx
	pr.AchievedAt = s.updatedAt
	s.prs = append([]models.PREvent{*pr}, s.prs...)
	s.log.Info("personal record", "exercise", pr.ExerciseName, "type", pr.Type, "new", pr.NewValue, "old", pr.OldValue)
	out := *pr
	return &out, true, nil
}

// AddSet appends a set to the exercise, copying weight and reps from its
// last set when there is one.
func (s *Session) AddSet(exIdx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	if exIdx < 0 || exIdx >= len(s.exercises) {
		return nil
	}
	ex := &s.exercises[exIdx]
	var next models.Set
	if n := len(ex.Sets); n > 0 {
		next.Reps = ex.Sets[n-1].Reps
		next.Weight = ex.Sets[n-1].Weight
	}
	ex.Sets = append(ex.Sets, next)
	s.touch()
	return nil
}

// RemoveSet deletes one set. The exercise stays even when its last set goes.
func (s *Session) RemoveSet(exIdx, setIdx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	if s.set(exIdx, setIdx) == nil {
		return nil
	}
	ex := &s.exercises[exIdx]
	ex.Sets = append(ex.Sets[:setIdx:setIdx], ex.Sets[setIdx+1:]...)
	s.touch()
	return nil
}

// IncrementWeight adds delta to a set's weight, clamped at zero.
func (s *Session) IncrementWeight(exIdx, setIdx int, delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	set := s.set(exIdx, setIdx)
	if set == nil {
		return nil
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return fmt.Errorf("invalid weight delta %v", delta)
	}
	set.Weight = max(set.Weight+delta, 0)
	s.touch()
	return nil
}

// UpdateExerciseNotes replaces an exercise's notes.
func (s *Session) UpdateExerciseNotes(exIdx int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	if exIdx < 0 || exIdx >= len(s.exercises) {
		return nil
	}
	s.exercises[exIdx].Notes = text
	s.touch()
	return nil
}

// SwapExercise replaces the movement at exIdx. Sets, notes, position and
// the previous-best snapshot are kept.
func (s *Session) SwapExercise(exIdx int, replacement models.ExerciseIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	if exIdx < 0 || exIdx >= len(s.exercises) {
		return nil
	}
	ex := &s.exercises[exIdx]
	ex.ID = replacement.ID
	ex.Name = replacement.Name
	ex.MuscleGroup = replacement.MuscleGroup
	ex.Tips = nil
	if replacement.Tips != nil {
		tips := *replacement.Tips
		ex.Tips = &tips
	}
	s.touch()
	return nil
}

// SetCurrentExercise selects the expanded exercise; -1 collapses all.
func (s *Session) SetCurrentExercise(idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	if idx < -1 || idx >= len(s.exercises) {
		return nil
	}
	s.current = idx
	s.touch()
	return nil
}

// TogglePause pauses or resumes the stopwatch and returns the new state.
// The rest countdown is unaffected.
func (s *Session) TogglePause() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return s.watch.paused, err
	}
	now := s.clock.Now()
	if s.watch.paused {
		s.watch.resume(now)
	} else {
		s.watch.pause(now)
	}
	s.touch()
	return s.watch.paused, nil
}

// StartRestTimer starts (or restarts) the rest countdown.
func (s *Session) StartRestTimer(seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	s.rest.start(s.clock.Now(), seconds)
	s.touch()
	return nil
}

// SkipRestTimer stops the rest countdown immediately.
func (s *Session) SkipRestTimer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	s.rest.skip()
	s.touch()
	return nil
}

// ExtendRestTimer adds extra seconds to a running countdown. It does nothing
// when no countdown is running.
func (s *Session) ExtendRestTimer(extra int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	s.rest.extend(s.clock.Now(), extra)
	s.touch()
	return nil
}

// SetDefaultRest changes the fallback rest length for future sets.
func (s *Session) SetDefaultRest(seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mutable(); err != nil {
		return err
	}
	if seconds <= 0 {
		return fmt.Errorf("default rest must be positive, got %d", seconds)
	}
	s.defaultRest = seconds
	s.touch()
	return nil
}

// RestFor resolves the rest length to start after a set of exercise exIdx:
// the exercise's own rest when configured, the session default otherwise.
func (s *Session) RestFor(exIdx int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if exIdx < 0 || exIdx >= len(s.exercises) {
		return s.defaultRest
	}
	return ResolveRest(s.exercises[exIdx], s.defaultRest)
}

// ResolveRest returns the exercise's configured rest, or def when it has none.
func ResolveRest(ex models.Exercise, def int) int {
	if sec := ex.Rest.Seconds(); sec > 0 {
		return sec
	}
	return def
}

// Totals projects the current aggregates.
func (s *Session) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Aggregate(s.exercises, s.watch.seconds(s.clock.Now()))
}

// PRs returns the records set so far, most recent first.
func (s *Session) PRs() []models.PREvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PREvent(nil), s.prs...)
}

// CompleteWorkout finalizes the session and returns its summary. It fails
// with ErrNoProgress, leaving the session active, when nothing was completed.
func (s *Session) CompleteWorkout() (models.Summary, error) {
	s.mu.Lock()
	if err := s.mutable(); err != nil {
		s.mu.Unlock()
		return models.Summary{}, err
	}
	now := s.clock.Now()
	elapsed := s.watch.seconds(now)
	totals := Aggregate(s.exercises, elapsed)
	if totals.CompletedSets == 0 {
		s.mu.Unlock()
		return models.Summary{}, ErrNoProgress
	}
	s.watch.pause(now)
	s.rest.skip()
	s.status = models.StatusCompleted
	s.touch()
	summary := Summarize(s.name, len(s.exercises), totals, elapsed, len(s.prs))
	s.mu.Unlock()

	s.Stop()
	s.log.Info("workout completed", "score", summary.Score, "grade", summary.Grade, "sets", summary.TotalSets)
	return summary, nil
}

// DiscardWorkout ends the session without a summary. Discarding twice is a
// no-op; discarding a completed session fails.
func (s *Session) DiscardWorkout() error {
	s.mu.Lock()
	switch s.status {
	case models.StatusDiscarded:
		s.mu.Unlock()
		return nil
	case models.StatusCompleted:
		s.mu.Unlock()
		return ErrSessionCompleted
	}
	now := s.clock.Now()
	s.watch.pause(now)
	s.rest.skip()
	s.status = models.StatusDiscarded
	s.touch()
	s.mu.Unlock()

	s.Stop()
	s.log.Info("workout discarded")
	return nil
}

// Start launches the ticker goroutine. It is a no-op when already running
// or when the session is finished.
func (s *Session) Start() {
	if s.Status() != models.StatusActive {
		return
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
}

// Stop cancels the ticker and waits for it to exit. Safe to call repeatedly.
func (s *Session) Stop() {
	s.runMu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.runMu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (s *Session) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.safeTick()
		}
	}
}

func (s *Session) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("tick panicked", "panic", r)
		}
	}()
	s.Tick()
}

// Tick advances the rest countdown and reports whether it finished on this
// call. Elapsed time is derived from the clock, so missed ticks are harmless.
func (s *Session) Tick() bool {
	s.mu.Lock()
	if s.status != models.StatusActive {
		s.mu.Unlock()
		return false
	}
	finished := s.rest.tick(s.clock.Now())
	hook := s.onRestComplete
	s.mu.Unlock()

	if finished {
		s.log.Debug("rest timer complete")
		if hook != nil {
			hook(s)
		}
	}
	return finished
}
