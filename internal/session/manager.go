package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/claude/replog/internal/models"
	"github.com/google/uuid"
)

// SnapshotStore persists live session state so sessions survive a restart.
type SnapshotStore interface {
	Save(userID int, st models.SessionState) error
	LoadAll() ([]models.StoredSession, error)
	Delete(id string) error
}

// Manager owns the live sessions of all users.
type Manager struct {
	store        SnapshotStore
	clock        Clock
	tickInterval time.Duration
	log          *slog.Logger

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	s      *Session
	userID int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the wall clock, mainly for tests.
func WithClock(c Clock) ManagerOption {
	return func(m *Manager) { m.clock = c }
}

// WithTickInterval overrides the one-second timer tick.
func WithTickInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.tickInterval = d }
}

// NewManager creates a Manager. store may be nil, in which case sessions
// live only in memory.
func NewManager(store SnapshotStore, log *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:        store,
		clock:        SystemClock,
		tickInterval: time.Second,
		log:          log,
		sessions:     make(map[string]*entry),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) options(id string, userID int, defaultRest int) Options {
	return Options{
		ID:                 id,
		Clock:              m.clock,
		DefaultRestSeconds: defaultRest,
		TickInterval:       m.tickInterval,
		Log:                m.log.With("user_id", userID),
		OnRestComplete: func(s *Session) {
			m.persist(userID, s)
		},
	}
}

// Create launches a new session for the user and starts its timers.
func (m *Manager) Create(userID int, l Launch, defaultRest int) *Session {
	id := uuid.NewString()
	s := New(l, m.options(id, userID, defaultRest))
	s.Start()

	m.mu.Lock()
	m.sessions[id] = &entry{s: s, userID: userID}
	m.mu.Unlock()

	m.persist(userID, s)
	m.log.Info("session started", "session", id, "user_id", userID, "exercises", len(l.Workout.Exercises))
	return s
}

// Get returns the user's live session with the given ID.
func (m *Manager) Get(id string, userID int) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok || e.userID != userID {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e.s, nil
}

// Do runs fn against a live session and, when it succeeds, persists a fresh
// recovery snapshot.
func (m *Manager) Do(id string, userID int, fn func(*Session) error) error {
	s, err := m.Get(id, userID)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	m.persist(userID, s)
	return nil
}

// Complete finalizes the user's session and snapshots the completed state,
// so a restart before Finish brings it back completed rather than active.
// Completing an already completed session returns its summary again, which
// lets callers retry a failed history write. The returned state is the one
// the summary was computed from.
func (m *Manager) Complete(id string, userID int) (models.Summary, models.SessionState, error) {
	s, err := m.Get(id, userID)
	if err != nil {
		return models.Summary{}, models.SessionState{}, err
	}
	summary, err := s.CompleteWorkout()
	switch {
	case errors.Is(err, ErrSessionCompleted):
		st := s.State()
		return SummaryOf(st), st, nil
	case err != nil:
		return models.Summary{}, models.SessionState{}, err
	}
	m.persist(userID, s)
	return summary, s.State(), nil
}

// List returns the states of the user's live sessions, newest first.
func (m *Manager) List(userID int) []models.SessionState {
	m.mu.Lock()
	var ss []*Session
	for _, e := range m.sessions {
		if e.userID == userID {
			ss = append(ss, e.s)
		}
	}
	m.mu.Unlock()

	out := make([]models.SessionState, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.State())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// ActiveSessions returns the states of all live sessions of a user. It
// exists for read-only consumers such as the MCP server.
func (m *Manager) ActiveSessions(_ context.Context, userID int) ([]models.SessionState, error) {
	return m.List(userID), nil
}

// Finish removes a session that has reached a terminal state, stops its
// ticker and drops its recovery snapshot.
func (m *Manager) Finish(id string) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	e.s.Stop()
	if m.store != nil {
		if err := m.store.Delete(id); err != nil {
			m.log.Warn("deleting session snapshot", "session", id, "error", err)
		}
	}
}

// Recover restores sessions from the snapshot store. Active sessions get
// their timers restarted. Completed sessions come back without a ticker so
// their history write can be retried. Discarded snapshots are dropped.
func (m *Manager) Recover() (int, error) {
	if m.store == nil {
		return 0, nil
	}
	stored, err := m.store.LoadAll()
	if err != nil {
		return 0, fmt.Errorf("loading session snapshots: %w", err)
	}

	restored := 0
	var errs []error
	for _, ss := range stored {
		switch ss.State.Status {
		case models.StatusActive, "", models.StatusCompleted:
		default:
			if err := m.store.Delete(ss.State.ID); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		s := Restore(ss.State, m.options(ss.State.ID, ss.UserID, ss.State.DefaultRestSeconds))
		s.Start()
		m.mu.Lock()
		m.sessions[s.ID()] = &entry{s: s, userID: ss.UserID}
		m.mu.Unlock()
		if s.Status() == models.StatusCompleted {
			m.log.Info("completed workout awaiting save", "session", s.ID(), "user_id", ss.UserID)
		}
		restored++
	}
	return restored, errors.Join(errs...)
}

// Reap discards sessions whose last mutation is older than maxIdle and
// returns their IDs. Completed sessions still registered have not reached
// history yet; they are kept and reported instead.
func (m *Manager) Reap(maxIdle time.Duration) []string {
	cutoff := m.clock.Now().Add(-maxIdle)

	m.mu.Lock()
	var (
		stale   []*Session
		pending []string
	)
	for _, e := range m.sessions {
		if !e.s.UpdatedAt().Before(cutoff) {
			continue
		}
		if e.s.Status() == models.StatusCompleted {
			pending = append(pending, e.s.ID())
			continue
		}
		stale = append(stale, e.s)
	}
	m.mu.Unlock()

	if len(pending) > 0 {
		m.log.Warn("completed workouts never saved", "count", len(pending), "ids", pending)
	}

	ids := make([]string, 0, len(stale))
	for _, s := range stale {
		if err := s.DiscardWorkout(); err != nil && !errors.Is(err, ErrSessionFinished) {
			m.log.Warn("discarding idle session", "session", s.ID(), "error", err)
		}
		m.Finish(s.ID())
		ids = append(ids, s.ID())
	}
	if len(ids) > 0 {
		m.log.Info("reaped idle sessions", "count", len(ids))
	}
	return ids
}

// Close stops every ticker. Snapshots are kept so Recover can resume them.
func (m *Manager) Close() {
	m.mu.Lock()
	ss := make([]*Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		ss = append(ss, e.s)
	}
	m.mu.Unlock()
	for _, s := range ss {
		s.Stop()
	}
}

func (m *Manager) persist(userID int, s *Session) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(userID, s.State()); err != nil {
		m.log.Warn("saving session snapshot", "session", s.ID(), "error", err)
	}
}
