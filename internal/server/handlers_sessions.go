package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/claude/replog/internal/models"
	"github.com/claude/replog/internal/session"
	"github.com/claude/replog/internal/storage"
	"github.com/go-chi/chi/v5"
)

// sessionView is a live session as the client renders it.
type sessionView struct {
	models.SessionState
	Totals session.Totals `json:"totals"`
}

func viewOf(sess *session.Session) sessionView {
	return sessionView{SessionState: sess.State(), Totals: sess.Totals()}
}

type createSessionRequest struct {
	Workout models.Workout `json:"workout"`
}

type secondsRequest struct {
	Seconds int `json:"seconds"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Workout.Title) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "workout title is required"})
		return
	}

	settings, err := s.settings(r, uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	names := make([]string, 0, len(req.Workout.Exercises))
	for _, ex := range req.Workout.Exercises {
		names = append(names, ex.Name)
	}
	history, err := s.db.GetPreviousHistory(r.Context(), uid, names)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	sess := s.sessions.Create(uid, session.Launch{Workout: req.Workout, PreviousHistory: history}, settings.DefaultRestSeconds)
	writeJSON(w, http.StatusCreated, viewOf(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.sessions.List(uid))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.Get(chi.URLParam(r, "id"), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.Get(chi.URLParam(r, "id"), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := sess.DiscardWorkout(); err != nil {
		writeError(w, err)
		return
	}
	s.sessions.Finish(sess.ID())
	writeJSON(w, http.StatusOK, map[string]string{"status": string(models.StatusDiscarded)})
}

// handleCompleteSession finalizes the session and writes it to history. When
// the write fails the session stays registered in its completed state, so a
// retry recomputes the same summary and saves again.
func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	summary, st, err := s.sessions.Complete(chi.URLParam(r, "id"), uid)
	if err != nil {
		writeError(w, err)
		return
	}

	workout, err := completedWorkout(uid, st, summary)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := s.db.SaveCompletedWorkout(r.Context(), workout); err != nil {
		s.log.Error("saving completed workout", "session", st.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "saving workout: " + err.Error()})
		return
	}

	s.sessions.Finish(st.ID)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTogglePause(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(sess *session.Session) error {
		_, err := sess.TogglePause()
		return err
	})
}

func (s *Server) handleSetCurrent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.mutate(w, r, func(sess *session.Session) error {
		return sess.SetCurrentExercise(req.Index)
	})
}

// handleStartRest starts the countdown. Without a positive duration it uses
// the rest configured for the current exercise.
func (s *Server) handleStartRest(w http.ResponseWriter, r *http.Request) {
	var req secondsRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	s.mutate(w, r, func(sess *session.Session) error {
		seconds := req.Seconds
		if seconds <= 0 {
			seconds = sess.RestFor(sess.State().CurrentExerciseIndex)
		}
		return sess.StartRestTimer(seconds)
	})
}

func (s *Server) handleSkipRest(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(sess *session.Session) error {
		return sess.SkipRestTimer()
	})
}

func (s *Server) handleExtendRest(w http.ResponseWriter, r *http.Request) {
	var req secondsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.mutate(w, r, func(sess *session.Session) error {
		return sess.ExtendRestTimer(req.Seconds)
	})
}

// handleSessionDefaultRest changes the session's fallback rest and stores it
// as the user's default for future sessions.
func (s *Server) handleSessionDefaultRest(w http.ResponseWriter, r *http.Request) {
	var req secondsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Seconds <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "seconds must be positive"})
		return
	}
	uid := userIDFromContext(r)
	s.mutate(w, r, func(sess *session.Session) error {
		if err := sess.SetDefaultRest(req.Seconds); err != nil {
			return err
		}
		if _, err := s.db.UpsertSettings(r.Context(), uid, storage.Settings{DefaultRestSeconds: req.Seconds}); err != nil {
			s.log.Warn("storing default rest", "user_id", uid, "error", err)
		}
		return nil
	})
}

func (s *Server) handleSwapExercise(w http.ResponseWriter, r *http.Request) {
	ex, err := pathIndex(r, "ex")
	if err != nil {
		writeError(w, err)
		return
	}
	var req models.ExerciseIdentity
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	s.mutate(w, r, func(sess *session.Session) error {
		return sess.SwapExercise(ex, req)
	})
}

func (s *Server) handleExerciseNotes(w http.ResponseWriter, r *http.Request) {
	ex, err := pathIndex(r, "ex")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.mutate(w, r, func(sess *session.Session) error {
		return sess.UpdateExerciseNotes(ex, req.Notes)
	})
}

func (s *Server) handleAddSet(w http.ResponseWriter, r *http.Request) {
	ex, err := pathIndex(r, "ex")
	if err != nil {
		writeError(w, err)
		return
	}
	s.mutate(w, r, func(sess *session.Session) error {
		return sess.AddSet(ex)
	})
}

func (s *Server) handleUpdateSet(w http.ResponseWriter, r *http.Request) {
	ex, set, err := setPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Field string  `json:"field"`
		Value float64 `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	field, err := session.ParseSetField(req.Field)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.mutate(w, r, func(sess *session.Session) error {
		return sess.UpdateSet(ex, set, field, req.Value)
	})
}

func (s *Server) handleRemoveSet(w http.ResponseWriter, r *http.Request) {
	ex, set, err := setPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mutate(w, r, func(sess *session.Session) error {
		return sess.RemoveSet(ex, set)
	})
}

// handleCompleteSet marks the set done and starts the rest countdown for the
// exercise. Repeating the call for a set that is already done leaves a
// running countdown alone.
func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	ex, set, err := setPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var (
		pr   *models.PREvent
		rest int
		view sessionView
	)
	err = s.sessions.Do(chi.URLParam(r, "id"), uid, func(sess *session.Session) error {
		var (
			completed bool
			err       error
		)
		if pr, completed, err = sess.CompleteSet(ex, set); err != nil {
			return err
		}
		if completed {
			rest = sess.RestFor(ex)
			if err := sess.StartRestTimer(rest); err != nil {
				return err
			}
		}
		view = viewOf(sess)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pr":           pr,
		"rest_seconds": rest,
		"session":      view,
	})
}

func (s *Server) handleIncrementWeight(w http.ResponseWriter, r *http.Request) {
	ex, set, err := setPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Delta float64 `json:"delta"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.mutate(w, r, func(sess *session.Session) error {
		return sess.IncrementWeight(ex, set, req.Delta)
	})
}

// mutate runs fn against the session named in the URL and responds with the
// updated view.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(*session.Session) error) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var view sessionView
	err := s.sessions.Do(chi.URLParam(r, "id"), uid, func(sess *session.Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		view = viewOf(sess)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func pathIndex(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("invalid %s index %q", name, raw)
	}
	return n, nil
}

func setPath(r *http.Request) (ex, set int, err error) {
	if ex, err = pathIndex(r, "ex"); err != nil {
		return 0, 0, err
	}
	if set, err = pathIndex(r, "set"); err != nil {
		return 0, 0, err
	}
	return ex, set, nil
}
