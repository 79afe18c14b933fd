package server

import (
	"net/http"
	"strconv"

	"github.com/claude/replog/internal/storage"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	settings, err := s.settings(r, uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req storage.Settings
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.DefaultRestSeconds <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "default_rest_seconds must be positive"})
		return
	}
	saved, err := s.db.UpsertSettings(r.Context(), uid, req)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// settings returns the stored settings, falling back to the server's
// configured rest period for users who never saved any.
func (s *Server) settings(r *http.Request, uid int) (storage.Settings, error) {
	st, err := s.db.GetSettings(r.Context(), uid)
	if err != nil {
		return storage.Settings{}, err
	}
	if st.UpdatedAt.IsZero() {
		st.DefaultRestSeconds = s.defaultRest
	}
	return st, nil
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.db.QueryImportLogs(r.Context(), uid, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	stats, err := s.db.GetDataStats(r.Context(), uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
