// Package recovery keeps snapshots of live sessions in a local SQLite file so
// an in-progress workout survives a process restart.
package recovery

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/replog/internal/models"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Load when no snapshot exists for the ID.
var ErrNotFound = errors.New("snapshot not found")

// Store persists session snapshots in dir/sessions.db.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the snapshot database in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating recovery dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "sessions.db"))
	if err != nil {
		return nil, fmt.Errorf("opening recovery db: %w", err)
	}
	// A single connection serializes writes from the ticker goroutines.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS session_snapshots (
		id         TEXT PRIMARY KEY,
		user_id    INTEGER NOT NULL,
		state      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot table: %w", err)
	}

	return &Store{db: db}, nil
}

// Save writes or replaces the snapshot of a session.
func (s *Store) Save(userID int, st models.SessionState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", st.ID, err)
	}
	updated := st.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO session_snapshots (id, user_id, state, updated_at) VALUES (?, ?, ?, ?)`,
		st.ID, userID, string(data), updated.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", st.ID, err)
	}
	return nil
}

// Load returns the snapshot with the given ID.
func (s *Store) Load(id string) (models.StoredSession, error) {
	var (
		userID int
		data   string
	)
	err := s.db.QueryRow(`SELECT user_id, state FROM session_snapshots WHERE id = ?`, id).Scan(&userID, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StoredSession{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return models.StoredSession{}, fmt.Errorf("loading snapshot %s: %w", id, err)
	}
	return decode(id, userID, data)
}

// LoadAll returns every stored snapshot, oldest first. Rows that no longer
// decode are skipped and reported in the returned error alongside the rest.
func (s *Store) LoadAll() ([]models.StoredSession, error) {
	rows, err := s.db.Query(`SELECT id, user_id, state FROM session_snapshots ORDER BY updated_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var (
		out  []models.StoredSession
		errs []error
	)
	for rows.Next() {
		var (
			id     string
			userID int
			data   string
		)
		if err := rows.Scan(&id, &userID, &data); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		ss, err := decode(id, userID, data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, errors.Join(errs...)
}

// Delete removes a snapshot. Deleting a missing ID is not an error.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM session_snapshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", id, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func decode(id string, userID int, data string) (models.StoredSession, error) {
	var st models.SessionState
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return models.StoredSession{}, fmt.Errorf("decoding snapshot %s: %w", id, err)
	}
	return models.StoredSession{UserID: userID, State: st}, nil
}
