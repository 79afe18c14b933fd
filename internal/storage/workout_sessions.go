package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/replog/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CompletedWorkout is everything written when a session finishes.
type CompletedWorkout struct {
	Session models.WorkoutSessionRow
	Sets    []models.WorkoutSetRow
	PRs     []models.PersonalRecordRow
}

// WorkoutDetail is a finished session with its sets and records.
type WorkoutDetail struct {
	models.WorkoutSessionRow
	Sets []models.WorkoutSetRow     `json:"sets"`
	PRs  []models.PersonalRecordRow `json:"prs"`
}

const workoutSessionColumns = `id, user_id, name, started_at, finished_at, duration_min,
	score, grade, total_volume, total_sets, total_reps, estimated_calories, exercises_completed`

// SaveCompletedWorkout writes the session row, its completed sets and its
// personal records in one transaction. Saving the same session twice is a
// no-op for the rows already present.
func (db *DB) SaveCompletedWorkout(ctx context.Context, w CompletedWorkout) error {
	return db.inTx(ctx, func(tx pgx.Tx) error {
		s := w.Session
		tag, err := tx.Exec(ctx,
			`INSERT INTO workout_sessions (`+workoutSessionColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			 ON CONFLICT (id) DO NOTHING`,
			s.ID, s.UserID, s.Name, s.StartedAt, s.FinishedAt, s.DurationMin,
			s.Score, s.Grade, s.TotalVolume, s.TotalSets, s.TotalReps,
			s.EstimatedCalories, s.ExercisesCompleted)
		if err != nil {
			return fmt.Errorf("inserting workout session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if _, err := insertWorkoutSets(ctx, tx, w.Sets); err != nil {
			return err
		}
		return insertPersonalRecords(ctx, tx, w.PRs)
	})
}

// QueryWorkoutSessions lists finished sessions in a time range, newest first.
func (db *DB) QueryWorkoutSessions(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutSessionRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+workoutSessionColumns+`
		 FROM workout_sessions
		 WHERE started_at >= $1 AND started_at < $2 AND user_id = $3
		 ORDER BY started_at DESC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout sessions: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSessionRow
	for rows.Next() {
		r, err := scanWorkoutSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetWorkoutSession returns one finished session with its sets and records.
func (db *DB) GetWorkoutSession(ctx context.Context, id uuid.UUID, userID int) (*WorkoutDetail, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+workoutSessionColumns+` FROM workout_sessions WHERE id = $1 AND user_id = $2`,
		id, userID)
	s, err := scanWorkoutSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("workout %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT `+workoutSetColumns+`
		 FROM workout_sets
		 WHERE session_id = $1 AND user_id = $2
		 ORDER BY exercise_number ASC, set_number ASC`,
		id, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	sets, err := scanWorkoutSets(setRows)
	setRows.Close()
	if err != nil {
		return nil, err
	}

	prRows, err := db.Pool.Query(ctx,
		`SELECT `+personalRecordColumns+`
		 FROM personal_records
		 WHERE session_id = $1 AND user_id = $2
		 ORDER BY achieved_at DESC`,
		id, userID)
	if err != nil {
		return nil, fmt.Errorf("querying personal records: %w", err)
	}
	prs, err := scanPersonalRecords(prRows)
	prRows.Close()
	if err != nil {
		return nil, err
	}

	return &WorkoutDetail{WorkoutSessionRow: s, Sets: sets, PRs: prs}, nil
}

func scanWorkoutSession(row pgx.Row) (models.WorkoutSessionRow, error) {
	var r models.WorkoutSessionRow
	err := row.Scan(&r.ID, &r.UserID, &r.Name, &r.StartedAt, &r.FinishedAt, &r.DurationMin,
		&r.Score, &r.Grade, &r.TotalVolume, &r.TotalSets, &r.TotalReps,
		&r.EstimatedCalories, &r.ExercisesCompleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scanning workout session: %w", err)
	}
	return r, nil
}
