package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/replog/internal/models"
	"github.com/jackc/pgx/v5"
)

const workoutSetCols = 16

const workoutSetColumns = `user_id, session_id, session_name, session_date,
	exercise_number, exercise_name, muscle_group, equipment, target_reps, is_warmup,
	set_number, weight_kg, reps, rpe, rir, source`

// InsertWorkoutSets batch-inserts set rows. Returns count inserted.
func (db *DB) InsertWorkoutSets(ctx context.Context, rows []models.WorkoutSetRow) (int64, error) {
	return insertWorkoutSets(ctx, db.Pool, rows)
}

func insertWorkoutSets(ctx context.Context, q execer, rows []models.WorkoutSetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(rows)*workoutSetCols)
	for _, r := range rows {
		args = append(args, r.UserID, r.SessionID, r.SessionName, r.SessionDate,
			r.ExerciseNumber, r.ExerciseName, r.MuscleGroup, r.Equipment, r.TargetReps, r.IsWarmup,
			r.SetNumber, r.WeightKg, r.Reps, r.RPE, r.RIR, r.Source)
	}
	query := `INSERT INTO workout_sets (` + workoutSetColumns + `) VALUES ` +
		valuesClause(len(rows), workoutSetCols) + " ON CONFLICT DO NOTHING"

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting workout sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteWorkoutSets removes the user's imported sets for one session date.
func (db *DB) DeleteWorkoutSets(ctx context.Context, userID int, sessionDate time.Time, source string) (int64, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM workout_sets WHERE user_id = $1 AND session_date = $2 AND source = $3`,
		userID, sessionDate, source)
	if err != nil {
		return 0, fmt.Errorf("deleting workout sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ReplaceWorkoutSets swaps the sets of one imported session for rows, in a
// single transaction, so re-importing an edited export does not duplicate.
func (db *DB) ReplaceWorkoutSets(ctx context.Context, userID int, sessionDate time.Time, source string, rows []models.WorkoutSetRow) (int64, error) {
	var inserted int64
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM workout_sets WHERE user_id = $1 AND session_date = $2 AND source = $3`,
			userID, sessionDate, source); err != nil {
			return fmt.Errorf("deleting workout sets: %w", err)
		}
		n, err := insertWorkoutSets(ctx, tx, rows)
		inserted = n
		return err
	})
	return inserted, err
}

// QueryWorkoutSets retrieves workout sets in a date range. A non-empty
// exerciseFilter restricts results to exercise names containing it.
func (db *DB) QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.WorkoutSetRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+workoutSetColumns+`
		 FROM workout_sets
		 WHERE session_date >= $1 AND session_date < $2 AND user_id = $3
		   AND ($4 = '' OR exercise_name ILIKE '%' || $4 || '%')
		 ORDER BY session_date DESC, exercise_number ASC, is_warmup DESC, set_number ASC`,
		start, end, userID, exerciseFilter)
	if err != nil {
		return nil, fmt.Errorf("querying workout sets: %w", err)
	}
	defer rows.Close()
	return scanWorkoutSets(rows)
}

func scanWorkoutSets(rows pgx.Rows) ([]models.WorkoutSetRow, error) {
	var result []models.WorkoutSetRow
	for rows.Next() {
		var r models.WorkoutSetRow
		if err := rows.Scan(&r.UserID, &r.SessionID, &r.SessionName, &r.SessionDate,
			&r.ExerciseNumber, &r.ExerciseName, &r.MuscleGroup, &r.Equipment, &r.TargetReps, &r.IsWarmup,
			&r.SetNumber, &r.WeightKg, &r.Reps, &r.RPE, &r.RIR, &r.Source); err != nil {
			return nil, fmt.Errorf("scanning workout set: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// historyRow is one working set of the most recent session of an exercise.
type historyRow struct {
	name   string
	weight float64
	reps   int
}

// GetPreviousHistory returns, for each requested exercise, the working sets of
// the most recent stored session containing it. Names match case-insensitively
// and the result is keyed by the name as requested. Exercises with no history
// are absent from the map.
func (db *DB) GetPreviousHistory(ctx context.Context, userID int, exerciseNames []string) (map[string][]models.PreviousSet, error) {
	if len(exerciseNames) == 0 {
		return map[string][]models.PreviousSet{}, nil
	}
	lowered := make([]string, len(exerciseNames))
	for i, n := range exerciseNames {
		lowered[i] = strings.ToLower(strings.TrimSpace(n))
	}

	rows, err := db.Pool.Query(ctx,
		`WITH latest AS (
			SELECT lower(exercise_name) AS name, MAX(session_date) AS session_date
			FROM workout_sets
			WHERE user_id = $1 AND lower(exercise_name) = ANY($2) AND NOT is_warmup
			GROUP BY lower(exercise_name)
		)
		SELECT l.name, ws.weight_kg, ws.reps
		FROM workout_sets ws
		JOIN latest l ON lower(ws.exercise_name) = l.name AND ws.session_date = l.session_date
		WHERE ws.user_id = $1 AND NOT ws.is_warmup
		ORDER BY l.name, ws.exercise_number, ws.set_number`,
		userID, lowered)
	if err != nil {
		return nil, fmt.Errorf("querying previous history: %w", err)
	}
	defer rows.Close()

	var hist []historyRow
	for rows.Next() {
		var h historyRow
		if err := rows.Scan(&h.name, &h.weight, &h.reps); err != nil {
			return nil, fmt.Errorf("scanning previous history: %w", err)
		}
		hist = append(hist, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groupHistory(exerciseNames, hist), nil
}

// groupHistory keys lower-cased history rows by the caller's spelling.
func groupHistory(requested []string, hist []historyRow) map[string][]models.PreviousSet {
	byLower := make(map[string][]models.PreviousSet)
	for _, h := range hist {
		byLower[h.name] = append(byLower[h.name], models.PreviousSet{Weight: h.weight, Reps: h.reps})
	}
	out := make(map[string][]models.PreviousSet, len(requested))
	for _, name := range requested {
		if sets, ok := byLower[strings.ToLower(strings.TrimSpace(name))]; ok {
			out[name] = sets
		}
	}
	return out
}
