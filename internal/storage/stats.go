package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about a user's training history.
type DataStats struct {
	TotalWorkouts int64            `json:"total_workouts"`
	TotalSets     int64            `json:"total_sets"`
	TotalRecords  int64            `json:"total_records"`
	TotalVolume   float64          `json:"total_volume"`
	EarliestData  *time.Time       `json:"earliest_data"`
	LatestData    *time.Time       `json:"latest_data"`
	SetsBySource  map[string]int64 `json:"sets_by_source"`
	TopExercises  []ExerciseStat   `json:"top_exercises"`
}

// ExerciseStat holds summary stats for a single exercise.
type ExerciseStat struct {
	Name        string  `json:"name"`
	Sets        int64   `json:"sets"`
	TotalVolume float64 `json:"total_volume"`
	MaxWeight   float64 `json:"max_weight_kg"`
}

const topExerciseLimit = 10

// GetDataStats returns aggregate statistics for a user's stored workouts.
// Imported and live-tracked sets both count. A workout is one distinct
// session name and date.
func (db *DB) GetDataStats(ctx context.Context, userID int) (*DataStats, error) {
	stats := &DataStats{SetsBySource: map[string]int64{}}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(DISTINCT (session_name, session_date)), COUNT(*),
		        COALESCE(SUM(weight_kg * reps), 0), MIN(session_date), MAX(session_date)
		 FROM workout_sets WHERE user_id = $1`, userID,
	).Scan(&stats.TotalWorkouts, &stats.TotalSets, &stats.TotalVolume, &stats.EarliestData, &stats.LatestData)
	if err != nil {
		return nil, fmt.Errorf("counting sets: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM personal_records WHERE user_id = $1`, userID,
	).Scan(&stats.TotalRecords)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT source, COUNT(*) FROM workout_sets WHERE user_id = $1 GROUP BY source`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying sets by source: %w", err)
	}
	for rows.Next() {
		var source string
		var n int64
		if err := rows.Scan(&source, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning source stat: %w", err)
		}
		stats.SetsBySource[source] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Pool.Query(ctx,
		`SELECT exercise_name, COUNT(*), COALESCE(SUM(weight_kg * reps), 0), COALESCE(MAX(weight_kg), 0)
		 FROM workout_sets
		 WHERE user_id = $1
		 GROUP BY exercise_name
		 ORDER BY COUNT(*) DESC, exercise_name
		 LIMIT $2`, userID, topExerciseLimit)
	if err != nil {
		return nil, fmt.Errorf("querying exercise stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s ExerciseStat
		if err := rows.Scan(&s.Name, &s.Sets, &s.TotalVolume, &s.MaxWeight); err != nil {
			return nil, fmt.Errorf("scanning exercise stat: %w", err)
		}
		stats.TopExercises = append(stats.TopExercises, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
