package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/replog/internal/models"
	"github.com/jackc/pgx/v5"
)

const personalRecordCols = 7

const personalRecordColumns = `user_id, session_id, exercise_name, pr_type, new_value, old_value, achieved_at`

func insertPersonalRecords(ctx context.Context, q execer, prs []models.PersonalRecordRow) error {
	if len(prs) == 0 {
		return nil
	}
	args := make([]any, 0, len(prs)*personalRecordCols)
	for _, p := range prs {
		args = append(args, p.UserID, p.SessionID, p.ExerciseName, string(p.PRType),
			p.NewValue, p.OldValue, p.AchievedAt)
	}
	query := `INSERT INTO personal_records (` + personalRecordColumns + `) VALUES ` +
		valuesClause(len(prs), personalRecordCols)
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting personal records: %w", err)
	}
	return nil
}

// QueryPersonalRecords lists records set in a time range, newest first. A
// non-empty exerciseFilter restricts results to matching exercise names.
func (db *DB) QueryPersonalRecords(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.PersonalRecordRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+personalRecordColumns+`
		 FROM personal_records
		 WHERE achieved_at >= $1 AND achieved_at < $2 AND user_id = $3
		   AND ($4 = '' OR exercise_name ILIKE '%' || $4 || '%')
		 ORDER BY achieved_at DESC`,
		start, end, userID, exerciseFilter)
	if err != nil {
		return nil, fmt.Errorf("querying personal records: %w", err)
	}
	defer rows.Close()
	return scanPersonalRecords(rows)
}

func scanPersonalRecords(rows pgx.Rows) ([]models.PersonalRecordRow, error) {
	var result []models.PersonalRecordRow
	for rows.Next() {
		var (
			p      models.PersonalRecordRow
			prType string
		)
		if err := rows.Scan(&p.UserID, &p.SessionID, &p.ExerciseName, &prType,
			&p.NewValue, &p.OldValue, &p.AchievedAt); err != nil {
			return nil, fmt.Errorf("scanning personal record: %w", err)
		}
		p.PRType = models.PRType(prType)
		result = append(result, p)
	}
	return result, rows.Err()
}
