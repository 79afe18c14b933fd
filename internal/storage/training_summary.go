package storage

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// SessionPeriodSummary holds aggregated stats for in-app sessions within a period.
type SessionPeriodSummary struct {
	Sessions       int     `json:"sessions"`
	AvgDurationMin float64 `json:"avg_duration_min"`
	AvgScore       float64 `json:"avg_score"`
	TotalCalories  int     `json:"total_calories"`
	PRs            int     `json:"prs"`
}

// StrengthVolumeSummary holds aggregated set volume for a period, across
// in-app sessions and imported history.
type StrengthVolumeSummary struct {
	WorkingSets       int     `json:"working_sets"`
	TotalReps         int     `json:"total_reps"`
	TonnageKg         float64 `json:"tonnage_kg"`
	Sessions          int     `json:"sessions"`
	AvgSetsPerSession float64 `json:"avg_sets_per_session"`
}

// TrainingSummaryPeriod holds combined session and volume data for one period.
type TrainingSummaryPeriod struct {
	Period   string                 `json:"period"`
	Sessions *SessionPeriodSummary  `json:"sessions,omitempty"`
	Strength *StrengthVolumeSummary `json:"strength,omitempty"`
}

// GetTrainingSummary returns aggregated session and strength volume stats per period.
func (db *DB) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]TrainingSummaryPeriod, error) {
	periods := newPeriodIndex()

	sessionRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, s.started_at)::date AS period,
		        COUNT(*)::int,
		        AVG(s.duration_min),
		        AVG(s.score),
		        COALESCE(SUM(s.estimated_calories), 0)::int,
		        COALESCE(SUM(p.prs), 0)::int
		 FROM workout_sessions s
		 LEFT JOIN (
			SELECT session_id, COUNT(*) AS prs FROM personal_records GROUP BY session_id
		 ) p ON p.session_id = s.id
		 WHERE s.started_at >= $2 AND s.started_at < $3 AND s.user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying session summary: %w", err)
	}
	defer sessionRows.Close()

	for sessionRows.Next() {
		var periodTime time.Time
		var ss SessionPeriodSummary
		if err := sessionRows.Scan(&periodTime, &ss.Sessions, &ss.AvgDurationMin, &ss.AvgScore, &ss.TotalCalories, &ss.PRs); err != nil {
			return nil, fmt.Errorf("scanning session summary: %w", err)
		}
		periods.get(periodTime).Sessions = &ss
	}
	if err := sessionRows.Err(); err != nil {
		return nil, err
	}

	strengthRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, session_date)::date AS period,
		        COUNT(*) FILTER (WHERE NOT is_warmup)::int AS working_sets,
		        COALESCE(SUM(reps) FILTER (WHERE NOT is_warmup), 0)::int AS total_reps,
		        COALESCE(SUM(weight_kg * reps) FILTER (WHERE NOT is_warmup), 0) AS tonnage,
		        COUNT(DISTINCT session_date)::int AS sessions
		 FROM workout_sets
		 WHERE session_date >= $2 AND session_date < $3 AND user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying strength summary: %w", err)
	}
	defer strengthRows.Close()

	for strengthRows.Next() {
		var periodTime time.Time
		var sv StrengthVolumeSummary
		if err := strengthRows.Scan(&periodTime, &sv.WorkingSets, &sv.TotalReps, &sv.TonnageKg, &sv.Sessions); err != nil {
			return nil, fmt.Errorf("scanning strength summary: %w", err)
		}
		if sv.Sessions > 0 {
			sv.AvgSetsPerSession = float64(sv.WorkingSets) / float64(sv.Sessions)
		}
		periods.get(periodTime).Strength = &sv
	}
	if err := strengthRows.Err(); err != nil {
		return nil, err
	}

	return periods.sorted(), nil
}

// periodIndex merges per-period rows from several queries.
type periodIndex struct {
	byKey map[string]*TrainingSummaryPeriod
}

func newPeriodIndex() *periodIndex {
	return &periodIndex{byKey: make(map[string]*TrainingSummaryPeriod)}
}

func (p *periodIndex) get(t time.Time) *TrainingSummaryPeriod {
	key := t.Format("2006-01-02")
	tp, ok := p.byKey[key]
	if !ok {
		tp = &TrainingSummaryPeriod{Period: key}
		p.byKey[key] = tp
	}
	return tp
}

// sorted returns the periods newest first.
func (p *periodIndex) sorted() []TrainingSummaryPeriod {
	result := make([]TrainingSummaryPeriod, 0, len(p.byKey))
	for _, tp := range p.byKey {
		result = append(result, *tp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Period > result[j].Period })
	return result
}

// truncInterval converts bucket strings like "1 month" to the interval name
// that date_trunc expects (e.g. "month", "week").
func truncInterval(bucket string) string {
	switch bucket {
	case "1 day", "day":
		return "day"
	case "1 week", "week":
		return "week"
	default:
		return "month"
	}
}
