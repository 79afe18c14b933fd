package storage

import (
	"context"
	"math"
	"time"
)

// RPEBand holds the count and percentage of working sets in an effort range.
type RPEBand struct {
	Band string  `json:"band"`
	Sets int     `json:"sets"`
	Pct  float64 `json:"pct"`
}

// ExerciseProgression holds one session's data for a specific exercise.
type ExerciseProgression struct {
	Date           string   `json:"date"`
	MaxWeight      float64  `json:"max_weight_kg"`
	MaxReps        int      `json:"max_reps"`
	SessionTonnage float64  `json:"session_tonnage_kg"`
	EstimatedOneRM float64  `json:"estimated_1rm_kg"`
	Sets           int      `json:"sets"`
	AvgRPE         *float64 `json:"avg_rpe,omitempty"`
}

// ExerciseHistory is the progression of one exercise over a time range.
type ExerciseHistory struct {
	Exercise        string                `json:"exercise"`
	TotalSets       int                   `json:"total_sets"`
	TotalReps       int                   `json:"total_reps"`
	TonnageKg       float64               `json:"tonnage_kg"`
	BestOneRM       float64               `json:"best_estimated_1rm_kg"`
	RPEDistribution []RPEBand             `json:"rpe_distribution"`
	Progression     []ExerciseProgression `json:"progression"`
}

// GetExerciseHistory returns per-session progression and effort distribution
// of working sets whose exercise name contains exercise.
func (db *DB) GetExerciseHistory(ctx context.Context, start, end time.Time, userID int, exercise string) (*ExerciseHistory, error) {
	sets, err := db.QueryWorkoutSets(ctx, start, end, userID, exercise)
	if err != nil {
		return nil, err
	}
	var working []historySet
	// QueryWorkoutSets is newest first; progression reads oldest first.
	for i := len(sets) - 1; i >= 0; i-- {
		s := sets[i]
		if s.IsWarmup {
			continue
		}
		working = append(working, historySet{date: s.SessionDate, weight: s.WeightKg, reps: s.Reps, rpe: s.RPE})
	}
	h := summarizeExercise(working)
	h.Exercise = exercise
	return h, nil
}

type historySet struct {
	date   time.Time
	weight float64
	reps   int
	rpe    *float64
}

// summarizeExercise groups chronologically ordered working sets by session.
func summarizeExercise(sets []historySet) *ExerciseHistory {
	h := &ExerciseHistory{RPEDistribution: []RPEBand{}, Progression: []ExerciseProgression{}}
	bands := map[string]int{}

	var (
		cur    *ExerciseProgression
		curDay time.Time
		rpeSum float64
		rpeN   int
	)
	flush := func() {
		if cur == nil {
			return
		}
		if rpeN > 0 {
			avg := math.Round(rpeSum/float64(rpeN)*10) / 10
			cur.AvgRPE = &avg
		}
		h.Progression = append(h.Progression, *cur)
	}

	for _, s := range sets {
		if cur == nil || !s.date.Equal(curDay) {
			flush()
			cur = &ExerciseProgression{Date: s.date.Format("2006-01-02")}
			curDay = s.date
			rpeSum, rpeN = 0, 0
		}
		vol := s.weight * float64(s.reps)
		e1rm := EstimateOneRepMax(s.weight, s.reps)

		cur.Sets++
		cur.SessionTonnage += vol
		cur.MaxWeight = max(cur.MaxWeight, s.weight)
		cur.MaxReps = max(cur.MaxReps, s.reps)
		cur.EstimatedOneRM = max(cur.EstimatedOneRM, e1rm)
		if s.rpe != nil {
			rpeSum += *s.rpe
			rpeN++
		}

		h.TotalSets++
		h.TotalReps += s.reps
		h.TonnageKg += vol
		h.BestOneRM = max(h.BestOneRM, e1rm)
		bands[rpeBand(s.rpe)]++
	}
	flush()

	for _, b := range []string{"max", "hard", "moderate", "easy", "untracked"} {
		if n := bands[b]; n > 0 {
			h.RPEDistribution = append(h.RPEDistribution, RPEBand{
				Band: b,
				Sets: n,
				Pct:  float64(n) / float64(h.TotalSets) * 100,
			})
		}
	}
	return h
}

func rpeBand(rpe *float64) string {
	switch {
	case rpe == nil:
		return "untracked"
	case *rpe >= 9.5:
		return "max"
	case *rpe >= 8:
		return "hard"
	case *rpe >= 6.5:
		return "moderate"
	default:
		return "easy"
	}
}

// EstimateOneRepMax applies the Epley formula, rounded to 0.01 kg. A single
// rep is its own maximum.
func EstimateOneRepMax(weight float64, reps int) float64 {
	if reps <= 0 || weight <= 0 {
		return 0
	}
	if reps == 1 {
		return weight
	}
	return math.Round(weight*(1+0.0333*float64(reps))*100) / 100
}
