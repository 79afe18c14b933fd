package session

import (
	"math"

	"github.com/claude/replog/internal/models"
)

// Calorie estimate coefficients. Kept fixed so summaries stay comparable
// across releases.
const (
	caloriesPerMinute   = 6.0
	caloriesPerVolumeKg = 0.01
)

// Totals are the derived statistics of a session's exercise log.
type Totals struct {
	TotalVolume                float64 `json:"totalVolume"`
	CompletedSets              int     `json:"totalCompletedSets"`
	CompletedReps              int     `json:"totalCompletedReps"`
	ExercisesWithCompletedSets int     `json:"exercisesWithCompletedSets"`
	PlannedSets                int     `json:"plannedSets"`
	EstimatedCalories          int     `json:"estimatedCalories"`
}

// Aggregate projects totals from the exercise log. Only completed sets count
// towards volume, sets and reps.
func Aggregate(exercises []models.Exercise, elapsedSeconds int) Totals {
	var t Totals
	for _, ex := range exercises {
		t.PlannedSets += max(ex.TargetSets, len(ex.Sets))
		done := 0
		for _, s := range ex.Sets {
			if !s.Completed {
				continue
			}
			done++
			t.CompletedReps += s.Reps
			t.TotalVolume += s.Weight * float64(s.Reps)
		}
		t.CompletedSets += done
		if done > 0 {
			t.ExercisesWithCompletedSets++
		}
	}
	t.EstimatedCalories = EstimateCalories(elapsedSeconds, t.TotalVolume)
	return t
}

// EstimateCalories is monotonic in both elapsed time and volume.
func EstimateCalories(elapsedSeconds int, volume float64) int {
	minutes := float64(max(elapsedSeconds, 0)) / 60
	return int(math.Round(minutes*caloriesPerMinute + max(volume, 0)*caloriesPerVolumeKg))
}
