package session

import (
	"math"

	"github.com/claude/replog/internal/models"
)

const (
	completionWeight = 70.0
	coverageWeight   = 20.0
	prBonus          = 5
	maxPRBonus       = 10
)

// Summarize freezes a session's final aggregates into a Summary.
func Summarize(name string, exerciseCount int, t Totals, elapsedSeconds, prCount int) models.Summary {
	score := Score(t, exerciseCount, prCount)
	return models.Summary{
		Name:               name,
		Score:              score,
		Grade:              Grade(score),
		DurationMin:        int(math.Round(float64(elapsedSeconds) / 60)),
		TotalVolume:        t.TotalVolume,
		TotalSets:          t.CompletedSets,
		TotalReps:          t.CompletedReps,
		EstimatedCalories:  t.EstimatedCalories,
		ExercisesCompleted: t.ExercisesWithCompletedSets,
	}
}

// Score rates a session from 0 to 100: set completion against the plan,
// exercise coverage, and a bonus for personal records.
func Score(t Totals, exerciseCount, prCount int) int {
	var completion, coverage float64
	if t.PlannedSets > 0 {
		completion = min(float64(t.CompletedSets)/float64(t.PlannedSets), 1)
	}
	if exerciseCount > 0 {
		coverage = min(float64(t.ExercisesWithCompletedSets)/float64(exerciseCount), 1)
	}
	score := int(math.Round(completionWeight*completion+coverageWeight*coverage)) + min(prCount*prBonus, maxPRBonus)
	return min(score, 100)
}

// Grade maps a score to a letter.
func Grade(score int) string {
	switch {
	case score >= 95:
		return "S"
	case score >= 85:
		return "A"
	case score >= 70:
		return "B"
	case score >= 50:
		return "C"
	default:
		return "D"
	}
}

// SummaryOf recomputes the summary of a finished session from its snapshot.
// The stopwatch is frozen at completion, so the result matches what
// CompleteWorkout returned.
func SummaryOf(st models.SessionState) models.Summary {
	t := Aggregate(st.Exercises, st.ElapsedSeconds)
	return Summarize(st.Name, len(st.Exercises), t, st.ElapsedSeconds, len(st.PRs))
}
