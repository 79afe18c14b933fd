package session

import "github.com/claude/replog/internal/models"

// DetectPR compares a just-completed set against the exercise's previous
// bests and returns the highest-priority record it beats, or nil.
//
// Priority is weight, then reps, then single-set volume. An exercise with no
// history never produces a record.
func DetectPR(exerciseName string, previous []models.PreviousSet, set models.Set) *models.PREvent {
	if len(previous) == 0 {
		return nil
	}

	var (
		maxWeight     = previous[0].Weight
		maxVolume     = previous[0].Weight * float64(previous[0].Reps)
		repsAtOrBelow = -1
	)
	for _, p := range previous {
		maxWeight = max(maxWeight, p.Weight)
		maxVolume = max(maxVolume, p.Weight*float64(p.Reps))
		if p.Weight <= set.Weight {
			repsAtOrBelow = max(repsAtOrBelow, p.Reps)
		}
	}

	switch {
	case set.Weight > maxWeight:
		return &models.PREvent{ExerciseName: exerciseName, Type: models.PRWeight, NewValue: set.Weight, OldValue: maxWeight}
	case repsAtOrBelow >= 0 && set.Reps > repsAtOrBelow:
		return &models.PREvent{ExerciseName: exerciseName, Type: models.PRReps, NewValue: float64(set.Reps), OldValue: float64(repsAtOrBelow)}
	case set.Weight*float64(set.Reps) > maxVolume:
		return &models.PREvent{ExerciseName: exerciseName, Type: models.PRVolume, NewValue: set.Weight * float64(set.Reps), OldValue: maxVolume}
	}
	return nil
}
