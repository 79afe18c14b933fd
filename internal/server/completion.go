package server

import (
	"fmt"

	"github.com/claude/replog/internal/models"
	"github.com/claude/replog/internal/storage"
	"github.com/google/uuid"
)

// completedWorkout converts a finished session into history rows. Only
// completed sets are kept. The finish time is the session's last update,
// which CompleteWorkout stamps, so retries produce identical rows.
func completedWorkout(userID int, st models.SessionState, summary models.Summary) (storage.CompletedWorkout, error) {
	id, err := uuid.Parse(st.ID)
	if err != nil {
		return storage.CompletedWorkout{}, fmt.Errorf("session id %q: %w", st.ID, err)
	}

	w := storage.CompletedWorkout{
		Session: models.WorkoutSessionRow{
			ID:                 id,
			UserID:             userID,
			Name:               st.Name,
			StartedAt:          st.StartedAt,
			FinishedAt:         st.UpdatedAt,
			DurationMin:        summary.DurationMin,
			Score:              summary.Score,
			Grade:              summary.Grade,
			TotalVolume:        summary.TotalVolume,
			TotalSets:          summary.TotalSets,
			TotalReps:          summary.TotalReps,
			EstimatedCalories:  summary.EstimatedCalories,
			ExercisesCompleted: summary.ExercisesCompleted,
		},
	}

	for i, ex := range st.Exercises {
		n := 0
		for _, set := range ex.Sets {
			if !set.Completed {
				continue
			}
			n++
			w.Sets = append(w.Sets, models.WorkoutSetRow{
				UserID:         userID,
				SessionID:      &id,
				SessionName:    st.Name,
				SessionDate:    st.StartedAt,
				ExerciseNumber: i + 1,
				ExerciseName:   ex.Name,
				MuscleGroup:    ex.MuscleGroup,
				TargetReps:     ex.TargetReps,
				SetNumber:      n,
				WeightKg:       set.Weight,
				Reps:           set.Reps,
				RPE:            set.RPE,
				Source:         models.SourceSession,
			})
		}
	}

	for _, pr := range st.PRs {
		w.PRs = append(w.PRs, models.PersonalRecordRow{
			UserID:       userID,
			SessionID:    id,
			ExerciseName: pr.ExerciseName,
			PRType:       pr.Type,
			NewValue:     pr.NewValue,
			OldValue:     pr.OldValue,
			AchievedAt:   pr.AchievedAt,
		})
	}
	return w, nil
}
