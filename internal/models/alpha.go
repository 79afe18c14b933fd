package models

import "time"

// AlphaSession is one workout parsed from an Alpha Progression CSV export.
type AlphaSession struct {
	Name      string
	Date      time.Time
	Duration  string
	Exercises []AlphaExercise
}

// AlphaExercise is one exercise block within an exported session.
type AlphaExercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []AlphaSet
}

// AlphaSet is a working or warm-up set. RIR is nil for warm-ups, which the
// export lists without one.
type AlphaSet struct {
	Number           int
	WeightKg         float64
	IsBodyweightPlus bool
	Reps             int
	RIR              *float64
	IsWarmup         bool
}

// Rows flattens the session into workout_sets rows for the given user.
func (s AlphaSession) Rows(userID int) []WorkoutSetRow {
	var rows []WorkoutSetRow
	for _, ex := range s.Exercises {
		for _, set := range ex.Sets {
			rows = append(rows, WorkoutSetRow{
				UserID:         userID,
				SessionName:    s.Name,
				SessionDate:    s.Date,
				ExerciseNumber: ex.Number,
				ExerciseName:   ex.Name,
				Equipment:      ex.Equipment,
				TargetReps:     ex.TargetReps,
				IsWarmup:       set.IsWarmup,
				SetNumber:      set.Number,
				WeightKg:       set.WeightKg,
				Reps:           set.Reps,
				RIR:            set.RIR,
				Source:         SourceAlpha,
			})
		}
	}
	return rows
}
