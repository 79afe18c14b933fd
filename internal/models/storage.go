package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkoutSessionRow is a row in the workout_sessions table: one finished session.
type WorkoutSessionRow struct {
	ID                 uuid.UUID `json:"id"`
	UserID             int       `json:"user_id"`
	Name               string    `json:"name"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
	DurationMin        int       `json:"duration_min"`
	Score              int       `json:"score"`
	Grade              string    `json:"grade"`
	TotalVolume        float64   `json:"total_volume"`
	TotalSets          int       `json:"total_sets"`
	TotalReps          int       `json:"total_reps"`
	EstimatedCalories  int       `json:"estimated_calories"`
	ExercisesCompleted int       `json:"exercises_completed"`
}

// WorkoutSetRow is a row in the workout_sets table. Sets come either from a
// finished in-app session (SessionID set) or from a history import.
type WorkoutSetRow struct {
	UserID         int        `json:"user_id"`
	SessionID      *uuid.UUID `json:"session_id,omitempty"`
	SessionName    string     `json:"session_name"`
	SessionDate    time.Time  `json:"session_date"`
	ExerciseNumber int        `json:"exercise_number"`
	ExerciseName   string     `json:"exercise_name"`
	MuscleGroup    string     `json:"muscle_group,omitempty"`
	Equipment      string     `json:"equipment,omitempty"`
	TargetReps     int        `json:"target_reps"`
	IsWarmup       bool       `json:"is_warmup"`
	SetNumber      int        `json:"set_number"`
	WeightKg       float64    `json:"weight_kg"`
	Reps           int        `json:"reps"`
	RPE            *float64   `json:"rpe,omitempty"`
	RIR            *float64   `json:"rir,omitempty"`
	Source         string     `json:"source"`
}

// PersonalRecordRow is a row in the personal_records table.
type PersonalRecordRow struct {
	UserID       int       `json:"user_id"`
	SessionID    uuid.UUID `json:"session_id"`
	ExerciseName string    `json:"exercise_name"`
	PRType       PRType    `json:"pr_type"`
	NewValue     float64   `json:"new_value"`
	OldValue     float64   `json:"old_value"`
	AchievedAt   time.Time `json:"achieved_at"`
}

// Set sources recorded in workout_sets.source.
const (
	SourceSession = "session"
	SourceAlpha   = "alpha"
)
