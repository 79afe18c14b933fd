package mcp

import (
	"context"
	"time"

	"github.com/claude/replog/internal/models"
	"github.com/claude/replog/internal/session"
	"github.com/claude/replog/internal/storage"
	"github.com/google/uuid"
)

// DataSource abstracts the training history for MCP tools. Both *storage.DB
// (local) and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	QueryWorkoutSessions(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutSessionRow, error)
	GetWorkoutSession(ctx context.Context, id uuid.UUID, userID int) (*storage.WorkoutDetail, error)
	QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.WorkoutSetRow, error)
	GetExerciseHistory(ctx context.Context, start, end time.Time, userID int, exercise string) (*storage.ExerciseHistory, error)
	QueryPersonalRecords(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.PersonalRecordRow, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
}

// LiveSessions exposes the workouts currently in progress.
type LiveSessions interface {
	ActiveSessions(ctx context.Context, userID int) ([]models.SessionState, error)
}

// Compile-time checks for the local implementations.
var (
	_ DataSource   = (*storage.DB)(nil)
	_ LiveSessions = (*session.Manager)(nil)
)
