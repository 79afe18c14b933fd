package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/claude/replog/internal/models"
	"github.com/claude/replog/internal/storage"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

type fakeDataSource struct {
	gotUser   int
	gotStart  time.Time
	gotFilter string
	workouts  []models.WorkoutSessionRow
	detail    map[uuid.UUID]*storage.WorkoutDetail
	err       error
}

func (f *fakeDataSource) QueryWorkoutSessions(ctx context.Context, start, _ time.Time, userID int) ([]models.WorkoutSessionRow, error) {
	f.gotUser, f.gotStart = userID, start
	return f.workouts, f.err
}

func (f *fakeDataSource) GetWorkoutSession(_ context.Context, id uuid.UUID, userID int) (*storage.WorkoutDetail, error) {
	f.gotUser = userID
	if d, ok := f.detail[id]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("workout %s: %w", id, storage.ErrNotFound)
}

func (f *fakeDataSource) QueryWorkoutSets(_ context.Context, start, _ time.Time, userID int, filter string) ([]models.WorkoutSetRow, error) {
	f.gotUser, f.gotStart, f.gotFilter = userID, start, filter
	return []models.WorkoutSetRow{}, f.err
}

func (f *fakeDataSource) GetExerciseHistory(_ context.Context, start, _ time.Time, userID int, exercise string) (*storage.ExerciseHistory, error) {
	f.gotUser, f.gotStart, f.gotFilter = userID, start, exercise
	return &storage.ExerciseHistory{Exercise: exercise, TotalSets: 12}, f.err
}

func (f *fakeDataSource) QueryPersonalRecords(_ context.Context, start, _ time.Time, userID int, filter string) ([]models.PersonalRecordRow, error) {
	f.gotUser, f.gotStart, f.gotFilter = userID, start, filter
	return []models.PersonalRecordRow{{ExerciseName: "Squat", PRType: models.PRWeight, NewValue: 150}}, f.err
}

func (f *fakeDataSource) GetTrainingSummary(_ context.Context, start, _ time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error) {
	f.gotUser, f.gotStart, f.gotFilter = userID, start, bucket
	return []storage.TrainingSummaryPeriod{{Period: "2026-02-01"}}, f.err
}

type fakeLive struct {
	states []models.SessionState
	err    error
}

func (f fakeLive) ActiveSessions(context.Context, int) ([]models.SessionState, error) {
	return f.states, f.err
}

func newTestHandlers(ds DataSource, live LiveSessions) *handlers {
	return &handlers{ds: ds, live: live, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

// TestUserIDFromContextDefault verifies the default user ID (1) when no value
// is set in the context.
func TestUserIDFromContextDefault(t *testing.T) {
	ctx := context.Background()
	if id := UserIDFromContext(ctx); id != 1 {
		t.Errorf("UserIDFromContext(empty) = %d, want 1", id)
	}
}

// TestUserIDFromContextSet verifies the user ID is extracted from context
// after being set by WithUserID.
func TestUserIDFromContextSet(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	if id := UserIDFromContext(ctx); id != 42 {
		t.Errorf("UserIDFromContext = %d, want 42", id)
	}
}

// TestDefaultTimeRange verifies time range defaults and parsing.
func TestDefaultTimeRange(t *testing.T) {
	// Both empty → defaults to the last 7 days
	start, end, err := defaultTimeRange("", "", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	diff := end.Sub(start)
	if diff.Hours() < 167 || diff.Hours() > 169 { // ~168 hours = 7 days
		t.Errorf("default range = %.0f hours, want ~168", diff.Hours())
	}

	// Explicit dates
	start, end, err = defaultTimeRange("2024-01-01", "2024-01-31", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Year() != 2024 || start.Month() != 1 || start.Day() != 1 {
		t.Errorf("start = %v, want 2024-01-01", start)
	}
	if end.Year() != 2024 || end.Month() != 1 || end.Day() != 31 {
		t.Errorf("end = %v, want 2024-01-31", end)
	}

	// Start defaults relative to an explicit end
	start, _, err = defaultTimeRange("", "2024-03-31", 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Format("2006-01-02") != "2024-01-01" {
		t.Errorf("start = %v, want 90 days before end", start)
	}

	// RFC3339
	start, _, err = defaultTimeRange("2024-06-15T10:30:00Z", "", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}

	// Invalid
	_, _, err = defaultTimeRange("not-a-date", "", 7)
	if err == nil {
		t.Error("expected error for invalid date")
	}
}

// TestGetWorkoutHistoryScopesToUser verifies the tool passes the context
// user through and returns the rows as JSON.
func TestGetWorkoutHistoryScopesToUser(t *testing.T) {
	ds := &fakeDataSource{workouts: []models.WorkoutSessionRow{{Name: "Push Day", Score: 88, Grade: "A"}}}
	h := newTestHandlers(ds, nil)

	res, err := h.getWorkoutHistory(WithUserID(context.Background(), 5), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if ds.gotUser != 5 {
		t.Errorf("user = %d, want 5", ds.gotUser)
	}
	var rows []models.WorkoutSessionRow
	if err := json.Unmarshal([]byte(resultText(t, res)), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Grade != "A" {
		t.Errorf("rows = %+v", rows)
	}
}

// TestGetWorkoutDetail verifies ID validation and lookup.
func TestGetWorkoutDetail(t *testing.T) {
	id := uuid.New()
	ds := &fakeDataSource{detail: map[uuid.UUID]*storage.WorkoutDetail{
		id: {WorkoutSessionRow: models.WorkoutSessionRow{ID: id, Name: "Legs"}},
	}}
	h := newTestHandlers(ds, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
		want    string
	}{
		{"found", map[string]any{"id": id.String()}, false, "Legs"},
		{"missing id", nil, true, "required"},
		{"malformed id", map[string]any{"id": "abc"}, true, "invalid workout id"},
		{"unknown id", map[string]any{"id": uuid.NewString()}, true, "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.getWorkoutDetail(ctx, callRequest(tt.args))
			if err != nil {
				t.Fatal(err)
			}
			if res.IsError != tt.wantErr {
				t.Errorf("IsError = %v, want %v", res.IsError, tt.wantErr)
			}
			if text := resultText(t, res); !strings.Contains(text, tt.want) {
				t.Errorf("result %q does not contain %q", text, tt.want)
			}
		})
	}
}

// TestGetExerciseHistoryDefaults verifies the required exercise and the
// 90-day default window.
func TestGetExerciseHistoryDefaults(t *testing.T) {
	ds := &fakeDataSource{}
	h := newTestHandlers(ds, nil)

	res, _ := h.getExerciseHistory(context.Background(), callRequest(nil))
	if !res.IsError {
		t.Error("missing exercise should be a tool error")
	}

	res, _ = h.getExerciseHistory(context.Background(), callRequest(map[string]any{"exercise": "bench"}))
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if ds.gotFilter != "bench" {
		t.Errorf("exercise = %q, want bench", ds.gotFilter)
	}
	if days := time.Since(ds.gotStart).Hours() / 24; days < 89 || days > 91 {
		t.Errorf("default window = %.1f days, want 90", days)
	}
}

// TestGetTrainingSummaryBucket verifies the default bucket and date errors.
func TestGetTrainingSummaryBucket(t *testing.T) {
	ds := &fakeDataSource{}
	h := newTestHandlers(ds, nil)

	res, _ := h.getTrainingSummary(context.Background(), callRequest(nil))
	if res.IsError || ds.gotFilter != "1 month" {
		t.Errorf("bucket = %q, IsError = %v", ds.gotFilter, res.IsError)
	}

	res, _ = h.getTrainingSummary(context.Background(), callRequest(map[string]any{"end": "tomorrow"}))
	if !res.IsError {
		t.Error("invalid end should be a tool error")
	}
}

// TestQueryFailureIsToolError verifies storage errors surface as tool
// errors rather than protocol errors.
func TestQueryFailureIsToolError(t *testing.T) {
	ds := &fakeDataSource{err: errors.New("connection refused")}
	h := newTestHandlers(ds, nil)

	res, err := h.getPersonalRecords(context.Background(), callRequest(map[string]any{"exercise": "squat"}))
	if err != nil {
		t.Fatalf("protocol error: %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "connection refused") {
		t.Errorf("result = %+v", res)
	}
}

// TestGetActiveSessionsAddsTotals verifies live sessions carry running
// totals and that a missing manager yields an empty list.
func TestGetActiveSessionsAddsTotals(t *testing.T) {
	live := fakeLive{states: []models.SessionState{{
		ID:             "s1",
		Name:           "Push Day",
		ElapsedSeconds: 600,
		Status:         models.StatusActive,
		Exercises: []models.Exercise{{Name: "Bench Press", TargetSets: 3, Sets: []models.Set{
			{Reps: 5, Weight: 100, Completed: true},
			{Reps: 5, Weight: 100},
		}}},
	}}}
	h := newTestHandlers(&fakeDataSource{}, live)

	res, err := h.getActiveSessions(context.Background(), callRequest(nil))
	if err != nil || res.IsError {
		t.Fatalf("err = %v, result = %+v", err, res)
	}
	var got []activeSession
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Totals.TotalVolume != 500 || got[0].Totals.CompletedSets != 1 {
		t.Errorf("sessions = %+v", got)
	}

	h = newTestHandlers(&fakeDataSource{}, nil)
	res, _ = h.getActiveSessions(context.Background(), callRequest(nil))
	if text := resultText(t, res); text != "[]" {
		t.Errorf("without live sessions = %q, want []", text)
	}
}

// TestRecentWorkoutsResource verifies the resource combines history with
// sessions in progress.
func TestRecentWorkoutsResource(t *testing.T) {
	ds := &fakeDataSource{workouts: []models.WorkoutSessionRow{{Name: "Legs"}}}
	live := fakeLive{states: []models.SessionState{{ID: "live", Name: "Push Day"}}}
	h := newTestHandlers(ds, live)

	var req mcp.ReadResourceRequest
	req.Params.URI = "replog://recent_workouts"
	contents, err := h.recentWorkouts(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents).Text

	var got struct {
		Workouts   []models.WorkoutSessionRow `json:"workouts"`
		InProgress []activeSession            `json:"in_progress"`
	}
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Workouts) != 1 || len(got.InProgress) != 1 || got.InProgress[0].ID != "live" {
		t.Errorf("resource = %+v", got)
	}
	if days := time.Since(ds.gotStart).Hours() / 24; days < 13.9 || days > 14.1 {
		t.Errorf("window = %.1f days, want 14", days)
	}
}

// TestNewWithoutLiveSessions verifies the server builds when no session
// manager runs in the process.
func TestNewWithoutLiveSessions(t *testing.T) {
	if s := New(&fakeDataSource{}, nil, "test", slog.Default()); s == nil {
		t.Fatal("New returned nil")
	}
}
