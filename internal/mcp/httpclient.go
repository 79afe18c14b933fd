package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/replog/internal/models"
	"github.com/claude/replog/internal/storage"
	"github.com/google/uuid"
)

// HTTPClient implements DataSource and LiveSessions by calling the RepLog
// REST API. Used for remote MCP mode where the binary runs locally (stdio)
// but data lives on the remote server (accessed over Tailscale). The server
// resolves the user from the connection, so userID arguments are ignored.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies both interfaces.
var (
	_ DataSource   = (*HTTPClient)(nil)
	_ LiveSessions = (*HTTPClient)(nil)
)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

// getJSON fetches path and decodes the body into v.
func (c *HTTPClient) getJSON(ctx context.Context, path string, params url.Values, what string, v any) error {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", what, err)
	}
	return nil
}

func timeParams(start, end time.Time) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	return v
}

func (c *HTTPClient) QueryWorkoutSessions(ctx context.Context, start, end time.Time, _ int) ([]models.WorkoutSessionRow, error) {
	var workouts []models.WorkoutSessionRow
	if err := c.getJSON(ctx, "/api/v1/workouts", timeParams(start, end), "workouts", &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

func (c *HTTPClient) GetWorkoutSession(ctx context.Context, id uuid.UUID, _ int) (*storage.WorkoutDetail, error) {
	var detail storage.WorkoutDetail
	if err := c.getJSON(ctx, "/api/v1/workouts/"+id.String(), nil, "workout", &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *HTTPClient) QueryWorkoutSets(ctx context.Context, start, end time.Time, _ int, exerciseFilter string) ([]models.WorkoutSetRow, error) {
	params := timeParams(start, end)
	if exerciseFilter != "" {
		params.Set("exercise", exerciseFilter)
	}

	var sets []models.WorkoutSetRow
	if err := c.getJSON(ctx, "/api/v1/workouts/sets", params, "workout sets", &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

func (c *HTTPClient) GetExerciseHistory(ctx context.Context, start, end time.Time, _ int, exercise string) (*storage.ExerciseHistory, error) {
	params := timeParams(start, end)
	params.Set("exercise", exercise)

	var history storage.ExerciseHistory
	if err := c.getJSON(ctx, "/api/v1/exercises/history", params, "exercise history", &history); err != nil {
		return nil, err
	}
	return &history, nil
}

func (c *HTTPClient) QueryPersonalRecords(ctx context.Context, start, end time.Time, _ int, exerciseFilter string) ([]models.PersonalRecordRow, error) {
	params := timeParams(start, end)
	if exerciseFilter != "" {
		params.Set("exercise", exerciseFilter)
	}

	var records []models.PersonalRecordRow
	if err := c.getJSON(ctx, "/api/v1/records", params, "personal records", &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *HTTPClient) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, _ int) ([]storage.TrainingSummaryPeriod, error) {
	params := timeParams(start, end)
	params.Set("bucket", bucket)

	var periods []storage.TrainingSummaryPeriod
	if err := c.getJSON(ctx, "/api/v1/training/summary", params, "training summary", &periods); err != nil {
		return nil, err
	}
	return periods, nil
}

func (c *HTTPClient) ActiveSessions(ctx context.Context, _ int) ([]models.SessionState, error) {
	var states []models.SessionState
	if err := c.getJSON(ctx, "/api/v1/sessions", nil, "sessions", &states); err != nil {
		return nil, err
	}
	return states, nil
}
