package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) recentWorkouts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uid := UserIDFromContext(ctx)
	end := time.Now()
	start := end.AddDate(0, 0, -14)

	workouts, err := h.ds.QueryWorkoutSessions(ctx, start, end, uid)
	if err != nil {
		return nil, err
	}

	active, err := h.activeSessions(ctx)
	if err != nil {
		h.log.Warn("recent_workouts: live sessions failed", "error", err)
	}

	data, err := json.Marshal(map[string]any{
		"workouts":    workouts,
		"in_progress": active,
	})
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
