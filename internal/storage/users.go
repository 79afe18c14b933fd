package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DefaultRestSeconds is the rest period used until a user picks their own.
const DefaultRestSeconds = 90

// Settings holds per-user preferences that outlive a single session.
type Settings struct {
	DefaultRestSeconds int       `json:"default_rest_seconds"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// GetOrCreateUser finds or creates a user by Tailscale login name.
// Returns the user ID. Updates last_seen and display_name on each call.
func (db *DB) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	var id int
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO users (login, display_name)
		VALUES ($1, $2)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = NOW(), display_name = COALESCE(NULLIF($2, ''), users.display_name)
		RETURNING id
	`, login, displayName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upserting user %s: %w", login, err)
	}
	return id, nil
}

// GetSettings returns the user's settings, or defaults when none are stored.
func (db *DB) GetSettings(ctx context.Context, userID int) (Settings, error) {
	var s Settings
	err := db.Pool.QueryRow(ctx,
		`SELECT default_rest_seconds, updated_at FROM user_settings WHERE user_id = $1`,
		userID).Scan(&s.DefaultRestSeconds, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{DefaultRestSeconds: DefaultRestSeconds}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("querying settings: %w", err)
	}
	return s, nil
}

// UpsertSettings stores the user's settings.
func (db *DB) UpsertSettings(ctx context.Context, userID int, s Settings) (Settings, error) {
	if s.DefaultRestSeconds <= 0 {
		return Settings{}, fmt.Errorf("default rest must be positive, got %d", s.DefaultRestSeconds)
	}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO user_settings (user_id, default_rest_seconds, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
			SET default_rest_seconds = EXCLUDED.default_rest_seconds, updated_at = NOW()
		RETURNING default_rest_seconds, updated_at
	`, userID, s.DefaultRestSeconds).Scan(&s.DefaultRestSeconds, &s.UpdatedAt)
	if err != nil {
		return Settings{}, fmt.Errorf("upserting settings: %w", err)
	}
	return s, nil
}
