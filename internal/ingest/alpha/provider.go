package alpha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/replog/internal/ingest"
	"github.com/claude/replog/internal/models"
	"github.com/claude/replog/internal/storage"
)

// Store is the slice of the storage layer the provider writes to.
type Store interface {
	ReplaceWorkoutSets(ctx context.Context, userID int, sessionDate time.Time, source string, rows []models.WorkoutSetRow) (int64, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
}

var _ Store = (*storage.DB)(nil)

// Provider processes Alpha Progression CSV exports.
type Provider struct {
	store Store
	loc   *time.Location
	log   *slog.Logger
}

// NewProvider creates a new Alpha Progression import provider. Export times
// are read in loc.
func NewProvider(store Store, loc *time.Location, log *slog.Logger) *Provider {
	return &Provider{store: store, loc: loc, log: log}
}

// Ingest parses a CSV export and stores its sets as history. Sets of a
// session already imported are replaced, so re-imports reflect the latest
// export. Every attempt is recorded in the import log.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	start := time.Now()
	result, err := p.ingest(ctx, r, userID)
	p.record(ctx, userID, start, result, err)
	if err != nil {
		return nil, err
	}
	p.log.Info("alpha import complete",
		"user_id", userID,
		"sessions", result.SessionsReceived,
		"sets_inserted", result.SetsInserted,
		"duration", time.Since(start))
	return result, nil
}

func (p *Provider) ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	sessions, err := Parse(r, p.loc)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := &ingest.Result{SessionsReceived: len(sessions)}
	for _, s := range sessions {
		rows := s.Rows(userID)
		inserted, err := p.store.ReplaceWorkoutSets(ctx, userID, s.Date, models.SourceAlpha, rows)
		if err != nil {
			return nil, fmt.Errorf("storing session %s: %w", s.Date.Format("2006-01-02 15:04"), err)
		}
		result.SetsReceived += len(rows)
		result.SetsInserted += inserted
	}
	result.SetsSkipped = int64(result.SetsReceived) - result.SetsInserted
	if len(sessions) == 0 {
		result.Message = "no sessions found in export"
	}
	return result, nil
}

func (p *Provider) record(ctx context.Context, userID int, start time.Time, result *ingest.Result, ingestErr error) {
	ms := int(time.Since(start).Milliseconds())
	entry := storage.ImportLog{
		UserID:     userID,
		Source:     models.SourceAlpha,
		Status:     storage.ImportStatusSuccess,
		DurationMs: &ms,
	}
	if ingestErr != nil {
		msg := ingestErr.Error()
		entry.Status = storage.ImportStatusError
		entry.ErrorMessage = &msg
	}
	if result != nil {
		entry.Sessions = result.SessionsReceived
		entry.SetsInserted = result.SetsInserted
		if meta, err := json.Marshal(map[string]any{"sets_received": result.SetsReceived}); err == nil {
			raw := json.RawMessage(meta)
			entry.Metadata = &raw
		}
	}
	if _, err := p.store.InsertImportLog(ctx, entry); err != nil {
		p.log.Warn("failed to write import log", "error", err)
	}
}
