package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/claude/replog/internal/ingest"
	"github.com/claude/replog/internal/models"
	"github.com/claude/replog/internal/session"
	"github.com/claude/replog/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Store is the persistence the HTTP handlers need. *storage.DB satisfies it.
type Store interface {
	UserResolver
	GetSettings(ctx context.Context, userID int) (storage.Settings, error)
	UpsertSettings(ctx context.Context, userID int, s storage.Settings) (storage.Settings, error)
	GetPreviousHistory(ctx context.Context, userID int, exerciseNames []string) (map[string][]models.PreviousSet, error)
	SaveCompletedWorkout(ctx context.Context, w storage.CompletedWorkout) error
	QueryWorkoutSessions(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutSessionRow, error)
	GetWorkoutSession(ctx context.Context, id uuid.UUID, userID int) (*storage.WorkoutDetail, error)
	QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.WorkoutSetRow, error)
	QueryPersonalRecords(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.PersonalRecordRow, error)
	GetExerciseHistory(ctx context.Context, start, end time.Time, userID int, exercise string) (*storage.ExerciseHistory, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
}

// Importer ingests a history export for a user.
type Importer interface {
	Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error)
}

var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db          Store
	sessions    *session.Manager
	alpha       Importer
	defaultRest int
	log         *slog.Logger
	apiKey      string

	whois WhoIser
	mcp   http.Handler

	once   sync.Once
	router chi.Router
}

// New creates a new Server. defaultRest is the rest period used for users
// who never stored their own.
func New(db Store, sessions *session.Manager, alphaImporter Importer, apiKey string, defaultRest int, log *slog.Logger) *Server {
	if defaultRest <= 0 {
		defaultRest = session.DefaultRestSeconds
	}
	return &Server{
		db:          db,
		sessions:    sessions,
		alpha:       alphaImporter,
		defaultRest: defaultRest,
		log:         log,
		apiKey:      apiKey,
	}
}

// SetTailscale switches identity resolution from the dev user to Tailscale
// WhoIs lookups. It must be called before the first request.
func (s *Server) SetTailscale(whois WhoIser) {
	s.whois = whois
}

// SetMCP mounts a streamable MCP handler at /mcp. It must be called before
// the first request.
func (s *Server) SetMCP(h http.Handler) {
	s.mcp = h
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.once.Do(s.routes)
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(RequestLogging(s.log))
	r.Use(CORS)

	// Ingest endpoints (API key required)
	r.Route("/api/v1/ingest", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Use(DevIdentity)
		r.Post("/alpha", s.handleAlphaIngest)
	})

	identity := DevIdentity
	if s.whois != nil {
		identity = TailscaleIdentity(s.whois, s.db, s.log)
	}

	r.Group(func(r chi.Router) {
		r.Use(identity)

		r.Get("/api/v1/me", s.handleMe)
		r.Get("/api/v1/settings", s.handleGetSettings)
		r.Put("/api/v1/settings", s.handlePutSettings)
		r.Get("/api/v1/import-logs", s.handleImportLogs)
		r.Get("/api/v1/stats", s.handleStats)

		r.Route("/api/v1/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/", s.handleListSessions)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDiscardSession)
				r.Post("/complete", s.handleCompleteSession)
				r.Post("/pause", s.handleTogglePause)
				r.Put("/current", s.handleSetCurrent)
				r.Post("/rest", s.handleStartRest)
				r.Delete("/rest", s.handleSkipRest)
				r.Post("/rest/extend", s.handleExtendRest)
				r.Put("/default-rest", s.handleSessionDefaultRest)
				r.Route("/exercises/{ex}", func(r chi.Router) {
					r.Put("/", s.handleSwapExercise)
					r.Put("/notes", s.handleExerciseNotes)
					r.Post("/sets", s.handleAddSet)
					r.Patch("/sets/{set}", s.handleUpdateSet)
					r.Delete("/sets/{set}", s.handleRemoveSet)
					r.Post("/sets/{set}/complete", s.handleCompleteSet)
					r.Post("/sets/{set}/weight", s.handleIncrementWeight)
				})
			})
		})

		r.Get("/api/v1/workouts", s.handleQueryWorkouts)
		r.Get("/api/v1/workouts/sets", s.handleQueryWorkoutSets)
		r.Get("/api/v1/workouts/{id}", s.handleGetWorkout)
		r.Get("/api/v1/records", s.handleQueryRecords)
		r.Get("/api/v1/exercises/history", s.handleExerciseHistory)
		r.Get("/api/v1/training/summary", s.handleTrainingSummary)

		if s.mcp != nil {
			r.Handle("/mcp", s.mcp)
		}
	})

	s.router = r
}
