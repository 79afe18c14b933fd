package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/replog/internal/config"
	"github.com/claude/replog/internal/ingest/alpha"
	"github.com/claude/replog/internal/mcp"
	"github.com/claude/replog/internal/recovery"
	"github.com/claude/replog/internal/server"
	"github.com/claude/replog/internal/session"
	"github.com/claude/replog/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/samber/do/v2"
)

const databaseInitTimeout = 15 * time.Second

// setupDI registers the serve dependency graph. Providers run lazily on
// first invoke.
func setupDI(cfg *config.Config, log *slog.Logger) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, log)

	do.Provide(injector, func(i do.Injector) (*storage.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ctx, cancel := context.WithTimeout(context.Background(), databaseInitTimeout)
		defer cancel()
		db, err := storage.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("connecting database: %w", err)
		}
		return db, nil
	})

	do.Provide(injector, func(i do.Injector) (*recovery.Store, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return recovery.Open(cfg.Recovery.StateDir)
	})

	do.Provide(injector, func(i do.Injector) (*session.Manager, error) {
		store := do.MustInvoke[*recovery.Store](i)
		return session.NewManager(store, do.MustInvoke[*slog.Logger](i).With("component", "sessions")), nil
	})

	do.Provide(injector, func(i do.Injector) (*alpha.Provider, error) {
		cfg := do.MustInvoke[*config.Config](i)
		loc, err := cfg.Session.Location()
		if err != nil {
			return nil, fmt.Errorf("loading timezone: %w", err)
		}
		return alpha.NewProvider(do.MustInvoke[*storage.DB](i), loc, do.MustInvoke[*slog.Logger](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*mcpserver.MCPServer, error) {
		return mcp.New(
			do.MustInvoke[*storage.DB](i),
			do.MustInvoke[*session.Manager](i),
			Version,
			do.MustInvoke[*slog.Logger](i).With("component", "mcp"),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*server.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		srv := server.New(
			do.MustInvoke[*storage.DB](i),
			do.MustInvoke[*session.Manager](i),
			do.MustInvoke[*alpha.Provider](i),
			cfg.Auth.APIKey,
			cfg.Session.DefaultRestSeconds,
			do.MustInvoke[*slog.Logger](i),
		)
		srv.SetMCP(mcp.NewHTTPHandler(do.MustInvoke[*mcpserver.MCPServer](i), server.RequestUserID))
		return srv, nil
	})

	return injector
}
