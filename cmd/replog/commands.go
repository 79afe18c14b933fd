package main

import (
	"context"
	"fmt"
	"os"

	"github.com/claude/replog/internal/ingest/alpha"
	"github.com/claude/replog/internal/mcp"
	"github.com/claude/replog/internal/storage"
	"github.com/claude/replog/internal/upload"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// MigrateCmd applies pending migrations.
type MigrateCmd struct{}

func (c *MigrateCmd) Run(g *Globals) error {
	cfg, log, err := g.load(os.Stdout)
	if err != nil {
		return err
	}
	if err := storage.RunMigrations(cfg.Database.DSN(), g.Migrations); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations complete")
	return nil
}

// ImportCmd loads an Alpha Progression export straight into the database.
type ImportCmd struct {
	File  string `arg:"" type:"existingfile" help:"Alpha Progression CSV export."`
	Login string `help:"Import for this tailnet login instead of the local dev user."`
}

func (c *ImportCmd) Run(g *Globals) error {
	cfg, log, err := g.load(os.Stdout)
	if err != nil {
		return err
	}
	ctx := context.Background()

	db, err := storage.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer db.Close()

	loc, err := cfg.Session.Location()
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}

	uid := devUserID
	if c.Login != "" {
		if uid, err = db.GetOrCreateUser(ctx, c.Login, c.Login); err != nil {
			return fmt.Errorf("resolving user %q: %w", c.Login, err)
		}
	}

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("opening export: %w", err)
	}
	defer f.Close()

	result, err := alpha.NewProvider(db, loc, log).Ingest(ctx, f, uid)
	if err != nil {
		return fmt.Errorf("importing %s: %w", c.File, err)
	}
	log.Info("import complete",
		"file", c.File,
		"user_id", uid,
		"sessions", result.SessionsReceived,
		"sets_received", result.SetsReceived,
		"sets_inserted", result.SetsInserted,
		"sets_skipped", result.SetsSkipped,
	)
	return nil
}

// MCPCmd serves the MCP tools over stdio. With --remote the data comes from a
// running server's REST API, which includes its live sessions. Otherwise it
// reads the database directly and sees history only.
type MCPCmd struct {
	Remote string `help:"Base URL of a running replog server." placeholder:"URL"`
}

func (c *MCPCmd) Run(g *Globals) error {
	if c.Remote != "" {
		client := mcp.NewHTTPClient(c.Remote)
		log := stderrLogger(g.Debug)
		return mcpserver.ServeStdio(mcp.New(client, client, Version, log))
	}

	// stdout carries the protocol, so logs go to stderr.
	cfg, log, err := g.load(os.Stderr)
	if err != nil {
		return err
	}
	db, err := storage.New(context.Background(), cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer db.Close()
	return mcpserver.ServeStdio(mcp.New(db, nil, Version, log))
}

// UploadCmd sends an Alpha Progression export to a running server.
type UploadCmd struct {
	File   string `arg:"" type:"existingfile" help:"Alpha Progression CSV export."`
	Server string `required:"" env:"REPLOG_SERVER" help:"Base URL of the replog server." placeholder:"URL"`
	APIKey string `required:"" env:"REPLOG_API_KEY" name:"api-key" help:"Ingest API key."`
}

func (c *UploadCmd) Run(g *Globals) error {
	log := stderrLogger(g.Debug)
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("reading export: %w", err)
	}
	result, err := upload.NewClient(c.Server, c.APIKey).SendAlphaExport(context.Background(), data)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", c.File, err)
	}
	log.Info("upload complete",
		"file", c.File,
		"sessions", result.SessionsReceived,
		"sets_inserted", result.SetsInserted,
		"sets_skipped", result.SetsSkipped,
	)
	return nil
}
