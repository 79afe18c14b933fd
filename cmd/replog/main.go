package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/claude/replog/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// devUserID owns imports when no login is given. The initial migration seeds it.
const devUserID = 1

// Globals are flags shared by every command.
type Globals struct {
	Config     string           `short:"c" default:"config.yaml" help:"Path to config file."`
	Migrations string           `default:"migrations" help:"Directory holding the SQL migrations."`
	Debug      bool             `help:"Log at debug level regardless of config."`
	Version    kong.VersionFlag `help:"Print version and exit."`
}

// CLI is the command tree.
type CLI struct {
	Globals

	Serve   ServeCmd   `cmd:"" default:"1" help:"Run the HTTP API, live sessions and the MCP endpoint."`
	Migrate MigrateCmd `cmd:"" help:"Apply database migrations and exit."`
	Import  ImportCmd  `cmd:"" help:"Import an Alpha Progression CSV export."`
	Upload  UploadCmd  `cmd:"" help:"Send an Alpha Progression CSV export to a running server."`
	MCP     MCPCmd     `cmd:"" name:"mcp" help:"Serve MCP over stdio."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("replog"),
		kong.Description("Strength workout logging with live sessions, history and MCP access."),
		kong.Vars{"version": "replog " + Version},
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli.Globals); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// load reads the config file and builds the logger writing to w.
func (g *Globals) load(w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	level := cfg.Log.SlogLevel()
	if g.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return cfg, log, nil
}

// stderrLogger is used when no config file is read.
func stderrLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
