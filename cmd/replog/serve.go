package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/replog/internal/config"
	"github.com/claude/replog/internal/recovery"
	"github.com/claude/replog/internal/server"
	"github.com/claude/replog/internal/session"
	"github.com/claude/replog/internal/storage"
	"github.com/robfig/cron"
	"github.com/samber/do/v2"
	"tailscale.com/tsnet"
)

// ServeCmd runs the long-lived server.
type ServeCmd struct{}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, log, err := g.load(os.Stdout)
	if err != nil {
		return err
	}

	if err := storage.RunMigrations(cfg.Database.DSN(), g.Migrations); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations complete")

	injector := setupDI(cfg, log)

	db, err := do.Invoke[*storage.DB](injector)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database connected")

	snapshots, err := do.Invoke[*recovery.Store](injector)
	if err != nil {
		return fmt.Errorf("opening recovery store: %w", err)
	}
	defer snapshots.Close()

	sessions := do.MustInvoke[*session.Manager](injector)
	defer sessions.Close()
	n, err := sessions.Recover()
	if err != nil {
		log.Warn("session recovery incomplete", "error", err)
	}
	log.Info("sessions recovered", "count", n)

	srv, err := do.Invoke[*server.Server](injector)
	if err != nil {
		return err
	}

	reaper, err := startReaper(cfg, sessions, log)
	if err != nil {
		return err
	}
	defer reaper.Stop()

	listener, cleanup, err := listen(cfg, srv, log)
	if err != nil {
		return err
	}
	defer cleanup()

	httpSrv := &http.Server{Handler: srv}
	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig)
	case err := <-serveErr:
		log.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
	return nil
}

// startReaper schedules removal of sessions idle longer than the configured
// limit. Their snapshots are deleted with them.
func startReaper(cfg *config.Config, sessions *session.Manager, log *slog.Logger) (*cron.Cron, error) {
	c := cron.New()
	err := c.AddFunc(cfg.Session.ReapSchedule, func() {
		if reaped := sessions.Reap(cfg.Session.MaxIdle); len(reaped) > 0 {
			log.Info("reaped idle sessions", "count", len(reaped), "ids", reaped)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling reaper %q: %w", cfg.Session.ReapSchedule, err)
	}
	c.Start()
	log.Info("session reaper started", "schedule", cfg.Session.ReapSchedule, "max_idle", cfg.Session.MaxIdle)
	return c, nil
}

// listen opens the tailnet listener when Tailscale is enabled and a plain TCP
// listener otherwise. Identity middleware follows the choice.
func listen(cfg *config.Config, srv *server.Server, log *slog.Logger) (net.Listener, func(), error) {
	if !cfg.Tailscale.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, nil, fmt.Errorf("listen %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
		return ln, func() {}, nil
	}

	ts := &tsnet.Server{
		Hostname: cfg.Tailscale.Hostname,
		Dir:      cfg.Tailscale.StateDir,
		AuthKey:  cfg.Tailscale.AuthKey,
	}
	if err := ts.Start(); err != nil {
		return nil, nil, fmt.Errorf("tsnet start: %w", err)
	}
	lc, err := ts.LocalClient()
	if err != nil {
		ts.Close()
		return nil, nil, fmt.Errorf("tsnet local client: %w", err)
	}
	srv.SetTailscale(lc)

	ln, err := ts.Listen("tcp", ":80")
	if err != nil {
		ts.Close()
		return nil, nil, fmt.Errorf("tsnet listen: %w", err)
	}
	log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	return ln, func() { ts.Close() }, nil
}
