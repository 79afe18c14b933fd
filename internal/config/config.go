package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // container images often ship without zoneinfo

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REPLOG_"

type Config struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Database  DatabaseConfig  `yaml:"database" envPrefix:"DB_"`
	Auth      AuthConfig      `yaml:"auth" envPrefix:"AUTH_"`
	Tailscale TailscaleConfig `yaml:"tailscale" envPrefix:"TS_"`
	Session   SessionConfig   `yaml:"session" envPrefix:"SESSION_"`
	Recovery  RecoveryConfig  `yaml:"recovery" envPrefix:"RECOVERY_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	Name     string `yaml:"name" env:"NAME"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
	MaxConns int32  `yaml:"max_conns" env:"MAX_CONNS"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key" env:"API_KEY"`
}

// TailscaleConfig controls serving on the tailnet. When disabled the server
// listens on server.host:server.port and every request acts as the local dev user.
type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ENABLED"`
	Hostname string `yaml:"hostname" env:"HOSTNAME"`
	StateDir string `yaml:"state_dir" env:"STATE_DIR"`
	AuthKey  string `yaml:"auth_key" env:"AUTHKEY"`
}

type SessionConfig struct {
	// DefaultRestSeconds applies to users who have not chosen their own.
	DefaultRestSeconds int `yaml:"default_rest_seconds" env:"DEFAULT_REST_SECONDS"`
	// MaxIdle is how long a session may go without a mutation before the
	// reaper discards it.
	MaxIdle      time.Duration `yaml:"max_idle" env:"MAX_IDLE"`
	ReapSchedule string        `yaml:"reap_schedule" env:"REAP_SCHEDULE"`
	// Timezone is used to read zone-less timestamps in history exports.
	Timezone string `yaml:"timezone" env:"TIMEZONE"`
}

type RecoveryConfig struct {
	StateDir string `yaml:"state_dir" env:"STATE_DIR"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Location resolves the configured timezone, defaulting to UTC.
func (s SessionConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaults() *Config {
	return &Config{
		Server:    ServerConfig{Host: "0.0.0.0"},
		Tailscale: TailscaleConfig{Hostname: "replog", StateDir: "tsnet-state"},
		Session: SessionConfig{
			DefaultRestSeconds: 90,
			MaxIdle:            6 * time.Hour,
			ReapSchedule:       "@every 15m",
		},
		Recovery: RecoveryConfig{StateDir: "state"},
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix REPLOG_ and section-prefixed names, for example:
//
//	REPLOG_SERVER_HOST, REPLOG_SERVER_PORT,
//	REPLOG_DB_HOST, REPLOG_DB_PORT, REPLOG_DB_NAME,
//	REPLOG_DB_USER, REPLOG_DB_PASSWORD, REPLOG_DB_SSLMODE,
//	REPLOG_AUTH_API_KEY, REPLOG_TS_ENABLED, REPLOG_SESSION_MAX_IDLE
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Database.Port == 0 {
		errs = append(errs, errors.New("database.port is required"))
	}
	if c.Database.Name == "" {
		errs = append(errs, errors.New("database.name is required"))
	}
	if c.Database.User == "" {
		errs = append(errs, errors.New("database.user is required"))
	}
	if c.Auth.APIKey == "" {
		errs = append(errs, errors.New("auth.api_key is required"))
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		errs = append(errs, errors.New("tailscale.hostname is required when tailscale is enabled"))
	}
	if c.Session.DefaultRestSeconds <= 0 {
		errs = append(errs, fmt.Errorf("session.default_rest_seconds must be positive, got %d", c.Session.DefaultRestSeconds))
	}
	if c.Session.MaxIdle <= 0 {
		errs = append(errs, fmt.Errorf("session.max_idle must be positive, got %s", c.Session.MaxIdle))
	}
	if _, err := cron.Parse(c.Session.ReapSchedule); err != nil {
		errs = append(errs, fmt.Errorf("session.reap_schedule: %w", err))
	}
	if _, err := c.Session.Location(); err != nil {
		errs = append(errs, fmt.Errorf("session.timezone: %w", err))
	}
	if c.Recovery.StateDir == "" {
		errs = append(errs, errors.New("recovery.state_dir is required"))
	}
	return errors.Join(errs...)
}
