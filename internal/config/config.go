// Package config loads the server configuration from a YAML or JSON file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

var (
	ErrEmptyPath         = errors.New("config: path is empty")
	ErrUnsupportedFormat = errors.New("config: unsupported format")
	ErrLoadFailed        = errors.New("config: load failed")
	ErrParseFailed       = errors.New("config: parse failed")
	ErrInvalid           = errors.New("config: invalid")
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	Session   SessionConfig   `koanf:"session"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Accounts  AccountsConfig  `koanf:"accounts"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type AuthConfig struct {
	Secret      string        `koanf:"secret"`
	Issuer      string        `koanf:"issuer"`
	Audience    string        `koanf:"audience"`
	MaxLifetime time.Duration `koanf:"max_lifetime"`
	// Admins lists the usernames allowed to call the /api/admin routes.
	Admins []string `koanf:"admins"`
}

type SessionConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

type RateLimitConfig struct {
	Window time.Duration `koanf:"window"`
	Limit  int64         `koanf:"limit"`
}

type AccountsConfig struct {
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	LoadAttempts uint          `koanf:"load_attempts"`
}

type SchedulerConfig struct {
	Workers   int `koanf:"workers"`
	QueueSize int `koanf:"queue_size"`
}

type LogConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// Default returns the configuration used for keys missing from the file.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8008",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Path: "expiring-cache.db"},
		Auth: AuthConfig{
			Secret:      "development-insecure-secret-change-me",
			Issuer:      "expiring-cache-api",
			Audience:    "expiring-cache-clients",
			MaxLifetime: 24 * time.Hour,
		},
		Session:   SessionConfig{TTL: 30 * time.Minute},
		RateLimit: RateLimitConfig{Window: 10 * time.Second, Limit: 100},
		Accounts:  AccountsConfig{CacheTTL: 5 * time.Minute, LoadAttempts: 3},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path on top of Default and validates the result.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, ErrEmptyPath
	}
	parser, err := parserFor(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return parse(data, parser)
}

// Parse decodes data in the given format ("yaml" or "json") on top of Default.
func Parse(data []byte, format string) (Config, error) {
	parser, err := parserFor("config." + format)
	if err != nil {
		return Config{}, err
	}
	return parse(data, parser)
}

func parse(data []byte, parser koanf.Parser) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, ext)
	}
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, msg))
		}
	}
	check(c.Server.Addr != "", "server.addr is empty")
	check(c.Server.ShutdownTimeout > 0, "server.shutdown_timeout must be positive")
	check(c.Database.Path != "", "database.path is empty")
	check(c.Auth.Secret != "", "auth.secret is empty")
	check(c.Auth.MaxLifetime > 0, "auth.max_lifetime must be positive")
	check(c.Session.TTL > 0, "session.ttl must be positive")
	check(c.RateLimit.Window > 0, "rate_limit.window must be positive")
	check(c.RateLimit.Limit > 0, "rate_limit.limit must be positive")
	check(c.Accounts.CacheTTL > 0, "accounts.cache_ttl must be positive")
	check(c.Accounts.LoadAttempts > 0, "accounts.load_attempts must be positive")
	check(c.Scheduler.Workers >= 0, "scheduler.workers must not be negative")
	check(c.Scheduler.QueueSize >= 0, "scheduler.queue_size must not be negative")
	switch c.Log.Format {
	case "text", "json":
	default:
		check(false, fmt.Sprintf("log.format %q is not text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}
