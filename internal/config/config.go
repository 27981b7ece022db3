// Package config loads service configuration from defaults, an optional
// lens.yaml file, LENS_-prefixed environment variables, and CLI flags, in
// ascending precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Defaults.
const (
	DefaultListenAddr = "127.0.0.1:8080"
	DefaultDialect    = "sqlite"
	DefaultDSN        = "lens.db"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Addr is the host:port the API listens on.
	Addr string `koanf:"addr"`
}

// DatabaseConfig holds graph store settings.
type DatabaseConfig struct {
	// Dialect is sqlite or postgres.
	Dialect string `koanf:"dialect"`

	// DSN is the sqlite file path (":memory:" supported) or a postgres
	// connection string.
	DSN string `koanf:"dsn"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `koanf:"level"`

	// Format is text or json.
	Format string `koanf:"format"`
}

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
}

// findConfigFile resolves the config file to use.
// Priority: explicit path > lens.yaml > lens.yml.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"lens.yaml", "lens.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"server.addr":      DefaultListenAddr,
		"database.dialect": DefaultDialect,
		"database.dsn":     DefaultDSN,
		"log.level":        DefaultLogLevel,
		"log.format":       DefaultLogFormat,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// LENS_DATABASE_DSN -> database.dsn
	if err := k.Load(env.Provider("LENS_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "LENS_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			// --db-dsn maps to database.dsn, --log-level to log.level, and
			// the bare --addr flag to server.addr.
			switch f.Name {
			case "addr":
				return "server.addr", posflag.FlagVal(flags, f)
			case "db-dialect":
				return "database.dialect", posflag.FlagVal(flags, f)
			case "db-dsn":
				return "database.dsn", posflag.FlagVal(flags, f)
			case "log-level":
				return "log.level", posflag.FlagVal(flags, f)
			case "log-format":
				return "log.format", posflag.FlagVal(flags, f)
			}
			return "", nil
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail deep inside startup.
func (c *Config) Validate() error {
	switch c.Database.Dialect {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database dialect %q (want sqlite or postgres)", c.Database.Dialect)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (want text or json)", c.Log.Format)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel translates the configured level string.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q", c.Log.Level)
}

// NewLogger builds the process logger from the logging config.
func (c *Config) NewLogger(w *os.File) (*slog.Logger, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
