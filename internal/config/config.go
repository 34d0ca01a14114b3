// Package config loads PlantCare runtime settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/kimhsiao/plantcare/backend/internal/logging"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
	BackendRedis  = "redis"
)

// Environment variables that override file settings.
const (
	EnvDataDir  = "PLANTCARE_DATA_DIR"
	EnvStore    = "PLANTCARE_STORE"
	EnvRedis    = "REDIS_ADDR"
	EnvLogLevel = "PLANTCARE_LOG_LEVEL"
	EnvLocale   = "PLANTCARE_LOCALE"
)

// Redis holds connection settings for the redis backend.
type Redis struct {
	Addr   string `yaml:"addr"`
	DB     int    `yaml:"db"`
	Prefix string `yaml:"prefix"`
}

// Store selects and configures the plant store.
type Store struct {
	Backend string `yaml:"backend"`
	Redis   Redis  `yaml:"redis"`
}

// Log configures logging.
type Log struct {
	Level string `yaml:"level"`
}

// Config is the full runtime configuration.
type Config struct {
	DataDir     string `yaml:"data_dir"`
	Store       Store  `yaml:"store"`
	Log         Log    `yaml:"log"`
	Locale      string `yaml:"locale"`
	SeedSamples bool   `yaml:"seed_samples"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DataDir: "./data",
		Store: Store{
			Backend: BackendSQLite,
			Redis: Redis{
				Addr:   "localhost:6379",
				Prefix: "plantcare",
			},
		},
		Log:         Log{Level: "info"},
		Locale:      "en",
		SeedSamples: true,
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path or a missing file yields defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDataDir); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := lookup(EnvStore); ok && v != "" {
		c.Store.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvRedis); ok && v != "" {
		// host:port or host:port/db
		addr, db, found := strings.Cut(v, "/")
		c.Store.Redis.Addr = addr
		if found {
			n, err := strconv.Atoi(db)
			if err != nil {
				return fmt.Errorf("invalid %s database %q", EnvRedis, db)
			}
			c.Store.Redis.DB = n
		}
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvLocale); ok && v != "" {
		c.Locale = v
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendJSON:
		if c.DataDir == "" {
			return fmt.Errorf("data_dir is required for the %s backend", c.Store.Backend)
		}
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required for the redis backend")
		}
		if c.Store.Redis.DB < 0 {
			return fmt.Errorf("invalid store.redis.db %d", c.Store.Redis.DB)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", c.Locale, err)
	}
	return nil
}

// Language returns the configured locale as a language tag.
func (c Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// LogLevel returns the configured log level.
func (c Config) LogLevel() logging.LogLevel {
	return logging.ParseLevel(c.Log.Level)
}
