package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cliffjones/polli/internal/talkmap"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// DefaultPath is read when POLLI_CONFIG is unset.
const DefaultPath = "polli.yaml"

// #region types
// Config is the full runtime configuration.
type Config struct {
	TalkLevels int     `yaml:"talk_levels"`
	Seed       uint64  `yaml:"seed"` // 0 = time-based
	Storage    Storage `yaml:"storage"`
	TurnLog    TurnLog `yaml:"turn_log"`
	Log        Log     `yaml:"log"`
}

// Storage selects where the talk maps live.
type Storage struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
	DBPath  string `yaml:"db_path"`
}

// TurnLog configures the per-turn audit log.
type TurnLog struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// #endregion types

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		TalkLevels: talkmap.DefaultLevels,
		Storage:    Storage{Backend: BackendFile, Dir: ".", DBPath: "polli.db"},
		TurnLog:    TurnLog{DBPath: "polli.db"},
		Log:        Log{Level: "warn", Format: "text"},
	}
}

// #region load
// Load builds the configuration from defaults, the YAML file at path (a
// missing file is fine), a .env file in the working directory, and POLLI_*
// environment variables, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// Existing variables win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("POLLI_TALK_LEVELS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("POLLI_TALK_LEVELS: %w", err)
		}
		cfg.TalkLevels = n
	}
	if v := os.Getenv("POLLI_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("POLLI_SEED: %w", err)
		}
		cfg.Seed = n
	}
	if v := os.Getenv("POLLI_TURN_LOG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("POLLI_TURN_LOG: %w", err)
		}
		cfg.TurnLog.Enabled = b
	}
	setString(&cfg.Storage.Backend, "POLLI_STORAGE_BACKEND")
	setString(&cfg.Storage.Dir, "POLLI_STORAGE_DIR")
	setString(&cfg.Storage.DBPath, "POLLI_DB_PATH")
	setString(&cfg.TurnLog.DBPath, "POLLI_TURN_LOG_DB")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// #endregion load

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.TalkLevels < 1 {
		return fmt.Errorf("talk_levels must be at least 1, got %d", c.TalkLevels)
	}
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
