// Package config provides configuration loading and validation.
//
// Values are layered: built-in defaults, then an optional TOML or YAML file,
// then environment variables (including a .env file), then explicit
// overrides such as command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	toml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/sipico/vssv/internal/logging"
	"github.com/sipico/vssv/internal/storage"
)

// Configuration keys. Each key is also read from the environment variable
// with the same name in upper case.
const (
	KeyDatabaseDriver   = "database_driver"
	KeyDatabaseURL      = "database_url"
	KeyDBMaxConnections = "db_max_connections"
	KeyListen           = "listen"
	KeyMetricsListen    = "metrics_listen"
	KeyLogFormat        = "log_format"
	KeyLogLevel         = "log_level"
	KeyUseXRealIP       = "use_x_real_ip"
	KeyMaxSecretSize    = "max_secret_size"
	KeyShutdownTimeout  = "shutdown_timeout"
)

var knownKeys = map[string]bool{
	KeyDatabaseDriver:   true,
	KeyDatabaseURL:      true,
	KeyDBMaxConnections: true,
	KeyListen:           true,
	KeyMetricsListen:    true,
	KeyLogFormat:        true,
	KeyLogLevel:         true,
	KeyUseXRealIP:       true,
	KeyMaxSecretSize:    true,
	KeyShutdownTimeout:  true,
}

// Config holds all application configuration.
type Config struct {
	DatabaseDriver   string        `koanf:"database_driver"`    // sqlite or postgres
	DatabaseURL      string        `koanf:"database_url"`       // SQLite file path or Postgres URL
	DBMaxConnections int           `koanf:"db_max_connections"` // 0 = driver default; SQLite always uses 1
	Listen           string        `koanf:"listen"`             // API listen address
	MetricsListen    string        `koanf:"metrics_listen"`     // empty disables the metrics listener
	LogFormat        string        `koanf:"log_format"`         // text, text-color, json
	LogLevel         string        `koanf:"log_level"`          // trace, debug, info, warn, error
	UseXRealIP       bool          `koanf:"use_x_real_ip"`      // trust X-Real-IP for audit addresses
	MaxSecretSize    int64         `koanf:"max_secret_size"`    // upload limit in bytes
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		DatabaseDriver:  string(storage.DriverSQLite),
		DatabaseURL:     "vssv.db",
		Listen:          "[::1]:8081",
		MetricsListen:   "localhost:9090",
		LogFormat:       logging.FormatText,
		LogLevel:        "info",
		MaxSecretSize:   10 << 20,
		ShutdownTimeout: 30 * time.Second,
	}
}

// LoadOptions selects the optional sources for Load.
type LoadOptions struct {
	// File is a TOML (.toml) or YAML (.yaml, .yml) config file. Empty skips it.
	File string
	// EnvFile is a dotenv file merged into the environment. Variables that
	// are already set win. A missing file is ignored.
	EnvFile string
	// Overrides are applied last, keyed by the Key* constants.
	Overrides map[string]any
}

// Load builds the configuration from all sources and validates it.
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	k := koanf.New(".")

	if opts.File != "" {
		parser, err := parserFor(opts.File)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(opts.File), parser); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for key, val := range opts.Overrides {
		if !knownKeys[key] {
			return nil, fmt.Errorf("unknown configuration key %q", key)
		}
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", key, err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			TagName:          "koanf",
			WeaklyTypedInput: true,
			Result:           cfg,
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// envKey maps an environment variable to a configuration key. Unrelated
// and empty variables map to "" and are skipped, so an empty variable
// keeps the default.
func envKey(name, value string) (string, any) {
	key := strings.ToLower(name)
	if !knownKeys[key] || value == "" {
		return "", nil
	}
	return key, value
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config file type %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
}

// Validate checks all configuration constraints.
func (c *Config) Validate() error {
	switch storage.Driver(c.DatabaseDriver) {
	case storage.DriverSQLite, storage.DriverPostgres:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", storage.DriverSQLite, storage.DriverPostgres, c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMaxConnections < 0 {
		return fmt.Errorf("DB_MAX_CONNECTIONS must not be negative")
	}
	if c.Listen == "" {
		return fmt.Errorf("LISTEN is required")
	}
	switch c.LogFormat {
	case logging.FormatText, logging.FormatTextColor, logging.FormatJSON:
	default:
		return fmt.Errorf("LOG_FORMAT must be one of text, text-color, json, got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.MaxSecretSize <= 0 {
		return fmt.Errorf("MAX_SECRET_SIZE must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}
