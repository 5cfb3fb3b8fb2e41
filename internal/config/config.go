package config

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/zjy-dev/covingest/internal/coverage"
	"github.com/zjy-dev/covingest/internal/ingest"
)

// EnvPrefix prefixes environment overrides, e.g. COV_SERVER_ADDR.
const EnvPrefix = "COV"

// DefaultName is the base name of the main configuration file.
const DefaultName = "config"

// Config is the complete configuration of covingest.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Ingest IngestConfig `mapstructure:"ingest"`
	Store  StoreConfig  `mapstructure:"store"`
	Server ServerConfig `mapstructure:"server"`
}

// LogConfig controls the package logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	Color bool   `mapstructure:"color"`
}

// IngestConfig controls format detection and batch ingestion.
type IngestConfig struct {
	// Format is a format name or "auto".
	Format   string   `mapstructure:"format"`
	Workers  int      `mapstructure:"workers"`
	Patterns []string `mapstructure:"patterns"`
	Exclude  []string `mapstructure:"exclude"`
}

// StoreConfig selects the report database.
type StoreConfig struct {
	DSN       string `mapstructure:"dsn"`
	AuthToken string `mapstructure:"auth_token"`
	Debug     bool   `mapstructure:"debug"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.color", true)

	v.SetDefault("ingest.format", ingest.FormatAuto)
	v.SetDefault("ingest.workers", runtime.GOMAXPROCS(0))
	v.SetDefault("ingest.patterns", ingest.DefaultPatterns)
	v.SetDefault("ingest.exclude", []string{"**/node_modules/**", "**/.git/**", "**/vendor/**"})

	v.SetDefault("store.dsn", "data/covingest.db")
	v.SetDefault("store.auth_token", "")
	v.SetDefault("store.debug", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_body_bytes", 64<<20)
	v.SetDefault("server.read_header_timeout", 3*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
}

func newViper(configName string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")
	return v
}

// Load reads a configuration file from the "configs" directory into a struct.
// The configName parameter is the base name of the file without the extension.
// The result parameter must be a pointer to the struct to unmarshal into.
func Load(configName string, result interface{}) error {
	v := newViper(configName)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := v.Unmarshal(result); err != nil {
		return fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	return nil
}

// LoadConfig loads the main configuration.
//
// Values come from, in increasing priority: built-in defaults, the config
// file, a .env file in the working directory, and COV_ environment
// variables. When path is empty the file is searched for as config.yaml in
// the configs directories and may be absent; an explicit path must exist.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := newViper(DefaultName)
	if path != "" {
		v.SetConfigFile(path)
	}
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.Ingest.Format != ingest.FormatAuto {
		if _, err := coverage.ParseFormat(c.Ingest.Format); err != nil {
			return fmt.Errorf("invalid ingest format: %w", err)
		}
	}
	if c.Ingest.Workers < 0 {
		return fmt.Errorf("ingest workers must not be negative, got %d", c.Ingest.Workers)
	}
	if c.Store.DSN == "" {
		return errors.New("store dsn must be set")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	return nil
}
