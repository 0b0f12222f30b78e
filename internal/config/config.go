// Package config handles loading and parsing application configuration.
// It supports two sources for the config file path (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Values from a .env file in the working directory are exported into the
// environment first, so they can override any env-tagged field.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file and can be overridden by the
// corresponding environment variable.
type Config struct {
	// Env controls log format and verbosity: "dev", "staging" or "prod".
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	// StorageDriver selects the backend: "sqlite" or "bolt".
	StorageDriver string `yaml:"storage_driver" env:"STORAGE_DRIVER" env-default:"sqlite"`

	// StoragePath is the filesystem path of the database file.
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-required:"true"`

	// SeedPath optionally points at a JSON file of customers loaded into
	// an empty database on startup.
	SeedPath string `yaml:"seed_path" env:"SEED_PATH"`

	HTTPServer `yaml:"http_server"`
	Database   Database `yaml:"database"`
	Log        Log      `yaml:"log"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	Addr           string        `yaml:"address"         env:"HTTP_SERVER_ADDR"  env-default:"localhost:8000"`
	ReadTimeout    time.Duration `yaml:"read_timeout"    env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout   time.Duration `yaml:"write_timeout"   env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"    env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"HTTP_REQUEST_TIMEOUT" env-default:"10s"`

	// AllowedOrigins lists the browser origins allowed by CORS.
	AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:"," env-default:"http://127.0.0.1:8080,http://localhost:8080"`
}

// Database tunes the connection to the storage backend.
type Database struct {
	// RetryAttempts is the number of tries for the initial connection.
	RetryAttempts int `yaml:"retry_attempts" env:"DB_RETRY_ATTEMPTS" env-default:"3"`

	// RetryBaseDelay is multiplied by attempt² between tries.
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" env:"DB_RETRY_BASE_DELAY" env-default:"10ms"`

	MaxOpenConns int `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"10"`
}

// Log configures optional file output with rotation. An empty Filename
// keeps logs on stdout.
type Log struct {
	Filename   string `yaml:"filename"    env:"LOG_FILENAME"`
	MaxSize    int    `yaml:"max_size"    env:"LOG_MAX_SIZE"    env-default:"100"`
	MaxAge     int    `yaml:"max_age"     env:"LOG_MAX_AGE"     env-default:"28"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"3"`
}

// Load reads the config file at path, applies environment overrides and
// checks the result.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case DriverSQLite, DriverBolt:
	default:
		return fmt.Errorf("unknown storage_driver %q: want %q or %q",
			c.StorageDriver, DriverSQLite, DriverBolt)
	}

	if c.Database.RetryAttempts < 1 {
		return errors.New("database.retry_attempts must be at least 1")
	}

	if c.HTTPServer.RequestTimeout <= 0 {
		return errors.New("http_server.request_timeout must be positive")
	}

	return nil
}

// MustLoad reads, validates, and returns the application config.
// It exits the process if anything is wrong.
func MustLoad() *Config {
	// A missing .env file is fine.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	return cfg
}
