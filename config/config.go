// Package config loads process settings from the environment.
//
// Values come from SYLLABUS_* variables, optionally seeded from .env files.
// Variables already present in the environment win over file values.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Vector backends.
const (
	VectorBackendLocal  = "local"
	VectorBackendQdrant = "qdrant"
)

// Config is the process configuration.
type Config struct {
	DBPath string `env:"SYLLABUS_DB_PATH" envDefault:"./syllabus.db"`

	EmbeddingHost      string `env:"SYLLABUS_EMBEDDING_HOST" envDefault:"http://localhost:11434/v1"`
	EmbeddingModel     string `env:"SYLLABUS_EMBEDDING_MODEL" envDefault:"bge-m3"`
	EmbeddingToken     string `env:"SYLLABUS_EMBEDDING_TOKEN"`
	EmbeddingBatchSize int    `env:"SYLLABUS_EMBEDDING_BATCH_SIZE" envDefault:"64"`
	// EmbeddingTimeout is in seconds.
	EmbeddingTimeout   int    `env:"SYLLABUS_EMBEDDING_TIMEOUT" envDefault:"60"`
	EmbeddingMaxInput  int    `env:"SYLLABUS_EMBEDDING_MAX_INPUT" envDefault:"8000"`

	VectorBackend string `env:"SYLLABUS_VECTOR_BACKEND" envDefault:"local"`
	QdrantURL     string `env:"SYLLABUS_QDRANT_URL" envDefault:"http://localhost:6333"`
	QdrantAPIKey  string `env:"SYLLABUS_QDRANT_API_KEY"`
	VectorDim     int    `env:"SYLLABUS_VECTOR_DIM" envDefault:"0"`

	// StopTimeout is in seconds.
	StopTimeout int    `env:"SYLLABUS_STOP_TIMEOUT" envDefault:"10"`
	WorkDir     string `env:"SYLLABUS_WORK_DIR"`
	LogLevel    string `env:"SYLLABUS_LOG_LEVEL" envDefault:"info"`
}

// Load reads the given env files, then parses the environment.
// With no files, ./.env is read when it exists.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			envFiles = []string{".env"}
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("config: loading env files: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("config: DBPath is required"))
	}
	if strings.TrimSpace(c.EmbeddingHost) == "" {
		errs = append(errs, errors.New("config: EmbeddingHost is required"))
	}
	if strings.TrimSpace(c.EmbeddingModel) == "" {
		errs = append(errs, errors.New("config: EmbeddingModel is required"))
	}
	if c.EmbeddingBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("config: EmbeddingBatchSize must be positive, got %d", c.EmbeddingBatchSize))
	}
	if c.EmbeddingTimeout <= 0 {
		errs = append(errs, fmt.Errorf("config: EmbeddingTimeout must be positive, got %d", c.EmbeddingTimeout))
	}
	if c.EmbeddingMaxInput < 0 {
		errs = append(errs, fmt.Errorf("config: EmbeddingMaxInput must be non-negative, got %d", c.EmbeddingMaxInput))
	}
	switch c.VectorBackend {
	case VectorBackendLocal:
	case VectorBackendQdrant:
		if strings.TrimSpace(c.QdrantURL) == "" {
			errs = append(errs, errors.New("config: QdrantURL is required for the qdrant backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: VectorBackend must be %q or %q, got %q", VectorBackendLocal, VectorBackendQdrant, c.VectorBackend))
	}
	if c.VectorDim < 0 {
		errs = append(errs, fmt.Errorf("config: VectorDim must be non-negative, got %d", c.VectorDim))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("config: StopTimeout must be positive, got %d", c.StopTimeout))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// StopTimeoutDuration returns StopTimeout as a duration.
func (c *Config) StopTimeoutDuration() time.Duration {
	return time.Duration(c.StopTimeout) * time.Second
}

// EmbeddingTimeoutDuration returns EmbeddingTimeout as a duration.
func (c *Config) EmbeddingTimeoutDuration() time.Duration {
	return time.Duration(c.EmbeddingTimeout) * time.Second
}

// Level returns the configured log level, defaulting to info.
func (c *Config) Level() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: LogLevel must be debug, info, warn or error, got %q", s)
}
