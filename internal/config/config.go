// Package config assembles the typed configuration records the ingest
// binary is built from: one for logging (sourced from the
// environment), one for the parameters of a single `build` invocation
// (sourced from CLI flags). No module-level mutable state; every
// component receives its configuration at construction.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/IntXgers/ohio-code/pkg/citation"
)

// LoggingConfig is environment-sourced and validated once at startup.
type LoggingConfig struct {
	Level string
}

// LoadLogging reads LOG_LEVEL from the environment, defaulting to
// "info" and rejecting anything outside the documented enum.
func LoadLogging() (LoggingConfig, error) {
	level := getEnv("LOG_LEVEL", "info")
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return LoggingConfig{}, fmt.Errorf("LOG_LEVEL must be one of debug,info,warn,error, got %q", level)
	}
	return LoggingConfig{Level: level}, nil
}

// BuildOptions holds every parameter of one `build` invocation.
type BuildOptions struct {
	Corpus             string
	Input              string
	Out                string
	Resume             bool
	Enrich             bool
	BatchSize          int
	CheckpointInterval int
	Extraction         citation.Config
	ComplexThreshold   int
	ChainMaxSize       int
	ChainFanout        int
}

// DefaultBuildOptions returns the default build parameters: batch size
// 5000, checkpoint interval 10000, enrichment on, chain fanout 3, max
// size 8, complex threshold 4, range expansion limit 20. BATCH_SIZE and
// CHECKPOINT_INTERVAL may override the compiled-in defaults from the
// environment.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Enrich:             true,
		BatchSize:          getEnvInt("BATCH_SIZE", 5000),
		CheckpointInterval: getEnvInt("CHECKPOINT_INTERVAL", 10000),
		Extraction:         citation.DefaultConfig(),
		ComplexThreshold:   4,
		ChainMaxSize:       8,
		ChainFanout:        3,
	}
}

// Validate checks the fields a build cannot proceed without.
func (o BuildOptions) Validate() error {
	if o.Corpus == "" {
		return fmt.Errorf("corpus is required")
	}
	if o.Input == "" {
		return fmt.Errorf("--input is required")
	}
	if o.Out == "" {
		return fmt.Errorf("--out is required")
	}
	if o.BatchSize <= 0 {
		return fmt.Errorf("--batch-size must be positive")
	}
	if o.CheckpointInterval <= 0 {
		return fmt.Errorf("--checkpoint-interval must be positive")
	}
	if o.Extraction.RangeExpansionLimit < 0 {
		return fmt.Errorf("range expansion limit must be non-negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}
