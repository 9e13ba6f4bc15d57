package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Run           RunConfig
	Output        OutputConfig
	Observability ObservabilityConfig
}

type RunConfig struct {
	// Profile is the document family to process (aws, cloud, ibm, dell).
	Profile string
	// Workers bounds batch parallelism.
	Workers int
	// ReferencePath points at the master/reference table for matcher-using
	// families. Empty for families that do not join.
	ReferencePath string
	// EuropeanAmounts selects dot-thousand/comma-decimal parsing for the
	// reference table.
	EuropeanAmounts bool
	// Schedule, when set, switches the tool into sweep mode: a 5-field cron
	// spec on which InputDir is scanned for new documents.
	Schedule string
	// InputDir is the directory swept for pending documents in sweep mode.
	InputDir string
}

type OutputConfig struct {
	// Dir receives the generated workbooks.
	Dir string
	// Format is "xlsx" or "csv".
	Format string
}

type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	MetricsEnabled bool
	MetricsPort    int
}

// Load reads configuration from the environment, with an optional .env file.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Run: RunConfig{
			Profile:         getEnv("DOCPIPE_PROFILE", ""),
			Workers:         getEnvAsInt("DOCPIPE_WORKERS", 4),
			ReferencePath:   getEnv("DOCPIPE_REFERENCE_PATH", ""),
			EuropeanAmounts: getEnvAsBool("DOCPIPE_EUROPEAN_AMOUNTS", false),
			Schedule:        getEnv("DOCPIPE_SCHEDULE", ""),
			InputDir:        getEnv("DOCPIPE_INPUT_DIR", ""),
		},
		Output: OutputConfig{
			Dir:    getEnv("DOCPIPE_OUTPUT_DIR", "."),
			Format: getEnv("DOCPIPE_OUTPUT_FORMAT", "xlsx"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "text"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", false),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
	}

	if cfg.Run.Workers <= 0 {
		return nil, errors.New("DOCPIPE_WORKERS must be positive")
	}
	if cfg.Output.Format != "xlsx" && cfg.Output.Format != "csv" {
		return nil, errors.New("DOCPIPE_OUTPUT_FORMAT must be xlsx or csv")
	}
	if cfg.Run.Schedule != "" && cfg.Run.InputDir == "" {
		return nil, errors.New("DOCPIPE_SCHEDULE requires DOCPIPE_INPUT_DIR")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
