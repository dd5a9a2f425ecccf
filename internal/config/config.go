// Package config loads and validates application configuration from
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override the default
	// of ["http://localhost:5173"].
	CORSOrigins []string

	// MaxBodyBytes caps the size of any request body. Batch uploads of
	// 1000 points fit comfortably inside the 1 MiB default.
	MaxBodyBytes int64

	// StorageTimeout bounds every request's database work through its
	// context deadline. Defaults to 10s.
	StorageTimeout time.Duration

	// DestAddressKey is the 64-hex-character master key used to seal
	// destination addresses at rest. Required.
	DestAddressKey string

	// MetricsEnabled controls whether /metrics is served. Defaults to true.
	MetricsEnabled bool
}

// Load reads configuration from environment variables and returns a Config.
// A .env file in the working directory is loaded first if present, so local
// development does not need to export anything. Returns an error listing any
// required variables that are not set.
func Load() (Config, error) {
	// Ignore the error: a missing .env just means plain env vars.
	_ = godotenv.Load()

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
	}

	var err error
	if cfg.MaxBodyBytes, err = strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64); err != nil {
		return Config{}, fmt.Errorf("MAX_BODY_BYTES: %w", err)
	}
	if cfg.StorageTimeout, err = time.ParseDuration(getEnv("STORAGE_TIMEOUT", "10s")); err != nil {
		return Config{}, fmt.Errorf("STORAGE_TIMEOUT: %w", err)
	}
	if cfg.MetricsEnabled, err = strconv.ParseBool(getEnv("METRICS_ENABLED", "true")); err != nil {
		return Config{}, fmt.Errorf("METRICS_ENABLED: %w", err)
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.DestAddressKey = os.Getenv("DEST_ADDRESS_KEY")
	if cfg.DestAddressKey == "" {
		missing = append(missing, "DEST_ADDRESS_KEY")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
