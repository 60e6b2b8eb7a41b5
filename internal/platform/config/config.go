package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// PostgresDSN enables the PostgreSQL store; empty falls back to the
	// in-memory store.
	PostgresDSN string

	// RedisURL enables the Redis duplicate index; empty falls back to the
	// in-memory index.
	RedisURL string

	// WeightsFile optionally overrides the built-in comparable-field table.
	WeightsFile string

	// RecognitionTimeout bounds each external OCR call.
	RecognitionTimeout time.Duration

	// MaxWorkers bounds concurrent document processing.
	MaxWorkers int64
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:               envOr("VERIDOC_ADDR", ":8080"),
		PostgresDSN:        os.Getenv("VERIDOC_POSTGRES_DSN"),
		RedisURL:           os.Getenv("VERIDOC_REDIS_URL"),
		WeightsFile:        os.Getenv("VERIDOC_WEIGHTS_FILE"),
		RecognitionTimeout: 30 * time.Second,
		MaxWorkers:         8,
	}
	if raw := os.Getenv("VERIDOC_RECOGNITION_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.RecognitionTimeout = d
		}
	}
	if raw := os.Getenv("VERIDOC_MAX_WORKERS"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			cfg.MaxWorkers = n
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
