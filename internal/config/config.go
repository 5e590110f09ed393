package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// backend hosts; history lives on the audio host
	AudioServiceURL   string
	TextServiceURL    string
	ScoringServiceURL string

	FetchTimeout    time.Duration
	UploadTimeout   time.Duration
	AnalyzeTimeout  time.Duration
	ProbeMaxElapsed time.Duration

	SessionTTL     time.Duration
	MaxUploadBytes int64
}

// Load reads the environment. Call godotenv.Load before it to pick up a .env.
func Load() Config {
	return Config{
		Port:              envOr("PORT", "5173"),
		Environment:       envOr("ENVIRONMENT", "local"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		AudioServiceURL:   envOr("AUDIO_SERVICE_URL", "http://localhost:8000"),
		TextServiceURL:    envOr("TEXT_SERVICE_URL", "http://localhost:8001"),
		ScoringServiceURL: envOr("SCORING_SERVICE_URL", "http://localhost:8002"),
		FetchTimeout:      envDuration("FETCH_TIMEOUT", 30*time.Second),
		UploadTimeout:     envDuration("UPLOAD_TIMEOUT", 10*time.Minute),
		AnalyzeTimeout:    envDuration("ANALYZE_TIMEOUT", 5*time.Minute),
		ProbeMaxElapsed:   envDuration("PROBE_MAX_ELAPSED", 10*time.Second),
		SessionTTL:        envDuration("SESSION_TTL", 30*time.Minute),
		MaxUploadBytes:    int64(envInt("MAX_UPLOAD_MB", 64)) << 20,
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// envDuration accepts Go durations ("45s") or bare seconds ("45").
func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
