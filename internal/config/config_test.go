package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "AUDIO_SERVICE_URL", "TEXT_SERVICE_URL", "SCORING_SERVICE_URL", "FETCH_TIMEOUT", "MAX_UPLOAD_MB", "SESSION_TTL"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "5173", cfg.Port)
	assert.Equal(t, "http://localhost:8000", cfg.AudioServiceURL)
	assert.Equal(t, "http://localhost:8001", cfg.TextServiceURL)
	assert.Equal(t, "http://localhost:8002", cfg.ScoringServiceURL)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, int64(64<<20), cfg.MaxUploadBytes)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("AUDIO_SERVICE_URL", "http://audio:8000")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("UPLOAD_TIMEOUT", "90")
	t.Setenv("MAX_UPLOAD_MB", "8")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "http://audio:8000", cfg.AudioServiceURL)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 90*time.Second, cfg.UploadTimeout)
	assert.Equal(t, int64(8<<20), cfg.MaxUploadBytes)
}

func TestLoad_InvalidFallsBack(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "soon")
	t.Setenv("MAX_UPLOAD_MB", "-3")

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, int64(64<<20), cfg.MaxUploadBytes)
}
