package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 5, cfg.OTPMaxAttempts)
	assert.Equal(t, 6, cfg.OTPLength)
	assert.False(t, cfg.OTPDeliveryRequired)
	assert.Equal(t, "memory", cfg.SessionStore)
	assert.Equal(t, int64(5<<20), cfg.UploadMaxBytes)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SESSION_TTL", "120")
	t.Setenv("OCR_TIMEOUT", "1500ms")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")
	t.Setenv("OTP_DELIVERY_REQUIRED", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("REDIS_PORT", "not-a-number")

	cfg := Load()
	assert.Equal(t, 2*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 1500*time.Millisecond, cfg.OCRTimeout)
	assert.Equal(t, 3, cfg.OTPMaxAttempts)
	assert.True(t, cfg.OTPDeliveryRequired)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 6379, cfg.Redis.Port)
}

func TestValidate_RejectsBadCombinations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"unknown store", func(c *Config) { c.SessionStore = "mongo" }, "SESSION_STORE"},
		{"tesseract on s3", func(c *Config) { c.StagingBackend = "s3" }, "STAGING_BACKEND=local"},
		{"http without url", func(c *Config) { c.OCREngine = "http" }, "OCR_HTTP_URL"},
		{"zero attempts", func(c *Config) { c.OTPMaxAttempts = 0 }, "OTP_MAX_ATTEMPTS"},
		{"short otp", func(c *Config) { c.OTPLength = 3 }, "OTP_LENGTH"},
		{"no workers", func(c *Config) { c.OCRWorkers = 0 }, "OCR_WORKERS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.msg)
		})
	}
}

func TestValidate_HTTPEngineOnS3(t *testing.T) {
	cfg := Load()
	cfg.OCREngine = "http"
	cfg.OCRHTTPURL = "http://ocr.internal/recognize"
	cfg.StagingBackend = "s3"
	assert.NoError(t, cfg.Validate())
}
