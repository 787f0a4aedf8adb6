package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fpang/ai-vision-studio/internal/chat"
	"github.com/fpang/ai-vision-studio/internal/filehandler"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFiles(filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Models != chat.DefaultModels() {
		t.Errorf("Models = %+v, want %+v", cfg.Models, chat.DefaultModels())
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.MaxImagePixels != filehandler.DefaultMaxPixels {
		t.Errorf("MaxImagePixels = %d, want %d", cfg.MaxImagePixels, filehandler.DefaultMaxPixels)
	}
	if cfg.SuggestionCount != 3 {
		t.Errorf("SuggestionCount = %d, want 3", cfg.SuggestionCount)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %s, want 1h", cfg.SessionTTL)
	}
	if !cfg.ValidateKey {
		t.Error("ValidateKey should default to true")
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	content := "VISION_STORY_MODEL=gemini-2.5-flash\nVISION_PORT=9090\nVISION_SESSION_TTL=90m\nVISION_RATE_LIMIT=0\n"
	if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("VISION_STORY_MODEL")
		os.Unsetenv("VISION_PORT")
		os.Unsetenv("VISION_SESSION_TTL")
		os.Unsetenv("VISION_RATE_LIMIT")
	})

	cfg, err := LoadFiles(envPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Models.Story != "gemini-2.5-flash" {
		t.Errorf("Models.Story = %q, want gemini-2.5-flash", cfg.Models.Story)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.SessionTTL != 90*time.Minute {
		t.Errorf("SessionTTL = %s, want 90m", cfg.SessionTTL)
	}
	if cfg.RateLimitPerMinute != 0 {
		t.Errorf("RateLimitPerMinute = %d, want 0", cfg.RateLimitPerMinute)
	}
}

func TestProcessEnvWinsOverEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envPath, []byte("VISION_DESCRIBE_MODEL=from-file\n"), 0600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("VISION_DESCRIBE_MODEL", "from-env")

	cfg, err := LoadFiles(envPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Models.Describe != "from-env" {
		t.Errorf("Models.Describe = %q, want from-env", cfg.Models.Describe)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"upload cap zero", func(c *Config) { c.MaxUploadBytes = 0 }},
		{"negative dimension", func(c *Config) { c.MaxImageDimension = -1 }},
		{"pixel cap zero", func(c *Config) { c.MaxImagePixels = 0 }},
		{"no suggestions", func(c *Config) { c.SuggestionCount = 0 }},
		{"negative rate", func(c *Config) { c.RateLimitPerMinute = -5 }},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("VISION_PORT", "not-a-number")
	t.Setenv("VISION_VALIDATE_KEY", "maybe")

	cfg, err := LoadFiles(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want default %d", cfg.Port, DefaultPort)
	}
	if !cfg.ValidateKey {
		t.Error("ValidateKey should fall back to true")
	}
}

func validConfig() *Config {
	return &Config{
		Port:               DefaultPort,
		MaxUploadBytes:     DefaultMaxUploadBytes,
		MaxImagePixels:     filehandler.DefaultMaxPixels,
		SuggestionCount:    DefaultSuggestionCount,
		RateLimitPerMinute: DefaultRateLimit,
		SessionTTL:         DefaultSessionTTL,
	}
}

func TestUploadOptions(t *testing.T) {
	t.Setenv("VISION_MAX_IMAGE_PIXELS", "1000000")
	t.Setenv("VISION_MAX_IMAGE_DIMENSION", "2048")

	cfg, err := LoadFiles(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opts := cfg.UploadOptions()
	if opts.MaxPixels != 1_000_000 || opts.MaxDimension != 2048 || opts.MaxBytes != DefaultMaxUploadBytes {
		t.Errorf("unexpected upload options: %+v", opts)
	}
}
