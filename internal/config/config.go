// Package config loads runtime settings from an optional .env file and the
// process environment. Command-line flags in each binary override these values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fpang/ai-vision-studio/internal/chat"
	"github.com/fpang/ai-vision-studio/internal/filehandler"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Defaults for settings not present in the environment. Model defaults come
// from chat.DefaultModels.
const (
	DefaultPort            = 8080
	DefaultSessionTTL      = 1 * time.Hour
	DefaultMaxUploadBytes  = 20 * 1024 * 1024
	DefaultSuggestionCount = 3
	DefaultRateLimit       = 30 // remote operations per minute
)

// Config holds all configuration for the application.
type Config struct {
	// Models is the model ID used for each orchestration operation.
	Models chat.Models

	LogLevel string
	Port     int

	// SessionTTL is how long an idle web session is kept.
	SessionTTL time.Duration

	// MaxUploadBytes caps the size of an uploaded image.
	MaxUploadBytes int64

	// MaxImageDimension downscales uploads whose longest side exceeds it.
	// Zero keeps uploads at their original size.
	MaxImageDimension int

	// MaxImagePixels rejects uploads whose width*height exceeds it.
	MaxImagePixels int64

	// SuggestionCount is the number of edit suggestions requested.
	SuggestionCount int

	// RateLimitPerMinute throttles remote operations in the web server.
	// Zero disables the limiter.
	RateLimitPerMinute int

	// ValidateKey makes a minimal API call at startup to verify the API key.
	ValidateKey bool
}

// Load loads the configuration from an optional .env file and environment variables.
// A missing .env file is not an error; a malformed one is.
func Load() (*Config, error) {
	return LoadFiles()
}

// LoadFiles is Load with explicit .env paths (default: ".env" in the working directory).
func LoadFiles(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
		log.Debug().Msg("No .env file found, using process environment only")
	}

	models := chat.DefaultModels()
	cfg := &Config{
		Models: chat.Models{
			Image:    envOrDefault("VISION_IMAGE_MODEL", models.Image),
			Describe: envOrDefault("VISION_DESCRIBE_MODEL", models.Describe),
			Suggest:  envOrDefault("VISION_SUGGEST_MODEL", models.Suggest),
			Story:    envOrDefault("VISION_STORY_MODEL", models.Story),
			Edit:     envOrDefault("VISION_EDIT_MODEL", models.Edit),
		},
		LogLevel:           envOrDefault("VISION_LOG_LEVEL", "info"),
		Port:               intOrDefault("VISION_PORT", DefaultPort),
		SessionTTL:         durationOrDefault("VISION_SESSION_TTL", DefaultSessionTTL),
		MaxUploadBytes:     int64(intOrDefault("VISION_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
		MaxImageDimension:  intOrDefault("VISION_MAX_IMAGE_DIMENSION", 0),
		MaxImagePixels:     int64(intOrDefault("VISION_MAX_IMAGE_PIXELS", filehandler.DefaultMaxPixels)),
		SuggestionCount:    intOrDefault("VISION_SUGGESTION_COUNT", DefaultSuggestionCount),
		RateLimitPerMinute: intOrDefault("VISION_RATE_LIMIT", DefaultRateLimit),
		ValidateKey:        boolOrDefault("VISION_VALIDATE_KEY", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that numeric settings are within usable ranges.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("VISION_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("VISION_MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.MaxImageDimension < 0 {
		return fmt.Errorf("VISION_MAX_IMAGE_DIMENSION must not be negative, got %d", c.MaxImageDimension)
	}
	if c.MaxImagePixels <= 0 {
		return fmt.Errorf("VISION_MAX_IMAGE_PIXELS must be positive, got %d", c.MaxImagePixels)
	}
	if c.SuggestionCount <= 0 {
		return fmt.Errorf("VISION_SUGGESTION_COUNT must be positive, got %d", c.SuggestionCount)
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("VISION_RATE_LIMIT must not be negative, got %d", c.RateLimitPerMinute)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("VISION_SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	return nil
}

// UploadOptions returns the limits applied to user-supplied images.
func (c *Config) UploadOptions() filehandler.Options {
	return filehandler.Options{
		MaxBytes:     c.MaxUploadBytes,
		MaxDimension: c.MaxImageDimension,
		MaxPixels:    c.MaxImagePixels,
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func intOrDefault(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-integer setting")
		return defaultVal
	}
	return n
}

// durationOrDefault accepts Go durations ("90m") or plain seconds ("3600").
func durationOrDefault(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Str("value", v).Msg("Ignoring invalid duration setting")
	return defaultVal
}

func boolOrDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Ignoring non-boolean setting")
		return defaultVal
	}
	return b
}
