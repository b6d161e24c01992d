// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// ErrOpenAIAPIKeyRequired is returned when OPENAI_API_KEY is not set.
var ErrOpenAIAPIKeyRequired = errors.New("config: OPENAI_API_KEY is required")

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// OpenAI settings
	OpenAIAPIKey string `env:"OPENAI_API_KEY, required" json:"-"` // Masked in JSON
	WhisperModel string `env:"WHISPER_MODEL, default=whisper-1" json:"whisper_model"`
	SummaryModel string `env:"SUMMARY_MODEL, default=gpt-4-turbo-preview" json:"summary_model"`

	// Upload settings
	UploadDir         string   `env:"UPLOAD_DIR, default=uploads" json:"upload_dir"`
	MaxFileSizeMB     int      `env:"MAX_FILE_SIZE_MB, default=500" json:"max_file_size_mb"`
	AllowedExtensions []string `env:"ALLOWED_EXTENSIONS, default=.mp3,.mp4,.wav,.m4a,.webm,.ogg,.mpeg,.aac" json:"allowed_extensions"`

	// Chunking settings
	ChunkDurationMinutes int `env:"CHUNK_DURATION_MINUTES, default=10" json:"chunk_duration_minutes"`
	TranscriptMaxChars   int `env:"TRANSCRIPT_MAX_CHARS, default=100000" json:"transcript_max_chars"`

	// FFmpeg binary; empty means "ffmpeg" found in PATH.
	FFmpegPath string `env:"FFMPEG_PATH" json:"ffmpeg_path,omitempty"`

	// Database; empty keeps records in memory.
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // Masked in JSON

	// Optional S3 mirroring of uploads
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Notification settings
	ResendAPIKey    string `env:"RESEND_API_KEY" json:"-"` // Masked in JSON
	EmailFrom       string `env:"EMAIL_FROM, default=Meeting Notes <notes@yourdomain.com>" json:"email_from"`
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL" json:"-"` // Masked in JSON

	// Optional inbox directory; files dropped here are processed automatically.
	WatchDir string `env:"WATCH_DIR" json:"watch_dir,omitempty"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// PostgresEnabled returns true if a database URL is provided.
func (c *Config) PostgresEnabled() bool {
	return c.DatabaseURL != ""
}

// WatchEnabled returns true if an inbox directory is configured.
func (c *Config) WatchEnabled() bool {
	return c.WatchDir != ""
}

// ChunkDurationSeconds returns the audio chunk limit in seconds.
func (c *Config) ChunkDurationSeconds() float64 {
	return float64(c.ChunkDurationMinutes) * 60
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		if strings.Contains(err.Error(), "OPENAI_API_KEY") {
			return nil, ErrOpenAIAPIKeyRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return ErrOpenAIAPIKeyRequired
	}
	return nil
}

// ExtensionAllowed reports whether a lowercase file extension (with leading
// dot) is in the allowed set.
func (c *Config) ExtensionAllowed(ext string) bool {
	for _, allowed := range c.AllowedExtensions {
		if strings.EqualFold(strings.TrimSpace(allowed), ext) {
			return true
		}
	}
	return false
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, UploadDir: %s, MaxFileSizeMB: %d, ChunkDurationMinutes: %d, WhisperModel: %s, SummaryModel: %s, Postgres: %t, S3Bucket: %s, WatchDir: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.UploadDir,
		c.MaxFileSizeMB,
		c.ChunkDurationMinutes,
		c.WhisperModel,
		c.SummaryModel,
		c.PostgresEnabled(),
		c.S3Bucket,
		c.WatchDir,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
