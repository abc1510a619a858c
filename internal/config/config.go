package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values
const (
	EnvBaseURL       = "INTERVIEW_BASE_URL"
	EnvSessionCookie = "INTERVIEW_SESSION_COOKIE"
	EnvLogLevel      = "INTERVIEW_LOG_LEVEL"
)

// Config represents the complete recorder configuration
type Config struct {
	Capture CaptureConfig `yaml:"capture"`
	Encoder EncoderConfig `yaml:"encoder"`
	Backend BackendConfig `yaml:"backend"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// CaptureConfig selects and tunes the input device.
// The capture constraints themselves are fixed and not configurable.
type CaptureConfig struct {
	Backend         string `yaml:"backend"`           // portaudio or miniaudio
	FramesPerBuffer int    `yaml:"frames_per_buffer"` // portaudio read size
	MaxDuration     int    `yaml:"max_duration"`      // seconds, 0 = until stopped
	FormatOverride  string `yaml:"format_override"`   // skip probing and force this MIME type
}

// EncoderConfig contains WAV encoding options
type EncoderConfig struct {
	Clamp bool `yaml:"clamp"`
}

// BackendConfig contains interview server configuration
type BackendConfig struct {
	BaseURL       string `yaml:"base_url"`
	Timeout       int    `yaml:"timeout"` // seconds
	SessionCookie string `yaml:"session_cookie"`
	UserAgent     string `yaml:"user_agent"`
}

// HTTPConfig contains status server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			Backend:         "portaudio",
			FramesPerBuffer: 1024,
			MaxDuration:     300,
		},
		Encoder: EncoderConfig{
			Clamp: true,
		},
		Backend: BackendConfig{
			BaseURL:   "http://localhost:5000",
			Timeout:   30,
			UserAgent: "ai-interview-bot/1.0",
		},
		HTTP: HTTPConfig{
			Port:    9090,
			Address: "127.0.0.1",
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads and parses the configuration file. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// LoadDotEnv loads variables from .env files into the process environment.
// Variables already set are not overwritten, and missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides file values with INTERVIEW_* environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv(EnvSessionCookie); v != "" {
		c.Backend.SessionCookie = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	validBackends := map[string]bool{"portaudio": true, "miniaudio": true}
	if !validBackends[c.Backend] {
		return fmt.Errorf("backend must be 'portaudio' or 'miniaudio', got '%s'", c.Backend)
	}

	if c.FramesPerBuffer < 64 || c.FramesPerBuffer > 16384 {
		return fmt.Errorf("frames_per_buffer must be between 64 and 16384, got %d", c.FramesPerBuffer)
	}

	if c.MaxDuration < 0 {
		return fmt.Errorf("max_duration cannot be negative, got %d", c.MaxDuration)
	}

	validFormats := map[string]bool{"": true, "audio/wav": true, "audio/webm": true, "audio/ogg": true}
	if !validFormats[c.FormatOverride] {
		return fmt.Errorf("format_override must be one of [audio/wav, audio/webm, audio/ogg], got '%s'", c.FormatOverride)
	}

	return nil
}

// Validate validates backend configuration
func (b *BackendConfig) Validate() error {
	if b.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}

	u, err := url.Parse(b.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an http(s) URL, got '%s'", b.BaseURL)
	}

	if b.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", b.Timeout)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// any other output is treated as a file path
	return nil
}

// GetMaxDuration returns the recording limit, 0 meaning unlimited
func (c *CaptureConfig) GetMaxDuration() time.Duration {
	return time.Duration(c.MaxDuration) * time.Second
}

// GetTimeoutDuration returns the backend request timeout as a time.Duration
func (b *BackendConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(b.Timeout) * time.Second
}

// Sanitized returns a copy safe to expose over HTTP, with the session cookie masked
func (c *Config) Sanitized() Config {
	out := *c
	if out.Backend.SessionCookie != "" {
		out.Backend.SessionCookie = "***"
	}
	return out
}
