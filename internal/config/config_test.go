package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Capture: CaptureConfig{
			Backend:         "portaudio",
			FramesPerBuffer: 1024,
			MaxDuration:     300,
		},
		Encoder: EncoderConfig{Clamp: true},
		Backend: BackendConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 30,
		},
		HTTP: HTTPConfig{
			Port:    9090,
			Address: "127.0.0.1",
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		modify      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid configuration",
			modify: func(c *Config) {},
		},
		{
			name:        "unknown capture backend",
			modify:      func(c *Config) { c.Capture.Backend = "alsa" },
			expectError: true,
			errorMsg:    "capture config",
		},
		{
			name:        "unsupported format override",
			modify:      func(c *Config) { c.Capture.FormatOverride = "audio/mp3" },
			expectError: true,
			errorMsg:    "format_override",
		},
		{
			name:        "missing base url",
			modify:      func(c *Config) { c.Backend.BaseURL = "" },
			expectError: true,
			errorMsg:    "backend config",
		},
		{
			name:        "base url without scheme",
			modify:      func(c *Config) { c.Backend.BaseURL = "localhost:5000" },
			expectError: true,
			errorMsg:    "base_url",
		},
		{
			name:        "zero timeout",
			modify:      func(c *Config) { c.Backend.Timeout = 0 },
			expectError: true,
			errorMsg:    "timeout",
		},
		{
			name:        "invalid http port",
			modify:      func(c *Config) { c.HTTP.Port = 70000 },
			expectError: true,
			errorMsg:    "http config",
		},
		{
			name: "disabled http ignores port",
			modify: func(c *Config) {
				c.HTTP.Enabled = false
				c.HTTP.Port = 0
			},
		},
		{
			name:        "invalid log level",
			modify:      func(c *Config) { c.Logging.Level = "trace" },
			expectError: true,
			errorMsg:    "logging config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.modify(&config)

			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}

	if !Default().Encoder.Clamp {
		t.Error("Clamping should be enabled by default")
	}
}

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	configContent := `
capture:
  backend: "miniaudio"
  frames_per_buffer: 512
  max_duration: 120
  format_override: "audio/wav"

encoder:
  clamp: false

backend:
  base_url: "https://interview.example.com"
  timeout: 15
  session_cookie: "abc123"

http:
  port: 9100
  address: "0.0.0.0"
  enabled: true

logging:
  level: "debug"
  format: "text"
  output: "stderr"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Capture.Backend != "miniaudio" {
		t.Errorf("Expected backend miniaudio, got %s", config.Capture.Backend)
	}
	if config.Capture.FramesPerBuffer != 512 {
		t.Errorf("Expected 512 frames, got %d", config.Capture.FramesPerBuffer)
	}
	if config.Capture.FormatOverride != "audio/wav" {
		t.Errorf("Expected format override audio/wav, got %s", config.Capture.FormatOverride)
	}
	if config.Encoder.Clamp {
		t.Error("Expected clamp disabled")
	}
	if config.Backend.BaseURL != "https://interview.example.com" {
		t.Errorf("Unexpected base url %s", config.Backend.BaseURL)
	}
	if config.Backend.SessionCookie != "abc123" {
		t.Errorf("Unexpected session cookie %s", config.Backend.SessionCookie)
	}
	if config.HTTP.Port != 9100 {
		t.Errorf("Expected HTTP port 9100, got %d", config.HTTP.Port)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Logging.Level)
	}
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	if err := os.WriteFile(configPath, []byte("backend:\n  base_url: \"http://10.0.0.5:5000\"\n"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Backend.Timeout != 30 {
		t.Errorf("Expected default timeout 30, got %d", config.Backend.Timeout)
	}
	if config.Capture.Backend != "portaudio" {
		t.Errorf("Expected default backend portaudio, got %s", config.Capture.Backend)
	}
	if !config.Encoder.Clamp {
		t.Error("Expected default clamp")
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid.yaml")

	if err := os.WriteFile(configPath, []byte("capture: [not, a, map"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected error for malformed YAML")
	}

	if _, err := Load(filepath.Join(tempDir, "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvBaseURL, "http://override:5000")
	t.Setenv(EnvSessionCookie, "from-env")
	t.Setenv(EnvLogLevel, "warn")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("backend:\n  base_url: \"http://file:5000\"\n"), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Backend.BaseURL != "http://override:5000" {
		t.Errorf("Expected env base url, got %s", config.Backend.BaseURL)
	}
	if config.Backend.SessionCookie != "from-env" {
		t.Errorf("Expected env session cookie, got %s", config.Backend.SessionCookie)
	}
	if config.Logging.Level != "warn" {
		t.Errorf("Expected env log level, got %s", config.Logging.Level)
	}
}

func TestLoadDotEnv(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("INTERVIEW_SESSION_COOKIE=dotenv-cookie\n"), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	// register cleanup for the variable godotenv will set
	t.Setenv(EnvSessionCookie, "")
	os.Unsetenv(EnvSessionCookie)

	if err := LoadDotEnv(envPath); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}

	if got := os.Getenv(EnvSessionCookie); got != "dotenv-cookie" {
		t.Errorf("Expected dotenv-cookie, got %q", got)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("Missing env file should be ignored, got %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	capture := CaptureConfig{MaxDuration: 90}
	if capture.GetMaxDuration() != 90*time.Second {
		t.Errorf("Expected 90 seconds, got %v", capture.GetMaxDuration())
	}

	backend := BackendConfig{Timeout: 30}
	if backend.GetTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", backend.GetTimeoutDuration())
	}
}

func TestSanitized(t *testing.T) {
	config := validConfig()
	config.Backend.SessionCookie = "secret"

	sanitized := config.Sanitized()
	if sanitized.Backend.SessionCookie != "***" {
		t.Errorf("Expected masked cookie, got %s", sanitized.Backend.SessionCookie)
	}
	if config.Backend.SessionCookie != "secret" {
		t.Error("Sanitized must not modify the original")
	}
}
