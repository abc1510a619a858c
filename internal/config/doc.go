// Package config provides configuration loading and validation for the answer recorder.
// It handles YAML-based configuration with per-section validation, defaults for omitted
// keys and INTERVIEW_* environment overrides, optionally read from a .env file.
package config
