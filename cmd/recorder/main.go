package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/its-ammu/ai-interview-bot/internal/backend"
	"github.com/its-ammu/ai-interview-bot/internal/capability"
	"github.com/its-ammu/ai-interview-bot/internal/capture"
	"github.com/its-ammu/ai-interview-bot/internal/capture/miniaudio"
	"github.com/its-ammu/ai-interview-bot/internal/capture/portaudio"
	"github.com/its-ammu/ai-interview-bot/internal/config"
	"github.com/its-ammu/ai-interview-bot/internal/metrics"
)

const (
	serviceName    = "ai-interview-bot-recorder"
	serviceVersion = "1.0.0"
)

// app holds what every command needs once flags are parsed
type app struct {
	configPath string
	envFile    string

	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// inputDevice is a capture backend that can also answer capability probes
type inputDevice interface {
	capture.Device
	capability.Runtime
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:               "recorder",
		Short:             "Record, encode and submit interview answers",
		Version:           serviceVersion,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to configuration file (built-in defaults when empty)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Environment file with INTERVIEW_* overrides")

	root.AddCommand(
		newRecordCmd(a),
		newProbeCmd(a),
		newQuestionsCmd(a),
		newAskCmd(a),
		newCandidateCmd(a),
		newCompleteCmd(a),
	)

	return root
}

// setup loads configuration, logging and metrics before any command runs
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	var cfg *config.Config
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
		cfg.ApplyEnv()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	a.cfg = cfg

	a.logger = initLogger(cfg.Logging)
	a.logger.Debug("Configuration loaded",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", a.configPath),
		slog.String("capture_backend", cfg.Capture.Backend),
		slog.String("base_url", cfg.Backend.BaseURL),
		slog.Bool("clamp", cfg.Encoder.Clamp),
		slog.Bool("http_enabled", cfg.HTTP.Enabled),
	)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewMetrics(a.registry)

	return nil
}

func (a *app) newClient() (*backend.Client, error) {
	return backend.NewClient(backend.Config{
		BaseURL:       a.cfg.Backend.BaseURL,
		Timeout:       a.cfg.Backend.GetTimeoutDuration(),
		SessionCookie: a.cfg.Backend.SessionCookie,
		UserAgent:     a.cfg.Backend.UserAgent,
	}, a.logger, a.metrics)
}

func (a *app) newDevice() inputDevice {
	switch a.cfg.Capture.Backend {
	case "miniaudio":
		return miniaudio.New(a.logger)
	default:
		return portaudio.New(a.cfg.Capture.FramesPerBuffer, a.logger)
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// stdout carries transcripts and feedback, so logs default to stderr
	var output *os.File
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "stderr", "":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
