package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/its-ammu/ai-interview-bot/internal/backend"
	"github.com/its-ammu/ai-interview-bot/internal/capture"
	"github.com/its-ammu/ai-interview-bot/internal/config"
	"github.com/its-ammu/ai-interview-bot/internal/metrics"
	"github.com/its-ammu/ai-interview-bot/internal/pipeline"
)

const (
	serviceName    = "ai-interview-bot-recorder"
	serviceVersion = "1.0.0"
)

// HTTPServer exposes recorder status and metrics while answers are recorded
type HTTPServer struct {
	server   *http.Server
	handler  http.Handler
	logger   *slog.Logger
	config   *config.Config
	capturer *capture.Capturer
	pipeline *pipeline.Pipeline
	client   *backend.Client
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer

	startTime time.Time
}

// Options holds the components reported on. Nil components are omitted from responses.
type Options struct {
	Config   *config.Config
	Capturer *capture.Capturer
	Pipeline *pipeline.Pipeline
	Client   *backend.Client
	Metrics  *metrics.Metrics

	// Gatherer backs /metrics; the default registry is used when nil
	Gatherer prometheus.Gatherer
}

// NewHTTPServer creates a new status server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, opts Options) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}

	h := &HTTPServer{
		logger:    logger,
		config:    opts.Config,
		capturer:  opts.Capturer,
		pipeline:  opts.Pipeline,
		client:    opts.Client,
		metrics:   opts.Metrics,
		gatherer:  opts.Gatherer,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)
	h.handler = mux

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/session", h.withMetrics("/session", h.handleSession))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// not instrumented
	if h.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}

	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// Handler returns the route multiplexer
func (h *HTTPServer) Handler() http.Handler {
	return h.handler
}

// Addr returns the listen address
func (h *HTTPServer) Addr() string {
	return h.server.Addr
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		h.metrics.RecordHTTPRequest(r.Method, endpoint, fmt.Sprintf("%d", ww.statusCode), duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server in the background
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting status server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("Status server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping status server...")
	return h.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	components := map[string]any{}
	if h.capturer != nil {
		status := "idle"
		if h.capturer.Active() != nil {
			status = "recording"
		}
		components["capturer"] = map[string]any{"status": status}
	}
	if h.pipeline != nil {
		status := "idle"
		if h.pipeline.Busy() {
			status = "processing"
		}
		components["pipeline"] = map[string]any{"status": status}
	}
	if h.client != nil {
		stats := h.client.GetStats()
		components["backend"] = map[string]any{
			"base_url":       h.client.BaseURL(),
			"total_requests": stats.TotalRequests,
			"success_rate":   stats.SuccessRate,
		}
	}

	writeJSON(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]any{
			"name":    serviceName,
			"version": serviceVersion,
		},
		"components": components,
	})
}

// handleSession reports the capture session in progress
func (h *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var session *capture.Session
	if h.capturer != nil {
		session = h.capturer.Active()
	}
	if session == nil {
		http.Error(w, "No active recording", http.StatusNotFound)
		return
	}

	stats := session.GetStats()
	writeJSON(w, map[string]any{
		"session_id": session.ID,
		"state":      session.State().String(),
		"mime_type":  session.MIMEType,
		"started_at": session.StartedAt.UTC(),
		"elapsed":    time.Since(session.StartedAt).String(),
		"chunks":     stats.Chunks,
		"bytes":      stats.TotalBytes,
	})
}

func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.config == nil {
		http.Error(w, "Configuration unavailable", http.StatusNotFound)
		return
	}

	c := h.config.Sanitized()
	writeJSON(w, map[string]any{
		"capture": map[string]any{
			"backend":           c.Capture.Backend,
			"frames_per_buffer": c.Capture.FramesPerBuffer,
			"max_duration":      c.Capture.MaxDuration,
			"format_override":   c.Capture.FormatOverride,
		},
		"encoder": map[string]any{
			"clamp": c.Encoder.Clamp,
		},
		"backend": map[string]any{
			"base_url":       c.Backend.BaseURL,
			"timeout":        c.Backend.Timeout,
			"session_cookie": c.Backend.SessionCookie,
			"user_agent":     c.Backend.UserAgent,
		},
		"logging": map[string]any{
			"level":  c.Logging.Level,
			"format": c.Logging.Format,
			"output": c.Logging.Output,
		},
	})
}

func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]any{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
	}
	if h.pipeline != nil {
		stats["pipeline"] = h.pipeline.GetStats()
	}
	if h.client != nil {
		stats["backend"] = h.client.GetStats()
	}

	writeJSON(w, stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, map[string]any{
		"service": serviceName,
		"version": serviceVersion,
		"endpoints": map[string]string{
			"GET /":        "API documentation",
			"GET /health":  "Recorder health check",
			"GET /session": "Recording in progress",
			"GET /config":  "Recorder configuration",
			"GET /stats":   "Pipeline and backend statistics",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	})
}
