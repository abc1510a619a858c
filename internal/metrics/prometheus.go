package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the answer recorder.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Capture metrics
	CapturesStarted   prometheus.Counter
	CapturesCompleted prometheus.Counter
	CaptureErrors     *prometheus.CounterVec
	ActiveCaptures    prometheus.Gauge
	CaptureDuration   prometheus.Histogram
	ChunksReceived    prometheus.Counter
	ClipSize          prometheus.Histogram

	// Processing metrics
	DecodeDuration prometheus.Histogram
	EncodeDuration prometheus.Histogram
	WAVSize        prometheus.Histogram
	PipelineErrors *prometheus.CounterVec

	// Submission metrics
	SubmissionRequests  prometheus.Counter
	SubmissionSuccesses prometheus.Counter
	SubmissionFailures  prometheus.Counter
	SubmissionDuration  prometheus.Histogram
	FeedbackSuccesses   prometheus.Counter
	FeedbackFailures    prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Capture metrics
		CapturesStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_captures_started_total",
			Help: "Total number of capture sessions started",
		}),
		CapturesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_captures_completed_total",
			Help: "Total number of capture sessions finalized into a clip",
		}),
		CaptureErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_capture_errors_total",
			Help: "Total number of capture failures by kind",
		}, []string{"kind"}),
		ActiveCaptures: factory.NewGauge(prometheus.GaugeOpts{
			Name: "interview_active_captures",
			Help: "Current number of capture sessions holding an input device",
		}),
		CaptureDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_capture_duration_seconds",
			Help:    "Wall-clock duration of capture sessions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),
		ChunksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_capture_chunks_received_total",
			Help: "Total number of encoded fragments received from input devices",
		}),
		ClipSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_clip_size_bytes",
			Help:    "Size of finalized capture clips in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 14), // 1KB to ~16MB
		}),

		// Processing metrics
		DecodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_decode_duration_seconds",
			Help:    "Time spent decoding captured clips",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),
		EncodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_encode_duration_seconds",
			Help:    "Time spent encoding WAV buffers",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 100us to ~400ms
		}),
		WAVSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_wav_size_bytes",
			Help:    "Size of encoded WAV uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 14),
		}),
		PipelineErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_pipeline_errors_total",
			Help: "Total number of failed answer submissions by stage",
		}, []string{"stage"}),

		// Submission metrics
		SubmissionRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_submission_requests_total",
			Help: "Total number of answer uploads sent",
		}),
		SubmissionSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_submission_successes_total",
			Help: "Total number of answer uploads that returned a transcript",
		}),
		SubmissionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_submission_failures_total",
			Help: "Total number of failed answer uploads",
		}),
		SubmissionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "interview_submission_duration_seconds",
			Help:    "Duration of answer upload requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),
		FeedbackSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_feedback_successes_total",
			Help: "Total number of feedback requests that succeeded",
		}),
		FeedbackFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "interview_feedback_failures_total",
			Help: "Total number of feedback requests that failed",
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "interview_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "interview_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordCaptureStarted counts a new session holding the device
func (m *Metrics) RecordCaptureStarted() {
	if m == nil {
		return
	}
	m.CapturesStarted.Inc()
	m.ActiveCaptures.Inc()
}

// RecordCaptureReleased marks the device as released
func (m *Metrics) RecordCaptureReleased() {
	if m == nil {
		return
	}
	m.ActiveCaptures.Dec()
}

// RecordCaptureCompleted records a finalized clip
func (m *Metrics) RecordCaptureCompleted(durationSeconds float64, sizeBytes int) {
	if m == nil {
		return
	}
	m.CapturesCompleted.Inc()
	m.CaptureDuration.Observe(durationSeconds)
	m.ClipSize.Observe(float64(sizeBytes))
}

// RecordCaptureError increments the capture error counter for kind
func (m *Metrics) RecordCaptureError(kind string) {
	if m == nil {
		return
	}
	m.CaptureErrors.WithLabelValues(kind).Inc()
}

// RecordChunkReceived increments the received fragments counter
func (m *Metrics) RecordChunkReceived() {
	if m == nil {
		return
	}
	m.ChunksReceived.Inc()
}

// RecordDecode records time spent decoding a clip
func (m *Metrics) RecordDecode(durationSeconds float64) {
	if m == nil {
		return
	}
	m.DecodeDuration.Observe(durationSeconds)
}

// RecordEncode records time spent encoding and the resulting WAV size
func (m *Metrics) RecordEncode(durationSeconds float64, sizeBytes int) {
	if m == nil {
		return
	}
	m.EncodeDuration.Observe(durationSeconds)
	m.WAVSize.Observe(float64(sizeBytes))
}

// RecordPipelineError increments the failure counter for a pipeline stage
func (m *Metrics) RecordPipelineError(stage string) {
	if m == nil {
		return
	}
	m.PipelineErrors.WithLabelValues(stage).Inc()
}

// RecordSubmissionRequest increments submission requests counter
func (m *Metrics) RecordSubmissionRequest() {
	if m == nil {
		return
	}
	m.SubmissionRequests.Inc()
}

// RecordSubmissionSuccess records a successful upload
func (m *Metrics) RecordSubmissionSuccess(durationSeconds float64) {
	if m == nil {
		return
	}
	m.SubmissionSuccesses.Inc()
	m.SubmissionDuration.Observe(durationSeconds)
}

// RecordSubmissionFailure records a failed upload
func (m *Metrics) RecordSubmissionFailure(durationSeconds float64) {
	if m == nil {
		return
	}
	m.SubmissionFailures.Inc()
	m.SubmissionDuration.Observe(durationSeconds)
}

// RecordFeedback records the outcome of a feedback request
func (m *Metrics) RecordFeedback(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.FeedbackSuccesses.Inc()
		return
	}
	m.FeedbackFailures.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
