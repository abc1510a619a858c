package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/its-ammu/ai-interview-bot/internal/audio"
	"github.com/its-ammu/ai-interview-bot/internal/backend"
	"github.com/its-ammu/ai-interview-bot/internal/capability"
	"github.com/its-ammu/ai-interview-bot/internal/capture"
	"github.com/its-ammu/ai-interview-bot/internal/metrics"
)

// ErrBusy is returned by Run while another answer is being processed
var ErrBusy = errors.New("an answer is already being processed")

// Pipeline stage labels used in logs and metrics
const (
	StageProbe    = "probe"
	StageCapture  = "capture"
	StageDecode   = "decode"
	StageEncode   = "encode"
	StageSubmit   = "submit"
	StageFeedback = "feedback"
)

// Submitter uploads an answer and fetches feedback for its transcript
type Submitter interface {
	SubmitAnswer(ctx context.Context, wav []byte, questionID string) (string, error)
	FetchFeedback(ctx context.Context, questionID, transcript string) (*backend.Feedback, error)
}

// Config tunes a pipeline
type Config struct {
	// FormatOverride skips probing and records in this MIME type
	FormatOverride string

	// MaxDuration stops the recording automatically, 0 = until stopped
	MaxDuration time.Duration

	Encode audio.EncodeOptions
}

// Result is everything produced for one answer. Stages that completed
// before a failure keep their output.
type Result struct {
	QuestionID string
	SessionID  string
	MIMEType   string
	ClipSize   int
	Duration   time.Duration

	SampleRate int
	Samples    int
	Level      audio.Level
	WAV        []byte

	Transcript string
	Feedback   *backend.Feedback

	// FeedbackErr is set when the transcript was obtained but feedback was not
	FeedbackErr error
}

// Stats holds pipeline run counters
type Stats struct {
	Runs      uint64 `json:"runs"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
}

// Pipeline records one answer at a time: probe, capture, decode, encode, submit, feedback
type Pipeline struct {
	capturer  *capture.Capturer
	runtime   capability.Runtime
	decoder   audio.Decoder
	submitter Submitter
	config    Config
	logger    *slog.Logger
	metrics   *metrics.Metrics

	running atomic.Bool

	stats   Stats
	statsMu sync.RWMutex
}

// New creates a pipeline. The runtime is only consulted when no format override is set.
func New(capturer *capture.Capturer, rt capability.Runtime, decoder audio.Decoder, submitter Submitter, config Config, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		capturer:  capturer,
		runtime:   rt,
		decoder:   decoder,
		submitter: submitter,
		config:    config,
		logger:    logger,
		metrics:   m,
	}
}

// Run records an answer to questionID until stop is closed, the device ends
// the stream or MaxDuration passes, then submits it and fetches feedback.
// The returned Result is non-nil whenever capture succeeded.
func (p *Pipeline) Run(ctx context.Context, questionID string, stop <-chan struct{}) (*Result, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer p.running.Store(false)

	p.updateStats(func(s *Stats) { s.Runs++ })

	result, err := p.run(ctx, questionID, stop)
	if err != nil {
		p.updateStats(func(s *Stats) { s.Failed++ })
		return result, err
	}

	p.updateStats(func(s *Stats) { s.Completed++ })
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, questionID string, stop <-chan struct{}) (*Result, error) {
	mimeType, err := p.Format()
	if err != nil {
		return nil, p.fail(StageProbe, err)
	}

	stop, release := withLimit(stop, p.config.MaxDuration, p.logger)
	defer release()

	clip, err := capture.Record(ctx, p.capturer, mimeType, stop)
	if err != nil {
		return nil, p.fail(StageCapture, err)
	}

	result := &Result{
		QuestionID: questionID,
		SessionID:  clip.SessionID,
		MIMEType:   clip.MIMEType,
		ClipSize:   len(clip.Data),
		Duration:   clip.Duration,
	}

	decoded, wav, err := p.Prepare(clip)
	if err != nil {
		return result, err
	}
	result.SampleRate = decoded.SampleRate
	result.Samples = len(decoded.Samples)
	result.Level = audio.MeasureLevel(decoded.Samples)
	p.checkLevel(result.SessionID, result.Level)
	result.WAV = wav

	transcript, err := p.submitter.SubmitAnswer(ctx, wav, questionID)
	if err != nil {
		return result, p.fail(StageSubmit, err)
	}
	result.Transcript = transcript

	feedback, err := p.submitter.FetchFeedback(ctx, questionID, transcript)
	if err != nil {
		p.metrics.RecordPipelineError(StageFeedback)
		p.logger.Warn("Feedback unavailable, keeping transcript",
			slog.String("session_id", result.SessionID),
			slog.String("question_id", questionID),
			slog.String("error", err.Error()))
		result.FeedbackErr = err
		return result, nil
	}
	result.Feedback = feedback

	p.logger.Info("Answer processed",
		slog.String("session_id", result.SessionID),
		slog.String("question_id", questionID),
		slog.Int("wav_bytes", len(wav)),
		slog.String("score", feedback.ScoreText()))

	return result, nil
}

// Format returns the MIME type the next capture will request
func (p *Pipeline) Format() (string, error) {
	if p.config.FormatOverride != "" {
		return p.config.FormatOverride, nil
	}
	return capability.Probe(p.runtime)
}

// Prepare decodes a finalized clip and encodes it as canonical WAV
func (p *Pipeline) Prepare(clip *capture.Clip) (*audio.DecodedAudio, []byte, error) {
	start := time.Now()
	decoded, err := p.decoder.Decode(clip.Data, clip.MIMEType)
	if err != nil {
		return nil, nil, p.fail(StageDecode, err)
	}
	if decoded == nil {
		return nil, nil, p.fail(StageDecode, fmt.Errorf("%w: decoder returned no audio", audio.ErrDecode))
	}
	p.metrics.RecordDecode(time.Since(start).Seconds())

	start = time.Now()
	wav, err := audio.EncodeWAV(decoded, p.config.Encode)
	if err != nil {
		return decoded, nil, p.fail(StageEncode, err)
	}
	p.metrics.RecordEncode(time.Since(start).Seconds(), len(wav))

	p.logger.Debug("Clip encoded",
		slog.String("session_id", clip.SessionID),
		slog.String("mime_type", clip.MIMEType),
		slog.Int("sample_rate", decoded.SampleRate),
		slog.Int("samples", len(decoded.Samples)),
		slog.Int("wav_bytes", len(wav)))

	return decoded, wav, nil
}

// checkLevel warns about clips that are unlikely to transcribe well
func (p *Pipeline) checkLevel(sessionID string, level audio.Level) {
	if level.Silent() {
		p.logger.Warn("Recorded clip is silent, check the microphone input",
			slog.String("session_id", sessionID),
			slog.Float64("rms", level.RMS))
	}
	if level.Clipped > 0 {
		p.logger.Warn("Samples outside full scale",
			slog.String("session_id", sessionID),
			slog.Int("clipped", level.Clipped),
			slog.Bool("clamp", p.config.Encode.Clamp))
	}
}

// Busy reports whether a run is in progress
func (p *Pipeline) Busy() bool {
	return p.running.Load()
}

// GetStats returns run counters
func (p *Pipeline) GetStats() Stats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()
	return p.stats
}

func (p *Pipeline) updateStats(fn func(*Stats)) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	fn(&p.stats)
}

func (p *Pipeline) fail(stage string, err error) error {
	p.metrics.RecordPipelineError(stage)
	p.logger.Error("Pipeline stage failed",
		slog.String("stage", stage),
		slog.String("error", err.Error()))
	return fmt.Errorf("%s: %w", stage, err)
}

// withLimit returns a stop channel that also closes after limit.
// The release func must be called to end the watcher.
func withLimit(stop <-chan struct{}, limit time.Duration, logger *slog.Logger) (<-chan struct{}, func()) {
	if limit <= 0 {
		return stop, func() {}
	}

	merged := make(chan struct{})
	done := make(chan struct{})
	timer := time.NewTimer(limit)

	go func() {
		defer close(merged)
		defer timer.Stop()
		select {
		case <-stop:
		case <-timer.C:
			logger.Info("Maximum recording duration reached", slog.Duration("limit", limit))
		case <-done:
		}
	}()

	var once sync.Once
	return merged, func() { once.Do(func() { close(done) }) }
}
