package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/its-ammu/ai-interview-bot/internal/audio"
	"github.com/its-ammu/ai-interview-bot/internal/metrics"
)

// State is the lifecycle position of a capture session
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopping
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is one recording attempt. It owns the open stream until it is finalized.
type Session struct {
	ID        string
	MIMEType  string
	StartedAt time.Time

	state  State
	stream Stream
	buffer *audio.ChunkBuffer

	// closed once every fragment from the stream has been buffered
	drained chan struct{}

	mu sync.RWMutex
}

// State returns the current session state
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Done is closed when the stream has delivered its last fragment,
// either after Stop or because the device went away mid-recording.
func (s *Session) Done() <-chan struct{} {
	return s.drained
}

// GetStats returns buffered fragment statistics
func (s *Session) GetStats() audio.BufferStats {
	return s.buffer.GetStats()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *Session) collect(m *metrics.Metrics) {
	defer close(s.drained)
	for chunk := range s.stream.Chunks() {
		s.buffer.Append(chunk)
		m.RecordChunkReceived()
	}
}

// Capturer runs at most one capture session at a time against a Device
type Capturer struct {
	device      Device
	constraints Constraints
	logger      *slog.Logger
	metrics     *metrics.Metrics

	active *Session
	mu     sync.Mutex
}

// NewCapturer creates a capturer using the fixed default constraints
func NewCapturer(device Device, logger *slog.Logger, m *metrics.Metrics) *Capturer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Capturer{
		device:      device,
		constraints: DefaultConstraints(),
		logger:      logger,
		metrics:     m,
	}
}

// Constraints returns the constraints requested on every Start
func (c *Capturer) Constraints() Constraints {
	return c.constraints
}

// Active returns the recording session, or nil when idle
func (c *Capturer) Active() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Start opens the device and begins buffering fragments.
// It fails with ErrAlreadyRecording while another session holds the device,
// and with an *Error when the device cannot be opened.
func (c *Capturer) Start(ctx context.Context, mimeType string) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		return nil, ErrAlreadyRecording
	}

	stream, err := c.device.Open(ctx, c.constraints, mimeType)
	if err != nil {
		cerr := Classify(err)
		c.metrics.RecordCaptureError(cerr.Kind.String())
		c.logger.Error("Failed to open input device",
			slog.String("mime_type", mimeType),
			slog.String("kind", cerr.Kind.String()),
			slog.String("error", err.Error()))
		return nil, cerr
	}

	session := &Session{
		ID:        uuid.NewString(),
		MIMEType:  mimeType,
		StartedAt: time.Now(),
		state:     StateRecording,
		stream:    stream,
		buffer:    audio.NewChunkBuffer(),
		drained:   make(chan struct{}),
	}
	go session.collect(c.metrics)

	c.active = session
	c.metrics.RecordCaptureStarted()

	c.logger.Info("Capture started",
		slog.String("session_id", session.ID),
		slog.String("mime_type", mimeType),
		slog.Int("sample_rate", c.constraints.SampleRate),
		slog.Int("channels", c.constraints.Channels))

	return session, nil
}

// Stop finalizes session: the device is released, all fragments are joined
// in arrival order and the session becomes Finalized.
// Stopping a session that is not recording does nothing and returns a nil clip.
func (c *Capturer) Stop(session *Session) (*Clip, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if session == nil || c.active != session || session.State() != StateRecording {
		return nil, nil
	}

	session.setState(StateStopping)
	stopErr := session.stream.Stop()
	<-session.drained

	c.active = nil
	c.metrics.RecordCaptureReleased()
	session.setState(StateFinalized)

	duration := time.Since(session.StartedAt)
	stats := session.buffer.GetStats()

	if stopErr != nil {
		cerr := Classify(stopErr)
		c.metrics.RecordCaptureError(cerr.Kind.String())
		c.logger.Error("Capture stopped with error",
			slog.String("session_id", session.ID),
			slog.String("kind", cerr.Kind.String()),
			slog.String("error", stopErr.Error()))
		return nil, cerr
	}

	clip := &Clip{
		SessionID: session.ID,
		MIMEType:  session.MIMEType,
		Data:      session.buffer.Concat(),
		Chunks:    stats.Chunks,
		StartedAt: session.StartedAt,
		Duration:  duration,
	}
	session.buffer.Reset()

	c.metrics.RecordCaptureCompleted(duration.Seconds(), len(clip.Data))
	c.logger.Info("Capture finalized",
		slog.String("session_id", session.ID),
		slog.Int("chunks", clip.Chunks),
		slog.Int("bytes", len(clip.Data)),
		slog.Duration("duration", duration))

	return clip, nil
}

// Record runs one scoped capture: start, wait for stop (or for the device to end the
// stream), finalize. The device is released on every return path, including
// cancellation of ctx, which discards the recording.
func Record(ctx context.Context, c *Capturer, mimeType string, stop <-chan struct{}) (clip *Clip, err error) {
	session, err := c.Start(ctx, mimeType)
	if err != nil {
		return nil, err
	}
	defer func() {
		// no-op when the session was already finalized below
		if _, stopErr := c.Stop(session); stopErr != nil && err == nil {
			err = stopErr
		}
	}()

	select {
	case <-stop:
	case <-session.Done():
		c.logger.Warn("Input stream ended before stop was requested",
			slog.String("session_id", session.ID))
	case <-ctx.Done():
		return nil, fmt.Errorf("capture cancelled: %w", ctx.Err())
	}

	clip, err = c.Stop(session)
	if err != nil {
		return nil, err
	}
	if clip == nil {
		return nil, errors.New("capture session was finalized elsewhere")
	}
	return clip, nil
}
