package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/its-ammu/ai-interview-bot/internal/audio"
	"github.com/its-ammu/ai-interview-bot/internal/backend"
	"github.com/its-ammu/ai-interview-bot/internal/capability"
	"github.com/its-ammu/ai-interview-bot/internal/capture"
	"github.com/its-ammu/ai-interview-bot/internal/capture/mock"
	"github.com/its-ammu/ai-interview-bot/internal/metrics"
	"github.com/its-ammu/ai-interview-bot/internal/pipeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scenarioDecoder decodes the four byte webm scenario clip into [0.0, 0.5] at 16 kHz
type scenarioDecoder struct{}

func (scenarioDecoder) Decode(data []byte, mimeType string) (*audio.DecodedAudio, error) {
	if mimeType != "audio/webm" || !bytes.Equal(data, []byte{0x00, 0x01, 0x02, 0x03}) {
		return nil, fmt.Errorf("%w: unexpected clip %x (%s)", audio.ErrDecode, data, mimeType)
	}
	return &audio.DecodedAudio{SampleRate: 16000, Channels: 1, Samples: []float32{0.0, 0.5}}, nil
}

type fakeSubmitter struct {
	transcript  string
	submitErr   error
	feedback    *backend.Feedback
	feedbackErr error

	mu           sync.Mutex
	wav          []byte
	questionID   string
	feedbackCall string
}

func (f *fakeSubmitter) SubmitAnswer(ctx context.Context, wav []byte, questionID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wav = wav
	f.questionID = questionID
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.transcript, nil
}

func (f *fakeSubmitter) FetchFeedback(ctx context.Context, questionID, transcript string) (*backend.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedbackCall = questionID + "|" + transcript
	if f.feedbackErr != nil {
		return nil, f.feedbackErr
	}
	return f.feedback, nil
}

func scenarioDevice() *mock.Device {
	return &mock.Device{
		Fragments: [][]byte{{0x00, 0x01}, {0x02, 0x03}},
		Formats:   []string{"audio/webm", "audio/ogg"},
	}
}

func newPipeline(device *mock.Device, decoder audio.Decoder, submitter pipeline.Submitter, config pipeline.Config, m *metrics.Metrics) *pipeline.Pipeline {
	capturer := capture.NewCapturer(device, testLogger(), m)
	return pipeline.New(capturer, device, decoder, submitter, config, testLogger(), m)
}

func stopped() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func TestRunScenario(t *testing.T) {
	score := 8.5
	device := scenarioDevice()
	submitter := &fakeSubmitter{
		transcript: "This is a sample answer for the question.",
		feedback:   &backend.Feedback{Score: &score, Feedback: "Good answer!"},
	}
	p := newPipeline(device, scenarioDecoder{}, submitter, pipeline.Config{Encode: audio.EncodeOptions{Clamp: true}}, nil)

	result, err := p.Run(context.Background(), "42", stopped())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expected := []byte{
		'R', 'I', 'F', 'F', 0x28, 0x00, 0x00, 0x00,
		'W', 'A', 'V', 'E',
		'f', 'm', 't', ' ', 0x10, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x01, 0x00,
		0x80, 0x3E, 0x00, 0x00,
		0x00, 0x7D, 0x00, 0x00,
		0x02, 0x00, 0x10, 0x00,
		'd', 'a', 't', 'a', 0x04, 0x00, 0x00, 0x00,
		0x00, 0x00, 0xFF, 0x3F,
	}

	if !bytes.Equal(result.WAV, expected) {
		t.Errorf("WAV mismatch\nexpected % x\ngot      % x", expected, result.WAV)
	}
	if !bytes.Equal(submitter.wav, expected) {
		t.Error("Submitted payload should be the encoded WAV")
	}
	if submitter.questionID != "42" {
		t.Errorf("Expected question 42, got %q", submitter.questionID)
	}
	if submitter.feedbackCall != "42|This is a sample answer for the question." {
		t.Errorf("Feedback requested with %q", submitter.feedbackCall)
	}

	if result.MIMEType != "audio/webm" {
		t.Errorf("Expected probed format audio/webm, got %q", result.MIMEType)
	}
	if result.ClipSize != 4 || result.Samples != 2 || result.SampleRate != 16000 {
		t.Errorf("Unexpected result %+v", result)
	}
	if result.Level.Peak != 0.5 || result.Level.Clipped != 0 {
		t.Errorf("Unexpected level %+v", result.Level)
	}
	if result.Feedback == nil || result.Feedback.ScoreText() != "8.5" {
		t.Errorf("Unexpected feedback %+v", result.Feedback)
	}
	if device.Held() {
		t.Error("Device should be released")
	}

	stats := p.GetStats()
	if stats.Runs != 1 || stats.Completed != 1 || stats.Failed != 0 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestRunFeedbackFailureKeepsTranscript(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	submitter := &fakeSubmitter{
		transcript:  "my answer",
		feedbackErr: fmt.Errorf("%w: status pending", backend.ErrFeedbackUnavailable),
	}
	p := newPipeline(scenarioDevice(), scenarioDecoder{}, submitter, pipeline.Config{}, m)

	result, err := p.Run(context.Background(), "7", stopped())
	if err != nil {
		t.Fatalf("Feedback failure should not fail the run: %v", err)
	}

	if result.Transcript != "my answer" {
		t.Errorf("Transcript should be kept, got %q", result.Transcript)
	}
	if !errors.Is(result.FeedbackErr, backend.ErrFeedbackUnavailable) {
		t.Errorf("Expected FeedbackErr, got %v", result.FeedbackErr)
	}
	if pipeline.UserMessage(result.FeedbackErr) != pipeline.MsgFeedbackPending {
		t.Errorf("Unexpected message %q", pipeline.UserMessage(result.FeedbackErr))
	}
	if got := testutil.ToFloat64(m.PipelineErrors.WithLabelValues(pipeline.StageFeedback)); got != 1 {
		t.Errorf("Expected 1 feedback error, got %v", got)
	}
}

func TestRunSubmitFailureKeepsWAV(t *testing.T) {
	submitter := &fakeSubmitter{submitErr: fmt.Errorf("%w: status error", backend.ErrSubmissionFailed)}
	p := newPipeline(scenarioDevice(), scenarioDecoder{}, submitter, pipeline.Config{}, nil)

	result, err := p.Run(context.Background(), "7", stopped())
	if !errors.Is(err, backend.ErrSubmissionFailed) {
		t.Fatalf("Expected ErrSubmissionFailed, got %v", err)
	}
	if result == nil || len(result.WAV) != 48 {
		t.Fatalf("Encoded WAV should be kept, got %+v", result)
	}
	if result.Transcript != "" {
		t.Errorf("Expected no transcript, got %q", result.Transcript)
	}
	if submitter.feedbackCall != "" {
		t.Error("Feedback must not be requested without a transcript")
	}
	if pipeline.UserMessage(err) != pipeline.MsgProcessingFailed {
		t.Errorf("Unexpected message %q", pipeline.UserMessage(err))
	}
	if p.GetStats().Failed != 1 {
		t.Errorf("Expected 1 failed run")
	}
}

func TestRunNoSupportedFormat(t *testing.T) {
	device := scenarioDevice()
	device.Formats = nil
	submitter := &fakeSubmitter{}
	p := newPipeline(device, scenarioDecoder{}, submitter, pipeline.Config{}, nil)

	result, err := p.Run(context.Background(), "1", stopped())
	if !errors.Is(err, capability.ErrNoSupportedFormat) {
		t.Fatalf("Expected ErrNoSupportedFormat, got %v", err)
	}
	if result != nil {
		t.Errorf("Expected no result, got %+v", result)
	}
	if device.Opens() != 0 {
		t.Errorf("Device must not be opened, got %d opens", device.Opens())
	}
	if pipeline.UserMessage(err) != pipeline.MsgNoFormat {
		t.Errorf("Unexpected message %q", pipeline.UserMessage(err))
	}
}

func TestRunFormatOverride(t *testing.T) {
	device := scenarioDevice()
	device.Formats = nil
	device.Unavailable = true
	submitter := &fakeSubmitter{transcript: "ok", feedback: &backend.Feedback{}}
	p := newPipeline(device, scenarioDecoder{}, submitter, pipeline.Config{FormatOverride: "audio/webm"}, nil)

	result, err := p.Run(context.Background(), "1", stopped())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.MIMEType != "audio/webm" {
		t.Errorf("Expected override format, got %q", result.MIMEType)
	}
}

func TestRunDecodeFailureReleasesDevice(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	device := scenarioDevice()
	submitter := &fakeSubmitter{}
	p := newPipeline(device, audio.NewDecoder(), submitter, pipeline.Config{}, m)

	result, err := p.Run(context.Background(), "1", stopped())
	if !errors.Is(err, audio.ErrDecode) {
		t.Fatalf("Expected ErrDecode, got %v", err)
	}
	if result == nil || result.ClipSize != 4 || result.WAV != nil {
		t.Errorf("Expected capture info without WAV, got %+v", result)
	}
	if device.Held() || device.Releases() != 1 {
		t.Error("Device should be released exactly once")
	}
	if submitter.wav != nil {
		t.Error("Nothing should be submitted after a decode failure")
	}
	if got := testutil.ToFloat64(m.PipelineErrors.WithLabelValues(pipeline.StageDecode)); got != 1 {
		t.Errorf("Expected 1 decode error, got %v", got)
	}
}

func TestRunCaptureFailure(t *testing.T) {
	device := scenarioDevice()
	device.OpenErr = capture.ErrPermissionDenied
	p := newPipeline(device, scenarioDecoder{}, &fakeSubmitter{}, pipeline.Config{}, nil)

	_, err := p.Run(context.Background(), "1", stopped())

	var ce *capture.Error
	if !errors.As(err, &ce) || ce.Kind != capture.KindPermissionDenied {
		t.Fatalf("Expected permission capture error, got %v", err)
	}
	if pipeline.UserMessage(err) != ce.Message() {
		t.Errorf("Unexpected message %q", pipeline.UserMessage(err))
	}
}

func TestRunBusy(t *testing.T) {
	submitter := &fakeSubmitter{transcript: "ok", feedback: &backend.Feedback{}}
	p := newPipeline(scenarioDevice(), scenarioDecoder{}, submitter, pipeline.Config{}, nil)

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), "1", stop)
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !p.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("First run never started")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := p.Run(context.Background(), "2", stopped())
	if !errors.Is(err, pipeline.ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
	if pipeline.UserMessage(err) != pipeline.MsgBusy {
		t.Errorf("Unexpected message %q", pipeline.UserMessage(err))
	}

	close(stop)
	if err := <-done; err != nil {
		t.Errorf("First run failed: %v", err)
	}
	if p.Busy() {
		t.Error("Pipeline should be idle after the run")
	}
}

func TestRunMaxDuration(t *testing.T) {
	submitter := &fakeSubmitter{transcript: "ok", feedback: &backend.Feedback{}}
	p := newPipeline(scenarioDevice(), scenarioDecoder{}, submitter, pipeline.Config{MaxDuration: 20 * time.Millisecond}, nil)

	result, err := p.Run(context.Background(), "1", nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.WAV) != 48 {
		t.Errorf("Expected 48 byte WAV, got %d", len(result.WAV))
	}
}

func TestRunCancelled(t *testing.T) {
	device := scenarioDevice()
	p := newPipeline(device, scenarioDecoder{}, &fakeSubmitter{}, pipeline.Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := p.Run(ctx, "1", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if device.Held() {
		t.Error("Device should be released on cancellation")
	}
	if pipeline.UserMessage(err) != pipeline.MsgCancelled {
		t.Errorf("Unexpected message %q", pipeline.UserMessage(err))
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "unsupported", err: capability.ErrUnsupportedEnvironment, want: pipeline.MsgUnsupported},
		{name: "already recording", err: capture.ErrAlreadyRecording, want: pipeline.MsgAlreadyRecording},
		{
			name: "device busy",
			err:  fmt.Errorf("capture: %w", &capture.Error{Kind: capture.KindDeviceBusy}),
			want: (&capture.Error{Kind: capture.KindDeviceBusy}).Message(),
		},
		{name: "decode", err: fmt.Errorf("decode: %w", audio.ErrDecode), want: pipeline.MsgProcessingFailed},
		{name: "encode", err: audio.ErrEncode, want: pipeline.MsgProcessingFailed},
		{
			name: "network",
			err:  fmt.Errorf("%w: %w", backend.ErrSubmissionFailed, backend.ErrNetwork),
			want: pipeline.MsgNetwork,
		},
		{name: "unclassified", err: errors.New("boom"), want: pipeline.MsgProcessingFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pipeline.UserMessage(tt.err); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}

	// every capture kind gets its own message
	seen := make(map[string]bool)
	for _, kind := range []capture.Kind{capture.KindPermissionDenied, capture.KindDeviceNotFound, capture.KindDeviceBusy, capture.KindUnknown} {
		msg := pipeline.UserMessage(&capture.Error{Kind: kind})
		if seen[msg] {
			t.Errorf("Duplicate message for %s: %q", kind, msg)
		}
		seen[msg] = true
	}
}
