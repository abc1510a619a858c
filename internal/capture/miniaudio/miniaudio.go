// Package miniaudio captures answers through malgo, the miniaudio bindings, which need no system PortAudio install.
package miniaudio

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/its-ammu/ai-interview-bot/internal/audio"
	"github.com/its-ammu/ai-interview-bot/internal/capture"
)

// MIMEType is the only format this backend produces
const MIMEType = "audio/wav"

// Device opens the default capture device with miniaudio
type Device struct {
	logger *slog.Logger
}

// New creates a miniaudio device
func New(logger *slog.Logger) *Device {
	if logger == nil {
		logger = slog.Default()
	}
	return &Device{logger: logger}
}

// CaptureAvailable reports whether miniaudio can enumerate at least one capture device
func (d *Device) CaptureAvailable() bool {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		d.logger.Debug("miniaudio unavailable", slog.String("error", err.Error()))
		return false
	}
	defer freeContext(mctx)

	infos, err := mctx.Devices(malgo.Capture)
	return err == nil && len(infos) > 0
}

// IsFormatSupported reports whether mimeType is streamed WAV
func (d *Device) IsFormatSupported(mimeType string) bool {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	return err == nil && mediaType == MIMEType
}

// Open initializes a capture device and starts delivering fragments
func (d *Device) Open(ctx context.Context, c capture.Constraints, mimeType string) (capture.Stream, error) {
	if !d.IsFormatSupported(mimeType) {
		return nil, fmt.Errorf("miniaudio backend cannot produce %q", mimeType)
	}
	if c.SampleSize != 16 {
		return nil, fmt.Errorf("miniaudio backend records 16-bit samples only, got %d", c.SampleSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		d.logger.Debug("miniaudio", slog.String("message", strings.TrimSpace(message)))
	})
	if err != nil {
		return nil, fmt.Errorf("init malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(c.Channels)
	deviceConfig.SampleRate = uint32(c.SampleRate)

	s := &inputStream{
		mctx:   mctx,
		chunks: make(chan []byte, 16),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		pumped: make(chan struct{}),
		logger: d.logger,
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: s.onData,
		Stop: s.onStop,
	})
	if err != nil {
		freeContext(mctx)
		return nil, fmt.Errorf("init capture device: %w", err)
	}
	s.device = device

	// header first, using what the device actually negotiated
	s.push(audio.StreamingWAVHeader(int(device.SampleRate()), int(device.CaptureChannels())))

	if err := device.Start(); err != nil {
		device.Uninit()
		freeContext(mctx)
		return nil, fmt.Errorf("start capture device: %w", err)
	}
	go s.pump()

	d.logger.Debug("miniaudio capture started",
		slog.Int("sample_rate", int(device.SampleRate())),
		slog.Int("channels", int(device.CaptureChannels())))

	return s, nil
}

type inputStream struct {
	mctx   *malgo.AllocatedContext
	device *malgo.Device
	chunks chan []byte

	// fragments waiting for the pump; the data callback must never block
	pending [][]byte
	mu      sync.Mutex
	notify  chan struct{}

	done     chan struct{}
	pumped   chan struct{}
	stopOnce sync.Once
	halted   bool
	stopping bool

	logger *slog.Logger
}

func (s *inputStream) Chunks() <-chan []byte {
	return s.chunks
}

func (s *inputStream) onData(_, input []byte, _ uint32) {
	if len(input) == 0 {
		return
	}
	b := make([]byte, len(input))
	copy(b, input)
	s.push(b)
}

// onStop fires when miniaudio stops the device, including when it is unplugged
func (s *inputStream) onStop() {
	s.mu.Lock()
	s.halted = true
	s.mu.Unlock()
	s.wake()
}

func (s *inputStream) push(b []byte) {
	s.mu.Lock()
	s.pending = append(s.pending, b)
	s.mu.Unlock()
	s.wake()
}

func (s *inputStream) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *inputStream) take() ([][]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.pending
	s.pending = nil
	return batch, s.halted
}

func (s *inputStream) isStopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

func (s *inputStream) pump() {
	defer close(s.pumped)
	defer close(s.chunks)

	for {
		select {
		case <-s.notify:
		case <-s.done:
		}

		batch, halted := s.take()
		for _, b := range batch {
			s.chunks <- b
		}

		select {
		case <-s.done:
			// device is stopped before done closes, nothing more can arrive
			batch, _ = s.take()
			for _, b := range batch {
				s.chunks <- b
			}
			return
		default:
		}

		if halted {
			if !s.isStopping() {
				s.logger.Warn("miniaudio capture device stopped unexpectedly")
			}
			return
		}
	}
}

// Stop halts the device, flushes buffered fragments and frees miniaudio
func (s *inputStream) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopping = true
		s.mu.Unlock()

		if stopErr := s.device.Stop(); stopErr != nil {
			err = fmt.Errorf("stop capture device: %w", stopErr)
		}
		close(s.done)
		<-s.pumped

		s.device.Uninit()
		freeContext(s.mctx)
	})
	return err
}

func freeContext(mctx *malgo.AllocatedContext) {
	_ = mctx.Uninit()
	mctx.Free()
}
