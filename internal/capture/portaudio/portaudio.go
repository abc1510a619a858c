// Package portaudio captures answers from the default input device through PortAudio.
package portaudio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"github.com/its-ammu/ai-interview-bot/internal/audio"
	"github.com/its-ammu/ai-interview-bot/internal/capture"
)

// MIMEType is the only format this backend produces
const MIMEType = "audio/wav"

// DefaultFramesPerBuffer is used when no buffer size is configured (64ms at 16kHz)
const DefaultFramesPerBuffer = 1024

// Device opens the system default input with PortAudio
type Device struct {
	framesPerBuffer int
	logger          *slog.Logger
}

// New creates a PortAudio device
func New(framesPerBuffer int, logger *slog.Logger) *Device {
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultFramesPerBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Device{
		framesPerBuffer: framesPerBuffer,
		logger:          logger,
	}
}

// CaptureAvailable reports whether PortAudio has a default input device.
// Devices are enumerated only, no stream is opened.
func (d *Device) CaptureAvailable() bool {
	if err := pa.Initialize(); err != nil {
		d.logger.Debug("PortAudio unavailable", slog.String("error", err.Error()))
		return false
	}
	defer pa.Terminate()

	info, err := pa.DefaultInputDevice()
	return err == nil && info != nil && info.MaxInputChannels > 0
}

// IsFormatSupported reports whether mimeType is streamed WAV
func (d *Device) IsFormatSupported(mimeType string) bool {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	return err == nil && mediaType == MIMEType
}

// Open starts a blocking-read input stream on the default device
func (d *Device) Open(ctx context.Context, c capture.Constraints, mimeType string) (capture.Stream, error) {
	if !d.IsFormatSupported(mimeType) {
		return nil, fmt.Errorf("portaudio backend cannot produce %q", mimeType)
	}
	if c.SampleSize != 16 {
		return nil, fmt.Errorf("portaudio backend records 16-bit samples only, got %d", c.SampleSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", translateError(err))
	}

	buf := make([]int16, d.framesPerBuffer*c.Channels)
	stream, err := pa.OpenDefaultStream(c.Channels, 0, float64(c.SampleRate), d.framesPerBuffer, buf)
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("open input stream: %w", translateError(err))
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		pa.Terminate()
		return nil, fmt.Errorf("start input stream: %w", translateError(err))
	}

	sampleRate := c.SampleRate
	if info := stream.Info(); info != nil && info.SampleRate > 0 {
		sampleRate = int(info.SampleRate)
	}

	if c.EchoCancellation || c.NoiseSuppression {
		d.logger.Debug("PortAudio does not apply echo cancellation or noise suppression")
	}

	s := &inputStream{
		stream:   stream,
		buf:      buf,
		chunks:   make(chan []byte, 16),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		logger:   d.logger,
	}
	go s.run(sampleRate, c.Channels)

	d.logger.Debug("PortAudio input stream started",
		slog.Int("sample_rate", sampleRate),
		slog.Int("channels", c.Channels),
		slog.Int("frames_per_buffer", d.framesPerBuffer))

	return s, nil
}

type inputStream struct {
	stream *pa.Stream
	buf    []int16
	chunks chan []byte

	done     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
	readErr  error

	logger *slog.Logger
}

func (s *inputStream) Chunks() <-chan []byte {
	return s.chunks
}

func (s *inputStream) run(sampleRate, channels int) {
	defer close(s.finished)
	defer close(s.chunks)

	s.chunks <- audio.StreamingWAVHeader(sampleRate, channels)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		if err := s.stream.Read(); err != nil {
			if errors.Is(err, pa.InputOverflowed) {
				s.logger.Warn("PortAudio input overflowed, samples dropped")
				continue
			}
			s.readErr = translateError(err)
			s.logger.Error("PortAudio read failed", slog.String("error", err.Error()))
			return
		}

		chunk := make([]byte, len(s.buf)*2)
		for i, v := range s.buf {
			binary.LittleEndian.PutUint16(chunk[i*2:], uint16(v))
		}
		s.chunks <- chunk
	}
}

// Stop waits for the read loop to finish the current buffer, then releases PortAudio
func (s *inputStream) Stop() error {
	var errs []error
	s.stopOnce.Do(func() {
		close(s.done)
		<-s.finished

		if err := s.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop input stream: %w", translateError(err)))
		}
		if err := s.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close input stream: %w", err))
		}
		if err := pa.Terminate(); err != nil {
			errs = append(errs, fmt.Errorf("portaudio terminate: %w", err))
		}
		if s.readErr != nil {
			errs = append(errs, fmt.Errorf("read input stream: %w", s.readErr))
		}
	})
	return errors.Join(errs...)
}

// translateError maps PortAudio error codes onto the capture sentinels
func translateError(err error) error {
	var paErr pa.Error
	if !errors.As(err, &paErr) {
		return err
	}
	switch paErr {
	case pa.InvalidDevice:
		return fmt.Errorf("%w: %v", capture.ErrDeviceNotFound, err)
	case pa.DeviceUnavailable:
		return fmt.Errorf("%w: %v", capture.ErrDeviceBusy, err)
	}
	return err
}
