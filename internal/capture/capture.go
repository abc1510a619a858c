package capture

import (
	"context"
	"time"
)

// Constraints are the capture parameters requested from the input device.
// Devices may not honour them exactly; the decoded clip reports what was actually recorded.
type Constraints struct {
	Channels         int
	SampleRate       int
	SampleSize       int // bits per sample
	EchoCancellation bool
	NoiseSuppression bool
}

// DefaultConstraints returns the fixed constraints used for every answer recording
func DefaultConstraints() Constraints {
	return Constraints{
		Channels:         1,
		SampleRate:       16000,
		SampleSize:       16,
		EchoCancellation: true,
		NoiseSuppression: true,
	}
}

// Device opens live input streams.
// Open must not hold any hardware resource when it returns an error.
type Device interface {
	Open(ctx context.Context, c Constraints, mimeType string) (Stream, error)
}

// Stream is an open input producing encoded fragments of mimeType
type Stream interface {
	// Chunks delivers fragments in recording order. It is closed by Stop,
	// or earlier if the device stops producing audio on its own.
	Chunks() <-chan []byte

	// Stop ends recording, flushes any pending fragment, closes Chunks and releases the device.
	// It is called exactly once per stream.
	Stop() error
}

// Clip is a finalized recording
type Clip struct {
	SessionID string
	MIMEType  string
	Data      []byte
	Chunks    int
	StartedAt time.Time
	Duration  time.Duration
}
