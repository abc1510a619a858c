// Package mock provides an in-memory input device for tests and dry runs.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/its-ammu/ai-interview-bot/internal/capture"
)

// Device replays preset fragments. Queued fragments are delivered when the
// stream is stopped, the way a recorder flushes its final data slice.
type Device struct {
	// Fragments delivered by every opened stream
	Fragments [][]byte

	// OpenErr is returned from Open without allocating a stream
	OpenErr error

	// StopErr is returned from Stream.Stop after the stream is released
	StopErr error

	// Formats reported by IsFormatSupported
	Formats []string

	// Unavailable makes CaptureAvailable report false
	Unavailable bool

	mu          sync.Mutex
	opens       int
	releases    int
	doubleStops int
	last        *Stream
	constraints capture.Constraints
}

// CaptureAvailable implements capability.Runtime
func (d *Device) CaptureAvailable() bool {
	return !d.Unavailable
}

// IsFormatSupported implements capability.Runtime
func (d *Device) IsFormatSupported(mimeType string) bool {
	return slices.Contains(d.Formats, mimeType)
}

// Open implements capture.Device
func (d *Device) Open(ctx context.Context, c capture.Constraints, mimeType string) (capture.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.opens++
	d.constraints = c

	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &Stream{
		device:  d,
		ch:      make(chan []byte),
		pending: slices.Clone(d.Fragments),
		stopErr: d.StopErr,
	}
	d.last = s
	return s, nil
}

// Opens returns how many times Open was called
func (d *Device) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Releases returns how many streams were released
func (d *Device) Releases() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.releases
}

// DoubleStops returns how many times Stop was called on an already stopped stream
func (d *Device) DoubleStops() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doubleStops
}

// Held reports whether a stream is open and not yet released
func (d *Device) Held() bool {
	last := d.LastStream()
	return last != nil && !last.isStopped()
}

// LastStream returns the most recently opened stream
func (d *Device) LastStream() *Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// LastConstraints returns the constraints passed to the last Open
func (d *Device) LastConstraints() capture.Constraints {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.constraints
}

// Stream is an open mock input
type Stream struct {
	device  *Device
	ch      chan []byte
	pending [][]byte
	stopErr error
	stopped bool
	closed  bool
	mu      sync.Mutex
}

// Chunks implements capture.Stream
func (s *Stream) Chunks() <-chan []byte {
	return s.ch
}

// Emit delivers a fragment immediately. It blocks until the capturer reads it
// and is ignored after the stream has ended.
func (s *Stream) Emit(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ch <- chunk
}

// End closes the stream as if the device disappeared mid-recording
func (s *Stream) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flush()
}

// Stop implements capture.Stream
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.device.mu.Lock()
		s.device.doubleStops++
		s.device.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.flush()

	s.device.mu.Lock()
	s.device.releases++
	s.device.mu.Unlock()

	return s.stopErr
}

func (s *Stream) flush() {
	if s.closed {
		return
	}
	for _, chunk := range s.pending {
		s.ch <- chunk
	}
	s.pending = nil
	s.closed = true
	close(s.ch)
}

func (s *Stream) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
