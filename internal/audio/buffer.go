package audio

import (
	"sync"
	"time"
)

// ChunkBuffer accumulates encoded audio fragments in arrival order.
// Concatenating the fragments must reproduce the original temporal sequence,
// so fragments are never reordered or merged until Concat is called.
type ChunkBuffer struct {
	chunks     [][]byte
	totalBytes int

	// Timing and metadata
	firstChunk time.Time
	lastUpdate time.Time

	mu sync.RWMutex
}

// BufferStats represents buffer statistics for monitoring
type BufferStats struct {
	Chunks     int       `json:"chunks"`
	TotalBytes int       `json:"total_bytes"`
	FirstChunk time.Time `json:"first_chunk,omitempty"`
	LastUpdate time.Time `json:"last_update,omitempty"`
}

// NewChunkBuffer creates an empty chunk buffer
func NewChunkBuffer() *ChunkBuffer {
	return &ChunkBuffer{}
}

// Append stores a copy of data after all previously appended chunks.
// Empty fragments are ignored.
func (b *ChunkBuffer) Append(data []byte) {
	if len(data) == 0 {
		return
	}

	chunk := make([]byte, len(data))
	copy(chunk, data)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if len(b.chunks) == 0 {
		b.firstChunk = now
	}
	b.lastUpdate = now
	b.chunks = append(b.chunks, chunk)
	b.totalBytes += len(chunk)
}

// Concat returns all chunks joined in arrival order
func (b *ChunkBuffer) Concat() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]byte, 0, b.totalBytes)
	for _, chunk := range b.chunks {
		out = append(out, chunk...)
	}
	return out
}

// Len returns the number of chunks received
func (b *ChunkBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.chunks)
}

// Size returns the total number of bytes received
func (b *ChunkBuffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.totalBytes
}

// Reset drops all accumulated chunks
func (b *ChunkBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = nil
	b.totalBytes = 0
	b.firstChunk = time.Time{}
	b.lastUpdate = time.Time{}
}

// GetStats returns current buffer statistics
func (b *ChunkBuffer) GetStats() BufferStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return BufferStats{
		Chunks:     len(b.chunks),
		TotalBytes: b.totalBytes,
		FirstChunk: b.firstChunk,
		LastUpdate: b.lastUpdate,
	}
}
