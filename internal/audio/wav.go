package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Canonical WAV layout produced by EncodeWAV
const (
	WAVHeaderSize = 44
	wavChannels   = 1
	wavBitDepth   = 16
	wavBlockAlign = wavChannels * wavBitDepth / 8
	pcmFullScale  = 0x7FFF
)

// ErrEncode is returned when a WAV buffer cannot be produced.
// Encoding is total over valid input, so this only covers a broken DecodedAudio.
var ErrEncode = errors.New("wav encode error")

// WAVHeader represents the header structure of a WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * BlockAlign
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// EncodeOptions controls sample quantization
type EncodeOptions struct {
	// Clamp saturates samples outside [-1.0, 1.0] before quantization.
	// When false, out-of-range samples wrap around the 16-bit range.
	Clamp bool
}

// newWAVHeader builds a mono 16-bit PCM header for dataSize bytes of sample data
func newWAVHeader(sampleRate uint32, dataSize uint32) WAVHeader {
	return WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   wavChannels,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * wavBlockAlign,
		BlockAlign:    wavBlockAlign,
		BitsPerSample: wavBitDepth,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
}

// EncodeWAV serializes decoded mono audio into a canonical 44-byte-header WAV buffer.
// The result is always exactly 44 + 2*len(a.Samples) bytes; zero samples yield a bare header.
func EncodeWAV(a *DecodedAudio, opts EncodeOptions) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil audio", ErrEncode)
	}

	if a.SampleRate <= 0 || a.SampleRate > math.MaxUint32/wavBlockAlign {
		return nil, fmt.Errorf("%w: sample rate must be positive, got %d", ErrEncode, a.SampleRate)
	}

	dataSize := len(a.Samples) * 2
	if uint64(dataSize)+36 > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d samples exceed the RIFF size limit", ErrEncode, len(a.Samples))
	}

	header := newWAVHeader(uint32(a.SampleRate), uint32(dataSize))

	buf := bytes.NewBuffer(make([]byte, 0, WAVHeaderSize+dataSize))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("%w: failed to write WAV header: %v", ErrEncode, err)
	}

	out := buf.Bytes()[:WAVHeaderSize+dataSize]
	offset := WAVHeaderSize
	for _, s := range a.Samples {
		binary.LittleEndian.PutUint16(out[offset:], uint16(Quantize(s, opts.Clamp)))
		offset += 2
	}

	return out, nil
}

// Quantize converts a float amplitude to a signed 16-bit sample as s*32767 truncated toward zero.
// Without clamping, values outside [-1.0, 1.0] wrap; NaN (and Inf when not clamping) maps to 0.
func Quantize(s float32, clamp bool) int16 {
	v := float64(s)
	if math.IsNaN(v) || (!clamp && math.IsInf(v, 0)) {
		return 0
	}

	if clamp {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
	}

	scaled := math.Trunc(v * pcmFullScale)
	// keep the int64 conversion defined; the low 16 bits are all that survive anyway
	if scaled > math.MaxInt32 || scaled < math.MinInt32 {
		scaled = math.Mod(scaled, 1<<16)
	}
	return int16(int64(scaled))
}

// ValidateWAV validates a WAV file format without decoding the entire audio data
func ValidateWAV(data []byte) error {
	if len(data) < WAVHeaderSize {
		return fmt.Errorf("WAV data too short: need at least %d bytes, got %d", WAVHeaderSize, len(data))
	}

	// Check RIFF header
	if string(data[0:4]) != "RIFF" {
		return fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	// Check WAVE format
	if string(data[8:12]) != "WAVE" {
		return fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	// Check fmt chunk
	if string(data[12:16]) != "fmt " {
		return fmt.Errorf("invalid WAV file: missing fmt chunk")
	}

	// Check data chunk
	if string(data[36:40]) != "data" {
		return fmt.Errorf("invalid WAV file: missing data chunk")
	}

	return nil
}

// GetWAVDuration calculates the duration of a canonical WAV buffer in seconds
func GetWAVDuration(data []byte) (float64, error) {
	info, err := GetWAVInfo(data)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

// WAVInfo holds basic information about a WAV file
type WAVInfo struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
	NumSamples    uint32  `json:"num_samples"`
}

// GetWAVInfo extracts metadata from a canonical 44-byte-header WAV file
func GetWAVInfo(data []byte) (*WAVInfo, error) {
	if err := ValidateWAV(data); err != nil {
		return nil, err
	}

	var header WAVHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if header.SampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}

	if header.BlockAlign == 0 {
		return nil, fmt.Errorf("invalid block align: 0")
	}

	// frames, not interleaved samples
	numSamples := header.Subchunk2Size / uint32(header.BlockAlign)

	return &WAVInfo{
		SampleRate:    header.SampleRate,
		Channels:      header.NumChannels,
		BitsPerSample: header.BitsPerSample,
		Duration:      float64(numSamples) / float64(header.SampleRate),
		DataSize:      header.Subchunk2Size,
		NumSamples:    numSamples,
	}, nil
}

// StreamingWAVHeader returns a header for a recording whose length is not yet known.
// Both size fields are zero placeholders; the decoder repairs them from the actual length.
func StreamingWAVHeader(sampleRate, channels int) []byte {
	header := newWAVHeader(uint32(sampleRate), 0)
	header.ChunkSize = 0
	header.NumChannels = uint16(channels)
	header.BlockAlign = uint16(channels * wavBitDepth / 8)
	header.ByteRate = uint32(sampleRate) * uint32(header.BlockAlign)

	buf := bytes.NewBuffer(make([]byte, 0, WAVHeaderSize))
	// writes into a bytes.Buffer of a fixed-size struct cannot fail
	_ = binary.Write(buf, binary.LittleEndian, header)
	return buf.Bytes()
}
