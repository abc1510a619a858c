package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"mime"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrDecode is returned when a captured clip is not parseable audio
var ErrDecode = errors.New("audio decode error")

// DecodedAudio is raw single-channel audio ready for WAV encoding
type DecodedAudio struct {
	SampleRate int       // As reported by the decoded clip, not the rate requested at capture time
	Channels   int       // Always 1; extra source channels are discarded
	Samples    []float32 // Channel 0 amplitudes in [-1.0, 1.0]
}

// Duration returns the length of the audio in seconds
func (a *DecodedAudio) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

// Decoder turns an encoded clip into raw samples
type Decoder interface {
	Decode(data []byte, mimeType string) (*DecodedAudio, error)
}

// DecodeFunc decodes one container format
type DecodeFunc func(data []byte) (*DecodedAudio, error)

// MIMEDecoder dispatches on the clip's MIME type
type MIMEDecoder struct {
	formats map[string]DecodeFunc
}

// NewDecoder returns a decoder for the formats the capture backends produce
func NewDecoder() *MIMEDecoder {
	d := &MIMEDecoder{formats: make(map[string]DecodeFunc)}
	d.Register("audio/wav", DecodeWAV)
	d.Register("audio/wave", DecodeWAV)
	d.Register("audio/x-wav", DecodeWAV)
	return d
}

// Register adds or replaces the decoder for a MIME type
func (d *MIMEDecoder) Register(mimeType string, fn DecodeFunc) {
	d.formats[baseMIMEType(mimeType)] = fn
}

// Supports reports whether a decoder is registered for mimeType
func (d *MIMEDecoder) Supports(mimeType string) bool {
	_, ok := d.formats[baseMIMEType(mimeType)]
	return ok
}

// Decode implements Decoder
func (d *MIMEDecoder) Decode(data []byte, mimeType string) (*DecodedAudio, error) {
	fn, ok := d.formats[baseMIMEType(mimeType)]
	if !ok {
		return nil, fmt.Errorf("%w: no decoder for %q", ErrDecode, mimeType)
	}
	return fn(data)
}

// baseMIMEType strips parameters such as ";codecs=opus"
func baseMIMEType(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mimeType))
	}
	return mediaType
}

// DecodeWAV decodes a PCM WAV clip, keeping channel 0 only.
// Multi-channel input is not averaged; the other channels are dropped.
func DecodeWAV(data []byte) (*DecodedAudio, error) {
	if len(data) < WAVHeaderSize {
		return nil, fmt.Errorf("%w: WAV data too short: need at least %d bytes, got %d", ErrDecode, WAVHeaderSize, len(data))
	}

	repaired, err := repairWAVSizes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	dec := wav.NewDecoder(bytes.NewReader(repaired))
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read WAV header: %v", ErrDecode, err)
	}

	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: unsupported audio format: %d (only PCM is supported)", ErrDecode, dec.WavAudioFormat)
	}

	if dec.NumChans < 1 {
		return nil, fmt.Errorf("%w: invalid channel count: %d", ErrDecode, dec.NumChans)
	}

	if dec.SampleRate == 0 {
		return nil, fmt.Errorf("%w: invalid sample rate: 0", ErrDecode)
	}

	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: unsupported bit depth: %d", ErrDecode, dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read audio samples: %v", ErrDecode, err)
	}

	return &DecodedAudio{
		SampleRate: int(dec.SampleRate),
		Channels:   1,
		Samples:    firstChannel(buf, int(dec.NumChans), int(dec.BitDepth)),
	}, nil
}

// firstChannel normalizes channel 0 of an interleaved integer buffer to [-1.0, 1.0]
func firstChannel(buf *goaudio.IntBuffer, channels, bitDepth int) []float32 {
	frames := len(buf.Data) / channels
	samples := make([]float32, frames)

	if bitDepth == 8 {
		// 8-bit WAV is unsigned with a 128 midpoint
		for i := range frames {
			samples[i] = float32(buf.Data[i*channels]-128) / 128
		}
		return samples
	}

	scale := float32(int64(1) << (bitDepth - 1))
	for i := range frames {
		samples[i] = float32(buf.Data[i*channels]) / scale
	}
	return samples
}

// repairWAVSizes fixes the RIFF and data chunk sizes of streamed recordings,
// which are written before the final length is known. Well-formed files are returned unchanged.
func repairWAVSizes(data []byte) ([]byte, error) {
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("invalid WAV file: missing RIFF/WAVE header")
	}

	var out []byte
	patch := func(offset int, value uint32) {
		if out == nil {
			out = make([]byte, len(data))
			copy(out, data)
		}
		binary.LittleEndian.PutUint32(out[offset:], value)
	}

	riffSize := binary.LittleEndian.Uint32(data[4:8])
	if actual := uint32(len(data) - 8); riffSize == 0 || riffSize > actual {
		patch(4, actual)
	}

	// walk the chunk list looking for "data"
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + 8
		remaining := uint32(len(data) - body)

		if id == "data" {
			if size == 0 || size > remaining {
				patch(offset+4, remaining&^1)
			}
			if out == nil {
				return data, nil
			}
			return out, nil
		}

		if size > remaining {
			return nil, fmt.Errorf("truncated %q chunk", id)
		}
		// chunks are word aligned
		offset = body + int(size) + int(size&1)
	}

	return nil, fmt.Errorf("invalid WAV file: missing data chunk")
}
