package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// pcmBytes encodes int16 samples as little-endian PCM
func pcmBytes(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestDecodeWAVStreamingHeader(t *testing.T) {
	// a streamed recording: placeholder header, then PCM fragments
	var clip []byte
	clip = append(clip, StreamingWAVHeader(16000, 1)...)
	clip = append(clip, pcmBytes(0, 16384)...)
	clip = append(clip, pcmBytes(-16384)...)

	decoded, err := DecodeWAV(clip)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if decoded.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", decoded.SampleRate)
	}
	if decoded.Channels != 1 {
		t.Errorf("Expected 1 channel, got %d", decoded.Channels)
	}

	want := []float32{0, 0.5, -0.5}
	if len(decoded.Samples) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(decoded.Samples))
	}
	for i := range want {
		if decoded.Samples[i] != want[i] {
			t.Errorf("Sample %d: expected %f, got %f", i, want[i], decoded.Samples[i])
		}
	}
}

func TestDecodeWAVKeepsFirstChannel(t *testing.T) {
	header := newWAVHeader(22050, 8)
	header.NumChannels = 2
	header.BlockAlign = 4
	header.ByteRate = 22050 * 4

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	// interleaved L/R frames
	buf.Write(pcmBytes(8192, 32767, -8192, 32767))

	decoded, err := DecodeWAV(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if decoded.SampleRate != 22050 {
		t.Errorf("Expected reported sample rate 22050, got %d", decoded.SampleRate)
	}

	want := []float32{0.25, -0.25}
	if len(decoded.Samples) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(decoded.Samples))
	}
	for i := range want {
		if decoded.Samples[i] != want[i] {
			t.Errorf("Sample %d: expected %f, got %f", i, want[i], decoded.Samples[i])
		}
	}
}

func TestDecodeWAVEmptyData(t *testing.T) {
	data, err := EncodeWAV(&DecodedAudio{SampleRate: 16000, Channels: 1}, EncodeOptions{})
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if len(decoded.Samples) != 0 {
		t.Errorf("Expected no samples, got %d", len(decoded.Samples))
	}
}

func TestDecodeWAVErrors(t *testing.T) {
	notPCM := StreamingWAVHeader(16000, 1)
	binary.LittleEndian.PutUint16(notPCM[20:22], 3) // IEEE float

	tests := []struct {
		name string
		data []byte
	}{
		{name: "too short", data: []byte("RIFF")},
		{name: "not riff", data: bytes.Repeat([]byte{0x42}, 64)},
		{name: "no data chunk", data: append([]byte("RIFF\x00\x00\x00\x00WAVE"), bytes.Repeat([]byte{0}, 40)...)},
		{name: "not pcm", data: notPCM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeWAV(tt.data)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("Expected ErrDecode, got %v", err)
			}
		})
	}
}

func TestMIMEDecoder(t *testing.T) {
	d := NewDecoder()

	for _, mimeType := range []string{"audio/wav", "audio/x-wav", "audio/wave", "audio/WAV", "audio/wav; codecs=1"} {
		if !d.Supports(mimeType) {
			t.Errorf("Expected %q to be supported", mimeType)
		}
	}

	if d.Supports("audio/webm") {
		t.Error("Expected audio/webm to be unsupported by default")
	}

	_, err := d.Decode([]byte{0x00, 0x01}, "audio/webm")
	if !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode for unknown format, got %v", err)
	}

	d.Register("audio/webm", func(data []byte) (*DecodedAudio, error) {
		return &DecodedAudio{SampleRate: 48000, Channels: 1, Samples: []float32{float32(len(data))}}, nil
	})

	decoded, err := d.Decode([]byte{0x00, 0x01}, "audio/webm;codecs=opus")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.SampleRate != 48000 || decoded.Samples[0] != 2 {
		t.Errorf("Unexpected decode result: %+v", decoded)
	}
}

func TestDecodedAudioDuration(t *testing.T) {
	a := &DecodedAudio{SampleRate: 16000, Channels: 1, Samples: make([]float32, 8000)}
	if a.Duration() != 0.5 {
		t.Errorf("Expected 0.5s, got %f", a.Duration())
	}

	if (&DecodedAudio{}).Duration() != 0 {
		t.Error("Expected zero duration for zero sample rate")
	}
}
