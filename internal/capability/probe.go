package capability

import (
	"errors"
	"fmt"
)

var (
	// ErrCapability is the class of every probe failure
	ErrCapability = errors.New("capability error")

	// ErrUnsupportedEnvironment means the runtime cannot capture audio at all
	ErrUnsupportedEnvironment = fmt.Errorf("%w: audio capture is not supported", ErrCapability)

	// ErrNoSupportedFormat means capture works but none of the candidate formats can be produced
	ErrNoSupportedFormat = fmt.Errorf("%w: no supported audio format", ErrCapability)
)

// CandidateFormats lists the encodings a capture may be requested in, most preferred first
var CandidateFormats = []string{
	"audio/wav",
	"audio/webm",
	"audio/ogg",
}

// Runtime describes what the host can do for audio capture.
// Implementations must answer without opening an input device.
type Runtime interface {
	CaptureAvailable() bool
	IsFormatSupported(mimeType string) bool
}

// Probe returns the first candidate format the runtime can encode
func Probe(rt Runtime) (string, error) {
	if rt == nil || !rt.CaptureAvailable() {
		return "", ErrUnsupportedEnvironment
	}

	for _, mimeType := range CandidateFormats {
		if rt.IsFormatSupported(mimeType) {
			return mimeType, nil
		}
	}

	return "", ErrNoSupportedFormat
}
