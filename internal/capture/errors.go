package capture

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why a capture could not start or finish
type Kind int

const (
	KindUnknown Kind = iota
	KindPermissionDenied
	KindDeviceNotFound
	KindDeviceBusy
)

// String returns the metric/log label for the kind
func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindDeviceNotFound:
		return "device_not_found"
	case KindDeviceBusy:
		return "device_busy"
	default:
		return "unknown"
	}
}

// Sentinel causes a Device implementation may wrap so Classify picks the right kind
var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrDeviceNotFound   = errors.New("no input device found")
	ErrDeviceBusy       = errors.New("input device busy")

	// ErrAlreadyRecording is returned by Start while a session is still recording
	ErrAlreadyRecording = errors.New("capture already in progress")
)

const messagePrefix = "Error accessing microphone. "

// Error is a classified capture failure
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("capture failed: %s", e.Kind)
	}
	return fmt.Sprintf("capture failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrDeviceBusy) match a classified error of that kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrPermissionDenied:
		return e.Kind == KindPermissionDenied
	case ErrDeviceNotFound:
		return e.Kind == KindDeviceNotFound
	case ErrDeviceBusy:
		return e.Kind == KindDeviceBusy
	}
	return false
}

// Message returns the text shown to the candidate
func (e *Error) Message() string {
	switch e.Kind {
	case KindPermissionDenied:
		return messagePrefix + "Please grant microphone permissions in your system settings."
	case KindDeviceNotFound:
		return messagePrefix + "No microphone found. Please connect a microphone and try again."
	case KindDeviceBusy:
		return messagePrefix + "Your microphone is busy or not working properly. Please check your microphone settings."
	}
	if e.Err != nil && e.Err.Error() != "" {
		return messagePrefix + e.Err.Error()
	}
	return messagePrefix + "Please ensure you have granted microphone permissions."
}

// Classify converts any device error into an *Error.
// Wrapped sentinels win; otherwise the error text is matched against common driver wording.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	switch {
	case errors.Is(err, ErrPermissionDenied):
		return &Error{Kind: KindPermissionDenied, Err: err}
	case errors.Is(err, ErrDeviceNotFound):
		return &Error{Kind: KindDeviceNotFound, Err: err}
	case errors.Is(err, ErrDeviceBusy):
		return &Error{Kind: KindDeviceBusy, Err: err}
	}

	return &Error{Kind: kindFromText(err.Error()), Err: err}
}

var kindPatterns = []struct {
	kind     Kind
	patterns []string
}{
	{KindPermissionDenied, []string{"permission denied", "access denied", "not allowed", "not permitted"}},
	{KindDeviceNotFound, []string{"no device", "no default input", "device not found", "invalid device", "does not exist", "no such device"}},
	{KindDeviceBusy, []string{"busy", "unavailable", "in use", "not readable"}},
}

func kindFromText(text string) Kind {
	text = strings.ToLower(text)
	for _, kp := range kindPatterns {
		for _, p := range kp.patterns {
			if strings.Contains(text, p) {
				return kp.kind
			}
		}
	}
	return KindUnknown
}
