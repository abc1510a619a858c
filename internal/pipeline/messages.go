package pipeline

import (
	"context"
	"errors"

	"github.com/its-ammu/ai-interview-bot/internal/backend"
	"github.com/its-ammu/ai-interview-bot/internal/capability"
	"github.com/its-ammu/ai-interview-bot/internal/capture"
)

// Messages shown to the candidate
const (
	MsgProcessingFailed = "Error processing your recording. Please try again."
	MsgFeedbackPending  = "Feedback will be available shortly..."
	MsgUnsupported      = "This system does not support audio recording. Please check that an audio input is installed and enabled."
	MsgNoFormat         = "This system does not support any of the required audio formats."
	MsgAlreadyRecording = "A recording is already in progress. Stop it before starting a new one."
	MsgBusy             = "Your previous answer is still being processed. Please wait."
	MsgCancelled        = "Recording cancelled."
	MsgNetwork          = "Could not reach the interview server. Please check your connection and try again."
)

// UserMessage maps any pipeline error to the text shown to the candidate.
// Unclassified errors fall back to the generic processing message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var ce *capture.Error
	switch {
	case errors.Is(err, ErrBusy):
		return MsgBusy
	case errors.Is(err, capability.ErrUnsupportedEnvironment):
		return MsgUnsupported
	case errors.Is(err, capability.ErrNoSupportedFormat):
		return MsgNoFormat
	case errors.Is(err, capture.ErrAlreadyRecording):
		return MsgAlreadyRecording
	case errors.As(err, &ce):
		return ce.Message()
	case errors.Is(err, context.Canceled):
		return MsgCancelled
	case errors.Is(err, backend.ErrFeedbackUnavailable):
		return MsgFeedbackPending
	case errors.Is(err, backend.ErrNetwork):
		return MsgNetwork
	default:
		return MsgProcessingFailed
	}
}
