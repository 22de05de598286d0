package stt

import (
	"context"

	"github.com/verbalabs/verba/pkg/frames"
)

// StreamingSTT defines the contract for any STT vendor implementation. It
// backs the optional caption sidecar; the exam session itself never depends
// on transcription.
type StreamingSTT interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Start initializes the STT connection.
	Start(ctx context.Context) error
	// Close shuts down the STT connection.
	Close() error
	// SendAudio sends capture audio to the STT service.
	SendAudio(frame frames.AudioFrame) error
	// Results returns a channel of transcription frames.
	Results() <-chan frames.Frame
}

// Config contains vendor-agnostic STT configuration.
type Config struct {
	SessionID  string
	TraceID    string
	SampleRate int
	Language   string
}
