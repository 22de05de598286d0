package rt

import (
	"context"

	"github.com/verbalabs/verba/pkg/audio"
)

// RealtimeSpeech defines the contract for any realtime speech vendor
// implementation. One connection is one exam session.
type RealtimeSpeech interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Connect opens the streaming session and registers callbacks. It returns
	// once the transport is established; OnOpen fires when the service has
	// accepted the setup.
	Connect(ctx context.Context, cfg Config, cb Callbacks) error
	// SendRealtimeInput streams an encoded capture chunk to the service.
	SendRealtimeInput(blob audio.Blob) error
	// Close shuts down the streaming session.
	Close() error
}

// Config contains vendor-agnostic session configuration.
type Config struct {
	SessionID   string
	Model       string
	Instruction string
	Voice       string
}

// Callbacks receive session events. All fields are optional; nil callbacks
// are skipped. Callbacks may be invoked from the adapter's read goroutine.
type Callbacks struct {
	// OnOpen fires once the service is ready to receive audio.
	OnOpen func()
	// OnAudio delivers one base64-encoded PCM chunk of examiner speech.
	OnAudio func(b64 string)
	// OnInterrupted fires when the service abandons its current turn because
	// the candidate started speaking.
	OnInterrupted func()
	// OnClose fires exactly once when the session ends, however it ends.
	OnClose func(reason string)
	// OnError reports fatal session errors.
	OnError func(err error)
}
