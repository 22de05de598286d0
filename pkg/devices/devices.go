// Package devices abstracts the machine's audio endpoints behind source and
// sink interfaces so the session layer stays hardware-independent.
package devices

import (
	"context"

	"github.com/verbalabs/verba/pkg/errorsx"
)

// ErrPermissionDenied reports that capture access was refused by the user or
// platform. It disables connecting; it is never raised mid-session.
var ErrPermissionDenied = errorsx.New(errorsx.ReasonPermissionDenied, "capture permission denied")

// Source delivers fixed-size frames of float samples from a capture device.
type Source interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	// Rate is the native capture rate of the device.
	Rate() int
	// Frames yields capture frames; the channel closes when the source stops.
	Frames() <-chan []float32
}

// Sink consumes float samples for playback at a fixed rate.
type Sink interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Rate() int
	WriteSamples(samples []float32) error
}

// PermissionReporter is implemented by sources whose capture requires a user
// grant. Sources without it are always considered granted.
type PermissionReporter interface {
	PermissionGranted() bool
}

// Granted reports whether capture may begin on the source.
func Granted(s Source) bool {
	if pr, ok := s.(PermissionReporter); ok {
		return pr.PermissionGranted()
	}
	return true
}
