package devices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verbalabs/verba/pkg/errorsx"
)

func TestMockSourceDeniedPermission(t *testing.T) {
	src := NewMockSource(MockSourceConfig{Denied: true})
	if Granted(src) {
		t.Fatal("expected permission to be denied")
	}
	err := src.Start(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errorsx.HasReason(err, errorsx.ReasonPermissionDenied) {
		t.Fatalf("missing permission reason: %v", err)
	}
}

func TestMockSourceDeliversFrames(t *testing.T) {
	src := NewMockSource(MockSourceConfig{Buffer: 4})
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	frame := []float32{0.1, 0.2, 0.3}
	src.Push(frame)

	select {
	case got := <-src.Frames():
		if len(got) != len(frame) {
			t.Fatalf("frame length = %d, want %d", len(got), len(frame))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestMockSinkRecordsSamples(t *testing.T) {
	sink := NewMockSink(0)
	if err := sink.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sink.WriteSamples([]float32{0.5, -0.5}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.WriteSamples([]float32{0.25}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := len(sink.Written()); got != 3 {
		t.Fatalf("written = %d samples, want 3", got)
	}
}

func TestToneSourceStopClosesFrames(t *testing.T) {
	src := NewToneSource(ToneSourceConfig{SpeakFor: time.Second, SilentFor: time.Second})
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-src.Frames():
	case <-time.After(2 * time.Second):
		t.Fatal("no frame before stop")
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-src.Frames():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("frames channel never closed after stop")
		}
	}
}

func TestToneSourceStopBeforeFirstFrame(t *testing.T) {
	src := NewToneSource(ToneSourceConfig{})
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	for range src.Frames() {
	}
}
