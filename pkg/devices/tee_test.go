package devices

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestTeeSinkDuplicatesWrites(t *testing.T) {
	primary := NewMockSink(0)
	tap := NewMockSink(0)
	tee := NewTeeSink(primary, tap)

	if err := tee.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tee.WriteSamples([]float32{0.5, -0.5}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := tee.WriteSamples([]float32{0.25}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := tee.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if got := primary.Written(); len(got) != 3 {
		t.Fatalf("primary received %d samples, want 3", len(got))
	}
	if got := tap.Written(); len(got) != 3 {
		t.Fatalf("tap received %d samples, want 3", len(got))
	}
}

func TestTeeSinkTapFailureDoesNotDisturbPlayback(t *testing.T) {
	primary := NewMockSink(0)
	tap := failingSink{}
	tee := NewTeeSink(primary, tap)

	if err := tee.WriteSamples([]float32{0.1, 0.2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := primary.Written(); len(got) != 2 {
		t.Fatalf("primary received %d samples, want 2", len(got))
	}
}

func TestTeeSinkRecordsPlaybackToWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playback.wav")
	primary := NewMockSink(0)
	tap := NewWAVSink(path, primary.Rate())
	tee := NewTeeSink(primary, tap)

	if err := tee.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tee.WriteSamples(make([]float32, 480)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := tee.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	src, err := NewWAVSource(WAVSourceConfig{Path: path, Rate: primary.Rate()})
	if err != nil {
		t.Fatalf("reopen recording: %v", err)
	}
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("start source: %v", err)
	}
	total := 0
	for frame := range src.Frames() {
		total += len(frame)
	}
	if total != 480 {
		t.Fatalf("recording holds %d samples, want 480", total)
	}
}

type failingSink struct{}

func (failingSink) Name() string                    { return "failing" }
func (failingSink) Rate() int                       { return 48000 }
func (failingSink) Start(ctx context.Context) error { return nil }
func (failingSink) Stop() error                     { return nil }
func (failingSink) WriteSamples([]float32) error    { return errors.New("device gone") }
