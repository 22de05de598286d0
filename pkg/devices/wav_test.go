package devices

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/verbalabs/verba/pkg/audio"
)

func TestWAVSinkSourceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.wav")

	sink := NewWAVSink(path, audio.CaptureRate)
	if err := sink.Start(context.Background()); err != nil {
		t.Fatalf("sink start: %v", err)
	}
	tone := make([]float32, audio.CaptureRate/2)
	for i := range tone {
		tone[i] = 0.5 * float32(math.Sin(2*math.Pi*440*float64(i)/float64(audio.CaptureRate)))
	}
	if err := sink.WriteSamples(tone); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Stop(); err != nil {
		t.Fatalf("sink stop: %v", err)
	}
	if err := sink.Stop(); err != nil {
		t.Fatalf("second sink stop: %v", err)
	}

	src, err := NewWAVSource(WAVSourceConfig{Path: path})
	if err != nil {
		t.Fatalf("open source: %v", err)
	}
	if src.Rate() != audio.CaptureRate {
		t.Fatalf("rate = %d, want %d", src.Rate(), audio.CaptureRate)
	}
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("source start: %v", err)
	}

	var total int
	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame, ok := <-src.Frames():
			if !ok {
				if total < len(tone) {
					t.Fatalf("replayed %d samples, want at least %d", total, len(tone))
				}
				return
			}
			if len(frame) != audio.FrameSamples {
				t.Fatalf("frame size = %d, want %d", len(frame), audio.FrameSamples)
			}
			total += len(frame)
		case <-deadline:
			t.Fatal("timed out draining wav source")
		}
	}
}

func TestWAVSourceRejectsMissingFile(t *testing.T) {
	if _, err := NewWAVSource(WAVSourceConfig{Path: filepath.Join(t.TempDir(), "missing.wav")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWAVSourceStopDuringReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.wav")
	sink := NewWAVSink(path, audio.CaptureRate)
	if err := sink.Start(context.Background()); err != nil {
		t.Fatalf("sink start: %v", err)
	}
	if err := sink.WriteSamples(make([]float32, audio.FrameSamples*4)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Stop(); err != nil {
		t.Fatalf("sink stop: %v", err)
	}

	// Looping replay keeps the producer mid-send while Stop races it.
	for i := 0; i < 10; i++ {
		src, err := NewWAVSource(WAVSourceConfig{Path: path, Loop: true})
		if err != nil {
			t.Fatalf("open source: %v", err)
		}
		if err := src.Start(context.Background()); err != nil {
			t.Fatalf("source start: %v", err)
		}
		select {
		case <-src.Frames():
		case <-time.After(2 * time.Second):
			t.Fatal("no frame before stop")
		}
		if err := src.Stop(); err != nil {
			t.Fatalf("stop: %v", err)
		}
		// Buffered frames may remain; the channel must still close.
		for range src.Frames() {
		}
		if err := src.Stop(); err != nil {
			t.Fatalf("second stop: %v", err)
		}
	}
}
