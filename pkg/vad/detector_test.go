package vad

import "testing"

func TestDetectorThreshold(t *testing.T) {
	d := New(Options{})

	loud := make([]float32, 4096)
	for i := range loud {
		loud[i] = 0.05
	}
	if !d.Observe(loud) {
		t.Fatalf("expected speaking at RMS 0.05")
	}

	silence := make([]float32, 4096)
	if d.Observe(silence) {
		t.Fatalf("expected silent at RMS 0")
	}
}

func TestDetectorHysteresis(t *testing.T) {
	d := New(Options{SpeechFrames: 3, SilenceFrames: 2})

	if d.ObserveLevel(0.05) {
		t.Fatalf("one loud frame should not trigger with 3-frame hysteresis")
	}
	d.ObserveLevel(0.05)
	if !d.ObserveLevel(0.05) {
		t.Fatalf("expected speaking after 3 loud frames")
	}

	if !d.ObserveLevel(0.001) {
		t.Fatalf("one quiet frame should not end speech with 2-frame hysteresis")
	}
	if d.ObserveLevel(0.001) {
		t.Fatalf("expected silent after 2 quiet frames")
	}
}

func TestDetectorReset(t *testing.T) {
	d := New(Options{})
	d.ObserveLevel(0.5)
	if !d.Speaking() {
		t.Fatalf("expected speaking")
	}
	d.Reset()
	if d.Speaking() {
		t.Fatalf("expected reset to clear state")
	}
}
