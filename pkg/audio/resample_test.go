package audio

import "testing"

func TestResampleIdentity(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := Resample(in, 16000, 16000)
	if &out[0] != &in[0] {
		t.Fatalf("expected identity resample to return input")
	}
}

func TestResampleHalvesLength(t *testing.T) {
	in := make([]float32, 480)
	for i := range in {
		in[i] = float32(i) / 480
	}
	out := Resample(in, 48000, 16000)
	if len(out) != 160 {
		t.Fatalf("expected 160 samples, got %d", len(out))
	}
}

func TestFloatInt16RoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 1, -1}
	back := Int16ToFloat32(Float32ToInt16(in))
	for i := range in {
		diff := float64(back[i]) - float64(in[i])
		if diff > 1.0/32768 || diff < -1.0/32768 {
			t.Fatalf("sample %d drifted: in=%v back=%v", i, in[i], back[i])
		}
	}
}
