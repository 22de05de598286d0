package audio

import "time"

// Buffer holds decoded per-channel float samples ready for playback.
type Buffer struct {
	Rate     int
	Channels [][]float32
}

func NewBuffer(rate, channels, perChannel int) *Buffer {
	chs := make([][]float32, channels)
	for i := range chs {
		chs[i] = make([]float32, perChannel)
	}
	return &Buffer{Rate: rate, Channels: chs}
}

// SampleCount returns the per-channel sample count.
func (b *Buffer) SampleCount() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration is the playback length at the buffer's rate.
func (b *Buffer) Duration() time.Duration {
	if b.Rate <= 0 {
		return 0
	}
	return time.Duration(b.SampleCount()) * time.Second / time.Duration(b.Rate)
}

// Mono returns the first channel, which is the full signal for mono buffers.
func (b *Buffer) Mono() []float32 {
	if len(b.Channels) == 0 {
		return nil
	}
	return b.Channels[0]
}
