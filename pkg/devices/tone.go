package devices

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/verbalabs/verba/pkg/audio"
)

// ToneSource synthesizes a paced sine tone interleaved with silence. It
// stands in for a microphone during offline runs: the tone segments read as
// candidate speech to the activity detector.
type ToneSource struct {
	rate      int
	freq      float64
	amplitude float64
	speakFor  time.Duration
	silentFor time.Duration

	frameCh chan []float32

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	closed  bool
}

type ToneSourceConfig struct {
	Rate      int
	Frequency float64
	Amplitude float64
	SpeakFor  time.Duration
	SilentFor time.Duration
}

func NewToneSource(cfg ToneSourceConfig) *ToneSource {
	if cfg.Rate <= 0 {
		cfg.Rate = audio.CaptureRate
	}
	if cfg.Frequency <= 0 {
		cfg.Frequency = 440
	}
	if cfg.Amplitude <= 0 {
		cfg.Amplitude = 0.1
	}
	if cfg.SpeakFor <= 0 {
		cfg.SpeakFor = 2 * time.Second
	}
	if cfg.SilentFor <= 0 {
		cfg.SilentFor = 3 * time.Second
	}
	return &ToneSource{
		rate:      cfg.Rate,
		freq:      cfg.Frequency,
		amplitude: cfg.Amplitude,
		speakFor:  cfg.SpeakFor,
		silentFor: cfg.SilentFor,
		frameCh:   make(chan []float32, 16),
	}
}

func (s *ToneSource) Name() string { return "tone" }
func (s *ToneSource) Rate() int    { return s.rate }

func (s *ToneSource) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.closed || s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()
	go s.run(ctx)
	return nil
}

// Stop cancels the synth goroutine and waits for it to exit. Only the
// goroutine closes the frame channel, so a Stop racing a send is safe.
func (s *ToneSource) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	started := s.started
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if started {
		<-done
	} else {
		close(s.frameCh)
	}
	return nil
}

func (s *ToneSource) Frames() <-chan []float32 { return s.frameCh }

func (s *ToneSource) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.frameCh)
	frameDur := time.Duration(audio.FrameSamples) * time.Second / time.Duration(s.rate)
	ticker := time.NewTicker(frameDur)
	defer ticker.Stop()

	var phase float64
	speaking := true
	flip := time.Now().Add(s.speakFor)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if time.Now().After(flip) {
			speaking = !speaking
			if speaking {
				flip = time.Now().Add(s.speakFor)
			} else {
				flip = time.Now().Add(s.silentFor)
			}
		}

		frame := make([]float32, audio.FrameSamples)
		if speaking {
			step := 2 * math.Pi * s.freq / float64(s.rate)
			for i := range frame {
				frame[i] = float32(s.amplitude * math.Sin(phase))
				phase += step
			}
		}
		select {
		case s.frameCh <- frame:
		default:
		}
	}
}
