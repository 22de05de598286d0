package devices

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/verbalabs/verba/pkg/audio"
)

// MockSource is an in-memory capture source for tests and offline runs.
type MockSource struct {
	frameCh chan []float32
	denied  bool
	rate    int
	closed  atomic.Bool
	mu      sync.Mutex
}

type MockSourceConfig struct {
	Rate   int
	Buffer int
	// Denied simulates a refused capture permission prompt.
	Denied bool
}

func NewMockSource(cfg MockSourceConfig) *MockSource {
	if cfg.Rate <= 0 {
		cfg.Rate = audio.CaptureRate
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	return &MockSource{
		frameCh: make(chan []float32, cfg.Buffer),
		denied:  cfg.Denied,
		rate:    cfg.Rate,
	}
}

func (s *MockSource) Name() string { return "mock" }
func (s *MockSource) Rate() int    { return s.rate }

func (s *MockSource) PermissionGranted() bool { return !s.denied }

func (s *MockSource) Start(ctx context.Context) error {
	if s.denied {
		return ErrPermissionDenied
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()
	return nil
}

func (s *MockSource) Stop() error {
	if s.closed.CompareAndSwap(false, true) {
		s.mu.Lock()
		close(s.frameCh)
		s.mu.Unlock()
	}
	return nil
}

func (s *MockSource) Frames() <-chan []float32 { return s.frameCh }

// Push injects a capture frame.
func (s *MockSource) Push(frame []float32) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return
	}
	select {
	case s.frameCh <- frame:
	default:
	}
}

// MockSink records written samples for inspection.
type MockSink struct {
	rate int

	mu      sync.Mutex
	samples []float32
	stopped bool
}

func NewMockSink(rate int) *MockSink {
	if rate <= 0 {
		rate = audio.PlaybackRate
	}
	return &MockSink{rate: rate}
}

func (s *MockSink) Name() string                    { return "mock" }
func (s *MockSink) Rate() int                       { return s.rate }
func (s *MockSink) Start(ctx context.Context) error { return nil }

func (s *MockSink) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return nil
}

func (s *MockSink) WriteSamples(samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.samples = append(s.samples, samples...)
	return nil
}

// Written returns a copy of everything played so far.
func (s *MockSink) Written() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float32(nil), s.samples...)
}
