package mock

import (
	"context"
	"sync"
	"time"

	"github.com/verbalabs/verba/pkg/adapters/stt"
	"github.com/verbalabs/verba/pkg/errorsx"
	"github.com/verbalabs/verba/pkg/frames"
)

type STTConfig struct {
	SessionID string
	TraceID   string
	// Transcript is emitted as a final result after the first audio frame.
	Transcript string
	// StartErr makes Start fail, for caption resilience tests.
	StartErr error
}

// StreamingSTT is an in-memory transcriber for caption tests.
type StreamingSTT struct {
	cfg     STTConfig
	out     chan frames.Frame
	mu      sync.Mutex
	started bool
	emitted bool
	audio   [][]byte
}

func NewSTT(cfg STTConfig) *StreamingSTT {
	if cfg.Transcript == "" {
		cfg.Transcript = "mock transcript"
	}
	return &StreamingSTT{cfg: cfg, out: make(chan frames.Frame, 16)}
}

func (s *StreamingSTT) Name() string { return "mock_stt" }

func (s *StreamingSTT) Start(ctx context.Context) error {
	if s.cfg.StartErr != nil {
		return s.cfg.StartErr
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *StreamingSTT) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.started = false
	close(s.out)
	return nil
}

func (s *StreamingSTT) SendAudio(frame frames.AudioFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return errorsx.New(errorsx.ReasonCaptionSend, "not started")
	}
	s.audio = append(s.audio, frame.RawPayload())
	if s.emitted {
		return nil
	}
	s.emitted = true
	meta := map[string]string{
		frames.MetaSessionID: s.cfg.SessionID,
		frames.MetaSource:    "stt",
		frames.MetaIsFinal:   "true",
	}
	if s.cfg.TraceID != "" {
		meta[frames.MetaTraceID] = s.cfg.TraceID
	}
	f := frames.NewTextFrame(s.cfg.SessionID, time.Now().UnixNano(), s.cfg.Transcript, meta)
	select {
	case s.out <- f:
	default:
	}
	return nil
}

func (s *StreamingSTT) Results() <-chan frames.Frame { return s.out }

// Audio returns every payload received so far.
func (s *StreamingSTT) Audio() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.audio...)
}

var _ stt.StreamingSTT = (*StreamingSTT)(nil)
