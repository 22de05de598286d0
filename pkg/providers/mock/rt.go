package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/verbalabs/verba/pkg/adapters/rt"
	"github.com/verbalabs/verba/pkg/audio"
	"github.com/verbalabs/verba/pkg/errorsx"
)

type RTConfig struct {
	// ConnectErr makes Connect fail, for error-path tests.
	ConnectErr error
	// OpenOnConnect fires OnOpen immediately after Connect returns.
	OpenOnConnect bool
	// Greeting chunks are delivered to OnAudio right after OnOpen.
	Greeting []string
}

// RealtimeSpeech is an in-memory realtime service for tests and offline runs.
// Tests drive inbound traffic through EmitAudio, EmitInterrupted and Fail.
type RealtimeSpeech struct {
	cfg RTConfig

	mu     sync.Mutex
	cb     rt.Callbacks
	sent   []audio.Blob
	closed atomic.Bool

	closeOnce sync.Once
}

func NewRT(cfg RTConfig) *RealtimeSpeech {
	return &RealtimeSpeech{cfg: cfg}
}

func (m *RealtimeSpeech) Name() string { return "mock_rt" }

func (m *RealtimeSpeech) Connect(ctx context.Context, cfg rt.Config, cb rt.Callbacks) error {
	if m.cfg.ConnectErr != nil {
		return m.cfg.ConnectErr
	}
	m.mu.Lock()
	m.cb = cb
	m.mu.Unlock()
	if m.cfg.OpenOnConnect || len(m.cfg.Greeting) > 0 {
		if cb.OnOpen != nil {
			cb.OnOpen()
		}
		for _, chunk := range m.cfg.Greeting {
			if cb.OnAudio != nil {
				cb.OnAudio(chunk)
			}
		}
	}
	return nil
}

func (m *RealtimeSpeech) SendRealtimeInput(blob audio.Blob) error {
	if m.closed.Load() {
		return errorsx.New(errorsx.ReasonRTClosed, "session closed")
	}
	m.mu.Lock()
	m.sent = append(m.sent, blob)
	m.mu.Unlock()
	return nil
}

func (m *RealtimeSpeech) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		m.fireClose("closed")
	}
	return nil
}

// Sent returns a copy of every blob streamed so far.
func (m *RealtimeSpeech) Sent() []audio.Blob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audio.Blob(nil), m.sent...)
}

// EmitOpen fires the open callback, for tests that defer session readiness.
func (m *RealtimeSpeech) EmitOpen() {
	m.mu.Lock()
	cb := m.cb
	m.mu.Unlock()
	if cb.OnOpen != nil {
		cb.OnOpen()
	}
}

// EmitAudio delivers an examiner speech chunk to the registered callbacks.
func (m *RealtimeSpeech) EmitAudio(b64 string) {
	m.mu.Lock()
	cb := m.cb
	m.mu.Unlock()
	if cb.OnAudio != nil {
		cb.OnAudio(b64)
	}
}

// EmitInterrupted signals that the examiner's turn was abandoned.
func (m *RealtimeSpeech) EmitInterrupted() {
	m.mu.Lock()
	cb := m.cb
	m.mu.Unlock()
	if cb.OnInterrupted != nil {
		cb.OnInterrupted()
	}
}

// Fail simulates a fatal mid-session error followed by the close event.
func (m *RealtimeSpeech) Fail(err error) {
	m.mu.Lock()
	cb := m.cb
	m.mu.Unlock()
	m.closed.Store(true)
	if cb.OnError != nil {
		cb.OnError(err)
	}
	m.fireClose(err.Error())
}

func (m *RealtimeSpeech) fireClose(reason string) {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		cb := m.cb
		m.mu.Unlock()
		if cb.OnClose != nil {
			cb.OnClose(reason)
		}
	})
}
