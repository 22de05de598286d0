package observers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/verbalabs/verba/pkg/metrics"
)

// LatencyObserver tracks per-session connection timings: how long the
// service takes to accept the session and how long until the examiner's
// first audio chunk arrives. A summary line is logged when the session ends.
type LatencyObserver struct {
	mu       sync.Mutex
	sessions map[string]*sessionTrace
	log      *slog.Logger
}

type sessionTrace struct {
	connectAt  time.Time
	openAt     time.Time
	firstAudio time.Time
	interrupts int
	codecDrops int
}

func NewLatencyObserver(log *slog.Logger) *LatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LatencyObserver{
		sessions: make(map[string]*sessionTrace),
		log:      log,
	}
}

func (o *LatencyObserver) RecordEvent(ev metrics.MetricsEvent) {
	sessionID := ""
	if ev.Tags != nil {
		sessionID = ev.Tags["session_id"]
	}
	if sessionID == "" {
		return
	}
	o.mu.Lock()
	t := o.sessions[sessionID]
	if t == nil {
		t = &sessionTrace{}
		o.sessions[sessionID] = t
	}
	switch ev.Name {
	case metrics.EventSessionConnect:
		if t.connectAt.IsZero() {
			t.connectAt = ev.Time
		}
	case metrics.EventSessionOpen:
		if t.openAt.IsZero() {
			t.openAt = ev.Time
		}
	case metrics.EventFirstAudioMS:
		if t.firstAudio.IsZero() {
			t.firstAudio = ev.Time
		}
	case metrics.EventInterrupted:
		t.interrupts++
	case metrics.EventCodecError:
		t.codecDrops++
	case metrics.EventSessionClose, metrics.EventSessionError:
		o.logSummaryLocked(sessionID, t, ev)
		delete(o.sessions, sessionID)
	}
	o.mu.Unlock()
}

func (o *LatencyObserver) logSummaryLocked(sessionID string, t *sessionTrace, last metrics.MetricsEvent) {
	o.log.Info("session_latency",
		"session_id", sessionID,
		"open_ms", durationMs(t.connectAt, t.openAt),
		"first_audio_ms", durationMs(t.openAt, t.firstAudio),
		"duration_ms", durationMs(t.connectAt, last.Time),
		"interrupts", t.interrupts,
		"codec_drops", t.codecDrops,
		"outcome", last.Name,
	)
}

func durationMs(a, b time.Time) int64 {
	if a.IsZero() || b.IsZero() {
		return -1
	}
	return b.Sub(a).Milliseconds()
}

var _ metrics.Observer = (*LatencyObserver)(nil)
