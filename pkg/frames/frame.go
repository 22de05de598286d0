// Package frames carries timestamped audio and transcript payloads between
// the capture path and streaming transcription adapters.
package frames

import "sync"

type Kind string

const (
	KindAudio Kind = "audio"
	KindText  Kind = "text"
)

// Well-known meta keys shared across components.
const (
	MetaSessionID = "session_id"
	MetaTraceID   = "trace_id"
	MetaSource    = "source"
	MetaIsFinal   = "is_final"
)

// Frame is a unit of media flowing through a caption stream. PTS values are
// monotonic per session and only ordering matters; they are not wall-clock
// timestamps.
type Frame interface {
	Kind() Kind
	PTS() int64
	Meta() map[string]string
}

// AudioFrame wraps one capture frame of raw PCM16 bytes.
type AudioFrame struct {
	pts  int64
	data []byte
	rate int
	ch   int
	meta map[string]string
}

func NewAudioFrame(sessionID string, pts int64, data []byte, rate, ch int, meta map[string]string) AudioFrame {
	return AudioFrame{
		pts:  pts,
		data: data,
		rate: rate,
		ch:   ch,
		meta: withSession(sessionID, meta),
	}
}

func (a AudioFrame) Kind() Kind              { return KindAudio }
func (a AudioFrame) PTS() int64              { return a.pts }
func (a AudioFrame) Meta() map[string]string { return cloneMeta(a.meta) }
func (a AudioFrame) Rate() int               { return a.rate }
func (a AudioFrame) Channels() int           { return a.ch }

// RawPayload exposes the backing PCM slice without copying. Callers must not
// mutate it.
func (a AudioFrame) RawPayload() []byte { return a.data }

// TextFrame is one transcript hypothesis. Interim results carry
// MetaIsFinal="false" and may be superseded by a later frame.
type TextFrame struct {
	pts  int64
	text string
	meta map[string]string
}

func NewTextFrame(sessionID string, pts int64, text string, meta map[string]string) TextFrame {
	return TextFrame{
		pts:  pts,
		text: text,
		meta: withSession(sessionID, meta),
	}
}

func (t TextFrame) Kind() Kind              { return KindText }
func (t TextFrame) PTS() int64              { return t.pts }
func (t TextFrame) Meta() map[string]string { return cloneMeta(t.meta) }
func (t TextFrame) Text() string            { return t.text }

// PTSGen hands out strictly increasing presentation timestamps per session.
type PTSGen struct {
	mu   sync.Mutex
	next map[string]int64
}

func NewPTSGen() *PTSGen {
	return &PTSGen{next: make(map[string]int64)}
}

func (g *PTSGen) Next(sessionID string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next[sessionID]++
	return g.next[sessionID]
}

func withSession(sessionID string, meta map[string]string) map[string]string {
	out := make(map[string]string, 1+len(meta))
	if sessionID != "" {
		out[MetaSessionID] = sessionID
	}
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func cloneMeta(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
