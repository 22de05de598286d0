// Package metrics defines the event stream the session layer emits and a
// small set of composable observers that consume it.
package metrics

import "time"

// MetricsEvent is one observation. Tags identify the session it belongs to;
// Fields carry event-specific detail.
type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

// NoopObserver discards everything. It stands in when no observer is wired.
type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}
