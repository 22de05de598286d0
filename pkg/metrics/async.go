package metrics

import (
	"sync"
	"sync/atomic"
)

// AsyncObserver decouples event producers from slow sinks. RecordEvent never
// blocks; events that arrive while the buffer is full are counted and
// dropped.
type AsyncObserver struct {
	inner   Observer
	ch      chan MetricsEvent
	dropped atomic.Int64
	closed  atomic.Bool
	once    sync.Once
	drained chan struct{}
}

func NewAsyncObserver(inner Observer, buffer int) *AsyncObserver {
	if buffer <= 0 {
		buffer = 256
	}
	a := &AsyncObserver{
		inner:   inner,
		ch:      make(chan MetricsEvent, buffer),
		drained: make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *AsyncObserver) RecordEvent(ev MetricsEvent) {
	if a == nil || a.closed.Load() {
		return
	}
	select {
	case a.ch <- ev:
	default:
		a.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded due to backpressure.
func (a *AsyncObserver) Dropped() int64 { return a.dropped.Load() }

// Close stops accepting events and waits for the buffer to drain.
func (a *AsyncObserver) Close() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		a.closed.Store(true)
		close(a.ch)
		<-a.drained
	})
}

func (a *AsyncObserver) loop() {
	defer close(a.drained)
	for ev := range a.ch {
		a.inner.RecordEvent(ev)
	}
}
