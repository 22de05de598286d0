package metrics

import (
	"math"
	"sync/atomic"
)

// SamplingObserver forwards roughly rate*N of N events to the inner
// observer. Rate 1 passes everything through; rate 0 discards everything.
type SamplingObserver struct {
	inner   Observer
	every   uint64
	counter atomic.Uint64
}

func NewSamplingObserver(inner Observer, rate float64) *SamplingObserver {
	var every uint64
	switch {
	case rate <= 0:
		every = 0
	case rate >= 1:
		every = 1
	default:
		every = uint64(math.Round(1.0 / rate))
		if every == 0 {
			every = 1
		}
	}
	return &SamplingObserver{inner: inner, every: every}
}

func (s *SamplingObserver) RecordEvent(ev MetricsEvent) {
	switch s.every {
	case 0:
		return
	case 1:
		s.inner.RecordEvent(ev)
	default:
		if s.counter.Add(1)%s.every == 0 {
			s.inner.RecordEvent(ev)
		}
	}
}
