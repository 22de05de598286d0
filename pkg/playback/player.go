package playback

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/verbalabs/verba/pkg/audio"
)

// Writer consumes float samples at the sink's fixed rate.
type Writer interface {
	WriteSamples(samples []float32) error
}

const paceChunk = 20 * time.Millisecond

// PacedPlayer renders buffers against a real clock by writing fixed-size
// slices to the output writer and sleeping off the remainder of each slice.
type PacedPlayer struct {
	w     Writer
	clock Clock
	wg    sync.WaitGroup
}

func NewPacedPlayer(w Writer, clock Clock) *PacedPlayer {
	return &PacedPlayer{w: w, clock: clock}
}

func (p *PacedPlayer) Start(buf *audio.Buffer, at time.Duration, done func()) (Handle, error) {
	h := &pacedHandle{stop: make(chan struct{})}
	p.wg.Add(1)
	go p.run(buf, at, done, h)
	return h, nil
}

// Wait blocks until all started sources have finished or been stopped.
func (p *PacedPlayer) Wait() {
	p.wg.Wait()
}

func (p *PacedPlayer) run(buf *audio.Buffer, at time.Duration, done func(), h *pacedHandle) {
	defer p.wg.Done()

	if delay := at - p.clock.Now(); delay > 0 {
		select {
		case <-time.After(delay):
		case <-h.stop:
			return
		}
	}

	samples := buf.Mono()
	step := buf.Rate * int(paceChunk/time.Millisecond) / 1000
	if step <= 0 {
		step = len(samples)
	}
	for off := 0; off < len(samples); off += step {
		select {
		case <-h.stop:
			return
		default:
		}
		end := off + step
		if end > len(samples) {
			end = len(samples)
		}
		start := time.Now()
		if err := p.w.WriteSamples(samples[off:end]); err != nil {
			return
		}
		slice := time.Duration(end-off) * time.Second / time.Duration(buf.Rate)
		if sleep := slice - time.Since(start); sleep > 0 {
			select {
			case <-time.After(sleep):
			case <-h.stop:
				return
			}
		}
	}

	if h.stopped.Load() {
		return
	}
	done()
}

type pacedHandle struct {
	stop    chan struct{}
	stopped atomic.Bool
	once    sync.Once
}

func (h *pacedHandle) Stop() {
	h.once.Do(func() {
		h.stopped.Store(true)
		close(h.stop)
	})
}
