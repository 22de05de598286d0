// Package playback schedules decoded response chunks for gapless sequential
// playback against a running output clock.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/verbalabs/verba/pkg/audio"
	"github.com/verbalabs/verba/pkg/errorsx"
	"github.com/verbalabs/verba/pkg/logging"
)

// Handle controls one in-flight playback source.
type Handle interface {
	// Stop halts playback immediately. The completion callback must not fire
	// after Stop returns.
	Stop()
}

// Player starts playback of a buffer at a clock offset. The done callback is
// invoked exactly once on natural completion, never after Stop.
type Player interface {
	Start(buf *audio.Buffer, at time.Duration, done func()) (Handle, error)
}

// Scheduler pre-commits each chunk's start time to the end of the previous
// chunk rather than its arrival time, absorbing network jitter as long as
// chunks arrive faster than they play out.
type Scheduler struct {
	clock  Clock
	player Player
	log    *slog.Logger

	mu     sync.Mutex
	next   time.Duration
	seq    uint64
	active map[uint64]Handle

	onSpeaking func(bool)
}

func NewScheduler(clock Clock, player Player, log *slog.Logger) *Scheduler {
	return &Scheduler{
		clock:  clock,
		player: player,
		log:    logging.NewComponentLogger(log, "playback"),
		active: make(map[uint64]Handle),
	}
}

// SetSpeakingListener registers a callback fired when the examiner starts
// speaking (first active source) and when all queued audio has finished.
func (s *Scheduler) SetSpeakingListener(fn func(speaking bool)) {
	s.mu.Lock()
	s.onSpeaking = fn
	s.mu.Unlock()
}

// Schedule queues a decoded chunk back-to-back with the previously scheduled
// one, or at the current clock offset when the queue has idled.
func (s *Scheduler) Schedule(buf *audio.Buffer) error {
	s.mu.Lock()
	now := s.clock.Now()
	start := s.next
	if now > start {
		start = now
	}
	id := s.seq
	s.seq++

	handle, err := s.player.Start(buf, start, func() { s.complete(id) })
	if err != nil {
		s.mu.Unlock()
		return errorsx.Wrap(err, errorsx.ReasonPlaybackSink)
	}
	wasIdle := len(s.active) == 0
	s.active[id] = handle
	s.next = start + buf.Duration()
	notify := s.onSpeaking
	s.mu.Unlock()

	s.log.Debug("chunk scheduled",
		slog.Uint64("id", id),
		slog.Duration("start", start),
		slog.Duration("duration", buf.Duration()))

	if wasIdle && notify != nil {
		notify(true)
	}
	return nil
}

// Interrupt stops every active source, clears the queue, and resets the
// playback clock so the next chunk starts fresh.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	stopped := make([]Handle, 0, len(s.active))
	for _, h := range s.active {
		stopped = append(stopped, h)
	}
	hadActive := len(s.active) > 0
	s.active = make(map[uint64]Handle)
	s.next = 0
	notify := s.onSpeaking
	s.mu.Unlock()

	for _, h := range stopped {
		h.Stop()
	}
	if hadActive {
		s.log.Debug("playback interrupted", slog.Int("stopped", len(stopped)))
	}
	if notify != nil {
		notify(false)
	}
}

// Active returns the number of in-flight sources.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// NextStart exposes the committed start offset of the next chunk.
func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

func (s *Scheduler) complete(id uint64) {
	s.mu.Lock()
	if _, ok := s.active[id]; !ok {
		// Already interrupted.
		s.mu.Unlock()
		return
	}
	delete(s.active, id)
	idle := len(s.active) == 0
	notify := s.onSpeaking
	s.mu.Unlock()

	if idle && notify != nil {
		notify(false)
	}
}
