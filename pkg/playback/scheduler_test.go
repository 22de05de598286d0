package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/verbalabs/verba/pkg/audio"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

type fakeStart struct {
	at   time.Duration
	dur  time.Duration
	done func()
}

type fakeHandle struct{ stopped bool }

func (h *fakeHandle) Stop() { h.stopped = true }

type fakePlayer struct {
	mu      sync.Mutex
	starts  []*fakeStart
	handles []*fakeHandle
}

func (p *fakePlayer) Start(buf *audio.Buffer, at time.Duration, done func()) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := &fakeHandle{}
	p.starts = append(p.starts, &fakeStart{at: at, dur: buf.Duration(), done: done})
	p.handles = append(p.handles, h)
	return h, nil
}

func (p *fakePlayer) finish(i int) {
	p.mu.Lock()
	done := p.starts[i].done
	p.mu.Unlock()
	done()
}

func secondsBuffer(seconds float64) *audio.Buffer {
	n := int(seconds * float64(audio.PlaybackRate))
	return audio.NewBuffer(audio.PlaybackRate, 1, n)
}

func TestScheduleBackToBack(t *testing.T) {
	clock := &fakeClock{}
	player := &fakePlayer{}
	s := NewScheduler(clock, player, nil)

	if err := s.Schedule(secondsBuffer(1.0)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	// Second chunk arrives while the first is still playing.
	clock.Advance(200 * time.Millisecond)
	if err := s.Schedule(secondsBuffer(0.5)); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if got := player.starts[0].at; got != 0 {
		t.Fatalf("first chunk start: want 0, got %v", got)
	}
	if got := player.starts[1].at; got != time.Second {
		t.Fatalf("second chunk start: want 1s, got %v", got)
	}
	if got := s.NextStart(); got != 1500*time.Millisecond {
		t.Fatalf("next start: want 1.5s, got %v", got)
	}
}

func TestScheduleNonOverlap(t *testing.T) {
	clock := &fakeClock{}
	player := &fakePlayer{}
	s := NewScheduler(clock, player, nil)

	durations := []float64{0.3, 0.7, 0.25, 1.1}
	for _, d := range durations {
		if err := s.Schedule(secondsBuffer(d)); err != nil {
			t.Fatalf("schedule: %v", err)
		}
	}
	for i := 1; i < len(player.starts); i++ {
		prevEnd := player.starts[i-1].at + player.starts[i-1].dur
		if player.starts[i].at < prevEnd {
			t.Fatalf("chunk %d overlaps: start %v < previous end %v", i, player.starts[i].at, prevEnd)
		}
	}
}

func TestScheduleGapFillAfterIdle(t *testing.T) {
	clock := &fakeClock{}
	player := &fakePlayer{}
	s := NewScheduler(clock, player, nil)

	if err := s.Schedule(secondsBuffer(0.5)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	player.finish(0)

	// Clock ran past the end of the last chunk while nothing was queued.
	clock.Advance(3 * time.Second)
	if err := s.Schedule(secondsBuffer(0.5)); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if got := player.starts[1].at; got != 3*time.Second {
		t.Fatalf("expected fresh start at clock now (3s), got %v", got)
	}
}

func TestInterruptClearsState(t *testing.T) {
	clock := &fakeClock{}
	player := &fakePlayer{}
	s := NewScheduler(clock, player, nil)

	_ = s.Schedule(secondsBuffer(1.0))
	_ = s.Schedule(secondsBuffer(1.0))
	if s.Active() != 2 {
		t.Fatalf("expected 2 active sources, got %d", s.Active())
	}

	clock.Advance(400 * time.Millisecond)
	s.Interrupt()

	if s.Active() != 0 {
		t.Fatalf("expected no active sources after interrupt, got %d", s.Active())
	}
	if got := s.NextStart(); got != 0 {
		t.Fatalf("expected next start reset to 0, got %v", got)
	}
	for i, h := range player.handles {
		if !h.stopped {
			t.Fatalf("expected handle %d stopped", i)
		}
	}

	// The next chunk starts at the current clock offset, not a stale end time.
	_ = s.Schedule(secondsBuffer(0.5))
	if got := player.starts[2].at; got != 400*time.Millisecond {
		t.Fatalf("expected post-interrupt start at 400ms, got %v", got)
	}
}

func TestSpeakingListener(t *testing.T) {
	clock := &fakeClock{}
	player := &fakePlayer{}
	s := NewScheduler(clock, player, nil)

	var mu sync.Mutex
	var events []bool
	s.SetSpeakingListener(func(speaking bool) {
		mu.Lock()
		events = append(events, speaking)
		mu.Unlock()
	})

	_ = s.Schedule(secondsBuffer(0.5))
	_ = s.Schedule(secondsBuffer(0.5))
	player.finish(0)
	player.finish(1)

	mu.Lock()
	defer mu.Unlock()
	want := []bool{true, false}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events)
		}
	}
}

func TestCompletionAfterInterruptIsIgnored(t *testing.T) {
	clock := &fakeClock{}
	player := &fakePlayer{}
	s := NewScheduler(clock, player, nil)

	var mu sync.Mutex
	events := 0
	s.SetSpeakingListener(func(bool) {
		mu.Lock()
		events++
		mu.Unlock()
	})

	_ = s.Schedule(secondsBuffer(0.5))
	s.Interrupt()
	before := events
	player.finish(0) // late natural completion of a stopped source
	mu.Lock()
	defer mu.Unlock()
	if events != before {
		t.Fatalf("late completion should not emit further events")
	}
}
