// Package session owns the exam session lifecycle: connecting the realtime
// service, pumping capture audio out, and routing response audio into the
// playback scheduler.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verbalabs/verba/pkg/adapters/rt"
	"github.com/verbalabs/verba/pkg/audio"
	"github.com/verbalabs/verba/pkg/captions"
	"github.com/verbalabs/verba/pkg/devices"
	"github.com/verbalabs/verba/pkg/errorsx"
	"github.com/verbalabs/verba/pkg/logging"
	"github.com/verbalabs/verba/pkg/metrics"
	"github.com/verbalabs/verba/pkg/playback"
	"github.com/verbalabs/verba/pkg/vad"
)

type Config struct {
	SessionID   string
	Model       string
	Voice       string
	Instruction string
	// QueueSize bounds the outbound backlog buffered before the service
	// confirms the session open.
	QueueSize int

	Source  devices.Source
	Sink    devices.Sink
	Service rt.RealtimeSpeech
	// Captioner is optional; nil disables the caption sidecar.
	Captioner *captions.Captioner

	Observer metrics.Observer
	Logger   *slog.Logger

	// Clock and Player override the playback path, for tests.
	Clock  playback.Clock
	Player playback.Player
}

// Controller is the session state owner. One Controller serves one user and
// may run many sessions sequentially; it never reconnects on its own.
type Controller struct {
	cfg       Config
	fsm       *stateMachine
	queue     *sendQueue
	scheduler *playback.Scheduler
	player    *playback.PacedPlayer
	detector  *vad.Detector
	logger    *slog.Logger
	obs       metrics.Observer

	flushMu sync.Mutex

	mu            sync.Mutex
	captureCancel context.CancelFunc
	tornDown      bool
	connectedAt   time.Time
	gotFirstAudio bool

	userSpeaking     func(bool)
	examinerSpeaking func(bool)
}

func NewController(cfg Config) *Controller {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = metrics.NoopObserver{}
	}
	logger := logging.NewComponentLogger(cfg.Logger, "session")

	clock := cfg.Clock
	if clock == nil {
		clock = playback.NewMonotonicClock()
	}
	var pacedPlayer *playback.PacedPlayer
	player := cfg.Player
	if player == nil {
		pacedPlayer = playback.NewPacedPlayer(cfg.Sink, clock)
		player = pacedPlayer
	}

	c := &Controller{
		cfg:       cfg,
		fsm:       newStateMachine(),
		queue:     newSendQueue(cfg.QueueSize),
		scheduler: playback.NewScheduler(clock, player, logger),
		player:    pacedPlayer,
		detector:  vad.New(vad.Options{}),
		logger:    logger,
		obs:       cfg.Observer,
		tornDown:  true,
	}
	c.scheduler.SetSpeakingListener(c.onExaminerSpeaking)
	return c
}

func (c *Controller) SessionID() string { return c.cfg.SessionID }

func (c *Controller) Status() Status { return c.fsm.Status() }

func (c *Controller) OnStatus(l StatusListener) { c.fsm.AddListener(l) }

// SetUserSpeakingListener registers the candidate activity indicator.
func (c *Controller) SetUserSpeakingListener(fn func(speaking bool)) {
	c.mu.Lock()
	c.userSpeaking = fn
	c.mu.Unlock()
}

// SetExaminerSpeakingListener registers the examiner activity indicator.
func (c *Controller) SetExaminerSpeakingListener(fn func(speaking bool)) {
	c.mu.Lock()
	c.examinerSpeaking = fn
	c.mu.Unlock()
}

func (c *Controller) onExaminerSpeaking(on bool) {
	if on {
		c.record(metrics.EventPlaybackStarted, 0, nil)
	}
	c.mu.Lock()
	fn := c.examinerSpeaking
	c.mu.Unlock()
	if fn != nil {
		fn(on)
	}
}

// Scheduler exposes playback state for the presentation layer.
func (c *Controller) Scheduler() *playback.Scheduler { return c.scheduler }

// Connect opens the devices and the realtime session. Capture permission
// must already be granted; a denied source fails without a state change so
// connect stays available once the user grants access.
func (c *Controller) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !devices.Granted(c.cfg.Source) {
		c.logger.Warn("connect_blocked_permission", "session_id", c.cfg.SessionID)
		return devices.ErrPermissionDenied
	}
	if !c.fsm.Transition(StatusConnecting, "user_connect") {
		return nil
	}
	c.mu.Lock()
	c.tornDown = false
	c.gotFirstAudio = false
	c.connectedAt = time.Time{}
	c.mu.Unlock()
	c.detector.Reset()
	c.record(metrics.EventSessionConnect, 0, nil)

	if err := c.cfg.Source.Start(ctx); err != nil {
		c.fail(err, "source_start")
		return err
	}
	if c.cfg.Sink != nil {
		if err := c.cfg.Sink.Start(ctx); err != nil {
			c.fail(err, "sink_start")
			return err
		}
	}
	if c.cfg.Captioner != nil {
		if err := c.cfg.Captioner.Start(ctx); err != nil {
			// Captions are best-effort; the session proceeds without them.
			c.logger.Warn("captions_unavailable",
				"session_id", c.cfg.SessionID, "error", err.Error())
		}
	}

	captureCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.captureCancel = cancel
	c.mu.Unlock()
	go c.captureLoop(captureCtx)

	err := c.cfg.Service.Connect(ctx, rt.Config{
		SessionID:   c.cfg.SessionID,
		Model:       c.cfg.Model,
		Instruction: c.cfg.Instruction,
		Voice:       c.cfg.Voice,
	}, rt.Callbacks{
		OnOpen:        c.onOpen,
		OnAudio:       c.onAudio,
		OnInterrupted: c.onInterrupted,
		OnClose:       c.onClose,
		OnError:       c.onError,
	})
	if err != nil {
		c.fail(err, "service_connect")
		return err
	}
	c.logger.Info("session_connecting", "session_id", c.cfg.SessionID,
		"service", c.cfg.Service.Name())
	return nil
}

// Disconnect is the user-initiated teardown. Safe to call repeatedly and
// from any state.
func (c *Controller) Disconnect() {
	applied := c.fsm.Transition(StatusDisconnected, "user_disconnect")
	c.teardown()
	if applied {
		c.record(metrics.EventSessionClose, 0, map[string]string{"reason": "user_disconnect"})
		c.logger.Info("session_disconnected", "session_id", c.cfg.SessionID)
	}
}

func (c *Controller) onOpen() {
	if !c.fsm.Transition(StatusConnected, "service_open") {
		return
	}
	c.mu.Lock()
	c.connectedAt = time.Now()
	c.mu.Unlock()
	c.record(metrics.EventSessionOpen, 0, nil)
	c.flushBacklog()
	c.logger.Info("session_open", "session_id", c.cfg.SessionID)
}

// flushBacklog sends every chunk queued before the service opened. The lock
// serializes flushes from onOpen and from the capture path so chunk order
// stays stable.
func (c *Controller) flushBacklog() {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()
	backlog := c.queue.Drain()
	for _, blob := range backlog {
		if err := c.cfg.Service.SendRealtimeInput(blob); err != nil {
			c.logger.Warn("backlog_send_failed",
				"session_id", c.cfg.SessionID, "error", err.Error())
			break
		}
	}
	if n := len(backlog); n > 0 {
		c.record(metrics.EventQueueFlush, float64(n), nil)
		c.logger.Info("outbound_backlog_flushed",
			"session_id", c.cfg.SessionID, "chunks", n, "dropped", c.queue.Dropped())
	}
}

func (c *Controller) onAudio(b64 string) {
	pcm, err := audio.DecodeBlob(b64)
	if err == nil {
		var buf *audio.Buffer
		buf, err = audio.DecodePlayable(pcm, audio.PlaybackRate, 1)
		if err == nil {
			c.markFirstAudio()
			if serr := c.scheduler.Schedule(buf); serr != nil {
				c.logger.Warn("schedule_failed",
					"session_id", c.cfg.SessionID, "error", serr.Error())
			}
			return
		}
	}
	// Malformed chunks are dropped; the session itself stays healthy.
	c.record(metrics.EventCodecError, 0, map[string]string{"error": err.Error()})
	c.logger.Warn("inbound_chunk_dropped",
		"session_id", c.cfg.SessionID,
		"truncated", errorsx.HasReason(err, errorsx.ReasonCodecTruncatedFrame),
		"error", err.Error())
}

func (c *Controller) onInterrupted() {
	c.logger.Info("examiner_interrupted", "session_id", c.cfg.SessionID)
	c.record(metrics.EventInterrupted, 0, nil)
	c.scheduler.Interrupt()
}

func (c *Controller) onClose(reason string) {
	// A close event trailing a fatal error must not downgrade ERROR.
	if c.fsm.Status() == StatusError {
		c.teardown()
		return
	}
	if c.fsm.Transition(StatusDisconnected, reason) {
		c.record(metrics.EventSessionClose, 0, map[string]string{"reason": reason})
		c.logger.Info("session_closed", "session_id", c.cfg.SessionID, "reason", reason)
	}
	c.teardown()
}

func (c *Controller) onError(err error) {
	if c.fsm.Transition(StatusError, "service_error") {
		c.record(metrics.EventSessionError, 0, map[string]string{"error": err.Error()})
		c.logger.Error("session_error", "session_id", c.cfg.SessionID, "error", err.Error())
	}
	c.teardown()
}

// fail handles synchronous connect failures: tear down whatever partially
// initialized and surface the error state.
func (c *Controller) fail(err error, stage string) {
	c.fsm.Transition(StatusError, stage)
	c.record(metrics.EventSessionError, 0, map[string]string{"error": err.Error(), "stage": stage})
	c.logger.Error("connect_failed", "session_id", c.cfg.SessionID,
		"stage", stage, "error", err.Error())
	c.teardown()
}

func (c *Controller) captureLoop(ctx context.Context) {
	framesCh := c.cfg.Source.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-framesCh:
			if !ok {
				return
			}
			c.handleFrame(frame)
		}
	}
}

func (c *Controller) handleFrame(frame []float32) {
	level := audio.RMS(frame)
	before := c.detector.Speaking()
	after := c.detector.ObserveLevel(level)
	if before != after {
		c.mu.Lock()
		fn := c.userSpeaking
		c.mu.Unlock()
		if fn != nil {
			fn(after)
		}
	}

	pcm := audio.EncodePCM(frame)
	if c.cfg.Captioner != nil {
		c.cfg.Captioner.Feed(pcm)
	}

	blob := audio.EncodeFrame(frame)
	if c.fsm.Status() == StatusConnected {
		if err := c.cfg.Service.SendRealtimeInput(blob); err != nil {
			c.logger.Warn("send_failed",
				"session_id", c.cfg.SessionID, "error", err.Error())
		}
		return
	}
	c.queue.Push(blob)
	// The service may have opened between the status check and the push, with
	// the backlog already drained. Re-check so the frame is not stranded.
	if c.fsm.Status() == StatusConnected {
		c.flushBacklog()
	}
}

func (c *Controller) markFirstAudio() {
	c.mu.Lock()
	first := !c.gotFirstAudio
	c.gotFirstAudio = true
	connectedAt := c.connectedAt
	c.mu.Unlock()
	if first && !connectedAt.IsZero() {
		c.record(metrics.EventFirstAudioMS,
			float64(time.Since(connectedAt).Milliseconds()), nil)
	}
}

// teardown releases everything the session holds. It tolerates partial
// initialization and repeated invocation.
func (c *Controller) teardown() {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return
	}
	c.tornDown = true
	cancel := c.captureCancel
	c.captureCancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.scheduler.Interrupt()
	if c.cfg.Service != nil {
		_ = c.cfg.Service.Close()
	}
	if c.cfg.Captioner != nil {
		_ = c.cfg.Captioner.Close()
	}
	if c.cfg.Source != nil {
		_ = c.cfg.Source.Stop()
	}
	if c.player != nil {
		c.player.Wait()
	}
	if c.cfg.Sink != nil {
		_ = c.cfg.Sink.Stop()
	}
}

func (c *Controller) record(name string, value float64, tags map[string]string) {
	if tags == nil {
		tags = map[string]string{}
	}
	tags["session_id"] = c.cfg.SessionID
	c.obs.RecordEvent(metrics.MetricsEvent{
		Name:  name,
		Time:  time.Now(),
		Value: value,
		Tags:  tags,
	})
}
