// Package captions runs the optional live-caption sidecar. It transcribes
// the candidate's capture audio so the presentation layer can show what the
// service is hearing. Captions are best-effort; their failures never affect
// the exam session.
package captions

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/verbalabs/verba/pkg/adapters/stt"
	"github.com/verbalabs/verba/pkg/errorsx"
	"github.com/verbalabs/verba/pkg/frames"
	"github.com/verbalabs/verba/pkg/logging"
	"github.com/verbalabs/verba/pkg/redact"
	"github.com/verbalabs/verba/pkg/resilience"
)

// Caption is one transcribed line of candidate speech.
type Caption struct {
	Text  string
	Final bool
	At    time.Time
}

type Config struct {
	SessionID  string
	SampleRate int
	// ConnectRetries and ConnectBackoff bound the connect retry loop.
	ConnectRetries int
	ConnectBackoff time.Duration
	// BreakerThreshold and BreakerCooldown guard against rate-limited sends.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

type Captioner struct {
	cfg     Config
	adapter stt.StreamingSTT
	logger  *slog.Logger

	retry   resilience.RetryPolicy
	breaker *resilience.CircuitBreaker

	lines   chan Caption
	pts     *frames.PTSGen
	started atomic.Bool
	closed  atomic.Bool
	wg      sync.WaitGroup
}

func New(adapter stt.StreamingSTT, cfg Config) *Captioner {
	return &Captioner{
		cfg:     cfg,
		adapter: adapter,
		logger:  logging.NewComponentLogger(slog.Default(), "captions"),
		retry:   resilience.NewRetryPolicy(cfg.ConnectRetries, cfg.ConnectBackoff),
		breaker: resilience.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		lines:   make(chan Caption, 64),
		pts:     frames.NewPTSGen(),
	}
}

// Start connects the transcriber, retrying transient failures, and begins
// draining its results.
func (c *Captioner) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return nil
	}
	err := c.retry.Do(ctx, func() error {
		return c.adapter.Start(ctx)
	})
	if err != nil {
		c.started.Store(false)
		return errorsx.Wrap(err, errorsx.ReasonCaptionConnect)
	}
	c.wg.Add(1)
	go c.drain()
	c.logger.Info("captions_started",
		slog.String("session_id", c.cfg.SessionID),
		slog.String("adapter", c.adapter.Name()))
	return nil
}

// Feed forwards one capture chunk to the transcriber. Sends are dropped
// while the breaker is open.
func (c *Captioner) Feed(pcm []byte) {
	if !c.started.Load() || c.closed.Load() {
		return
	}
	if !c.breaker.Allow() {
		return
	}
	f := frames.NewAudioFrame(c.cfg.SessionID, c.pts.Next(c.cfg.SessionID), pcm, c.cfg.SampleRate, 1, map[string]string{
		frames.MetaSource: "capture",
	})
	if err := c.adapter.SendAudio(f); err != nil {
		c.breaker.OnError(err)
		c.logger.Warn("caption_send_failed",
			slog.String("session_id", c.cfg.SessionID),
			slog.String("error", err.Error()))
		return
	}
	c.breaker.OnSuccess()
}

// Lines yields captions as they arrive. The channel closes on Close.
func (c *Captioner) Lines() <-chan Caption { return c.lines }

func (c *Captioner) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.adapter.Close()
	c.wg.Wait()
	close(c.lines)
	return err
}

func (c *Captioner) drain() {
	defer c.wg.Done()
	for f := range c.adapter.Results() {
		tf, ok := f.(frames.TextFrame)
		if !ok {
			continue
		}
		final := tf.Meta()[frames.MetaIsFinal] == "true"
		c.logger.Debug("caption_line",
			slog.String("session_id", c.cfg.SessionID),
			slog.String("text", redact.Text(tf.Text())),
			slog.Bool("final", final))
		select {
		case c.lines <- Caption{Text: tf.Text(), Final: final, At: time.Now()}:
		default:
		}
	}
}
