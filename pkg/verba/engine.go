// Package verba wires the exam practice engine: config, providers,
// observability, and per-session assembly.
package verba

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verbalabs/verba/pkg/captions"
	"github.com/verbalabs/verba/pkg/devices"
	"github.com/verbalabs/verba/pkg/exam"
	"github.com/verbalabs/verba/pkg/logging"
	"github.com/verbalabs/verba/pkg/metrics"
	"github.com/verbalabs/verba/pkg/observers"
	"github.com/verbalabs/verba/pkg/redact"
	"github.com/verbalabs/verba/pkg/runner"
	"github.com/verbalabs/verba/pkg/session"
	"github.com/verbalabs/verba/pkg/ui"
)

type Engine struct {
	cfg         Config
	providers   *ProviderRegistry
	asyncObs    *metrics.AsyncObserver
	timeline    *observers.TimelineObserver
	runner      runner.Runner
	logger      *slog.Logger
	metricsFile *os.File
}

type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
}

func NewEngine(opts EngineOptions) *Engine {
	cfg := opts.Config
	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	redact.SetEnabled(cfg.Privacy.RedactPII)

	logger.Info("verba_init",
		"environment", cfg.Environment,
		"service", cfg.Service.Provider,
		"source", cfg.Devices.Source.Provider,
		"captions", cfg.Captions.Enabled,
	)

	latencyObs := observers.NewLatencyObserver(logger)
	logObs := observers.NewLoggerObserver(logger)
	obsList := []metrics.Observer{latencyObs, logObs}
	var timelineObs *observers.TimelineObserver
	var metricsFile *os.File
	if dir := strings.TrimSpace(cfg.Observability.ArtifactsDir); dir != "" {
		if cfg.Observability.RetentionDays > 0 {
			_, _ = observers.PurgeArtifacts(dir, time.Duration(cfg.Observability.RetentionDays)*24*time.Hour)
		}
		timelineObs = observers.NewTimelineObserver(dir)
		obsList = append(obsList, timelineObs)

		if err := os.MkdirAll(dir, 0o755); err == nil {
			f, err := os.OpenFile(filepath.Join(dir, "metrics.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				logger.Warn("metrics_stream_unavailable", "error", err)
			} else {
				metricsFile = f
				var stream metrics.Observer = metrics.NewJSONLObserver(f)
				if rate := cfg.Observability.MetricsSampleRate; rate > 0 && rate < 1 {
					stream = metrics.NewSamplingObserver(stream, rate)
				}
				obsList = append(obsList, stream)
			}
		}
	}
	asyncObs := metrics.NewAsyncObserver(observers.NewMultiObserver(obsList...), 2048)

	providers := opts.Providers
	if providers == nil {
		providers = NewProviderRegistry()
	}

	e := &Engine{
		cfg:         cfg,
		providers:   providers,
		asyncObs:    asyncObs,
		timeline:    timelineObs,
		logger:      logger,
		metricsFile: metricsFile,
	}
	e.runner = runner.NewLifecycleRunner(drainFunc(e.drain), runner.Hooks{}, 10*time.Second)
	return e
}

// Session bundles everything one exam attempt needs.
type Session struct {
	Controller *session.Controller
	Panel      *ui.Panel

	captioner *captions.Captioner
	done      chan struct{}
}

// NewSession assembles a controller, presentation panel, and optional
// caption sidecar for a fresh session. Components are per-session; a
// reconnect after ERROR builds a new one.
func (e *Engine) NewSession(renderer ui.Renderer) (*Session, error) {
	sessionID := uuid.NewString()

	source, err := e.providers.BuildSource(e.cfg.Devices.Source.Provider, e.cfg)
	if err != nil {
		return nil, fmt.Errorf("build source: %w", err)
	}
	sink, err := e.providers.BuildSink(e.cfg.Devices.Sink.Provider, e.cfg)
	if err != nil {
		return nil, fmt.Errorf("build sink: %w", err)
	}
	if e.cfg.Observability.RecordAudio {
		if dir := e.recordDir(); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				e.logger.Warn("record_audio_dir_unavailable", "dir", dir, "error", err)
			} else {
				tap := devices.NewWAVSink(filepath.Join(dir, sessionID+".wav"), sink.Rate())
				sink = devices.NewTeeSink(sink, tap)
			}
		} else {
			e.logger.Warn("record_audio_unconfigured",
				"hint", "set observability.record_path or observability.artifacts_dir")
		}
	}
	service, err := e.providers.BuildRT(e.cfg.Service.Provider, e.cfg, sessionID)
	if err != nil {
		return nil, fmt.Errorf("build service: %w", err)
	}

	var captioner *captions.Captioner
	if e.cfg.Captions.Enabled {
		transcriber, err := e.providers.BuildSTT(e.cfg.Captions.Provider, e.cfg, sessionID)
		if err != nil {
			return nil, fmt.Errorf("build captions: %w", err)
		}
		captioner = captions.New(transcriber, captions.Config{
			SessionID:        sessionID,
			SampleRate:       source.Rate(),
			ConnectRetries:   e.cfg.Captions.ConnectRetries,
			ConnectBackoff:   time.Duration(e.cfg.Captions.ConnectBackoffMS) * time.Millisecond,
			BreakerThreshold: e.cfg.Captions.BreakerThreshold,
			BreakerCooldown:  time.Duration(e.cfg.Captions.BreakerCooldownS) * time.Second,
		})
	}

	controller := session.NewController(session.Config{
		SessionID:   sessionID,
		Model:       e.cfg.Engine.Model,
		Voice:       exam.ResolveVoice(e.cfg.Engine.Voice),
		Instruction: e.cfg.Exam.Instruction(),
		QueueSize:   e.cfg.Session.QueueSize,
		Source:      source,
		Sink:        sink,
		Service:     service,
		Captioner:   captioner,
		Observer:    e.asyncObs,
		Logger:      e.logger,
	})

	panel := ui.NewPanel(renderer)
	panel.Attach(controller)

	s := &Session{
		Controller: controller,
		Panel:      panel,
		captioner:  captioner,
		done:       make(chan struct{}),
	}
	if captioner != nil {
		go s.pumpCaptions(e.asyncObs, sessionID)
	}
	return s, nil
}

func (s *Session) pumpCaptions(obs metrics.Observer, sessionID string) {
	defer close(s.done)
	for line := range s.captioner.Lines() {
		s.Panel.SetCaption(line.Text)
		if line.Final {
			obs.RecordEvent(metrics.MetricsEvent{
				Name: metrics.EventCaptionLine,
				Time: line.At,
				Tags: map[string]string{"session_id": sessionID},
				Fields: map[string]any{
					"text": redact.Text(line.Text),
				},
			})
		}
	}
}

// Run blocks until the context is cancelled or Stop is called, then drains
// observability sinks.
func (e *Engine) Run(ctx context.Context) error {
	return e.runner.Run(ctx)
}

func (e *Engine) Stop() error {
	return e.runner.Stop()
}

// recordDir resolves where session recordings land: record_path when set,
// otherwise the artifacts directory.
func (e *Engine) recordDir() string {
	if dir := strings.TrimSpace(e.cfg.Observability.RecordPath); dir != "" {
		return dir
	}
	return strings.TrimSpace(e.cfg.Observability.ArtifactsDir)
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Observer() metrics.Observer { return e.asyncObs }

func (e *Engine) ProviderRegistry() *ProviderRegistry { return e.providers }

func (e *Engine) drain() error {
	if e.asyncObs != nil {
		e.asyncObs.Close()
	}
	var err error
	if e.timeline != nil {
		err = e.timeline.Close()
	}
	if e.metricsFile != nil {
		if cerr := e.metricsFile.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

type drainFunc func() error

func (f drainFunc) Drain() error { return f() }
