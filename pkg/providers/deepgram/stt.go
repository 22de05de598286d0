// Package deepgram adapts Deepgram streaming transcription for the live
// caption sidecar.
package deepgram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/verbalabs/verba/pkg/adapters/stt"
	"github.com/verbalabs/verba/pkg/errorsx"
	"github.com/verbalabs/verba/pkg/frames"
	"github.com/verbalabs/verba/pkg/logging"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

type Config struct {
	APIKey     string
	Model      string
	Language   string
	SampleRate int
	Encoding   string
	Interim    bool
	SessionID  string
	TraceID    string
}

type StreamingSTT struct {
	cfg        Config
	dgClient   *client.WSCallback
	out        chan frames.Frame
	ctx        context.Context
	cancel     context.CancelFunc
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	metaLogged bool
	logger     *slog.Logger

	outMu     sync.Mutex
	outClosed bool
}

func New(cfg Config) *StreamingSTT {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "linear16"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	logger := logging.NewComponentLogger(slog.Default(), "deepgram_stt")
	return &StreamingSTT{
		cfg:    cfg,
		out:    make(chan frames.Frame, 256),
		logger: logger,
	}
}

func (s *StreamingSTT) Name() string { return "deepgram_streaming" }

func (s *StreamingSTT) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.pipeReader, s.pipeWriter = io.Pipe()

	clientOptions := &interfaces.ClientOptions{
		EnableKeepAlive: true,
	}
	transcriptOptions := &interfaces.LiveTranscriptionOptions{
		Model:          s.cfg.Model,
		Language:       s.cfg.Language,
		Encoding:       s.cfg.Encoding,
		SampleRate:     s.cfg.SampleRate,
		InterimResults: s.cfg.Interim,
		SmartFormat:    true,
	}

	s.logger.Info("initializing deepgram connection",
		slog.String("session_id", s.cfg.SessionID),
		slog.String("model", s.cfg.Model),
		slog.Int("sample_rate", s.cfg.SampleRate))

	cb := &callback{parent: s}
	dgClient, err := client.NewWSUsingCallback(s.ctx, s.cfg.APIKey, clientOptions, transcriptOptions, cb)
	if err != nil {
		s.logger.Error("deepgram_client_create_error",
			slog.String("error", err.Error()),
			slog.String("session_id", s.cfg.SessionID))
		return errorsx.Wrap(err, errorsx.ReasonCaptionConnect)
	}
	s.dgClient = dgClient

	if connected := s.dgClient.Connect(); !connected {
		s.logger.Error("deepgram_connect_failed",
			slog.String("session_id", s.cfg.SessionID))
		return errorsx.Wrap(fmt.Errorf("deepgram connection failed"), errorsx.ReasonCaptionConnect)
	}

	s.logger.Info("deepgram_connected",
		slog.String("session_id", s.cfg.SessionID),
		slog.String("model", s.cfg.Model))

	go func() {
		if err := s.dgClient.Stream(s.pipeReader); err != nil && s.ctx.Err() == nil {
			s.logger.Error("deepgram_stream_error",
				slog.String("error", err.Error()),
				slog.String("session_id", s.cfg.SessionID))
		}
		// Stream returning means the connection is gone either way.
		s.closeResults()
	}()

	return nil
}

func (s *StreamingSTT) Close() error {
	s.logger.Info("closing deepgram connection",
		slog.String("session_id", s.cfg.SessionID))
	if s.cancel != nil {
		s.cancel()
	}
	if s.pipeWriter != nil {
		_ = s.pipeWriter.Close()
	}
	if s.dgClient != nil {
		s.dgClient.Stop()
	}
	s.closeResults()
	return nil
}

// closeResults ends the Results stream. Consumers range over it, so it must
// close whenever the transcription stream is finished, whichever side ends
// it first.
func (s *StreamingSTT) closeResults() {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.outClosed {
		return
	}
	s.outClosed = true
	close(s.out)
}

func (s *StreamingSTT) emit(f frames.Frame) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.outClosed {
		return
	}
	select {
	case s.out <- f:
	default:
		s.logger.Warn("deepgram_out_channel_full",
			slog.String("session_id", s.cfg.SessionID))
	}
}

func (s *StreamingSTT) SendAudio(frame frames.AudioFrame) error {
	if s.pipeWriter == nil {
		return errorsx.New(errorsx.ReasonCaptionSend, "not started")
	}
	_, err := s.pipeWriter.Write(frame.RawPayload())
	if err != nil {
		s.logger.Error("failed to send audio to deepgram",
			slog.String("error", err.Error()),
			slog.String("session_id", s.cfg.SessionID))
		return errorsx.Wrap(err, errorsx.ReasonCaptionSend)
	}
	return nil
}

func (s *StreamingSTT) Results() <-chan frames.Frame { return s.out }

// --- Callback Implementation ---

type callback struct {
	parent *StreamingSTT
}

func (c *callback) Open(or *msginterfaces.OpenResponse) error {
	c.parent.logger.Info("deepgram_connection_opened",
		slog.String("session_id", c.parent.cfg.SessionID))
	return nil
}

func (c *callback) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	transcript := mr.Channel.Alternatives[0].Transcript
	if transcript == "" {
		return nil
	}
	isFinal := mr.IsFinal || mr.SpeechFinal

	meta := map[string]string{
		frames.MetaSessionID: c.parent.cfg.SessionID,
		frames.MetaSource:    "stt",
	}
	if c.parent.cfg.TraceID != "" {
		meta[frames.MetaTraceID] = c.parent.cfg.TraceID
	}
	if isFinal {
		meta[frames.MetaIsFinal] = "true"
	} else {
		meta[frames.MetaIsFinal] = "false"
	}

	f := frames.NewTextFrame(c.parent.cfg.SessionID, time.Now().UnixNano(), transcript, meta)
	c.parent.emit(f)
	return nil
}

func (c *callback) Metadata(md *msginterfaces.MetadataResponse) error {
	if !c.parent.metaLogged {
		c.parent.metaLogged = true
		c.parent.logger.Info("deepgram_metadata_received",
			slog.String("session_id", c.parent.cfg.SessionID),
			slog.String("request_id", md.RequestID))
	}
	return nil
}

func (c *callback) SpeechStarted(ssr *msginterfaces.SpeechStartedResponse) error {
	return nil
}

func (c *callback) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error {
	return nil
}

func (c *callback) Close(cr *msginterfaces.CloseResponse) error {
	c.parent.logger.Info("deepgram_connection_closed",
		slog.String("session_id", c.parent.cfg.SessionID))
	c.parent.closeResults()
	return nil
}

func (c *callback) Error(er *msginterfaces.ErrorResponse) error {
	c.parent.logger.Error("deepgram_error",
		slog.String("session_id", c.parent.cfg.SessionID),
		slog.String("error_code", er.ErrCode),
		slog.String("error_message", er.ErrMsg))
	return nil
}

func (c *callback) UnhandledEvent(byData []byte) error {
	c.parent.logger.Debug("deepgram_unhandled_event",
		slog.String("session_id", c.parent.cfg.SessionID),
		slog.String("data", string(byData)))
	return nil
}

var _ stt.StreamingSTT = (*StreamingSTT)(nil)
