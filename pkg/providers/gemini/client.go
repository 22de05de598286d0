// Package gemini implements the realtime speech adapter over the Gemini Live
// bidirectional websocket API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/verbalabs/verba/pkg/adapters/rt"
	"github.com/verbalabs/verba/pkg/audio"
	"github.com/verbalabs/verba/pkg/errorsx"
	"github.com/verbalabs/verba/pkg/logging"
)

const (
	defaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	defaultModel    = "models/gemini-2.0-flash-live-001"

	writeTimeout = 10 * time.Second
)

type Config struct {
	// APIKey overrides the GEMINI_API_KEY environment variable.
	APIKey string `mapstructure:"api_key"`
	// Endpoint overrides the Live websocket URL, for tests.
	Endpoint string `mapstructure:"endpoint"`
}

type Client struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed atomic.Bool

	closeOnce sync.Once
	cb        rt.Callbacks
}

func New(cfg Config) *Client {
	return &Client{
		cfg:    cfg,
		logger: logging.NewComponentLogger(slog.Default(), "gemini_live"),
	}
}

func (c *Client) Name() string { return "gemini_live" }

func (c *Client) Connect(ctx context.Context, cfg rt.Config, cb rt.Callbacks) error {
	if ctx == nil {
		ctx = context.Background()
	}
	key := c.cfg.APIKey
	if key == "" {
		key = os.Getenv("GEMINI_API_KEY")
	}
	if key == "" {
		return errorsx.New(errorsx.ReasonMissingCredential, "gemini api key not configured")
	}
	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonRTConnect)
	}
	q := u.Query()
	q.Set("key", key)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return errorsx.Wrap(fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode), errorsx.ReasonRTConnect)
		}
		return errorsx.Wrap(err, errorsx.ReasonRTConnect)
	}

	c.mu.Lock()
	c.conn = conn
	c.cb = cb
	c.mu.Unlock()

	setup := setupMessage{Setup: setupPayload{
		Model: model,
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{VoiceConfig: &voiceConfig{
				PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: cfg.Voice},
			}},
		},
	}}
	if cfg.Instruction != "" {
		setup.Setup.SystemInstruction = &content{Parts: []part{{Text: cfg.Instruction}}}
	}
	if err := c.writeJSON(setup); err != nil {
		_ = conn.Close()
		return errorsx.Wrap(err, errorsx.ReasonRTConnect)
	}

	c.logger.Info("session_connecting", "session_id", cfg.SessionID, "model", model, "voice", cfg.Voice)
	go c.readLoop(cfg.SessionID)
	return nil
}

func (c *Client) SendRealtimeInput(blob audio.Blob) error {
	if c.closed.Load() {
		return errorsx.New(errorsx.ReasonRTClosed, "session closed")
	}
	msg := realtimeInputMessage{RealtimeInput: realtimeInput{
		MediaChunks: []mediaChunk{{MIMEType: blob.MIMEType, Data: blob.Data}},
	}}
	if err := c.writeJSON(msg); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonRTSend)
	}
	return nil
}

func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}
	c.fireClose("closed")
	return nil
}

func (c *Client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errorsx.New(errorsx.ReasonRTClosed, "not connected")
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *Client) readLoop(sessionID string) {
	c.mu.Lock()
	conn := c.conn
	cb := c.cb
	c.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.fireClose("closed")
				return
			}
			c.closed.Store(true)
			if cb.OnError != nil {
				cb.OnError(errorsx.Wrap(err, errorsx.ReasonRTClosed))
			}
			c.fireClose(err.Error())
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("unparseable_server_message", "session_id", sessionID, "error", err.Error())
			continue
		}
		switch {
		case msg.SetupComplete != nil:
			c.logger.Info("session_open", "session_id", sessionID)
			if cb.OnOpen != nil {
				cb.OnOpen()
			}
		case msg.ServerContent != nil:
			sc := msg.ServerContent
			if sc.Interrupted {
				if cb.OnInterrupted != nil {
					cb.OnInterrupted()
				}
				continue
			}
			if sc.ModelTurn != nil && cb.OnAudio != nil {
				for _, p := range sc.ModelTurn.Parts {
					if p.InlineData != nil && p.InlineData.Data != "" {
						cb.OnAudio(p.InlineData.Data)
					}
				}
			}
		}
	}
}

func (c *Client) fireClose(reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		cb := c.cb
		c.mu.Unlock()
		if cb.OnClose != nil {
			cb.OnClose(reason)
		}
	})
}
