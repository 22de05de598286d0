package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/verbalabs/verba/pkg/adapters/rt"
	"github.com/verbalabs/verba/pkg/audio"
	"github.com/verbalabs/verba/pkg/errorsx"
)

type liveStub struct {
	upgrader websocket.Upgrader

	setup    chan setupMessage
	media    chan realtimeInputMessage
	outbound chan string
}

func newLiveStub() *liveStub {
	return &liveStub{
		setup:    make(chan setupMessage, 1),
		media:    make(chan realtimeInputMessage, 16),
		outbound: make(chan string, 16),
	}
}

func (s *liveStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	_, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	var setup setupMessage
	if err := json.Unmarshal(data, &setup); err != nil {
		return
	}
	s.setup <- setup
	_ = conn.WriteJSON(map[string]any{"setupComplete": map[string]any{}})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var in realtimeInputMessage
			if err := json.Unmarshal(data, &in); err == nil && len(in.RealtimeInput.MediaChunks) > 0 {
				s.media <- in
			}
		}
	}()
	for {
		select {
		case raw := <-s.outbound:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func startStub(t *testing.T) (*liveStub, string) {
	t.Helper()
	stub := newLiveStub()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return stub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectSendsSetupAndFiresOpen(t *testing.T) {
	stub, endpoint := startStub(t)
	c := New(Config{APIKey: "test-key", Endpoint: endpoint})
	defer c.Close()

	opened := make(chan struct{}, 1)
	err := c.Connect(context.Background(), rt.Config{
		SessionID:   "s1",
		Model:       "models/test",
		Instruction: "be an examiner",
		Voice:       "Aoede",
	}, rt.Callbacks{OnOpen: func() { opened <- struct{}{} }})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	select {
	case setup := <-stub.setup:
		if setup.Setup.Model != "models/test" {
			t.Fatalf("model = %q", setup.Setup.Model)
		}
		gc := setup.Setup.GenerationConfig
		if gc == nil || len(gc.ResponseModalities) != 1 || gc.ResponseModalities[0] != "AUDIO" {
			t.Fatalf("unexpected generation config: %+v", gc)
		}
		if gc.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Aoede" {
			t.Fatalf("unexpected voice config: %+v", gc.SpeechConfig)
		}
		si := setup.Setup.SystemInstruction
		if si == nil || len(si.Parts) != 1 || si.Parts[0].Text != "be an examiner" {
			t.Fatalf("unexpected system instruction: %+v", si)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for setup message")
	}

	select {
	case <-opened:
	case <-time.After(2 * time.Second):
		t.Fatal("OnOpen never fired")
	}
}

func TestSendRealtimeInputForwardsMediaChunk(t *testing.T) {
	stub, endpoint := startStub(t)
	c := New(Config{APIKey: "test-key", Endpoint: endpoint})
	defer c.Close()

	if err := c.Connect(context.Background(), rt.Config{SessionID: "s1"}, rt.Callbacks{}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	blob := audio.Blob{MIMEType: audio.CaptureMIME, Data: "AAAA"}
	if err := c.SendRealtimeInput(blob); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case in := <-stub.media:
		chunk := in.RealtimeInput.MediaChunks[0]
		if chunk.MIMEType != audio.CaptureMIME || chunk.Data != "AAAA" {
			t.Fatalf("unexpected chunk: %+v", chunk)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for media chunk")
	}
}

func TestServerAudioAndInterruptCallbacks(t *testing.T) {
	stub, endpoint := startStub(t)
	c := New(Config{APIKey: "test-key", Endpoint: endpoint})
	defer c.Close()

	audioCh := make(chan string, 4)
	interrupted := make(chan struct{}, 1)
	err := c.Connect(context.Background(), rt.Config{SessionID: "s1"}, rt.Callbacks{
		OnAudio:       func(b64 string) { audioCh <- b64 },
		OnInterrupted: func() { interrupted <- struct{}{} },
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	stub.outbound <- `{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"QUJD"}}]}}}`
	select {
	case got := <-audioCh:
		if got != "QUJD" {
			t.Fatalf("audio payload = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnAudio never fired")
	}

	stub.outbound <- `{"serverContent":{"interrupted":true}}`
	select {
	case <-interrupted:
	case <-time.After(2 * time.Second):
		t.Fatal("OnInterrupted never fired")
	}
}

func TestConnectRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	c := New(Config{})
	err := c.Connect(context.Background(), rt.Config{}, rt.Callbacks{})
	if err == nil {
		t.Fatal("expected error without api key")
	}
	if !errorsx.HasReason(err, errorsx.ReasonMissingCredential) {
		t.Fatalf("unexpected reason: %v", err)
	}
}

func TestCloseIsIdempotentAndFiresOnCloseOnce(t *testing.T) {
	_, endpoint := startStub(t)
	c := New(Config{APIKey: "test-key", Endpoint: endpoint})

	var closes int
	closed := make(chan string, 4)
	err := c.Connect(context.Background(), rt.Config{SessionID: "s1"}, rt.Callbacks{
		OnClose: func(reason string) { closes++; closed <- reason },
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose never fired")
	}
	time.Sleep(50 * time.Millisecond)
	if closes != 1 {
		t.Fatalf("OnClose fired %d times", closes)
	}

	if err := c.SendRealtimeInput(audio.Blob{}); !errorsx.HasReason(err, errorsx.ReasonRTClosed) {
		t.Fatalf("expected closed-session error, got %v", err)
	}
}
