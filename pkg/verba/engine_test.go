package verba

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/verbalabs/verba/pkg/session"
)

func mockConfig() Config {
	return Config{
		Engine:  EngineConfig{Model: "models/test", Voice: "Aoede"},
		Service: VendorConfig{Provider: "mock"},
		Devices: DevicesConfig{
			Source: VendorConfig{Provider: "mock"},
			Sink:   VendorConfig{Provider: "mock"},
		},
		LogLevel:  "error",
		LogFormat: "text",
	}
}

func TestNewSessionConnectsWithMockProviders(t *testing.T) {
	e := NewEngine(EngineOptions{Config: mockConfig()})
	defer e.Stop()

	s, err := e.NewSession(nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.Controller.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got := s.Controller.Status(); got != session.StatusConnected {
		t.Fatalf("status = %s, want connected", got)
	}
	if got := s.Panel.Snapshot().Status; got != session.StatusConnected {
		t.Fatalf("panel status = %s, want connected", got)
	}

	s.Controller.Disconnect()
	if got := s.Panel.Snapshot().Status; got != session.StatusDisconnected {
		t.Fatalf("panel status = %s, want disconnected", got)
	}
}

func TestProviderRegistryRejectsUnknownProvider(t *testing.T) {
	r := NewProviderRegistry()
	if _, err := r.BuildRT("nope", Config{}, "s1"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if _, err := r.BuildSource("nope", Config{}); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestEngineRunStopsOnCancel(t *testing.T) {
	e := NewEngine(EngineOptions{Config: mockConfig()})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("engine never stopped")
	}
}

func TestRecordAudioWritesSessionRecording(t *testing.T) {
	dir := t.TempDir()
	cfg := mockConfig()
	cfg.Observability.RecordAudio = true
	cfg.Observability.ArtifactsDir = dir

	e := NewEngine(EngineOptions{Config: cfg})
	defer e.Stop()

	s, err := e.NewSession(nil)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.Controller.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	s.Controller.Disconnect()

	path := filepath.Join(dir, s.Controller.SessionID()+".wav")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("session recording missing: %v", err)
	}
}
