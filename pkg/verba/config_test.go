package verba

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
service:
  provider: mock
devices:
  source:
    provider: mock
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Voice == "" {
		t.Fatal("expected default voice")
	}
	if cfg.Session.QueueSize != 32 {
		t.Fatalf("queue size = %d, want 32", cfg.Session.QueueSize)
	}
	if !cfg.Privacy.RedactPII {
		t.Fatal("expected redaction on by default")
	}
	if cfg.Captions.Enabled {
		t.Fatal("captions should default off")
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "secret-key")
	path := writeConfig(t, `
service:
  provider: gemini
  settings:
    api_key: ${TEST_GEMINI_KEY}
devices:
  source:
    provider: tone
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Service.Settings["api_key"]; got != "secret-key" {
		t.Fatalf("api_key = %v, want expanded env value", got)
	}
}

func TestLoadConfigRejectsMissingService(t *testing.T) {
	path := writeConfig(t, `
service:
  provider: ""
`)
	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "service.provider") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadConfigExamPersona(t *testing.T) {
	path := writeConfig(t, `
service:
  provider: mock
exam:
  language: Spanish
  level: C1
  sections:
    - warm-up
    - debate
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Exam.Language != "Spanish" || cfg.Exam.Level != "C1" {
		t.Fatalf("persona = %+v", cfg.Exam)
	}
	if len(cfg.Exam.Sections) != 2 {
		t.Fatalf("sections = %v", cfg.Exam.Sections)
	}
}
