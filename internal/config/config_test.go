package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Transcription.Method != MethodGemini {
		t.Errorf("default method = %q, want %q", cfg.Transcription.Method, MethodGemini)
	}
	if cfg.Transcription.SegmentLengthSeconds != 450 {
		t.Errorf("default segment length = %d, want 450", cfg.Transcription.SegmentLengthSeconds)
	}
	if cfg.Transcription.MaxRetries != 2 {
		t.Errorf("default max retries = %d, want 2", cfg.Transcription.MaxRetries)
	}
	if cfg.OpenAI.TranscribeModel != "whisper-1" {
		t.Errorf("default transcribe model = %q", cfg.OpenAI.TranscribeModel)
	}
}

func TestLoadRejectsUnknownMethod(t *testing.T) {
	path := writeConfig(t, "transcription:\n  method: \"azure\"\n")
	if _, err := Load(path); err == nil {
		t.Error("unknown method must fail validation")
	}
}

func TestLoadRejectsNonPositiveSegmentLength(t *testing.T) {
	path := writeConfig(t, "transcription:\n  segment_length_seconds: 0\n")
	if _, err := Load(path); err == nil {
		t.Error("zero segment length must fail validation")
	}
}

func TestLoadAPIKeyEnvFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	path := writeConfig(t, "transcription:\n  method: \"gemini\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("gemini key = %q, want env fallback", cfg.Gemini.APIKey)
	}
}

func TestLoadFileKeyWinsOverEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	path := writeConfig(t, "openai:\n  api_key: \"file-key\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.OpenAI.APIKey != "file-key" {
		t.Errorf("openai key = %q, want file value", cfg.OpenAI.APIKey)
	}
}
