package config_test

import (
	"strings"
	"testing"

	"github.com/carevoice/carevoice/internal/config"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  log_level: info
engine:
  language: en-US
  speech:
    rate: 0.8
    pitch: 1.0
    volume: 0.9
  activity:
    threshold: 0.01
    silence_window: 1s
    sample_interval: 50ms
  vocabulary:
    - Metformin
    - Dorothy
providers:
  stt:
    name: deepgram
    api_key: dg-key
    model: nova-2
  tts:
    name: elevenlabs
    api_key: el-key
  audio:
    name: pulse
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Engine.Speech.Rate != 0.8 {
		t.Errorf("engine.speech.rate = %v, want 0.8", cfg.Engine.Speech.Rate)
	}
	if cfg.Providers.STT.Model != "nova-2" {
		t.Errorf("providers.stt.model = %q, want %q", cfg.Providers.STT.Model, "nova-2")
	}
	if len(cfg.Engine.Vocabulary) != 2 {
		t.Errorf("engine.vocabulary length = %d, want 2", len(cfg.Engine.Vocabulary))
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_SpeechRanges(t *testing.T) {
	t.Parallel()
	yaml := `
engine:
  speech:
    rate: 3.5
    volume: 1.4
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors for out-of-range speech parameters, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "rate") {
		t.Errorf("error should mention rate, got: %v", err)
	}
	if !strings.Contains(errStr, "volume") {
		t.Errorf("error should mention volume, got: %v", err)
	}
}

func TestValidate_ActivityRanges(t *testing.T) {
	t.Parallel()
	yaml := `
engine:
  activity:
    threshold: 1.5
    silence_window: 100ms
    sample_interval: 200ms
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors for invalid activity tuning, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "threshold") {
		t.Errorf("error should mention threshold, got: %v", err)
	}
	if !strings.Contains(errStr, "sample_interval") {
		t.Errorf("error should mention sample_interval vs silence_window, got: %v", err)
	}
}

func TestValidate_DuplicateVocabulary(t *testing.T) {
	t.Parallel()
	yaml := `
engine:
  vocabulary:
    - Metformin
    - Metformin
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for duplicate vocabulary entries, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error should mention duplicate, got: %v", err)
	}
}

func TestValidate_EmptyConfigIsValid(t *testing.T) {
	t.Parallel()
	// An empty config is valid: every capability is simply unsupported.
	cfg, err := config.LoadFromReader(strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.STT.Name != "" {
		t.Errorf("providers.stt.name = %q, want empty", cfg.Providers.STT.Name)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
engine:
  speechh:
    rate: 0.8
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	// Sanity-check that the map is populated.
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	sttNames := config.ValidProviderNames["stt"]
	if len(sttNames) == 0 {
		t.Fatal("ValidProviderNames[\"stt\"] should not be empty")
	}
	found := false
	for _, n := range sttNames {
		if n == "deepgram" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"stt\"] should contain \"deepgram\"")
	}
}
