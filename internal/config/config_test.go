package config_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/carevoice/carevoice/internal/config"
	"github.com/carevoice/carevoice/pkg/provider/stt"
	sttmock "github.com/carevoice/carevoice/pkg/provider/stt/mock"
	"github.com/carevoice/carevoice/pkg/provider/tts"
	ttsmock "github.com/carevoice/carevoice/pkg/provider/tts/mock"
)

// ── YAML loading ──────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  listen_addr: ":8080"
  log_level: info

engine:
  language: en-US
  speech:
    rate: 0.8
    pitch: 1.0
    volume: 0.9
    voice_id: martha-v2
  activity:
    threshold: 0.01
    silence_window: 1s
    sample_interval: 50ms
  vocabulary:
    - Metformin
    - Lisinopril
    - Dorothy

providers:
  stt:
    name: deepgram
    api_key: dg-test
    model: nova-2
  tts:
    name: elevenlabs
    api_key: el-test
    model: eleven_turbo_v2
  audio:
    name: pulse
    options:
      device: default
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("server.listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":8080")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("server.log_level: got %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
	if cfg.Engine.Language != "en-US" {
		t.Errorf("engine.language: got %q, want %q", cfg.Engine.Language, "en-US")
	}
	if cfg.Engine.Speech.VoiceID != "martha-v2" {
		t.Errorf("engine.speech.voice_id: got %q", cfg.Engine.Speech.VoiceID)
	}
	if cfg.Engine.Activity.SilenceWindow != time.Second {
		t.Errorf("engine.activity.silence_window: got %s, want 1s", cfg.Engine.Activity.SilenceWindow)
	}
	if cfg.Engine.Activity.SampleInterval != 50*time.Millisecond {
		t.Errorf("engine.activity.sample_interval: got %s, want 50ms", cfg.Engine.Activity.SampleInterval)
	}
	if len(cfg.Engine.Vocabulary) != 3 {
		t.Fatalf("engine.vocabulary: got %d entries, want 3", len(cfg.Engine.Vocabulary))
	}
	if cfg.Providers.STT.Name != "deepgram" {
		t.Errorf("providers.stt.name: got %q, want %q", cfg.Providers.STT.Name, "deepgram")
	}
	if cfg.Providers.Audio.Options["device"] != "default" {
		t.Errorf("providers.audio.options.device: got %v", cfg.Providers.Audio.Options["device"])
	}
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_UnknownSTT(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateSTT(config.ProviderEntry{Name: "nonexistent"})
	if err == nil {
		t.Fatal("expected error for unknown STT provider")
	}
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

func TestRegistry_UnknownTTS(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateTTS(config.ProviderEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

func TestRegistry_UnknownAudio(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateAudio(config.ProviderEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

// ── Registry with registered factories ───────────────────────────────────────

func TestRegistry_RegisteredSTT(t *testing.T) {
	reg := config.NewRegistry()
	want := &sttmock.Provider{}
	reg.RegisterSTT("stub", func(e config.ProviderEntry) (stt.Provider, error) {
		return want, nil
	})
	got, err := reg.CreateSTT(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned provider is not the expected instance")
	}
}

func TestRegistry_RegisteredTTS(t *testing.T) {
	reg := config.NewRegistry()
	want := &ttsmock.Provider{}
	reg.RegisterTTS("stub", func(e config.ProviderEntry) (tts.Provider, error) {
		return want, nil
	})
	got, err := reg.CreateTTS(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned provider is not the expected instance")
	}
}

func TestRegistry_FactoryReceivesEntry(t *testing.T) {
	reg := config.NewRegistry()
	var gotEntry config.ProviderEntry
	reg.RegisterSTT("stub", func(e config.ProviderEntry) (stt.Provider, error) {
		gotEntry = e
		return &sttmock.Provider{}, nil
	})
	entry := config.ProviderEntry{Name: "stub", APIKey: "key-123", Model: "nova-2"}
	if _, err := reg.CreateSTT(entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotEntry.APIKey != "key-123" || gotEntry.Model != "nova-2" {
		t.Errorf("factory received %+v, want the original entry", gotEntry)
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	reg := config.NewRegistry()
	wantErr := errors.New("factory boom")
	reg.RegisterTTS("broken", func(e config.ProviderEntry) (tts.Provider, error) {
		return nil, wantErr
	})
	_, err := reg.CreateTTS(config.ProviderEntry{Name: "broken"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected factory error %v, got %v", wantErr, err)
	}
}
