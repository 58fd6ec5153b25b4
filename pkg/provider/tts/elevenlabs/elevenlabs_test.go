package elevenlabs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/carevoice/carevoice/pkg/audio"
	"github.com/carevoice/carevoice/pkg/provider/tts"
)

// nopPlayer discards all audio.
type nopPlayer struct{}

func (nopPlayer) Play(_ context.Context, _ audio.Format, pcm <-chan []byte) error {
	for range pcm {
	}
	return nil
}

// ---- Constructor tests ----

func TestNew_EmptyAPIKey(t *testing.T) {
	_, err := New("", nopPlayer{})
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNew_NilPlayer(t *testing.T) {
	_, err := New("key", nil)
	if err == nil {
		t.Error("expected error for nil player")
	}
}

func TestNew_Defaults(t *testing.T) {
	p, err := New("key", nopPlayer{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != defaultModel {
		t.Errorf("expected model %q, got %q", defaultModel, p.model)
	}
	if p.voicesURL != voicesEndpoint {
		t.Errorf("expected voices URL %q, got %q", voicesEndpoint, p.voicesURL)
	}
}

func TestNew_WithOptions(t *testing.T) {
	p, err := New("key", nopPlayer{},
		WithModel("eleven_multilingual_v2"),
		WithDefaultVoice("voice-1"),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != "eleven_multilingual_v2" {
		t.Errorf("expected model 'eleven_multilingual_v2', got %q", p.model)
	}
	if p.defaultVoice != "voice-1" {
		t.Errorf("expected default voice 'voice-1', got %q", p.defaultVoice)
	}
}

// ---- URL construction ----

func TestBuildURLForVoice(t *testing.T) {
	url := buildURLForVoice("voice-abc123", "eleven_flash_v2_5")
	if !strings.Contains(url, "voice-abc123") {
		t.Errorf("URL should contain voice ID, got: %s", url)
	}
	if !strings.Contains(url, "eleven_flash_v2_5") {
		t.Errorf("URL should contain model ID, got: %s", url)
	}
	if !strings.Contains(url, "output_format=pcm_16000") {
		t.Errorf("URL should request 16 kHz PCM, got: %s", url)
	}
	if !strings.HasPrefix(url, "wss://") {
		t.Errorf("URL should be a WebSocket URL, got: %s", url)
	}
}

// ---- Delivery settings ----

func TestSettingsFor_MapsRateToSpeed(t *testing.T) {
	vs := settingsFor(tts.Utterance{Rate: 0.8})
	if vs.Speed != 0.8 {
		t.Errorf("expected speed 0.8, got %f", vs.Speed)
	}
	if vs.Stability != 0.5 || vs.SimilarityBoost != 0.75 {
		t.Errorf("unexpected base settings: %+v", vs)
	}
}

func TestSettingsFor_ClampsSpeed(t *testing.T) {
	if vs := settingsFor(tts.Utterance{Rate: 0.5}); vs.Speed != 0.7 {
		t.Errorf("expected slow rate clamped to 0.7, got %f", vs.Speed)
	}
	if vs := settingsFor(tts.Utterance{Rate: 2.0}); vs.Speed != 1.2 {
		t.Errorf("expected fast rate clamped to 1.2, got %f", vs.Speed)
	}
}

func TestSettingsFor_ZeroRateOmitsSpeed(t *testing.T) {
	if vs := settingsFor(tts.Utterance{}); vs.Speed != 0 {
		t.Errorf("expected zero speed for unset rate, got %f", vs.Speed)
	}
}

// ---- Voice list response parsing ----

func TestParseVoicesResponse_Success(t *testing.T) {
	raw := []byte(`{
		"voices": [
			{
				"voice_id": "abc123",
				"name": "Rachel",
				"category": "premade",
				"labels": {"gender": "female", "language": "en-US"}
			},
			{
				"voice_id": "def456",
				"name": "Adam",
				"category": "premade",
				"labels": {"gender": "male"}
			}
		]
	}`)

	voices, err := parseVoicesResponse(raw)
	if err != nil {
		t.Fatalf("parseVoicesResponse: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("expected 2 voices, got %d", len(voices))
	}

	rachel := voices[0]
	if rachel.ID != "abc123" {
		t.Errorf("expected ID 'abc123', got %q", rachel.ID)
	}
	if rachel.Name != "Rachel" {
		t.Errorf("expected Name 'Rachel', got %q", rachel.Name)
	}
	if rachel.Language != "en-US" {
		t.Errorf("expected Language 'en-US', got %q", rachel.Language)
	}
	if rachel.Provider != "elevenlabs" {
		t.Errorf("expected Provider 'elevenlabs', got %q", rachel.Provider)
	}
	if rachel.Metadata["category"] != "premade" {
		t.Errorf("expected category 'premade', got %q", rachel.Metadata["category"])
	}

	adam := voices[1]
	if adam.Language != "" {
		t.Errorf("expected empty language for unlabelled voice, got %q", adam.Language)
	}
}

func TestParseVoicesResponse_Empty(t *testing.T) {
	voices, err := parseVoicesResponse([]byte(`{"voices":[]}`))
	if err != nil {
		t.Fatalf("parseVoicesResponse: %v", err)
	}
	if len(voices) != 0 {
		t.Errorf("expected 0 voices, got %d", len(voices))
	}
}

func TestParseVoicesResponse_InvalidJSON(t *testing.T) {
	if _, err := parseVoicesResponse([]byte(`{invalid`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

// ---- ListVoices over HTTP ----

func TestListVoices_SendsAPIKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("xi-api-key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"voices":[{"voice_id":"v1","name":"Grace","labels":{"language":"en-GB"}}]}`))
	}))
	defer srv.Close()

	p, err := New("secret-key", nopPlayer{}, WithVoicesEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	voices, err := p.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if gotKey != "secret-key" {
		t.Errorf("expected xi-api-key header 'secret-key', got %q", gotKey)
	}
	if len(voices) != 1 || voices[0].ID != "v1" {
		t.Fatalf("unexpected voices: %+v", voices)
	}
	if voices[0].Language != "en-GB" {
		t.Errorf("expected Language 'en-GB', got %q", voices[0].Language)
	}
}

func TestListVoices_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := New("bad-key", nopPlayer{}, WithVoicesEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.ListVoices(context.Background()); err == nil {
		t.Error("expected error for non-200 response")
	}
}

// ---- Speak preconditions ----

func TestSpeak_NoVoiceAvailable(t *testing.T) {
	p, err := New("key", nopPlayer{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Speak(context.Background(), tts.Utterance{Text: "hello"})
	var synthErr *tts.SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected *tts.SynthesisError, got %v", err)
	}
	if synthErr.Code != "no-voice" {
		t.Errorf("expected code 'no-voice', got %q", synthErr.Code)
	}
}
