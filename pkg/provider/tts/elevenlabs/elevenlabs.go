// Package elevenlabs implements the tts.Provider interface using the
// ElevenLabs streaming WebSocket API. Synthesised PCM is rendered through an
// injected audio.Player; the provider never touches output hardware directly.
package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/carevoice/carevoice/pkg/audio"
	"github.com/carevoice/carevoice/pkg/provider/tts"
)

const (
	wsEndpointFmt  = "wss://api.elevenlabs.io/v1/text-to-speech/%s/stream-input?model_id=%s&output_format=%s"
	voicesEndpoint = "https://api.elevenlabs.io/v1/voices"
	defaultModel   = "eleven_flash_v2_5"

	// The engine transports 16 kHz mono PCM end to end, so synthesis is
	// requested in the same format.
	outputFormat = "pcm_16000"
	sampleRate   = 16000
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs model ID (e.g., "eleven_flash_v2_5").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithDefaultVoice sets the voice used when an utterance does not pin one.
func WithDefaultVoice(voiceID string) Option {
	return func(p *Provider) {
		p.defaultVoice = voiceID
	}
}

// WithVoicesEndpoint overrides the voice catalogue URL. Used in tests.
func WithVoicesEndpoint(url string) Option {
	return func(p *Provider) {
		p.voicesURL = url
	}
}

// Provider implements tts.Provider backed by the ElevenLabs streaming API.
type Provider struct {
	apiKey       string
	model        string
	defaultVoice string
	voicesURL    string
	httpClient   *http.Client
	player       audio.Player
}

var _ tts.Provider = (*Provider)(nil)

// New creates an ElevenLabs Provider. apiKey must be non-empty and player is
// the output device all utterances render to.
func New(apiKey string, player audio.Player, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	if player == nil {
		return nil, errors.New("elevenlabs: player must not be nil")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		voicesURL:  voicesEndpoint,
		httpClient: &http.Client{},
		player:     player,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// ---- WebSocket message types ----

// voiceSettings mirrors the ElevenLabs voice_settings object. Speed is the
// only delivery control the streaming API honours; pitch is not supported.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// boiMessage is the initial "begin of input" handshake frame.
type boiMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
}

// textMessage carries one text fragment; an empty Text flushes the stream.
type textMessage struct {
	Text string `json:"text"`
}

// audioResponse is a single message received over the WebSocket.
type audioResponse struct {
	Audio   string `json:"audio"` // base64-encoded PCM
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Speak opens a streaming synthesis connection for u, pipes the resulting PCM
// to the player, and returns a handle tracking the utterance.
func (p *Provider) Speak(ctx context.Context, u tts.Utterance) (tts.SpeechHandle, error) {
	voiceID := p.defaultVoice
	if u.Voice != nil && u.Voice.ID != "" {
		voiceID = u.Voice.ID
	}
	if voiceID == "" {
		return nil, &tts.SynthesisError{Code: "no-voice", Message: "no voice pinned and no default configured"}
	}

	utterCtx, cancel := context.WithCancel(ctx)
	conn, _, err := websocket.Dial(utterCtx, buildURLForVoice(voiceID, p.model), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("elevenlabs: dial: %w", err)
	}

	boi := boiMessage{
		// ElevenLabs requires a non-empty first text value.
		Text:          " ",
		VoiceSettings: settingsFor(u),
		XiAPIKey:      p.apiKey,
	}
	boiBytes, _ := json.Marshal(boi)
	if err := conn.Write(utterCtx, websocket.MessageText, boiBytes); err != nil {
		conn.Close(websocket.StatusInternalError, "handshake failed")
		cancel()
		return nil, fmt.Errorf("elevenlabs: handshake: %w", err)
	}

	h := &handle{done: make(chan struct{}), cancel: cancel}
	go p.run(utterCtx, conn, u, h)
	return h, nil
}

// run drives one utterance to completion: send the text, decode audio frames
// as they arrive, and play them. It resolves the handle exactly once.
func (p *Provider) run(ctx context.Context, conn *websocket.Conn, u tts.Utterance, h *handle) {
	defer conn.Close(websocket.StatusNormalClosure, "done")

	pcm := make(chan []byte, 256)
	playErr := make(chan error, 1)
	go func() {
		playErr <- p.player.Play(ctx, audio.Format{SampleRate: sampleRate, Channels: 1}, pcm)
	}()

	err := p.stream(ctx, conn, u, pcm)
	close(pcm)
	if perr := <-playErr; err == nil && perr != nil {
		err = &tts.SynthesisError{Code: "playback-failed", Message: perr.Error()}
	}

	if ctx.Err() != nil {
		h.resolve(tts.ErrInterrupted)
		return
	}
	h.resolve(err)
}

// stream sends the utterance text followed by a flush, then decodes audio
// messages into pcm until the service marks the stream final.
func (p *Provider) stream(ctx context.Context, conn *websocket.Conn, u tts.Utterance, pcm chan<- []byte) error {
	for _, msg := range []textMessage{{Text: u.Text + " "}, {Text: ""}} {
		raw, _ := json.Marshal(msg)
		if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
			return &tts.SynthesisError{Code: "connection-lost", Message: err.Error()}
		}
	}

	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return tts.ErrInterrupted
			}
			return &tts.SynthesisError{Code: "connection-lost", Message: err.Error()}
		}

		var resp audioResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			continue
		}
		if resp.Error != "" {
			return &tts.SynthesisError{Code: resp.Error, Message: resp.Message}
		}
		if resp.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(resp.Audio)
			if err != nil {
				return &tts.SynthesisError{Code: "bad-audio", Message: err.Error()}
			}
			select {
			case pcm <- audio.ApplyGain(chunk, u.Volume):
			case <-ctx.Done():
				return tts.ErrInterrupted
			}
		}
		if resp.IsFinal {
			return nil
		}
	}
}

// ListVoices returns all voices available for the configured API key.
func (p *Provider) ListVoices(ctx context.Context) ([]tts.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.voicesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs: list voices: unexpected status %d", resp.StatusCode)
	}

	var buf json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&buf); err != nil {
		return nil, fmt.Errorf("elevenlabs: list voices decode: %w", err)
	}
	return parseVoicesResponse(buf)
}

// ---- handle ----

type handle struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

var _ tts.SpeechHandle = (*handle)(nil)

func (h *handle) Done() <-chan struct{} { return h.done }

func (h *handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

func (h *handle) Cancel() {
	h.cancel()
}

func (h *handle) resolve(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return
	default:
	}
	h.err = err
	close(h.done)
}

// ---- helpers ----

// settingsFor maps an utterance's delivery fields onto ElevenLabs voice
// settings. Rate maps to the API's speed control, clamped to its documented
// [0.7, 1.2] range; pitch has no equivalent and is ignored.
func settingsFor(u tts.Utterance) *voiceSettings {
	vs := &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75}
	if u.Rate > 0 {
		vs.Speed = min(max(u.Rate, 0.7), 1.2)
	}
	return vs
}

// buildURLForVoice constructs the streaming endpoint URL for a voice.
func buildURLForVoice(voiceID, model string) string {
	return fmt.Sprintf(wsEndpointFmt, voiceID, model, outputFormat)
}

// voicesResponse is the top-level response from GET /v1/voices.
type voicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

// elevenLabsVoice is a single voice entry from the ElevenLabs API.
type elevenLabsVoice struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Labels   map[string]string `json:"labels"`
}

// parseVoicesResponse parses the /v1/voices response body into tts.Voice
// values. The "language" label, when present, feeds the engine's locale-based
// voice resolution.
func parseVoicesResponse(data []byte) ([]tts.Voice, error) {
	var vr voicesResponse
	if err := json.Unmarshal(data, &vr); err != nil {
		return nil, err
	}
	voices := make([]tts.Voice, 0, len(vr.Voices))
	for _, v := range vr.Voices {
		meta := make(map[string]string, len(v.Labels)+1)
		for k, val := range v.Labels {
			meta[k] = val
		}
		if v.Category != "" {
			meta["category"] = v.Category
		}
		voices = append(voices, tts.Voice{
			ID:       v.VoiceID,
			Name:     v.Name,
			Language: v.Labels["language"],
			Provider: "elevenlabs",
			Metadata: meta,
		})
	}
	return voices, nil
}
