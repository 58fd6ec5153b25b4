// Package openaispeech implements the tts.Provider interface using the OpenAI
// speech endpoint. Synthesis is a single request-response exchange: the whole
// utterance is posted and raw PCM streams back in the response body, rendered
// through an injected audio.Player.
//
// OpenAI exposes a fixed voice catalogue rather than a listing API, so
// ListVoices returns a static set.
package openaispeech

import (
	"context"
	"errors"
	"io"
	"sync"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/carevoice/carevoice/pkg/audio"
	"github.com/carevoice/carevoice/pkg/provider/tts"
)

const (
	defaultModel = oai.SpeechModelGPT4oMiniTTS
	defaultVoice = "alloy"

	// The speech endpoint returns 24 kHz mono 16-bit PCM when pcm format is
	// requested.
	pcmSampleRate = 24000

	// readChunk is the body read size; ~85 ms of audio per chunk keeps
	// cancellation latency low without hammering the player.
	readChunk = 4096
)

// catalogueVoices is the fixed set of voices the speech endpoint accepts. All
// are multilingual, so Language is left empty and the engine's resolution
// policy falls back to the first entry.
var catalogueVoices = []string{
	"alloy", "ash", "coral", "echo", "fable", "onyx", "nova", "sage", "shimmer",
}

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the speech model (e.g., "tts-1", "gpt-4o-mini-tts").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = oai.SpeechModel(model)
	}
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		p.baseURL = url
	}
}

// WithDefaultVoice sets the voice used when an utterance does not pin one.
func WithDefaultVoice(voice string) Option {
	return func(p *Provider) {
		p.defaultVoice = voice
	}
}

// Provider implements tts.Provider backed by the OpenAI speech endpoint.
type Provider struct {
	client       oai.Client
	model        oai.SpeechModel
	baseURL      string
	defaultVoice string
	player       audio.Player
}

var _ tts.Provider = (*Provider)(nil)

// New creates an OpenAI speech Provider. apiKey must be non-empty and player
// is the output device all utterances render to.
func New(apiKey string, player audio.Player, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openaispeech: apiKey must not be empty")
	}
	if player == nil {
		return nil, errors.New("openaispeech: player must not be nil")
	}
	p := &Provider{
		model:        defaultModel,
		defaultVoice: defaultVoice,
		player:       player,
	}
	for _, o := range opts {
		o(p)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if p.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(p.baseURL))
	}
	p.client = oai.NewClient(reqOpts...)
	return p, nil
}

// Speak posts the utterance for synthesis and starts streaming the response
// audio to the player. The returned handle resolves when playback drains or
// the utterance is cancelled.
func (p *Provider) Speak(ctx context.Context, u tts.Utterance) (tts.SpeechHandle, error) {
	params := buildParams(u, p.model, p.defaultVoice)

	utterCtx, cancel := context.WithCancel(ctx)
	resp, err := p.client.Audio.Speech.New(utterCtx, params)
	if err != nil {
		cancel()
		return nil, &tts.SynthesisError{Code: "request-failed", Message: err.Error()}
	}

	h := &handle{done: make(chan struct{}), cancel: cancel}
	go p.run(utterCtx, resp.Body, u, h)
	return h, nil
}

// run streams the response body to the player and resolves the handle.
func (p *Provider) run(ctx context.Context, body io.ReadCloser, u tts.Utterance, h *handle) {
	defer body.Close()

	pcm := make(chan []byte, 64)
	playErr := make(chan error, 1)
	go func() {
		playErr <- p.player.Play(ctx, audio.Format{SampleRate: pcmSampleRate, Channels: 1}, pcm)
	}()

	err := pump(ctx, body, pcm, u.Volume)
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

// pump copies PCM from the response body into the channel in fixed-size
// chunks, applying the utterance volume.
func pump(ctx context.Context, body io.Reader, pcm chan<- []byte, volume float64) error {
	for {
		buf := make([]byte, readChunk)
		n, err := body.Read(buf)
		if n > 0 {
			select {
			case pcm <- audio.ApplyGain(buf[:n], volume):
			case <-ctx.Done():
				return tts.ErrInterrupted
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return tts.ErrInterrupted
			}
			return &tts.SynthesisError{Code: "stream-failed", Message: err.Error()}
		}
	}
}

// ListVoices returns the fixed OpenAI voice catalogue.
func (p *Provider) ListVoices(_ context.Context) ([]tts.Voice, error) {
	voices := make([]tts.Voice, 0, len(catalogueVoices))
	for _, name := range catalogueVoices {
		voices = append(voices, tts.Voice{
			ID:       name,
			Name:     name,
			Provider: "openai",
			Metadata: map[string]string{"multilingual": "true"},
		})
	}
	return voices, nil
}

// buildParams maps an utterance onto speech endpoint parameters. Rate maps to
// the endpoint's speed control in its documented [0.25, 4.0] range; pitch has
// no equivalent and is ignored.
func buildParams(u tts.Utterance, model oai.SpeechModel, fallbackVoice string) oai.AudioSpeechNewParams {
	voice := fallbackVoice
	if u.Voice != nil && u.Voice.ID != "" {
		voice = u.Voice.ID
	}

	params := oai.AudioSpeechNewParams{
		Model:          model,
		Input:          u.Text,
		Voice:          oai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: oai.AudioSpeechNewParamsResponseFormatPCM,
	}
	if u.Rate > 0 {
		params.Speed = oai.Float(min(max(u.Rate, 0.25), 4.0))
	}
	return params
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
