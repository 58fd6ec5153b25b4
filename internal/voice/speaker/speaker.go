// Package speaker implements the synthesis queue: a last-write-wins wrapper
// around a text-to-speech provider. There is no FIFO — each new utterance
// preempts whatever is currently playing, because for a conversational
// assistant the newest response always supersedes stale speech.
package speaker

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/carevoice/carevoice/internal/observe"
	"github.com/carevoice/carevoice/pkg/provider/tts"
)

// ErrUnsupported is returned by Speak when no synthesis provider exists on
// this platform.
var ErrUnsupported = errors.New("speaker: synthesis capability not supported")

// Speech parameter defaults tuned for elderly listeners: slightly slower than
// normal speed, natural pitch, slightly under full volume.
const (
	DefaultRate     = 0.8
	DefaultPitch    = 1.0
	DefaultVolume   = 0.9
	DefaultLanguage = "en-US"
)

// Options overrides per-utterance speech parameters. Zero values fall back to
// the speaker defaults.
type Options struct {
	Rate     float64
	Pitch    float64
	Volume   float64
	Language string

	// Voice pins a specific voice. When nil the speaker resolves one from
	// the provider's catalog by language.
	Voice *tts.Voice
}

// Utterance is a handle to one in-flight (or finished) utterance.
type Utterance struct {
	id      string
	text    string
	handle  tts.SpeechHandle
	started time.Time
}

// ID returns the utterance's unique identifier.
func (u *Utterance) ID() string { return u.id }

// Text returns the text being spoken.
func (u *Utterance) Text() string { return u.text }

// Done is closed when playback finishes, fails, or is preempted.
func (u *Utterance) Done() <-chan struct{} { return u.handle.Done() }

// Err reports the utterance outcome after Done is closed: nil on natural
// completion, [tts.ErrInterrupted] when preempted or stopped, or a
// *[tts.SynthesisError] on provider failure.
func (u *Utterance) Err() error { return u.handle.Err() }

// Option is a functional option for configuring a Speaker.
type Option func(*Speaker)

// WithDefaults overrides the built-in speech parameter defaults. Zero fields
// keep their built-in value.
func WithDefaults(rate, pitch, volume float64, language string) Option {
	return func(s *Speaker) {
		if rate > 0 {
			s.rate = rate
		}
		if pitch > 0 {
			s.pitch = pitch
		}
		if volume > 0 {
			s.volume = volume
		}
		if language != "" {
			s.language = language
		}
	}
}

// WithMetrics sets the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Speaker) { s.metrics = m }
}

// Speaker turns text into audible speech through a tts.Provider. Safe for
// concurrent use; overlapping Speak calls serialise, last writer wins.
type Speaker struct {
	provider tts.Provider
	metrics  *observe.Metrics

	// startMu serialises the preempt-and-start handshake in Speak. Without
	// it, two concurrent Speak calls can observe the same active utterance,
	// cancel it once between them, and leave both replacements playing with
	// only one tracked.
	startMu sync.Mutex

	mu       sync.Mutex
	rate     float64
	pitch    float64
	volume   float64
	language string
	active   *Utterance

	voicesMu sync.Mutex
	voices   []tts.Voice
	listed   bool
}

// New creates a Speaker over the given provider. provider may be nil, in
// which case Speak reports ErrUnsupported.
func New(provider tts.Provider, opts ...Option) *Speaker {
	s := &Speaker{
		provider: provider,
		rate:     DefaultRate,
		pitch:    DefaultPitch,
		volume:   DefaultVolume,
		language: DefaultLanguage,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Supported reports whether a synthesis provider exists.
func (s *Speaker) Supported() bool { return s.provider != nil }

// SetDefaults retunes the speech parameter defaults at runtime. Zero fields
// keep their current value. Applies to the next utterance; live playback is
// never retuned.
func (s *Speaker) SetDefaults(rate, pitch, volume float64, language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate > 0 {
		s.rate = rate
	}
	if pitch > 0 {
		s.pitch = pitch
	}
	if volume > 0 {
		s.volume = volume
	}
	if language != "" {
		s.language = language
	}
}

// Speaking reports whether an utterance is currently active.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Speak starts speaking text, preempting any utterance already playing. The
// preempted utterance's handle resolves with [tts.ErrInterrupted].
//
// Empty or whitespace-only text is rejected before touching the provider.
func (s *Speaker) Speak(ctx context.Context, text string, opts Options) (*Utterance, error) {
	if s.provider == nil {
		return nil, ErrUnsupported
	}
	if strings.TrimSpace(text) == "" {
		return nil, &tts.SynthesisError{Code: "invalid-argument", Message: "utterance text is empty"}
	}

	s.mu.Lock()
	rate, pitch, volume, language := s.rate, s.pitch, s.volume, s.language
	s.mu.Unlock()

	lang := opts.Language
	if lang == "" {
		lang = language
	}
	voice := opts.Voice
	if voice == nil {
		voice = s.resolveVoice(ctx, lang)
	}

	req := tts.Utterance{
		Text:     text,
		Rate:     orDefault(opts.Rate, rate),
		Pitch:    orDefault(opts.Pitch, pitch),
		Volume:   orDefault(opts.Volume, volume),
		Language: lang,
		Voice:    voice,
	}

	// Held until the new utterance occupies the active slot, so exactly one
	// Speak at a time cancels the utterance that is actually playing.
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	prev := s.active
	s.mu.Unlock()
	if prev != nil {
		prev.handle.Cancel()
		s.metrics.Preemptions.Add(ctx, 1)
		slog.Debug("utterance preempted", "utterance_id", prev.id)
	}

	handle, err := s.provider.Speak(ctx, req)
	if err != nil {
		var synErr *tts.SynthesisError
		if !errors.As(err, &synErr) {
			err = &tts.SynthesisError{Code: "synthesis-failed", Message: err.Error()}
		}
		s.metrics.SynthesisErrors.Add(ctx, 1)
		slog.Warn("synthesis start failed", "err", err)
		return nil, err
	}

	u := &Utterance{
		id:      uuid.NewString(),
		text:    text,
		handle:  handle,
		started: time.Now(),
	}
	s.mu.Lock()
	s.active = u
	s.mu.Unlock()
	s.metrics.ActiveUtterances.Add(ctx, 1)

	go s.watch(ctx, u)

	slog.Debug("utterance started",
		"utterance_id", u.id,
		"chars", len(text),
		"rate", req.Rate,
		"voice", voiceID(voice),
	)
	return u, nil
}

// Stop cancels the current utterance, if any. Its handle resolves with
// [tts.ErrInterrupted]; bookkeeping is cleared asynchronously when the
// provider confirms the end of playback. No-op when nothing is playing.
func (s *Speaker) Stop() {
	s.mu.Lock()
	u := s.active
	s.mu.Unlock()
	if u != nil {
		u.handle.Cancel()
	}
}

// watch clears the active slot and records metrics once u finishes.
func (s *Speaker) watch(ctx context.Context, u *Utterance) {
	<-u.handle.Done()

	s.mu.Lock()
	if s.active == u {
		s.active = nil
	}
	s.mu.Unlock()

	s.metrics.ActiveUtterances.Add(ctx, -1)
	s.metrics.SynthesisDuration.Record(ctx, time.Since(u.started).Seconds())

	err := u.handle.Err()
	switch {
	case err == nil:
		slog.Debug("utterance finished", "utterance_id", u.id)
	case errors.Is(err, tts.ErrInterrupted):
		slog.Debug("utterance interrupted", "utterance_id", u.id)
	default:
		s.metrics.SynthesisErrors.Add(ctx, 1,
			metric.WithAttributes(observe.Attr("utterance_id", u.id)))
		slog.Warn("utterance failed", "utterance_id", u.id, "err", err)
	}
}

// Voices returns the provider's voice catalog, fetched once and cached.
func (s *Speaker) Voices(ctx context.Context) ([]tts.Voice, error) {
	if s.provider == nil {
		return nil, ErrUnsupported
	}
	s.voicesMu.Lock()
	defer s.voicesMu.Unlock()
	if !s.listed {
		voices, err := s.provider.ListVoices(ctx)
		if err != nil {
			return nil, err
		}
		s.voices = voices
		s.listed = true
	}
	return s.voices, nil
}

// RefreshVoices discards the cached catalog so the next Voices call refetches
// it. Voice catalogs can change when the provider account does.
func (s *Speaker) RefreshVoices() {
	s.voicesMu.Lock()
	s.voices = nil
	s.listed = false
	s.voicesMu.Unlock()
}

// resolveVoice picks a voice for lang: first an exact locale match, then a
// match on the primary language subtag, then the first voice in the catalog.
// Returns nil when the catalog is empty or unreachable — the provider then
// applies its own default.
func (s *Speaker) resolveVoice(ctx context.Context, lang string) *tts.Voice {
	voices, err := s.Voices(ctx)
	if err != nil || len(voices) == 0 {
		return nil
	}
	for i := range voices {
		if strings.EqualFold(voices[i].Language, lang) {
			return &voices[i]
		}
	}
	base := primarySubtag(lang)
	for i := range voices {
		if strings.EqualFold(primarySubtag(voices[i].Language), base) {
			return &voices[i]
		}
	}
	return &voices[0]
}

func primarySubtag(lang string) string {
	if i := strings.IndexByte(lang, '-'); i >= 0 {
		return lang[:i]
	}
	return lang
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

func voiceID(v *tts.Voice) string {
	if v == nil {
		return ""
	}
	return v.ID
}
