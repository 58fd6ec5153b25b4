// Package voice is the facade over the voice stack: it owns the recognition
// session, the synthesis speaker, the activity monitor, and the permission
// gate, and arbitrates the one shared resource between them — the
// microphone. Applications talk to an [Engine]; the subpackages are
// implementation detail.
package voice

import (
	"context"
	"log/slog"
	"sync"

	"github.com/carevoice/carevoice/internal/observe"
	"github.com/carevoice/carevoice/internal/transcript"
	"github.com/carevoice/carevoice/internal/voice/activity"
	"github.com/carevoice/carevoice/internal/voice/gate"
	"github.com/carevoice/carevoice/internal/voice/session"
	"github.com/carevoice/carevoice/internal/voice/speaker"
	"github.com/carevoice/carevoice/pkg/provider/mic"
	"github.com/carevoice/carevoice/pkg/provider/stt"
	"github.com/carevoice/carevoice/pkg/provider/tts"
)

// Capabilities reports which voice features the configured providers offer.
// Determined once at engine construction and immutable afterwards.
type Capabilities struct {
	Recognition bool
	Synthesis   bool
}

// captureOwner identifies which subsystem currently holds the microphone.
type captureOwner int

const (
	ownerNone captureOwner = iota
	ownerRecognition
	ownerActivity
)

// Observer receives a session state snapshot after every change. Observers
// are invoked on the goroutine that performed the change and must not block.
type Observer func(session.State)

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithCorrector applies c to final transcripts.
func WithCorrector(c transcript.Corrector) Option {
	return func(e *Engine) { e.corrector = c }
}

// WithStreamConfig sets the recognition stream configuration.
func WithStreamConfig(cfg stt.StreamConfig) Option {
	return func(e *Engine) { e.streamCfg = &cfg }
}

// WithSpeakerDefaults overrides the speech parameter defaults. Zero fields
// keep their built-in value.
func WithSpeakerDefaults(rate, pitch, volume float64, language string) Option {
	return func(e *Engine) { e.speakerOpts = append(e.speakerOpts, speaker.WithDefaults(rate, pitch, volume, language)) }
}

// WithActivityOptions sets default tuning for StartActivityDetection.
func WithActivityOptions(opts ...activity.Option) Option {
	return func(e *Engine) { e.activityOpts = opts }
}

// WithMetrics sets the metrics instance used by the engine and its
// subsystems. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine is the voice interaction facade. Safe for concurrent use.
type Engine struct {
	caps    Capabilities
	gate    *gate.Gate
	session *session.Session
	speaker *speaker.Speaker
	micProv mic.Provider
	metrics *observe.Metrics

	corrector    transcript.Corrector
	streamCfg    *stt.StreamConfig
	speakerOpts  []speaker.Option
	activityOpts []activity.Option

	mu      sync.Mutex
	owner   captureOwner
	monitor *activity.Monitor

	subsMu  sync.Mutex
	subs    map[int]Observer
	nextSub int
}

// New assembles an Engine from the given providers. Any provider may be nil;
// the corresponding capability is then reported as absent and its operations
// return ErrUnsupportedCapability. Recognition additionally requires a
// microphone provider.
func New(sttProv stt.Provider, ttsProv tts.Provider, micProv mic.Provider, opts ...Option) *Engine {
	e := &Engine{
		micProv: micProv,
		subs:    make(map[int]Observer),
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}

	e.caps = Capabilities{
		Recognition: sttProv != nil && micProv != nil,
		Synthesis:   ttsProv != nil,
	}
	if micProv != nil {
		e.gate = gate.New(micProv)
	}

	sessOpts := []session.Option{
		session.WithMetrics(e.metrics),
		session.WithOnChange(e.publish),
		session.WithOnTerminal(e.releaseRecognition),
	}
	if e.corrector != nil {
		sessOpts = append(sessOpts, session.WithCorrector(e.corrector))
	}
	if e.streamCfg != nil {
		sessOpts = append(sessOpts, session.WithStreamConfig(*e.streamCfg))
	}
	e.session = session.New(sttProv, micProv, sessOpts...)

	e.speaker = speaker.New(ttsProv, append(e.speakerOpts, speaker.WithMetrics(e.metrics))...)

	slog.Info("voice engine ready",
		"recognition", e.caps.Recognition,
		"synthesis", e.caps.Synthesis,
	)
	return e
}

// Capabilities returns the capability set fixed at construction.
func (e *Engine) Capabilities() Capabilities { return e.caps }

// SetSpeakerDefaults retunes synthesis defaults at runtime. Zero fields keep
// their current value; applies from the next utterance.
func (e *Engine) SetSpeakerDefaults(rate, pitch, volume float64, language string) {
	e.speaker.SetDefaults(rate, pitch, volume, language)
}

// SetCorrector swaps the transcript corrector at runtime. Applies from the
// next final result.
func (e *Engine) SetCorrector(c transcript.Corrector) {
	e.session.SetCorrector(c)
}

// SetActivityOptions replaces the activity detector tuning. Applies from the
// next StartActivityDetection; a running monitor keeps its tuning.
func (e *Engine) SetActivityOptions(opts ...activity.Option) {
	e.mu.Lock()
	e.activityOpts = opts
	e.mu.Unlock()
}

// Snapshot returns the current recognition state.
func (e *Engine) Snapshot() session.State { return e.session.Snapshot() }

// Speaking reports whether an utterance is currently playing.
func (e *Engine) Speaking() bool { return e.speaker.Speaking() }

// Subscribe registers an observer for recognition state changes and returns
// a function that removes it. The observer immediately receives the current
// snapshot so subscribers never start blind.
func (e *Engine) Subscribe(fn Observer) (unsubscribe func()) {
	e.subsMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subsMu.Unlock()

	fn(e.session.Snapshot())

	return func() {
		e.subsMu.Lock()
		delete(e.subs, id)
		e.subsMu.Unlock()
	}
}

func (e *Engine) publish(st session.State) {
	e.subsMu.Lock()
	observers := make([]Observer, 0, len(e.subs))
	for _, fn := range e.subs {
		observers = append(observers, fn)
	}
	e.subsMu.Unlock()
	for _, fn := range observers {
		fn(st)
	}
}

// StartListening runs the permission gate and begins a recognition run. It
// fails with ErrUnsupportedCapability when recognition is unavailable, with
// ErrMicrophoneBusy when another capture owner is active, or with a typed
// gate error ([gate.ErrDeviceUnavailable], [gate.ErrPermissionDenied]) when
// preflight fails. The microphone is held until the run's terminal event.
func (e *Engine) StartListening(ctx context.Context) error {
	if !e.caps.Recognition {
		return ErrUnsupportedCapability
	}

	e.mu.Lock()
	if e.owner != ownerNone {
		e.mu.Unlock()
		return ErrMicrophoneBusy
	}
	e.owner = ownerRecognition
	e.mu.Unlock()

	if err := e.gate.Preflight(ctx); err != nil {
		e.releaseRecognition()
		return err
	}
	if err := e.session.Start(ctx); err != nil {
		e.releaseRecognition()
		return err
	}
	return nil
}

// StopListening requests the current recognition run end. Idempotent.
func (e *Engine) StopListening() { e.session.Stop() }

// releaseRecognition frees the microphone after a recognition run ends, for
// whatever reason it ended.
func (e *Engine) releaseRecognition() {
	e.mu.Lock()
	if e.owner == ownerRecognition {
		e.owner = ownerNone
	}
	e.mu.Unlock()
}

// ResetTranscript clears frozen recognition state. No-op while listening.
func (e *Engine) ResetTranscript() { e.session.Reset() }

// Speak speaks text, preempting any current utterance. Fails with
// ErrUnsupportedCapability when no synthesis provider is configured.
func (e *Engine) Speak(ctx context.Context, text string, opts speaker.Options) (*speaker.Utterance, error) {
	if !e.caps.Synthesis {
		return nil, ErrUnsupportedCapability
	}
	return e.speaker.Speak(ctx, text, opts)
}

// StopSpeaking cancels the current utterance, if any.
func (e *Engine) StopSpeaking() { e.speaker.Stop() }

// Voices returns the synthesis provider's voice catalog.
func (e *Engine) Voices(ctx context.Context) ([]tts.Voice, error) {
	if !e.caps.Synthesis {
		return nil, ErrUnsupportedCapability
	}
	return e.speaker.Voices(ctx)
}

// StartActivityDetection begins sampling the microphone level and invoking
// cb on voice start/end edges. The microphone is held until
// StopActivityDetection. Fails with ErrMicrophoneBusy while recognition or a
// previous monitor holds the device. A StopActivityDetection that overlaps a
// starting monitor wins: the start returns nil with the device released.
func (e *Engine) StartActivityDetection(ctx context.Context, cb activity.Callbacks) error {
	if e.micProv == nil {
		return ErrUnsupportedCapability
	}

	e.mu.Lock()
	if e.owner != ownerNone {
		e.mu.Unlock()
		return ErrMicrophoneBusy
	}
	e.owner = ownerActivity
	activityOpts := e.activityOpts
	e.mu.Unlock()

	wrapped := activity.Callbacks{
		OnVoiceStart: func() {
			e.metrics.RecordVoiceEdge(ctx, "start")
			if cb.OnVoiceStart != nil {
				cb.OnVoiceStart()
			}
		},
		OnVoiceEnd: func() {
			e.metrics.RecordVoiceEdge(ctx, "end")
			if cb.OnVoiceEnd != nil {
				cb.OnVoiceEnd()
			}
		},
	}

	monitor, err := activity.Start(ctx, e.micProv, wrapped, activityOpts...)

	e.mu.Lock()
	lostOwnership := e.owner != ownerActivity
	if err != nil && !lostOwnership {
		e.owner = ownerNone
	}
	if err == nil && !lostOwnership {
		e.monitor = monitor
	}
	e.mu.Unlock()

	if err != nil {
		return err
	}
	if lostOwnership {
		// A concurrent StopActivityDetection landed while the monitor was
		// starting and already released the device, possibly to a new owner.
		// Honor the stop: the fresh monitor must not keep capturing.
		monitor.Stop()
	}
	return nil
}

// StopActivityDetection stops the activity monitor and releases the
// microphone. Idempotent; no-op when no monitor is running.
func (e *Engine) StopActivityDetection() {
	e.mu.Lock()
	monitor := e.monitor
	e.monitor = nil
	if e.owner == ownerActivity {
		e.owner = ownerNone
	}
	e.mu.Unlock()

	if monitor != nil {
		monitor.Stop()
	}
}

// Preflight checks device presence and permission without starting capture.
func (e *Engine) Preflight(ctx context.Context) error {
	if e.gate == nil {
		return ErrUnsupportedCapability
	}
	return e.gate.Preflight(ctx)
}

// UserMessage maps a recognition error code to a plain-language message.
func UserMessage(code stt.ErrorCode) string { return session.UserMessage(code) }
