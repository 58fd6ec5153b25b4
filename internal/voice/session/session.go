// Package session implements the recognition session: the state machine that
// wraps a speech-to-text provider and aggregates its interim and final
// results into a running transcript with a confidence score.
//
// The session is a finite state machine:
//
//	idle → listening → processing → idle
//
// with error as an absorbing exit from listening/processing. Transcript
// mutations only occur while listening or processing; once the terminal event
// (end-of-capture or error) fires, the transcript is frozen until the next
// Start. All state mutation happens on the session's event goroutine — the
// mutex exists only so snapshots can be read from other goroutines.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/carevoice/carevoice/internal/observe"
	"github.com/carevoice/carevoice/internal/transcript"
	"github.com/carevoice/carevoice/pkg/provider/mic"
	"github.com/carevoice/carevoice/pkg/provider/stt"
)

// ErrUnsupported is returned by Start when no recognition provider exists on
// this platform. Fatal for the operation; the session never retries.
var ErrUnsupported = errors.New("session: recognition capability not supported")

// Phase is the session lifecycle state.
type Phase int

const (
	// Idle means no capture is running. The transcript of the previous run,
	// if any, is frozen.
	Idle Phase = iota

	// Listening means capture is running and results may still arrive.
	Listening

	// Processing means at least one final result has been committed — the
	// surrounding application is expected to act on the transcript. Capture
	// is still running until the terminal event.
	Processing
)

// String returns the human-readable name of the phase.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "IDLE"
	case Listening:
		return "LISTENING"
	case Processing:
		return "PROCESSING"
	default:
		return "UNKNOWN"
	}
}

// State is an immutable snapshot of the session, published to observers on
// every change.
type State struct {
	// Phase is the lifecycle state.
	Phase Phase

	// Committed is the authoritative transcript: every final result's
	// top-alternative text, concatenated in arrival order. Never revised.
	Committed string

	// Tentative is the current interim suffix — transient display-only text
	// replaced wholesale by each new result. Empty once the session ends.
	Tentative string

	// Confidence is the confidence of the most recent final result; 0 before
	// any final result arrives.
	Confidence float64

	// Err is the terminal recognition error, if the session ended on one.
	Err *stt.RecognitionError
}

// Transcript returns the text a caller should display: committed plus the
// tentative suffix.
func (s State) Transcript() string { return s.Committed + s.Tentative }

// Listening reports whether capture is running.
func (s State) Listening() bool { return s.Phase == Listening || s.Phase == Processing }

// Option is a functional option for configuring a Session.
type Option func(*Session)

// WithCorrector applies c to every final result before it is committed.
// Interim text is never corrected.
func WithCorrector(c transcript.Corrector) Option {
	return func(s *Session) { s.corrector = c }
}

// WithMetrics sets the metrics instance. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithStreamConfig sets the recognition stream configuration used on Start.
func WithStreamConfig(cfg stt.StreamConfig) Option {
	return func(s *Session) { s.cfg = cfg }
}

// WithOnChange registers fn to receive a State snapshot after every state
// change. fn is invoked on the goroutine performing the change and must not
// block.
func WithOnChange(fn func(State)) Option {
	return func(s *Session) { s.onChange = fn }
}

// WithOnTerminal registers fn to be invoked once per run when the session
// reaches its terminal event (end-of-capture or error), after state has been
// updated. Invoked on the event goroutine only, never from inside Start.
func WithOnTerminal(fn func()) Option {
	return func(s *Session) { s.onTerminal = fn }
}

// run bundles the resources of one capture run. Event handling is keyed to
// the run that produced it, so a stale goroutine from a stopped run can never
// corrupt the state of a newer one.
type run struct {
	handle    stt.SessionHandle
	stream    mic.Stream
	startedAt time.Time
}

// Session aggregates recognition results from a speech-to-text provider.
// Safe for concurrent use.
type Session struct {
	provider stt.Provider
	micProv  mic.Provider
	cfg      stt.StreamConfig

	corrector  transcript.Corrector
	metrics    *observe.Metrics
	onChange   func(State)
	onTerminal func()

	mu      sync.Mutex
	state   State
	current *run
}

// New creates a Session over the given providers. provider may be nil, in
// which case Start reports ErrUnsupported — capability absence is determined
// once at construction time and never changes.
func New(provider stt.Provider, micProv mic.Provider, opts ...Option) *Session {
	s := &Session{
		provider: provider,
		micProv:  micProv,
		cfg: stt.StreamConfig{
			SampleRate: 16000,
			Channels:   1,
			Language:   "en-US",
			Continuous: true,
		},
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Supported reports whether a recognition provider exists.
func (s *Session) Supported() bool { return s.provider != nil }

// SetCorrector swaps the final-result corrector at runtime. Applies to the
// next final result; already-committed text is never re-corrected. A nil c
// disables correction.
func (s *Session) SetCorrector(c transcript.Corrector) {
	s.mu.Lock()
	s.corrector = c
	s.mu.Unlock()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start resets all session state and begins a new capture run: it opens the
// microphone, opens a provider stream, and starts pumping audio and consuming
// events. Returns ErrUnsupported when no provider exists.
//
// Failures after the microphone was acquired release it before surfacing as
// typed error state — no error path holds the device. Start while a run is
// already active stops the previous run first; callers that need stricter
// arbitration (the engine does) enforce it above this layer.
func (s *Session) Start(ctx context.Context) error {
	if s.provider == nil {
		return ErrUnsupported
	}

	s.mu.Lock()
	if s.current != nil {
		// Abandon the previous run; its event goroutine will notice it is
		// stale and clean itself up.
		prev := s.current
		s.current = nil
		s.mu.Unlock()
		_ = prev.handle.Close()
		_ = prev.stream.Close()
		s.mu.Lock()
	}
	s.state = State{Phase: Listening}
	s.mu.Unlock()
	s.publish()

	stream, err := s.micProv.Open(ctx, mic.StreamConfig{
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
	})
	if err != nil {
		s.failStart(ctx, stt.CodeAudioCapture, err)
		return nil
	}

	handle, err := s.provider.StartStream(ctx, s.cfg)
	if err != nil {
		_ = stream.Close()
		s.failStart(ctx, stt.CodeNetwork, err)
		return nil
	}

	r := &run{handle: handle, stream: stream, startedAt: time.Now()}
	s.mu.Lock()
	s.current = r
	s.mu.Unlock()

	go s.pump(r)
	go s.consume(ctx, r)

	slog.Debug("recognition session started",
		"language", s.cfg.Language,
		"sample_rate", s.cfg.SampleRate,
	)
	return nil
}

// Stop requests that the current run end. It is idempotent and does not clear
// state — only the terminal event does, asynchronously. Safe to call when no
// run is active.
func (s *Session) Stop() {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()
	if r != nil {
		_ = r.handle.Close()
	}
}

// failStart converts a capture-setup failure into terminal error state. Per
// the error taxonomy, everything below the gate collapses into a provider
// error code; the caller sees typed state, not an exception.
func (s *Session) failStart(ctx context.Context, code stt.ErrorCode, err error) {
	recErr := &stt.RecognitionError{Code: code, Message: err.Error()}
	s.mu.Lock()
	s.state.Phase = Idle
	s.state.Err = recErr
	s.mu.Unlock()
	s.metrics.RecordRecognitionError(ctx, string(code))
	slog.Warn("recognition start failed", "code", code, "err", err)
	s.publish()
	if s.onTerminal != nil {
		// Run asynchronously so Start never invokes the terminal callback
		// from the caller's goroutine.
		go s.onTerminal()
	}
}

// pump forwards captured PCM frames to the provider until the stream closes.
func (s *Session) pump(r *run) {
	for frame := range r.stream.Frames() {
		if err := r.handle.SendAudio(frame.Data); err != nil {
			// The session is ending; the consume goroutine owns the
			// terminal transition.
			return
		}
	}
}

// consume is the designated event handler for this run's state machine. All
// transcript mutation happens here, in event arrival order.
func (s *Session) consume(ctx context.Context, r *run) {
	for ev := range r.handle.Events() {
		switch ev.Type {
		case stt.EventResults:
			s.applyResults(ctx, r, ev.Results)
		case stt.EventError:
			s.finish(ctx, r, ev.Err)
			return
		case stt.EventEnd:
			s.finish(ctx, r, nil)
			return
		}
	}
	// Channel closed without a terminal event — treat as natural end so the
	// microphone is still released.
	s.finish(ctx, r, nil)
}

// applyResults folds one ordered result batch into the transcript.
func (s *Session) applyResults(ctx context.Context, r *run, results []stt.Result) {
	s.mu.Lock()
	if s.current != r {
		s.mu.Unlock()
		return
	}
	for _, res := range results {
		top := res.Top()
		if res.IsFinal {
			text := top.Text
			if s.corrector != nil {
				text = s.corrector.Correct(text)
			}
			s.state.Committed += text
			s.state.Confidence = top.Confidence
			s.state.Tentative = ""
			s.state.Phase = Processing
		} else {
			s.state.Tentative = top.Text
		}
	}
	s.mu.Unlock()

	for _, res := range results {
		kind := "interim"
		if res.IsFinal {
			kind = "final"
		}
		s.metrics.RecordRecognitionResult(ctx, kind)
	}
	s.publish()
}

// finish applies the terminal transition: error or natural end-of-capture.
// Either way capture stops, the microphone is released, and the transcript is
// frozen until the next Start.
func (s *Session) finish(ctx context.Context, r *run, recErr *stt.RecognitionError) {
	s.mu.Lock()
	if s.current != r {
		s.mu.Unlock()
		_ = r.stream.Close()
		return
	}
	s.current = nil
	s.state.Phase = Idle
	s.state.Tentative = ""
	s.state.Err = recErr
	s.mu.Unlock()

	_ = r.handle.Close()
	_ = r.stream.Close()

	s.metrics.RecognitionDuration.Record(ctx, time.Since(r.startedAt).Seconds())
	if recErr != nil {
		s.metrics.RecordRecognitionError(ctx, string(recErr.Code))
		slog.Info("recognition session ended with error", "code", recErr.Code, "msg", recErr.Message)
	} else {
		slog.Debug("recognition session ended")
	}

	s.publish()
	if s.onTerminal != nil {
		s.onTerminal()
	}
}

// Reset clears frozen state back to a fresh idle snapshot. No-op while a run
// is active — live transcripts cannot be reset out from under the provider.
func (s *Session) Reset() {
	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		slog.Warn("transcript reset ignored while a recognition run is active")
		return
	}
	s.state = State{}
	s.mu.Unlock()
	s.publish()
}

// publish delivers the current snapshot to the change observer, if any.
func (s *Session) publish() {
	if s.onChange == nil {
		return
	}
	s.onChange(s.Snapshot())
}

// UserMessage maps a recognition error code to the plain-language message the
// surrounding application shows. Wording is kept short and blame-free for
// elderly users.
func UserMessage(code stt.ErrorCode) string {
	switch code {
	case stt.CodeNoSpeech:
		return "I didn't hear anything. Please try speaking again."
	case stt.CodeAudioCapture:
		return "I couldn't reach your microphone. Please check that it is connected."
	case stt.CodeNotAllowed:
		return "Microphone access is turned off. Please allow it in your settings."
	case stt.CodeNetwork:
		return "I'm having trouble connecting. Please try again in a moment."
	default:
		return "Something went wrong with listening. Please try again."
	}
}
