// Package stt defines the Provider interface for speech-to-text backends.
//
// An STT provider wraps a real-time transcription service (e.g., Deepgram or
// Google Cloud Speech-to-Text) and exposes a uniform streaming interface. The
// central abstraction is SessionHandle: once opened, a session accepts raw PCM
// audio frames and emits a single ordered stream of Events — result batches
// (interim and final), typed errors, and a terminal end event.
//
// A single event channel is used rather than separate interim/final channels
// so that consumers observe results in exact arrival order; the engine's
// transcript aggregation depends on that ordering.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// StreamConfig describes the audio format and recognition hints for a new STT
// session. All fields must be compatible with what the underlying provider
// supports; see each provider's documentation for valid ranges.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. Common values: 16000
	// (STT-optimised mono), 48000 (raw device capture).
	SampleRate int

	// Channels is the number of audio channels. 1 = mono (required by most
	// STT providers). Implementors may downmix stereo internally.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g., "en-US").
	// An empty string lets the provider auto-detect the language, if supported.
	Language string

	// Continuous requests an open-ended dictation session rather than a
	// single-utterance one. Providers that only support one mode may ignore
	// this hint.
	Continuous bool

	// MaxAlternatives is the number of ranked alternatives requested per
	// result. Zero means provider default. Only the top-ranked alternative is
	// consumed by the engine; the rest are informational.
	MaxAlternatives int
}

// SessionHandle represents an open STT streaming session. It is an interface
// so that test code can provide mock implementations without requiring a live
// provider connection.
//
// Callers must call Close when the session is no longer needed. Failing to do
// so may leak goroutines and network connections inside the provider
// implementation. All methods must be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw PCM audio bytes to the provider for
	// transcription. The chunk should match the SampleRate, Channels, and
	// bit-depth agreed in StreamConfig. Calling SendAudio after Close returns
	// an error.
	SendAudio(chunk []byte) error

	// Events returns a read-only channel that delivers session events in
	// arrival order: result batches, typed recognition errors, and a final
	// EventEnd. After EventEnd (or an error event, which is terminal) the
	// channel is closed. The caller must drain the channel.
	Events() <-chan Event

	// Close requests that the session end, flushing any pending audio. The
	// session is not finished until EventEnd is observed on Events; cleanup
	// happens asynchronously. Calling Close more than once is safe and
	// returns nil.
	Close() error
}

// Provider is the abstraction over any STT backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// StartStream opens a new streaming transcription session with the given
	// audio format and recognition configuration. The returned SessionHandle
	// is ready to accept audio immediately.
	//
	// Returns an error if the provider cannot establish the session (e.g.,
	// authentication failure, unsupported configuration, or ctx already
	// cancelled). The caller owns the SessionHandle and must call Close when
	// done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
