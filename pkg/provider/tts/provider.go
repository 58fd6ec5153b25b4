// Package tts defines the Provider interface for text-to-speech backends.
//
// A TTS provider wraps a speech synthesis service (e.g., ElevenLabs or the
// OpenAI speech endpoint) together with the playback path, and presents a
// uniform per-utterance interface. The primary entry point is Speak, which
// begins synthesis and playback of one utterance and returns a SpeechHandle
// the caller watches for completion. Cancel-in-flight is mandatory: the
// engine's preemption policy depends on it.
//
// Implementations must be safe for concurrent use, though the engine itself
// never keeps more than one utterance in flight per provider.
package tts

import "context"

// SpeechHandle represents one utterance in flight. It is an interface so that
// test code can provide mock implementations without audible output.
type SpeechHandle interface {
	// Done returns a channel that is closed when the utterance has finished —
	// whether by completing playback, being cancelled, or failing. After Done
	// is closed, Err reports the outcome.
	Done() <-chan struct{}

	// Err returns nil if the utterance played to completion, ErrInterrupted
	// if it was cancelled, or a *SynthesisError if the provider failed
	// mid-utterance. Err must only be called after Done is closed.
	Err() error

	// Cancel requests immediate cancellation of synthesis and playback. It is
	// safe to call multiple times and after completion; extra calls are
	// no-ops. Cancellation is a request — the utterance is finished only when
	// Done closes.
	Cancel()
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Speak begins synthesis and playback of u. It returns as soon as the
	// utterance is accepted; audio continues after Speak returns and the
	// returned handle tracks its lifetime.
	//
	// Returns a non-nil error only if the utterance cannot be started (bad
	// voice, connection failure, ctx already cancelled). Errors during
	// playback surface through the handle.
	Speak(ctx context.Context, u Utterance) (SpeechHandle, error)

	// ListVoices returns all voice profiles available from this provider.
	// The list reflects the provider's current catalogue and may change
	// between calls if the underlying service adds or removes voices.
	ListVoices(ctx context.Context) ([]Voice, error)
}
