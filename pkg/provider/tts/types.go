package tts

import (
	"errors"
	"fmt"
)

// ErrInterrupted is the outcome of an utterance that was cancelled — either
// by an explicit stop or by a newer utterance preempting it. It is a distinct
// sentinel rather than a SynthesisError so that callers can tell an
// intentional cut-off from a provider failure with errors.Is.
var ErrInterrupted = errors.New("tts: utterance interrupted")

// Voice describes one synthesis voice offered by a provider.
type Voice struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name.
	Name string

	// Language is the BCP-47 tag of the voice's primary language (e.g.,
	// "en-US"). Used by the engine's voice-resolution policy; may be empty
	// for multilingual voices.
	Language string

	// Provider identifies which TTS provider this voice belongs to.
	Provider string

	// Metadata holds provider-specific voice attributes (gender, age,
	// accent, etc.).
	Metadata map[string]string
}

// Utterance is one discrete request to synthesise and play back a span of
// text. Delivery fields are absolute values, not multipliers of a previous
// utterance; the engine applies its elder-appropriate defaults before the
// request reaches a provider.
type Utterance struct {
	// Text is the plain text to speak.
	Text string

	// Rate scales speaking speed. 1.0 is the provider's natural rate; the
	// engine defaults to 0.8 for elderly listeners.
	Rate float64

	// Pitch scales voice pitch. 1.0 is natural.
	Pitch float64

	// Volume scales output loudness in [0.0, 1.0].
	Volume float64

	// Language is the BCP-47 tag the text is written in.
	Language string

	// Voice optionally pins a specific voice. When nil the engine resolves
	// one from the provider's catalogue.
	Voice *Voice
}

// SynthesisError is a provider-reported failure during synthesis or playback.
type SynthesisError struct {
	// Code is the provider's failure code, kept verbatim for logs.
	Code string

	// Message describes the failure.
	Message string
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis error (%s): %s", e.Code, e.Message)
}
