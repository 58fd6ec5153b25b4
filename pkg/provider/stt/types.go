package stt

import "fmt"

// Alternative is one ranked transcription hypothesis within a Result.
type Alternative struct {
	// Text is the transcribed speech content.
	Text string

	// Confidence is the provider's confidence score in [0.0, 1.0]. May be
	// zero if the provider does not report confidence for this hypothesis.
	Confidence float64
}

// Result is a single recognition result. Providers deliver results in strictly
// increasing arrival order per session; consumers process only the alternative
// at index 0 (the highest ranked).
type Result struct {
	// Alternatives is the non-empty ordered list of hypotheses, best first.
	Alternatives []Alternative

	// IsFinal reports whether the provider has committed to this result.
	// Final text will not be revised; interim text is a tentative suffix
	// replaced wholesale by the next result.
	IsFinal bool
}

// Top returns the highest-ranked alternative, or a zero Alternative if the
// result carries none.
func (r Result) Top() Alternative {
	if len(r.Alternatives) == 0 {
		return Alternative{}
	}
	return r.Alternatives[0]
}

// EventType classifies session events.
type EventType int

const (
	// EventResults carries a non-empty batch of recognition results.
	EventResults EventType = iota

	// EventError carries a terminal RecognitionError. No further results
	// follow; the session is over.
	EventError

	// EventEnd marks natural end-of-capture. The transcript is complete.
	EventEnd
)

// String returns the human-readable name of the event type.
func (t EventType) String() string {
	switch t {
	case EventResults:
		return "RESULTS"
	case EventError:
		return "ERROR"
	case EventEnd:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// Event is one entry in a session's ordered event stream.
type Event struct {
	// Type discriminates the payload.
	Type EventType

	// Results is set when Type is EventResults.
	Results []Result

	// Err is set when Type is EventError.
	Err *RecognitionError
}

// ErrorCode is the small, provider-independent taxonomy of recognition
// failures. Every provider error is collapsed into one of these codes at the
// wrapper boundary; permission and hardware issues are not distinguished
// beyond CodeNotAllowed / CodeAudioCapture.
type ErrorCode string

const (
	// CodeNoSpeech means the provider heard nothing recognisable.
	CodeNoSpeech ErrorCode = "no-speech"

	// CodeAudioCapture means the microphone stream failed or disappeared.
	CodeAudioCapture ErrorCode = "audio-capture"

	// CodeNotAllowed means the platform refused access to the capture device.
	CodeNotAllowed ErrorCode = "not-allowed"

	// CodeNetwork means the provider connection failed.
	CodeNetwork ErrorCode = "network"

	// CodeOther covers everything else.
	CodeOther ErrorCode = "other"
)

// RecognitionError is a typed, terminal session failure. All recognition
// errors stop capture; the engine never retries on its own.
type RecognitionError struct {
	// Code is the taxonomy bucket.
	Code ErrorCode

	// Message is the provider's original description, kept for logs.
	Message string
}

// Error implements the error interface.
func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition error (%s): %s", e.Code, e.Message)
}
