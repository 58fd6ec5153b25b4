package voice

import "errors"

var (
	// ErrUnsupportedCapability is returned when an operation needs a
	// capability (recognition or synthesis) that no configured provider
	// offers. Capability absence is fatal for the operation; the engine
	// never retries or degrades silently.
	ErrUnsupportedCapability = errors.New("voice: capability not supported")

	// ErrMicrophoneBusy is returned when a capture operation is requested
	// while another owner (recognition or activity detection) already holds
	// the microphone. Exactly one owner may capture at a time.
	ErrMicrophoneBusy = errors.New("voice: microphone already in use")
)
