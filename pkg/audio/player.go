package audio

import "context"

// Player renders PCM audio on an output device. TTS providers write their
// synthesised chunks to a Player; the engine never touches output hardware
// directly.
//
// Implementations must be safe for concurrent use, but only one Play call is
// ever active per engine — the synthesis queue guarantees mutual exclusion
// before audio reaches the player.
type Player interface {
	// Play consumes PCM chunks from pcm and plays them in order. It blocks
	// until pcm is closed and the device buffer drains, or until ctx is
	// cancelled — cancellation stops playback immediately, discarding
	// whatever is buffered.
	//
	// Returns nil on a complete or cancelled playback (the caller knows
	// whether it cancelled) and a non-nil error if the output device fails.
	Play(ctx context.Context, f Format, pcm <-chan []byte) error
}
