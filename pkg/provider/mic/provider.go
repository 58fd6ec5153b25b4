// Package mic defines the audio input device provider interface: device
// enumeration for presence checks, and live capture streams for recognition
// and activity detection.
//
// A Stream holds real hardware. Whoever opens one owns it exclusively and
// must close it to release the device — on every exit path, including
// failures during construction of whatever consumes the stream. Close is
// idempotent by contract so that layered cleanup is safe.
//
// Implementations must be safe for concurrent use.
package mic

import (
	"context"

	"github.com/carevoice/carevoice/pkg/audio"
)

// Device identifies one audio-input-capable device.
type Device struct {
	// ID is the backend-specific device identifier.
	ID string

	// Name is the human-readable device description.
	Name string
}

// StreamConfig describes the capture format for a new stream.
type StreamConfig struct {
	// SampleRate is the requested capture rate in Hz. Zero means the
	// backend's default (16000 for this engine).
	SampleRate int

	// Channels is the requested channel count. Zero means mono.
	Channels int
}

// Stream is an open capture stream on the default input device.
type Stream interface {
	// Frames returns a read-only channel delivering captured PCM frames in
	// order. The channel is closed when the stream is closed or the device
	// fails.
	Frames() <-chan audio.Frame

	// Level returns the instantaneous normalised amplitude in [0, 1] of the
	// most recently captured frame, 0 before any frame has arrived. It never
	// blocks; the activity detector polls it on a fixed-rate tick.
	Level() float64

	// Close stops capture and releases the device. Calling Close more than
	// once is safe and returns nil.
	Close() error
}

// Provider is the abstraction over an audio input backend.
type Provider interface {
	// Devices enumerates the audio-input-capable devices currently present,
	// independent of whether the process has permission to open them.
	Devices(ctx context.Context) ([]Device, error)

	// Open begins capturing from the default input device. The returned
	// Stream is live immediately. Returns an error if no device exists or
	// the platform refuses access.
	Open(ctx context.Context, cfg StreamConfig) (Stream, error)
}
