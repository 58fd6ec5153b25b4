// Package audio defines the shared audio transport types used across the
// carevoice packages: PCM frames, the output Player abstraction, and level
// measurement helpers.
//
// Frames are the atomic unit of audio transport — captured from input
// streams, measured by the activity detector, and forwarded to STT providers.
// This package lives under pkg/ because external code (alternative device
// backends) is expected to produce and consume these types.
package audio

import "time"

// Frame represents a single frame of audio data flowing through the pipeline.
type Frame struct {
	// Data is raw little-endian 16-bit PCM. Sample rate and channel count
	// are determined by the stream config.
	Data []byte

	// SampleRate in Hz (e.g., 16000 for STT input, 48000 for raw capture).
	SampleRate int

	// Channels: 1 for mono (STT input), 2 for stereo device capture.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Format describes the PCM layout of a stream without carrying data.
type Format struct {
	// SampleRate in Hz.
	SampleRate int

	// Channels is the interleaved channel count.
	Channels int
}
