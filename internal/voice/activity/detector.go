// Package activity implements voice activity detection: a two-state edge
// detector driven by periodically sampled microphone levels, and a Monitor
// that owns the sampling loop and the capture stream.
//
// The detector is a Mealy-style state machine over a continuous sampled
// signal. Voice start is a level crossing; voice end requires sustained
// silence (hysteresis) so that the pauses and trailing partial words typical
// of elderly speakers do not end the excursion early. The two halves are
// split so the state machine can be tested without a device or a clock.
package activity

import "time"

// Default tuning. The threshold is on the normalised [0, 1] level scale of
// [audio.Level]; the silence window is how long the signal must stay at or
// below threshold before voice end fires.
const (
	DefaultThreshold     = 0.01
	DefaultSilenceWindow = 1000 * time.Millisecond
)

// Edge is the output of one detector observation.
type Edge int

const (
	// EdgeNone means no state change on this sample.
	EdgeNone Edge = iota

	// EdgeVoiceStart fires on the sample that crosses above threshold while
	// the detector is inactive. At most once per continuous excursion.
	EdgeVoiceStart

	// EdgeVoiceEnd fires on the first sample at/below threshold after the
	// silence window has elapsed with no above-threshold sample.
	EdgeVoiceEnd
)

// String returns the human-readable name of the edge.
func (e Edge) String() string {
	switch e {
	case EdgeNone:
		return "NONE"
	case EdgeVoiceStart:
		return "VOICE_START"
	case EdgeVoiceEnd:
		return "VOICE_END"
	default:
		return "UNKNOWN"
	}
}

// Detector is the pure edge-detection state machine. It holds no device and
// reads no clock — callers supply the sampled level and the sample time.
//
// Detector is not safe for concurrent use; the Monitor drives it from a
// single goroutine, which is the only mutation discipline this engine needs.
type Detector struct {
	threshold     float64
	silenceWindow time.Duration

	active       bool
	silenceStart time.Time
}

// NewDetector creates a detector with the given threshold and silence window.
// Non-positive arguments fall back to the package defaults.
func NewDetector(threshold float64, silenceWindow time.Duration) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if silenceWindow <= 0 {
		silenceWindow = DefaultSilenceWindow
	}
	return &Detector{threshold: threshold, silenceWindow: silenceWindow}
}

// Observe feeds one sampled level taken at now into the state machine and
// returns the edge, if any, that this sample triggered.
//
// The transition rules, in order:
//
//  1. level above threshold, inactive → activate, reset the silence timer,
//     emit EdgeVoiceStart.
//  2. level above threshold, active → reset the silence timer (keeps the
//     voice alive through brief dips as long as peaks recur).
//  3. level at/below threshold, active, and the silence timer is at least
//     the silence window old → deactivate, emit EdgeVoiceEnd.
//  4. level at/below threshold, inactive → nothing.
func (d *Detector) Observe(level float64, now time.Time) Edge {
	if level > d.threshold {
		d.silenceStart = now
		if !d.active {
			d.active = true
			return EdgeVoiceStart
		}
		return EdgeNone
	}
	if d.active && now.Sub(d.silenceStart) >= d.silenceWindow {
		d.active = false
		return EdgeVoiceEnd
	}
	return EdgeNone
}

// Active reports whether the detector currently considers voice present.
func (d *Detector) Active() bool { return d.active }

// Reset returns the detector to the inactive state without emitting an edge.
func (d *Detector) Reset() {
	d.active = false
	d.silenceStart = time.Time{}
}
