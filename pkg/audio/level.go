package audio

import "encoding/binary"

// maxMagnitude is the largest absolute value a 16-bit PCM sample can carry.
// Levels are normalised against it so that callers always see [0, 1].
const maxMagnitude = 32768.0

// Level computes the instantaneous amplitude of a little-endian 16-bit PCM
// chunk as the mean of the per-sample magnitudes, normalised to [0, 1] by the
// maximum representable magnitude.
//
// A quiet room measures well under 0.01; conversational speech from an elderly
// speaker at arm's length typically peaks between 0.05 and 0.3. The activity
// detector's default threshold is calibrated against this scale.
//
// An empty or truncated chunk yields 0.
func Level(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		v := float64(s)
		if v < 0 {
			v = -v
		}
		sum += v
	}
	return sum / float64(n) / maxMagnitude
}
