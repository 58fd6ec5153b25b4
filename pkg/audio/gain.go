package audio

import "encoding/binary"

// ApplyGain scales a little-endian 16-bit PCM chunk by gain in (0, 1]. The
// input is never modified; unity gain returns it as-is to avoid a copy on the
// common path. Values outside (0, 1] are treated as unity.
func ApplyGain(pcm []byte, gain float64) []byte {
	if gain <= 0 || gain >= 1 {
		return pcm
	}
	out := make([]byte, len(pcm))
	copy(out, pcm)
	for i := 0; i+1 < len(out); i += 2 {
		s := int16(binary.LittleEndian.Uint16(out[i:]))
		binary.LittleEndian.PutUint16(out[i:], uint16(int16(float64(s)*gain)))
	}
	return out
}
