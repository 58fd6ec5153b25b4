package audio

import (
	"encoding/binary"
	"testing"
)

func TestApplyGain_UnityPassthrough(t *testing.T) {
	t.Parallel()

	chunk := []byte{0x00, 0x40, 0x00, 0xc0}
	out := ApplyGain(chunk, 1)
	if &out[0] != &chunk[0] {
		t.Error("unity gain should return the input chunk")
	}
}

func TestApplyGain_OutOfRangeTreatedAsUnity(t *testing.T) {
	t.Parallel()

	chunk := []byte{0x00, 0x40}
	for _, gain := range []float64{0, -0.5, 1.5} {
		out := ApplyGain(chunk, gain)
		if &out[0] != &chunk[0] {
			t.Errorf("gain %f should pass the input through", gain)
		}
	}
}

func TestApplyGain_HalvesSamples(t *testing.T) {
	t.Parallel()

	chunk := make([]byte, 4)
	pos := int16(16000)
	neg := int16(-16000)
	binary.LittleEndian.PutUint16(chunk[0:], uint16(pos))
	binary.LittleEndian.PutUint16(chunk[2:], uint16(neg))

	out := ApplyGain(chunk, 0.5)

	if got := int16(binary.LittleEndian.Uint16(out[0:])); got != 8000 {
		t.Errorf("expected 8000, got %d", got)
	}
	if got := int16(binary.LittleEndian.Uint16(out[2:])); got != -8000 {
		t.Errorf("expected -8000, got %d", got)
	}
	if got := int16(binary.LittleEndian.Uint16(chunk[0:])); got != 16000 {
		t.Errorf("input modified: got %d", got)
	}
}

func TestApplyGain_OddTrailingByteUntouched(t *testing.T) {
	t.Parallel()

	chunk := []byte{0x10, 0x00, 0x7f}
	out := ApplyGain(chunk, 0.5)
	if out[2] != 0x7f {
		t.Errorf("trailing byte modified: got %#x", out[2])
	}
}
