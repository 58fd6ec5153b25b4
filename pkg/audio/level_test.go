package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcm(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		samples []int16
		want    float64
	}{
		{"silence", []int16{0, 0, 0, 0}, 0},
		{"full scale negative", []int16{-32768}, 1.0},
		{"half scale", []int16{16384, -16384}, 0.5},
		{"mixed", []int16{0, 16384, 0, -16384}, 0.25},
		{"quiet speech", []int16{300, -280, 310, -295}, (300 + 280 + 310 + 295) / 4.0 / 32768.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Level(pcm(tt.samples...))
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Level() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevelDegenerateInput(t *testing.T) {
	t.Parallel()

	if got := Level(nil); got != 0 {
		t.Errorf("Level(nil) = %v, want 0", got)
	}
	if got := Level([]byte{0x7f}); got != 0 {
		t.Errorf("Level(single byte) = %v, want 0 for truncated chunk", got)
	}
	// A trailing odd byte is ignored, not misread as a sample.
	chunk := append(pcm(16384), 0xff)
	if got := Level(chunk); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Level(odd length) = %v, want 0.5", got)
	}
}

func TestLevelIsBounded(t *testing.T) {
	t.Parallel()

	loud := make([]int16, 512)
	for i := range loud {
		if i%2 == 0 {
			loud[i] = math.MaxInt16
		} else {
			loud[i] = math.MinInt16
		}
	}
	got := Level(pcm(loud...))
	if got < 0 || got > 1 {
		t.Errorf("Level() = %v, want within [0, 1]", got)
	}
}
