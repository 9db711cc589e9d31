package modem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func allModeRects() []InterleaverRect {
	seen := map[InterleaverRect]bool{}
	var rects []InterleaverRect
	for _, m := range Modes {
		if !seen[m.Rect] {
			seen[m.Rect] = true
			rects = append(rects, m.Rect)
		}
	}
	return rects
}

func Test_Interleaver_RoundTripEveryMode(t *testing.T) {
	for _, rect := range allModeRects() {
		il := NewInterleaver(rect)
		rapid.Check(t, func(t *rapid.T) {
			bits := make([]bool, il.BlockSize())
			for i := range bits {
				bits[i] = rapid.Boolean().Draw(t, "bit")
			}

			interleaved := il.Interleave(bits)
			assert.Equal(t, bits, il.Deinterleave(interleaved))

			deinterleaved := il.Deinterleave(bits)
			assert.Equal(t, bits, il.Interleave(deinterleaved))
		})
	}
}

func Test_Interleaver_PermutationIsBijective(t *testing.T) {
	for _, rect := range allModeRects() {
		il := NewInterleaver(rect)
		seen := make([]bool, il.BlockSize())
		for _, src := range il.readIdx {
			assert.False(t, seen[src], "index %d read twice", src)
			seen[src] = true
		}
	}
}

func Test_Interleaver_DeinterleaveSoftPreservesSign(t *testing.T) {
	rect := Modes["M2400S"].Rect
	il := NewInterleaver(rect)
	bits := make([]SoftBit, il.BlockSize())
	for i := range bits {
		if i%2 == 0 {
			bits[i] = 10
		} else {
			bits[i] = -10
		}
	}
	out := il.DeinterleaveSoft(bits)
	for _, v := range out {
		assert.True(t, v == 10 || v == -10)
	}
}
