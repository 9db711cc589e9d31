package modem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// hardSoft converts a definite (noise-free) bit into a saturated LLR using
// the same sign convention as branchMetric: true is a large positive
// value, false a large negative one.
func hardSoft(bits []bool) []SoftBit {
	out := make([]SoftBit, len(bits))
	for i, b := range bits {
		if b {
			out[i] = 127
		} else {
			out[i] = -127
		}
	}
	return out
}

func Test_Viterbi_ExactNoiseFreeDecode(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(100, 400).Draw(t, "n")
		bits := make([]bool, n)
		for i := range bits {
			bits[i] = rapid.Boolean().Draw(t, "bit")
		}

		coded := EncodeBits(bits)
		decoded, err := NewViterbiDecoder().Decode(hardSoft(coded), true)

		require.NoError(t, err)
		assert.Equal(t, bits, decoded)
	})
}

func Test_Viterbi_RejectsOddLengthInput(t *testing.T) {
	_, err := NewViterbiDecoder().Decode([]SoftBit{1, 2, 3}, true)
	assert.ErrorIs(t, err, ErrMalformedBlock)
}

func Test_ConvEncoder_FlushReturnsToZeroState(t *testing.T) {
	enc := NewConvEncoder()
	for i := 0; i < 20; i++ {
		enc.Encode(i%3 == 0)
	}
	for i := 0; i < ViterbiFlushBits; i++ {
		enc.Encode(false)
	}
	assert.Equal(t, uint8(0), enc.shiftReg)
}
