package modem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_BitScrambler_XORIsSelfInverse(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bits := rapid.SliceOf(rapid.Boolean()).Draw(t, "bits")

		scrambled := NewBitScrambler().ScrambleBits(bits)
		descrambled := NewBitScrambler().ScrambleBits(scrambled)

		assert.Equal(t, bits, descrambled)
	})
}

func Test_ProbeScrambler_OffsetAfterNTribitsIsNMod32(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 500).Draw(t, "n")

		p := NewProbeScrambler()
		for i := 0; i < n; i++ {
			p.Next()
		}

		assert.Equal(t, n%ProbeScramblerPeriod, p.Phase())
	})
}

func Test_ProbeScrambler_TXRXStayInLockstep(t *testing.T) {
	tx := NewProbeScrambler()
	rx := NewProbeScrambler()
	for i := 0; i < 1000; i++ {
		require.Equal(t, tx.Next(), rx.Next(), "offset %d", i)
	}
}

func Test_ScrambleTribit_DescrambleIsInverse(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sym := Tribit(rapid.IntRange(0, 7).Draw(t, "sym"))
		scr := Tribit(rapid.IntRange(0, 7).Draw(t, "scr"))

		scrambled := ScrambleTribit(sym, scr)
		descrambled := DescrambleTribit(scrambled, scr)

		assert.Equal(t, sym, descrambled)
	})
}

func Test_ProbeScrambler_SetPhaseWraps(t *testing.T) {
	p := NewProbeScrambler()
	p.SetPhase(-1)
	assert.Equal(t, ProbeScramblerPeriod-1, p.Phase())

	p.SetPhase(ProbeScramblerPeriod + 5)
	assert.Equal(t, 5, p.Phase())
}
