package modem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_BuildDecodePreambleFrame_RoundTrip(t *testing.T) {
	for _, name := range []string{"M2400S", "M1200S", "M600L", "M75NS"} {
		mode := Modes[name]
		for countdown := 0; countdown < mode.PreambleFrames; countdown++ {
			txScr := NewProbeScrambler()
			frame := BuildPreambleFrame(mode, countdown, txScr)
			require.Len(t, frame, PreambleFrameSymbols, name)

			rxScr := NewProbeScrambler()
			info, err := DecodePreambleFrame(frame, rxScr)
			require.NoError(t, err, name)

			assert.Equal(t, mode.D1, info.D1, "%s D1", name)
			assert.Equal(t, mode.D2, info.D2, "%s D2", name)
			assert.True(t, info.ModeFound, "%s mode not found", name)
			assert.Equal(t, mode.Name, info.Mode.Name, name)
			assert.Equal(t, countdown, info.Countdown, "%s countdown", name)
			assert.True(t, info.CountOK, "%s count not confident", name)
		}
	}
}

func Test_DecodePreambleFrame_RejectsWrongLength(t *testing.T) {
	_, err := DecodePreambleFrame(make([]Sample, PreambleFrameSymbols-1), NewProbeScrambler())
	assert.ErrorIs(t, err, ErrMalformedBlock)
}

func Test_BuildPreamble_LengthMatchesFrameCount(t *testing.T) {
	mode := Modes["M600L"]
	preamble := BuildPreamble(mode, NewProbeScrambler())
	assert.Len(t, preamble, mode.PreambleFrames*PreambleFrameSymbols)
	assert.Equal(t, 24*480, len(preamble))
}

func Test_ScramblerPhaseContinuityAcrossPreambleFrames(t *testing.T) {
	mode := Modes["M2400S"]
	scr := NewProbeScrambler()
	BuildPreamble(mode, scr)
	assert.Equal(t, (mode.PreambleFrames*PreambleFrameSymbols)%ProbeScramblerPeriod, scr.Phase())
}
