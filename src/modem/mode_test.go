package modem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ModeByName_KnownAndUnknown(t *testing.T) {
	m, err := ModeByName("M2400S")
	require.NoError(t, err)
	assert.Equal(t, "M2400S", m.Name)

	_, err = ModeByName("M9999X")
	assert.Error(t, err)
}

func Test_DetectMode_EveryModeRecoverableFromItsD1D2(t *testing.T) {
	for name, mode := range Modes {
		detected, ok := DetectMode(mode.D1, mode.D2)
		require.True(t, ok, name)
		assert.Equal(t, mode.D1, detected.D1, name)
		assert.Equal(t, mode.D2, detected.D2, name)
	}
}

func Test_DetectMode_UnknownPairNotFound(t *testing.T) {
	_, ok := DetectMode(99, 99)
	assert.False(t, ok)
}

func Test_Modes_TableHasSixteenStandardModes(t *testing.T) {
	assert.Len(t, Modes, 16)
}
