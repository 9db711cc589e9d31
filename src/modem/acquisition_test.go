package modem

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SearchPreambleTiming's detected offset should land within one symbol
// of the true boundary when the common segment is embedded in an
// otherwise random symbol stream.
func Test_SearchPreambleTiming_OffsetWithinOneSymbol(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	prefixLen := 40

	buf := make([]Sample, 0, prefixLen+len(commonReference)+20)
	for i := 0; i < prefixLen; i++ {
		buf = append(buf, PSK8Constellation[rng.Intn(8)])
	}
	buf = append(buf, commonReference...)
	for i := 0; i < 20; i++ {
		buf = append(buf, PSK8Constellation[rng.Intn(8)])
	}

	result := SearchPreambleTiming(buf)
	require.GreaterOrEqual(t, result.Peak, PreambleEarlyTerminationThreshold)
	assert.InDelta(t, prefixLen, result.Offset, 1)
}

func Test_SearchPreambleTiming_NoMatchReturnsLowPeak(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	buf := make([]Sample, len(commonReference)+20)
	for i := range buf {
		buf[i] = PSK8Constellation[rng.Intn(8)]
	}
	result := SearchPreambleTiming(buf)
	assert.Less(t, result.Peak, PreambleEarlyTerminationThreshold)
}
