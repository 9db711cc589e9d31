package iosrc

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n5dsp/m110a/src/modem"
)

// A baseband tone offset from carrierHz, written through PCMSink (which
// upconverts to carrierHz) and read back through PCMSource (which
// downconverts from carrierHz), should recover close to its original
// offset frequency.
func Test_PCMSinkSource_RecoversToneOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.pcm")
	const sampleRate = 48000.0
	const carrierHz = 1800.0
	const toneOffsetHz = 200.0

	sink, err := CreatePCMSink(path, sampleRate, carrierHz)
	require.NoError(t, err)

	n := 4800
	tx := make([]modem.Sample, n)
	nco := modem.NewNCO(toneOffsetHz, sampleRate)
	for i := range tx {
		tx[i] = nco.Mix(1)
	}
	require.NoError(t, sink.Write(tx))
	require.NoError(t, sink.Close())

	src, err := OpenPCMSource(path, sampleRate, carrierHz)
	require.NoError(t, err)
	defer src.Close()

	rx := make([]modem.Sample, n)
	total := 0
	for total < n && src.HasData() {
		got, err := src.Read(rx[total:])
		require.NoError(t, err)
		if got == 0 {
			break
		}
		total += got
	}
	require.Greater(t, total, n/2)

	// Skip the filter's transient and measure the recovered offset over
	// the settled portion.
	settled := rx[500:total]
	est := modem.CoarseFrequencyOffset(settled, sampleRate)
	assert.InDelta(t, toneOffsetHz, est, 15)
	assert.False(t, math.IsNaN(est))
}

func Test_PCMSource_ResetRereadsFromStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reset.pcm")
	const sampleRate = 48000.0
	const carrierHz = 1800.0

	sink, err := CreatePCMSink(path, sampleRate, carrierHz)
	require.NoError(t, err)
	require.NoError(t, sink.Write(make([]modem.Sample, 100)))
	require.NoError(t, sink.Close())

	src, err := OpenPCMSource(path, sampleRate, carrierHz)
	require.NoError(t, err)
	defer src.Close()

	buf := make([]modem.Sample, 100)
	n, err := src.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	require.NoError(t, src.Reset())
	assert.True(t, src.HasData())
}
