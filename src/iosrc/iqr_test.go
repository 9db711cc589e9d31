package iosrc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n5dsp/m110a/src/modem"
)

func Test_IQRSinkSource_HeaderAndSampleRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.iqr")

	header := IQRHeader{
		Version:         1,
		SampleRateHz:    2_000_000,
		CenterFreqHz:    14_070_000,
		BandwidthKHz:    200,
		GainReductionDB: 20,
		LNAState:        1,
		StartTimeUnixUs: 1_700_000_000_000_000,
	}
	sink, err := CreateIQRSink(path, header)
	require.NoError(t, err)

	want := make([]modem.Sample, 0, 480000)
	for i := 0; i < 480000; i++ {
		want = append(want, complex(0.5, 0))
	}
	require.NoError(t, sink.Write(want))
	require.NoError(t, sink.Close())

	src, err := OpenIQRSource(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, header.SampleRateHz, src.Header.SampleRateHz)
	assert.Equal(t, header.CenterFreqHz, src.Header.CenterFreqHz)
	assert.Equal(t, header.BandwidthKHz, src.Header.BandwidthKHz)
	assert.Equal(t, uint64(480000), src.Header.SampleCount)

	buf := make([]modem.Sample, 4096)
	var total int
	for src.HasData() {
		n, err := src.Read(buf)
		require.NoError(t, err)
		if n == 0 {
			break
		}
		total += n
	}
	assert.Equal(t, len(want), total)
}

func Test_OpenIQRSource_RejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.iqr")
	header := IQRHeader{SampleRateHz: 48000}
	sink, err := CreateIQRSink(path, header)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	copy(raw[0:4], "BAD!")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = OpenIQRSource(path)
	assert.Error(t, err)
}

func Test_IQRSource_ResetRereadsFromStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reset.iqr")
	sink, err := CreateIQRSink(path, IQRHeader{SampleRateHz: 48000})
	require.NoError(t, err)
	samples := []modem.Sample{complex(0.1, 0.2), complex(-0.1, -0.2)}
	require.NoError(t, sink.Write(samples))
	require.NoError(t, sink.Close())

	src, err := OpenIQRSource(path)
	require.NoError(t, err)
	defer src.Close()

	buf := make([]modem.Sample, 2)
	n, err := src.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, src.Reset())
	assert.True(t, src.HasData())
	n, err = src.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 0.1, real(buf[0]), 1e-3)
}
