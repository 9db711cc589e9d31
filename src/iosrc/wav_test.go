package iosrc

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n5dsp/m110a/src/modem"
)

// A baseband tone offset from carrierHz, written through WAVSink and read
// back through WAVSource, should recover close to its original offset
// frequency, and the RIFF/data chunk sizes should be patched to the true
// byte count on Close.
func Test_WAVSinkSource_RecoversToneOffsetAndPatchesSizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	const sampleRate = 48000
	const carrierHz = 1800.0
	const toneOffsetHz = 200.0

	sink, err := CreateWAVSink(path, sampleRate, carrierHz)
	require.NoError(t, err)

	n := 4800
	tx := make([]modem.Sample, n)
	nco := modem.NewNCO(toneOffsetHz, sampleRate)
	for i := range tx {
		tx[i] = nco.Mix(1)
	}
	require.NoError(t, sink.Write(tx))
	require.NoError(t, sink.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(44+n*2), info.Size())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	riffSize := binary.LittleEndian.Uint32(raw[4:8])
	dataSize := binary.LittleEndian.Uint32(raw[40:44])
	assert.Equal(t, uint32(36+n*2), riffSize)
	assert.Equal(t, uint32(n*2), dataSize)

	src, err := OpenWAVSource(path, carrierHz)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, float64(sampleRate), src.SampleRate())

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

	settled := rx[500:total]
	est := modem.CoarseFrequencyOffset(settled, sampleRate)
	assert.InDelta(t, toneOffsetHz, est, 15)
}

func Test_WAVSource_ResetRereadsFromStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reset.wav")
	const sampleRate = 48000
	const carrierHz = 1800.0

	sink, err := CreateWAVSink(path, sampleRate, carrierHz)
	require.NoError(t, err)
	require.NoError(t, sink.Write(make([]modem.Sample, 100)))
	require.NoError(t, sink.Close())

	src, err := OpenWAVSource(path, carrierHz)
	require.NoError(t, err)
	defer src.Close()

	buf := make([]modem.Sample, 100)
	n, err := src.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.False(t, src.HasData())

	require.NoError(t, src.Reset())
	assert.True(t, src.HasData())
	n, err = src.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
}

func Test_OpenWAVSource_RejectsNonRIFFFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notwav.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file at all"), 0o644))

	_, err := OpenWAVSource(path, 1800)
	assert.Error(t, err)
}

func Test_OpenWAVSource_RejectsStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 36)
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1)
	binary.LittleEndian.PutUint16(hdr[22:24], 2) // stereo
	binary.LittleEndian.PutUint32(hdr[24:28], 48000)
	binary.LittleEndian.PutUint32(hdr[28:32], 48000*4)
	binary.LittleEndian.PutUint16(hdr[32:34], 4)
	binary.LittleEndian.PutUint16(hdr[34:36], 16)
	copy(hdr[36:40], "data")
	require.NoError(t, os.WriteFile(path, hdr[:], 0o644))

	_, err := OpenWAVSource(path, 1800)
	assert.Error(t, err)
}
