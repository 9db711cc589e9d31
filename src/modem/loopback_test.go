package modem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func packBits(b []byte) []bool {
	bits := make([]bool, 0, len(b)*8)
	for _, by := range b {
		for i := 7; i >= 0; i-- {
			bits = append(bits, (by>>uint(i))&1 == 1)
		}
	}
	return bits
}

func unpackBits(bits []bool) []byte {
	out := make([]byte, len(bits)/8)
	for i := range out {
		var b byte
		for k := 0; k < 8; k++ {
			b <<= 1
			if bits[i*8+k] {
				b |= 1
			}
		}
		out[i] = b
	}
	return out
}

// downconvert mirrors the front end a real SampleSource performs: the
// receiver operates on baseband symbols, while Transmitter.Transmit
// upconverts to CarrierHz for the channel.
func downconvert(samples []Sample, sampleRateHz float64) []Sample {
	nco := NewNCO(CarrierHz, sampleRateHz)
	out := make([]Sample, len(samples))
	for i, x := range samples {
		out[i] = nco.MixDown(x)
	}
	return out
}

func runLoopback(t *testing.T, modeName string, message []byte) *Receiver {
	t.Helper()
	const sps = 8
	mode := Modes[modeName]
	sampleRate := float64(sps * SymbolRateHz)

	tx := NewTransmitter(mode, sps)
	waveform := tx.Transmit(packBits(message))
	baseband := downconvert(waveform, sampleRate)

	rx := NewReceiver(mode, sps, DFELMS, 11, 5, 0.01)
	rx.PushSamples(baseband)
	return rx
}

// 2400 S loopback: full TX -> RX round trip with no channel impairment.
func Test_Loopback_2400S(t *testing.T) {
	message := []byte("THE QUICK BROWN FOX JUMPS OVER THE LAZY DOG 1234567890")
	rx := runLoopback(t, "M2400S", message)

	decoded := unpackBits(rx.TakeBits())
	require.True(t, len(decoded) >= len(message))
	assert.Equal(t, message, decoded[:len(message)])

	q := rx.Quality()
	assert.Equal(t, StateSynchronized, q.State)
	assert.GreaterOrEqual(t, q.FramesDecoded, uint64(9))
}

// 600 L loopback: long-interleave round trip on a short message.
func Test_Loopback_600L(t *testing.T) {
	message := []byte("Hello")
	rx := runLoopback(t, "M600L", message)

	decoded := unpackBits(rx.TakeBits())
	require.True(t, len(decoded) >= len(message))
	assert.Equal(t, message, decoded[:len(message)])

	mode := Modes["M600L"]
	il := NewInterleaver(mode.Rect)
	assert.Equal(t, 40*144, il.BlockSize())
	assert.Equal(t, 24*480, mode.PreambleSymbols())
}

// AWGN, frequency-offset, and multipath round-trip scenarios live in
// channel_loopback_test.go (package modem_test) since simchannel imports
// modem and an in-package test file can't import it back.
