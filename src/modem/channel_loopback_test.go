package modem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n5dsp/m110a/src/modem"
	"github.com/n5dsp/m110a/src/simchannel"
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
		var bt byte
		for k := 0; k < 8; k++ {
			bt <<= 1
			if bits[i*8+k] {
				bt |= 1
			}
		}
		out[i] = bt
	}
	return out
}

// downconvert mirrors the front end a real SampleSource performs: the
// receiver operates on baseband symbols, while Transmitter.Transmit
// upconverts to CarrierHz for the channel.
func downconvert(samples []modem.Sample, sampleRateHz float64) []modem.Sample {
	nco := modem.NewNCO(modem.CarrierHz, sampleRateHz)
	out := make([]modem.Sample, len(samples))
	for i, x := range samples {
		out[i] = nco.MixDown(x)
	}
	return out
}

// AWGN at 12dB Es/N0 should decode correctly in at least 95% of
// independent trials across a range of seeds.
func Test_Loopback_AWGN12dB(t *testing.T) {
	message := []byte("AWGN Test Message 12345")
	const sps = 8
	mode := modem.Modes["M2400S"]
	sampleRate := float64(sps * modem.SymbolRateHz)

	successes := 0
	const trials = 20
	for seed := int64(1); seed <= trials; seed++ {
		tx := modem.NewTransmitter(mode, sps)
		waveform := tx.Transmit(packBits(message))
		noisy := simchannel.NewAWGN(seed).AddEsN0(waveform, 12)
		baseband := downconvert(noisy, sampleRate)

		rx := modem.NewReceiver(mode, sps, modem.DFELMS, 11, 5, 0.01)
		rx.PushSamples(baseband)
		decoded := unpackBits(rx.TakeBits())

		if len(decoded) >= len(message) && string(decoded[:len(message)]) == string(message) {
			successes++
		}
	}
	assert.GreaterOrEqual(t, successes, trials*95/100)
}

// A +15Hz static frequency offset on a clean channel should still decode.
func Test_Loopback_FrequencyOffset15Hz(t *testing.T) {
	message := []byte("FREQUENCY TEST")
	const sps = 8
	mode := modem.Modes["M2400S"]
	sampleRate := float64(sps * modem.SymbolRateHz)

	tx := modem.NewTransmitter(mode, sps)
	waveform := tx.Transmit(packBits(message))
	shifted := simchannel.FrequencyOffset(waveform, 15, sampleRate)
	baseband := downconvert(shifted, sampleRate)

	rx := modem.NewReceiver(mode, sps, modem.DFELMS, 11, 5, 0.01)
	rx.PushSamples(baseband)
	decoded := unpackBits(rx.TakeBits())

	require.True(t, len(decoded) >= len(message))
	assert.Equal(t, message, decoded[:len(message)])
}

// A two-ray multipath echo (0.5 amplitude, 1ms delay, 30 degree phase)
// equalized with an adaptive DFE should still decode at a moderate
// operating SNR.
func Test_Loopback_TwoRayMultipath(t *testing.T) {
	message := []byte("Multipath Test")
	const sps = 8
	mode := modem.Modes["M1200S"]
	sampleRate := float64(sps * modem.SymbolRateHz)

	tx := modem.NewTransmitter(mode, sps)
	waveform := tx.Transmit(packBits(message))

	ch := simchannel.TwoRay(sampleRate, 1.0, 0.5, 30)
	echoed := ch.Process(waveform)
	noisy := simchannel.NewAWGN(7).AddEsN0(echoed, 18)
	baseband := downconvert(noisy, sampleRate)

	rx := modem.NewReceiver(mode, sps, modem.DFELMS, 11, 5, 0.01)
	rx.PushSamples(baseband)
	decoded := unpackBits(rx.TakeBits())

	require.True(t, len(decoded) >= len(message))
	assert.Equal(t, message, decoded[:len(message)])
}
