package modem

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// A static channel with a known complex gain and light AWGN should let
// the estimator recover that gain to within 5% once the noise floor is
// above roughly 15dB SNR.
func Test_ChannelEstimator_AmplitudeAccuracyAtHighSNR(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const trueGainMag = 0.8
	trueGain := complex(trueGainMag*math.Cos(0.3), trueGainMag*math.Sin(0.3))

	est := NewChannelEstimator(0.9)
	var last ChannelEstimate
	for block := 0; block < 20; block++ {
		known := make([]Sample, 20)
		rx := make([]Sample, 20)
		for i := range known {
			known[i] = PSK8Constellation[rng.Intn(8)]
			noise := complex(rng.NormFloat64()*0.02, rng.NormFloat64()*0.02)
			rx[i] = trueGain*known[i] + noise
		}
		last = est.Update(rx, known)
	}

	assert.True(t, last.Valid)
	relErr := cmplxAbs(last.Gain-trueGain) / trueGainMag
	assert.Less(t, relErr, 0.05)
}

func Test_ChannelEstimator_ResetClearsRunningEstimate(t *testing.T) {
	est := NewChannelEstimator(0.9)
	known := []Sample{PSK8Constellation[0], PSK8Constellation[1]}
	rx := []Sample{PSK8Constellation[0], PSK8Constellation[1]}
	est.Update(rx, known)
	assert.True(t, est.Current().Valid)

	est.Reset()
	assert.False(t, est.Current().Valid)
}

func Test_ChannelEstimator_MismatchedLengthsReturnCurrentUnchanged(t *testing.T) {
	est := NewChannelEstimator(0.9)
	before := est.Current()
	got := est.Update([]Sample{1}, []Sample{1, 2})
	assert.Equal(t, before, got)
}

// A residual frequency offset up to 50Hz should be recoverable to within
// 2Hz by FineFrequencyOffset, from the per-symbol phase advance of the
// received symbols against a known reference, at a decent operating SNR.
func Test_FineFrequencyOffset_AccuracyWithinTwoHz(t *testing.T) {
	const symbolRate = 2400.0
	rng := rand.New(rand.NewSource(1))

	for _, trueOffset := range []float64{-50, -10, 0, 10, 50} {
		ref := make([]Sample, 200)
		rx := make([]Sample, 200)
		perSymbolRot := 2 * math.Pi * trueOffset / symbolRate
		for i := range ref {
			ref[i] = PSK8Constellation[rng.Intn(8)]
			rot := complex(math.Cos(perSymbolRot*float64(i)), math.Sin(perSymbolRot*float64(i)))
			noise := complex(rng.NormFloat64()*0.01, rng.NormFloat64()*0.01)
			rx[i] = ref[i]*rot + noise
		}
		got := FineFrequencyOffset(rx, ref, symbolRate)
		assert.InDelta(t, trueOffset, got, 2.0)
	}
}
