package modem

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// twoRaySymbols applies a direct path plus a one-symbol-delayed echo at the
// given amplitude and phase to a sequence of transmitted constellation
// points, modeling a two-ray multipath channel in the symbol domain
// rather than the sample domain.
func twoRaySymbols(tx []Sample, echoAmplitude, echoPhaseDeg float64) []Sample {
	echoGain := complex(echoAmplitude*math.Cos(echoPhaseDeg*math.Pi/180), echoAmplitude*math.Sin(echoPhaseDeg*math.Pi/180))
	out := make([]Sample, len(tx))
	for i, x := range tx {
		out[i] = x
		if i > 0 {
			out[i] += echoGain * tx[i-1]
		}
	}
	return out
}

// A two-ray echo equalized with genie-aided training (the desired symbol
// is known, as during a probe) should converge with the center
// feedforward tap dominant within 50 symbols.
func Test_DFE_ConvergesWithDominantCenterTap(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const n = 200
	tx := make([]Sample, n)
	for i := range tx {
		tx[i] = PSK8Constellation[rng.Intn(8)]
	}
	rx := twoRaySymbols(tx, 0.5, 30)

	d := NewDFELMS(11, 5, 0.05, 0.02, 0)
	for i, x := range rx {
		desired := tx[i]
		d.Step(x, PSK8Constellation[:], &desired)
	}

	center := cmplxAbs(d.weight(0))
	assert.Greater(t, center, 0.5)
	for i := 1; i < 11+5; i++ {
		assert.Greater(t, center, cmplxAbs(d.weight(i)), "tap %d", i)
	}
}
