package modem

import "math"

// GenerateSRRC returns a square-root raised-cosine filter kernel spanning
// spanSymbols symbol periods at sps samples per symbol, with roll-off
// alpha. The kernel is normalized to unit energy (sum of squared taps ==
// 1) so that applying it at both TX and RX (cascading to a full
// raised-cosine response) preserves the nominal symbol magnitude at the
// strobe instant.
//
// Grounded on SarahRoseLives-HackDVBS/filter/rrc.go's closed-form
// SRRC construction, generalized from that file's QPSK-specific
// hard-coded rolloff/span to the mode-independent alpha=0.35, span=6
// parameters this waveform specifies, and switched from float32 to
// float64 taps to match this package's Sample precision.
func GenerateSRRC(alpha float64, spanSymbols, sps int) []float64 {
	n := spanSymbols*sps + 1
	taps := make([]float64, n)
	center := float64(n-1) / 2

	for i := 0; i < n; i++ {
		t := (float64(i) - center) / float64(sps) // in symbol periods

		var v float64
		switch {
		case t == 0:
			v = 1.0 - alpha + 4*alpha/math.Pi
		case alpha != 0 && math.Abs(math.Abs(4*alpha*t)-1.0) < 1e-8:
			v = (alpha / math.Sqrt2) * ((1+2/math.Pi)*math.Sin(math.Pi/(4*alpha)) +
				(1-2/math.Pi)*math.Cos(math.Pi/(4*alpha)))
		default:
			num := math.Sin(math.Pi*t*(1-alpha)) + 4*alpha*t*math.Cos(math.Pi*t*(1+alpha))
			den := math.Pi * t * (1 - (4*alpha*t)*(4*alpha*t))
			v = num / den
		}
		taps[i] = v
	}

	var energy float64
	for _, v := range taps {
		energy += v * v
	}
	norm := 1.0 / math.Sqrt(energy)
	for i := range taps {
		taps[i] *= norm
	}
	return taps
}
