package modem

import "math"

// NCO is a numerically controlled oscillator used for the TX upconverter
// and the RX downconverter/AFC correction. Phase is always kept wrapped to
// (-pi, pi]. A single continuous NCO drives the preamble and the data
// phase at TX so carrier phase never jumps at the boundary.
//
// Uses a direct phase accumulator rather than a fixed-table lookup, the
// way continuous-phase tone synthesis is done elsewhere in this codebase,
// so arbitrary frequencies are supported rather than a handful of fixed
// tones.
type NCO struct {
	phase    float64 // radians, kept in (-pi, pi]
	deltaPhi float64 // radians per sample
}

// NewNCO returns an NCO generating freqHz at sampleRateHz, phase 0.
func NewNCO(freqHz, sampleRateHz float64) *NCO {
	n := &NCO{}
	n.SetFrequency(freqHz, sampleRateHz)
	return n
}

// SetFrequency updates the phase increment without resetting phase, so a
// frequency correction (e.g. from AFC) does not introduce a phase
// discontinuity.
func (n *NCO) SetFrequency(freqHz, sampleRateHz float64) {
	n.deltaPhi = 2 * math.Pi * freqHz / sampleRateHz
}

// Reset zeroes the phase accumulator.
func (n *NCO) Reset() { n.phase = 0 }

func wrapPhase(p float64) float64 {
	for p > math.Pi {
		p -= 2 * math.Pi
	}
	for p <= -math.Pi {
		p += 2 * math.Pi
	}
	return p
}

// Step advances the NCO by one sample and returns cos/sin of the new
// phase (i.e. e^{j*phase} as a pair).
func (n *NCO) Step() (cos, sin float64) {
	n.phase = wrapPhase(n.phase + n.deltaPhi)
	return math.Cos(n.phase), math.Sin(n.phase)
}

// Phase returns the current wrapped phase in radians.
func (n *NCO) Phase() float64 { return n.phase }

// Mix multiplies x by e^{+j*theta} for the current step, advancing phase.
// Used to upconvert a baseband signal onto the carrier.
func (n *NCO) Mix(x Sample) Sample {
	c, s := n.Step()
	return x * complex(c, s)
}

// MixDown multiplies x by e^{-j*theta} for the current step, advancing
// phase. Used to downconvert a received passband signal to baseband.
func (n *NCO) MixDown(x Sample) Sample {
	c, s := n.Step()
	return x * complex(c, -s)
}
