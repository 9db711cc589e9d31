package simchannel

import (
	"math"

	"github.com/n5dsp/m110a/src/modem"
)

// Tap is a single multipath echo: a delayed, attenuated, phase-rotated
// copy of the direct path.
type Tap struct {
	DelayMs   float64
	Amplitude float64
	PhaseDeg  float64
}

// Multipath applies a fixed set of delayed, phase-rotated echoes to a
// complex baseband signal.
//
// Grounded on original_source/src/channel/multipath.h's MultipathRFChannel:
// same per-tap delay-line structure and accumulate-then-advance processing
// loop, adapted from a real-valued RF signal (where the original applies
// amplitude*cos(phase) to the envelope as an approximation) to complex
// baseband, where the tap's phase is an exact rotation of the delayed
// complex sample rather than an envelope approximation.
type Multipath struct {
	sampleRate float64
	taps       []Tap

	lines        [][]modem.Sample
	writeIdx     []int
	delaySamples []int
}

// NewMultipath builds a channel at sampleRateHz with the given taps. The
// first tap is conventionally the direct path (DelayMs 0, Amplitude 1).
func NewMultipath(sampleRateHz float64, taps []Tap) *Multipath {
	m := &Multipath{sampleRate: sampleRateHz, taps: taps}
	m.lines = make([][]modem.Sample, len(taps))
	m.writeIdx = make([]int, len(taps))
	m.delaySamples = make([]int, len(taps))
	for i, t := range taps {
		samples := int(t.DelayMs * sampleRateHz / 1000)
		m.delaySamples[i] = samples
		m.lines[i] = make([]modem.Sample, samples+1)
	}
	return m
}

// Process runs in through the channel, returning the combined output.
func (m *Multipath) Process(in []modem.Sample) []modem.Sample {
	out := make([]modem.Sample, len(in))
	for i, x := range in {
		out[i] = m.step(x)
	}
	return out
}

func (m *Multipath) step(x modem.Sample) modem.Sample {
	var sum modem.Sample
	for t := range m.taps {
		line := m.lines[t]
		line[m.writeIdx[t]] = x
		readIdx := (m.writeIdx[t] - m.delaySamples[t] + len(line)) % len(line)
		phase := m.taps[t].PhaseDeg * math.Pi / 180
		rot := complex(math.Cos(phase), math.Sin(phase))
		sum += complex(m.taps[t].Amplitude, 0) * rot * line[readIdx]
		m.writeIdx[t] = (m.writeIdx[t] + 1) % len(line)
	}
	return sum
}

// Reset zeroes every delay line, for reuse across trials.
func (m *Multipath) Reset() {
	for i := range m.lines {
		for j := range m.lines[i] {
			m.lines[i][j] = 0
		}
		m.writeIdx[i] = 0
	}
}

// TwoRay models a direct path plus a single echo at delayMs with
// amplitude and a phaseDeg rotation.
func TwoRay(sampleRateHz, delayMs, amplitude, phaseDeg float64) *Multipath {
	return NewMultipath(sampleRateHz, []Tap{
		{DelayMs: 0, Amplitude: 1, PhaseDeg: 0},
		{DelayMs: delayMs, Amplitude: amplitude, PhaseDeg: phaseDeg},
	})
}

// ITUGood, ITUModerate and ITUPoor are the CCIR/ITU-R F.520 reference
// multipath profiles carried over from the original simulator's presets.
func ITUGood(sampleRateHz float64) *Multipath {
	return NewMultipath(sampleRateHz, []Tap{
		{DelayMs: 0, Amplitude: 1, PhaseDeg: 0},
		{DelayMs: 0.5, Amplitude: 0.2, PhaseDeg: 45},
	})
}

func ITUModerate(sampleRateHz float64) *Multipath {
	return NewMultipath(sampleRateHz, []Tap{
		{DelayMs: 0, Amplitude: 1, PhaseDeg: 0},
		{DelayMs: 1, Amplitude: 0.5, PhaseDeg: 90},
		{DelayMs: 2, Amplitude: 0.25, PhaseDeg: 180},
	})
}

func ITUPoor(sampleRateHz float64) *Multipath {
	return NewMultipath(sampleRateHz, []Tap{
		{DelayMs: 0, Amplitude: 1, PhaseDeg: 0},
		{DelayMs: 2, Amplitude: 0.7, PhaseDeg: 120},
		{DelayMs: 4, Amplitude: 0.5, PhaseDeg: 240},
	})
}

// FrequencyOffset shifts in by offsetHz, for exercising AFC round-trip
// scenarios.
func FrequencyOffset(in []modem.Sample, offsetHz, sampleRateHz float64) []modem.Sample {
	nco := modem.NewNCO(offsetHz, sampleRateHz)
	out := make([]modem.Sample, len(in))
	for i, x := range in {
		out[i] = nco.Mix(x)
	}
	return out
}
