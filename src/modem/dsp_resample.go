package modem

import "math"

// DesignLowpass builds a windowed-sinc low-pass FIR kernel with cutoff as
// a fraction of Nyquist (0,1), numTaps taps (forced odd so the kernel has
// a well-defined center tap), using a Hamming window.
//
// Built from a sinc kernel times a selectable window shape, narrowed to
// the single Hamming window the resampler chain uses.
func DesignLowpass(cutoff float64, numTaps int) []float64 {
	if numTaps%2 == 0 {
		numTaps++
	}
	taps := make([]float64, numTaps)
	center := float64(numTaps-1) / 2
	var sum float64
	for i := 0; i < numTaps; i++ {
		x := float64(i) - center
		var sinc float64
		if x == 0 {
			sinc = cutoff
		} else {
			sinc = math.Sin(math.Pi*cutoff*x) / (math.Pi * x)
		}
		w := 0.53836 - 0.46164*math.Cos(2*math.Pi*float64(i)/float64(numTaps-1))
		taps[i] = sinc * w
		sum += taps[i]
	}
	for i := range taps {
		taps[i] /= sum
	}
	return taps
}

// minDecimationLPFTaps is the minimum tap count required for the
// anti-alias low-pass ahead of integer decimation.
const minDecimationLPFTaps = 63

// Decimator performs integer-factor decimation: anti-alias low-pass
// filter (Hamming sinc, cutoff ~= 1/factor of Nyquist) followed by
// selecting every factor-th filtered sample.
type Decimator struct {
	factor int
	lpf    *FIRFilter
	phase  int
}

// NewDecimator returns a decimator for the given integer factor.
func NewDecimator(factor int) *Decimator {
	if factor < 1 {
		InvariantViolation("decimator factor must be >= 1")
	}
	taps := DesignLowpass(1.0/float64(factor), minDecimationLPFTaps)
	return &Decimator{factor: factor, lpf: NewFIRFilter(taps)}
}

// Process filters and decimates in, returning the retained samples. State
// (filter history and phase) persists across calls.
func (d *Decimator) Process(in []Sample) []Sample {
	out := make([]Sample, 0, len(in)/d.factor+1)
	for _, x := range in {
		y := d.lpf.Step(x)
		if d.phase == 0 {
			out = append(out, y)
		}
		d.phase = (d.phase + 1) % d.factor
	}
	return out
}

// Interpolator performs integer-factor interpolation: zero-insertion
// followed by a low-pass filter whose coefficients are scaled by the
// interpolation factor to restore unity passband gain.
type Interpolator struct {
	factor int
	lpf    *FIRFilter
}

// NewInterpolator returns an interpolator for the given integer factor.
func NewInterpolator(factor int) *Interpolator {
	if factor < 1 {
		InvariantViolation("interpolator factor must be >= 1")
	}
	taps := DesignLowpass(1.0/float64(factor), minDecimationLPFTaps)
	for i := range taps {
		taps[i] *= float64(factor)
	}
	return &Interpolator{factor: factor, lpf: NewFIRFilter(taps)}
}

// Process zero-stuffs and filters in, returning len(in)*factor samples.
func (ip *Interpolator) Process(in []Sample) []Sample {
	out := make([]Sample, 0, len(in)*ip.factor)
	for _, x := range in {
		out = append(out, ip.lpf.Step(x))
		for k := 1; k < ip.factor; k++ {
			out = append(out, ip.lpf.Step(0))
		}
	}
	return out
}

// RationalResampler chains an interpolator and decimator to realize a P/Q
// rational rate change via a polyphase-equivalent structure (interpolate
// by P, then decimate by Q).
type RationalResampler struct {
	interp *Interpolator
	decim  *Decimator
}

// NewRationalResampler returns a resampler implementing rate P/Q.
func NewRationalResampler(p, q int) *RationalResampler {
	return &RationalResampler{interp: NewInterpolator(p), decim: NewDecimator(q)}
}

// Process resamples in by P/Q.
func (r *RationalResampler) Process(in []Sample) []Sample {
	return r.decim.Process(r.interp.Process(in))
}

// LinearTrim performs a final fractional-rate correction by linear
// interpolation between adjacent samples, used after staged integer
// decimation to land exactly on the pipeline's target rate. ratio > 1
// upsamples slightly, ratio < 1 downsamples slightly.
func LinearTrim(in []Sample, ratio float64) []Sample {
	if len(in) == 0 {
		return nil
	}
	outLen := int(float64(len(in)) * ratio)
	out := make([]Sample, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		i0 := int(math.Floor(srcPos))
		frac := srcPos - float64(i0)
		if i0 >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		out[i] = in[i0]*complex(1-frac, 0) + in[i0+1]*complex(frac, 0)
	}
	return out
}
