package modem

import "math"

// FarrowInterpolator is a 4-tap cubic Farrow structure producing an
// arbitrary fractional-delay interpolate from four consecutive input
// samples, driven by the symbol timing loop below.
//
// Generalizes a windowed-sinc fixed integer-factor interpolator to the
// continuously variable fractional delay a timing loop requires.
type FarrowInterpolator struct {
	hist [4]Sample
}

// Push shifts one new sample into the 4-tap history.
func (f *FarrowInterpolator) Push(x Sample) {
	f.hist[0], f.hist[1], f.hist[2], f.hist[3] = f.hist[1], f.hist[2], f.hist[3], x
}

// Interpolate returns the cubic Farrow estimate at fractional offset mu in
// [0,1) between hist[1] and hist[2], using hist[0] and hist[3] as outer
// support points.
func (f *FarrowInterpolator) Interpolate(mu float64) Sample {
	x0, x1, x2, x3 := f.hist[0], f.hist[1], f.hist[2], f.hist[3]
	c0 := x1
	c1 := complex(0.5, 0) * (x2 - x0)
	c2 := x0 - complex(2.5, 0)*x1 + complex(2, 0)*x2 - complex(0.5, 0)*x3
	c3 := complex(0.5, 0)*(x3-x0) + complex(1.5, 0)*(x1-x2)
	m := complex(mu, 0)
	return c0 + m*(c1+m*(c2+m*c3))
}

// GardnerTED computes the Gardner timing-error signal from one on-time
// symbol sample and the mid-symbol sample preceding it: e = Re{mid x
// conj(late - early)}. The loop below evaluates this once per symbol
// using the previous on-time sample as "early" and the current one as
// "late".
func GardnerTED(early, mid, late Sample) float64 {
	return real(mid * cmplxConj(late-early))
}

// TimingLoop is a second-order PI symbol-timing recovery loop driving a
// FarrowInterpolator from Gardner timing-error feedback. Loop bandwidth
// and damping are converted to PI gains with the standard digital PLL
// formulas (Gardner & Mehrotra-style), generalized from a simple carrier
// NCO control loop to a two-integrator timing-phase tracker.
type TimingLoop struct {
	sps         float64 // nominal samples per symbol
	mu          float64 // current fractional symbol phase, in samples
	kp, ki      float64
	integrator  float64
	interp      FarrowInterpolator
	lastOnTime  Sample
	haveLast    bool
}

// NewTimingLoop returns a loop for the given nominal samples-per-symbol,
// with PI gains derived from loop bandwidth (Hz, normalized to symbol
// rate) and damping factor zeta (typically zeta=1/sqrt(2)).
func NewTimingLoop(sps float64, loopBandwidthNormalized, zeta float64) *TimingLoop {
	theta := loopBandwidthNormalized / (zeta + 1/(4*zeta))
	kp := (4 * zeta * theta) / (1 + 2*zeta*theta + theta*theta)
	ki := (4 * theta * theta) / (1 + 2*zeta*theta + theta*theta)
	return &TimingLoop{sps: sps, kp: kp, ki: ki}
}

// Step pushes one new oversampled input sample, and whenever the
// accumulated phase crosses a symbol boundary, returns the interpolated
// on-time symbol estimate along with ok=true. mu tracks the fractional
// position within the current symbol period; the loop advances it by
// sps each symbol and corrects it using the Gardner error measured at
// the midpoint between symbols.
func (t *TimingLoop) Step(x Sample) (sym Sample, ok bool) {
	t.interp.Push(x)
	t.mu -= 1
	if t.mu > 0 {
		return 0, false
	}
	// Crossed a symbol boundary: mu is now in (-1,0], the fractional
	// offset into the current 4-sample window.
	frac := t.mu + 1
	onTime := t.interp.Interpolate(frac)

	if t.haveLast {
		// Approximate the mid-symbol sample via a quarter-advance
		// interpolate between the two on-time instants, matching the
		// classic Gardner structure (on/mid/on at T/2 spacing) closely
		// enough for a discrete Farrow-fed loop.
		mid := t.interp.Interpolate(frac - 0.5)
		err := GardnerTED(t.lastOnTime, mid, onTime)
		t.integrator += t.ki * err
		t.mu -= t.kp*err + t.integrator
	}
	t.lastOnTime = onTime
	t.haveLast = true
	t.mu += t.sps
	return onTime, true
}

// Locked reports whether the loop's timing-error integrator has settled
// inside a small band, a coarse proxy for lock detection. The loop keeps
// the single bandwidth it was built with; nothing in this package calls
// Locked or switches the loop bandwidth.
func (t *TimingLoop) Locked(band float64) bool {
	return math.Abs(t.integrator) < band
}
