package modem

import "math"

// EqualizerKind selects one of three channel-compensation strategies:
// adaptive DFE (LMS or RLS), trellis MLSE over the channel's memory, or a
// simple probe-only compensator for benign channels that do not need
// per-symbol adaptation. The probe-only compensator divides each symbol by
// the latest probe-block gain estimate; it fits no phase or frequency
// trend across the symbols between probe blocks.
type EqualizerKind int

const (
	DFELMS EqualizerKind = iota
	DFERLS
	MLSEEqualizer
	ProbeOnlyEqualizer
)

// DFE is a decision-feedback equalizer with complex feedforward and
// feedback tap weights, adapted by either LMS or RLS depending on the
// constructor used. Feedback taps operate on the equalizer's own past
// hard decisions, so error propagation is possible on a burst of wrong
// decisions. DFE has no method that clears the feedback history; it
// starts empty only when a new DFE is constructed.
//
// Organized as a coefficient vector plus a circular input history,
// generalized from a single adaptive FIR to the feedforward+feedback
// structure a DFE needs.
type DFE struct {
	kind EqualizerKind

	ff    []Sample
	fb    []Sample
	ffHis []Sample
	fbHis []Sample

	muFF float64 // LMS feedforward step size
	muFB float64 // LMS feedback step size
	leak float64 // leaky-LMS coefficient, applied to both tap sets

	lambda float64 // RLS forgetting factor
	p      [][]Sample
}

// NewDFE returns a DFE with numFF feedforward and numFB feedback taps.
// For kind==DFELMS, param is used as both muFF and muFB with no leak; use
// NewDFELMS directly for independent step sizes and a leak coefficient.
// For kind==DFERLS, param is the forgetting factor lambda (typically
// 0.98-0.999).
func NewDFE(kind EqualizerKind, numFF, numFB int, param float64) *DFE {
	if kind == DFELMS {
		return NewDFELMS(numFF, numFB, param, param, 0)
	}
	return newDFEBase(kind, numFF, numFB, param)
}

// NewDFELMS returns an LMS-adapted DFE with independent feedforward and
// feedback step sizes (mu_ff, mu_fb) and a leaky-LMS coefficient.
func NewDFELMS(numFF, numFB int, muFF, muFB, leak float64) *DFE {
	d := newDFEBase(DFELMS, numFF, numFB, 0)
	d.muFF, d.muFB, d.leak = muFF, muFB, leak
	return d
}

func newDFEBase(kind EqualizerKind, numFF, numFB int, param float64) *DFE {
	d := &DFE{
		kind:  kind,
		ff:    make([]Sample, numFF),
		fb:    make([]Sample, numFB),
		ffHis: make([]Sample, numFF),
		fbHis: make([]Sample, numFB),
	}
	if numFF > 0 {
		d.ff[0] = 1 // center tap starts at unity gain, rest zero
	}
	switch kind {
	case DFERLS:
		d.lambda = param
		n := numFF + numFB
		d.p = make([][]Sample, n)
		for i := range d.p {
			d.p[i] = make([]Sample, n)
			d.p[i][i] = complex(1e3, 0) // large initial uncertainty
		}
	}
	return d
}

func shiftIn(hist []Sample, x Sample) {
	for i := len(hist) - 1; i > 0; i-- {
		hist[i] = hist[i-1]
	}
	if len(hist) > 0 {
		hist[0] = x
	}
}

func dotTaps(w, h []Sample) Sample {
	var acc Sample
	for i := range w {
		acc += w[i] * h[i]
	}
	return acc
}

// nearestPoint returns the candidate in points closest to x.
func nearestPoint(x Sample, points []Sample) Sample {
	best := points[0]
	bestDist := math.MaxFloat64
	for _, p := range points {
		if d := sqDist(x, p); d < bestDist {
			bestDist = d
			best = p
		}
	}
	return best
}

// Step feeds one received (carrier-corrected) symbol into the equalizer
// and returns the equalized output along with the hard decision used for
// feedback. desired, if non-nil, is a known training symbol (a probe) to
// use in place of the decision-directed error; pass nil during data
// symbols.
func (d *DFE) Step(x Sample, points []Sample, desired *Sample) (output, decision Sample) {
	shiftIn(d.ffHis, x)
	output = dotTaps(d.ff, d.ffHis) + dotTaps(d.fb, d.fbHis)

	if desired != nil {
		decision = *desired
	} else {
		decision = nearestPoint(output, points)
	}

	switch d.kind {
	case DFELMS:
		d.stepLMS(output, decision)
	case DFERLS:
		d.stepRLS(output, decision)
	}

	shiftIn(d.fbHis, decision)
	return output, decision
}

// stepLMS runs one leaky-LMS update: each tap decays by (1-leak) before
// the gradient step, bounding tap growth against a persistently noisy or
// undermodeled channel.
func (d *DFE) stepLMS(output, decision Sample) {
	err := decision - output
	leakFactor := complex(1-d.leak, 0)
	ffErr := complex(d.muFF, 0) * err
	for i := range d.ff {
		d.ff[i] = d.ff[i]*leakFactor + ffErr*cmplxConj(d.ffHis[i])
	}
	fbErr := complex(d.muFB, 0) * err
	for i := range d.fb {
		d.fb[i] = d.fb[i]*leakFactor + fbErr*cmplxConj(d.fbHis[i])
	}
}

// combinedHist returns the concatenated feedforward+feedback input vector
// (used by stepRLS).
func (d *DFE) combinedHist() []Sample {
	u := make([]Sample, len(d.ffHis)+len(d.fbHis))
	copy(u, d.ffHis)
	copy(u[len(d.ffHis):], d.fbHis)
	return u
}

func (d *DFE) setWeight(i int, v Sample) {
	if i < len(d.ff) {
		d.ff[i] = v
	} else {
		d.fb[i-len(d.ff)] = v
	}
}

func (d *DFE) weight(i int) Sample {
	if i < len(d.ff) {
		return d.ff[i]
	}
	return d.fb[i-len(d.ff)]
}

// stepRLS runs one recursive-least-squares update: gain vector k = (P u)
// / (lambda + u^H P u), weight update w += k * conj(err), and the
// Riccati-style covariance downdate P = (P - k (P u)^H) / lambda (u^H P
// is Hermitian-symmetric for a correctly maintained P, so (P u)^H ==
// u^H P).
func (d *DFE) stepRLS(output, decision Sample) {
	u := d.combinedHist()
	n := len(u)

	pu := make([]Sample, n)
	for i := 0; i < n; i++ {
		var acc Sample
		for j := 0; j < n; j++ {
			acc += d.p[i][j] * u[j]
		}
		pu[i] = acc
	}
	var denom Sample = complex(d.lambda, 0)
	for i := 0; i < n; i++ {
		denom += cmplxConj(u[i]) * pu[i]
	}
	k := make([]Sample, n)
	for i := 0; i < n; i++ {
		k[i] = pu[i] / denom
	}

	err := decision - output
	for i := 0; i < n; i++ {
		d.setWeight(i, d.weight(i)+k[i]*cmplxConj(err))
	}

	newP := make([][]Sample, n)
	for i := 0; i < n; i++ {
		newP[i] = make([]Sample, n)
		for j := 0; j < n; j++ {
			newP[i][j] = (d.p[i][j] - k[i]*pu[j]) / complex(d.lambda, 0)
		}
	}
	d.p = newP
}

// ProbeOnlyCompensator corrects data symbols using only the amplitude and
// phase of the most recent channel estimate, with no per-symbol
// adaptation. It is the cheapest option and the right choice when the
// channel varies slowly relative to the probe spacing.
type ProbeOnlyCompensator struct {
	est ChannelEstimate
}

// SetEstimate updates the channel estimate used for subsequent Correct
// calls.
func (p *ProbeOnlyCompensator) SetEstimate(est ChannelEstimate) { p.est = est }

// Correct divides out the channel's estimated complex gain.
func (p *ProbeOnlyCompensator) Correct(x Sample) Sample {
	if p.est.Gain == 0 {
		return x
	}
	return x / p.est.Gain
}

// MLSETrellis runs Viterbi sequence estimation over a channel with finite
// memory (ISI spanning memory+1 symbols), using known channel taps
// (typically from the probe-aided estimator). Unlike ViterbiDecoder
// (which decodes the convolutional code), this trellis's states are
// tuples of the last `memory` channel symbols and its branch metric is
// squared distance between the received sample and the predicted
// noiseless channel response.
//
// Uses the same full-history traceback style as the convolutional-code
// Viterbi decoder, generalized from a fixed 64-state code trellis to an
// alphabet-and-memory-parameterized ISI trellis.
type MLSETrellis struct {
	points []Sample // constellation candidates
	taps   []Sample // channel impulse response, taps[0] is the current symbol's coefficient
	memory int
}

// NewMLSETrellis returns a trellis for the given constellation and
// channel taps (len(taps)-1 == memory).
func NewMLSETrellis(points []Sample, taps []Sample) *MLSETrellis {
	return &MLSETrellis{points: points, taps: taps, memory: len(taps) - 1}
}

func (t *MLSETrellis) predict(sym Sample, hist []Tribit) Sample {
	acc := t.taps[0] * sym
	for i, idx := range hist {
		if i+1 < len(t.taps) {
			acc += t.taps[i+1] * t.points[idx]
		}
	}
	return acc
}

// Decode runs full-block Viterbi sequence estimation over rx, returning
// the most likely transmitted symbol index sequence. numStates is
// len(points)^memory; for the 8-PSK/memory<=2 cases this waveform uses
// in practice that stays small enough for exhaustive state enumeration.
func (t *MLSETrellis) Decode(rx []Sample) []Tribit {
	m := t.memory
	if m == 0 {
		// No ISI: independent nearest-neighbor decisions.
		out := make([]Tribit, len(rx))
		for i, x := range rx {
			out[i] = nearestIndex(x, t.points)
		}
		return out
	}
	numStates := intPow(len(t.points), m)
	type node struct {
		metric float64
		prev   int
		sym    Tribit
	}
	paths := make([][]node, len(rx))
	metrics := make([]float64, numStates)
	for i := range metrics {
		if i == 0 {
			metrics[i] = 0
		} else {
			metrics[i] = math.Inf(1)
		}
	}
	for n := 0; n < len(rx); n++ {
		newMetrics := make([]float64, numStates)
		back := make([]node, numStates)
		for i := range newMetrics {
			newMetrics[i] = math.Inf(1)
		}
		for s := 0; s < numStates; s++ {
			if math.IsInf(metrics[s], 1) {
				continue
			}
			hist := stateToHist(s, m, len(t.points))
			for _, candIdx := range allTribitIndices(len(t.points)) {
				pred := t.predict(t.points[candIdx], hist)
				d := sqDist(rx[n], pred)
				cand := metrics[s] + d
				nextState := advanceState(s, m, len(t.points), int(candIdx))
				if cand < newMetrics[nextState] {
					newMetrics[nextState] = cand
					back[nextState] = node{metric: cand, prev: s, sym: candIdx}
				}
			}
		}
		metrics = newMetrics
		paths[n] = back
	}

	best := 0
	bestMetric := math.Inf(1)
	for s, mtc := range metrics {
		if mtc < bestMetric {
			bestMetric = mtc
			best = s
		}
	}

	out := make([]Tribit, len(rx))
	state := best
	for n := len(rx) - 1; n >= 0; n-- {
		nd := paths[n][state]
		out[n] = nd.sym
		state = nd.prev
	}
	return out
}

func nearestIndex(x Sample, points []Sample) Tribit {
	best := Tribit(0)
	bestDist := math.MaxFloat64
	for i, p := range points {
		if d := sqDist(x, p); d < bestDist {
			bestDist = d
			best = Tribit(i)
		}
	}
	return best
}

func allTribitIndices(n int) []Tribit {
	out := make([]Tribit, n)
	for i := range out {
		out[i] = Tribit(i)
	}
	return out
}

func stateToHist(s, memory, alphabet int) []Tribit {
	hist := make([]Tribit, memory)
	for i := 0; i < memory; i++ {
		hist[i] = Tribit(s % alphabet)
		s /= alphabet
	}
	return hist
}

func advanceState(s, memory, alphabet, newSym int) int {
	// New state drops the oldest history symbol and prepends newSym.
	hist := stateToHist(s, memory, alphabet)
	next := newSym
	mult := alphabet
	for i := 0; i < memory-1; i++ {
		next += int(hist[i]) * mult
		mult *= alphabet
	}
	return next
}

func intPow(base, exp int) int {
	r := 1
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}
