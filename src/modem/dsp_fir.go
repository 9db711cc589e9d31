package modem

// FIRFilter is a real-coefficient FIR filter over complex samples, backed
// by a fixed-capacity circular history buffer: a fixed array with an
// integer write index, readers compute an index modulo capacity. It is
// used for both the SRRC pulse-shape/matched filter and the
// decimation/interpolation low-pass filters, always with real
// coefficients.
type FIRFilter struct {
	taps  []float64
	hist  []Sample
	pos   int // index of the most recently written sample
	count int
}

// NewFIRFilter returns a filter with the given real coefficients and a
// zeroed history.
func NewFIRFilter(taps []float64) *FIRFilter {
	t := make([]float64, len(taps))
	copy(t, taps)
	return &FIRFilter{taps: t, hist: make([]Sample, len(taps))}
}

// Reset clears the history without changing the coefficients.
func (f *FIRFilter) Reset() {
	for i := range f.hist {
		f.hist[i] = 0
	}
	f.pos = 0
	f.count = 0
}

// NumTaps returns the coefficient count.
func (f *FIRFilter) NumTaps() int { return len(f.taps) }

// Push shifts one new sample into the history ring.
func (f *FIRFilter) Push(x Sample) {
	n := len(f.hist)
	f.pos = (f.pos + 1) % n
	f.hist[f.pos] = x
	if f.count < n {
		f.count++
	}
}

// Output computes the current inner product of history against taps
// (taps[0] weights the most recently pushed sample).
func (f *FIRFilter) Output() Sample {
	n := len(f.taps)
	var acc Sample
	idx := f.pos
	for k := 0; k < n; k++ {
		acc += complex(f.taps[k], 0) * f.hist[idx]
		idx--
		if idx < 0 {
			idx = n - 1
		}
	}
	return acc
}

// Step pushes x and returns the new filtered output in one call.
func (f *FIRFilter) Step(x Sample) Sample {
	f.Push(x)
	return f.Output()
}

// Apply filters an entire buffer, returning len(in) outputs (the filter's
// internal history carries state across calls, as a streaming filter
// would).
func (f *FIRFilter) Apply(in []Sample) []Sample {
	out := make([]Sample, len(in))
	for i, x := range in {
		out[i] = f.Step(x)
	}
	return out
}
