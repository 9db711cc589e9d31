package modem

import "math"

// commonReference is the mode-independent 288-symbol common preamble
// segment, generated once at phase 0 of a fresh probe scrambler. Because
// dSequence and the Walsh base patterns never depend on mode, this single
// template is what every candidate mode's preamble correlates against
// during frame-timing search.
var commonReference = buildCommonReference()

func buildCommonReference() []Sample {
	scr := NewProbeScrambler()
	out := make([]Sample, 0, PreambleCommonLen)
	for _, idx := range dSequence {
		out = append(out, genSegment(idx, 32, scr)...)
	}
	return out
}

// CoarseFrequencyOffset estimates a residual carrier offset from a
// baseband sample stream via delay-and-multiply autocorrelation at a
// one-sample lag: the average phase of x[n]*conj(x[n-1]) is proportional
// to the offset. It is stage one of acquisition, run on the symbol-rate
// buffer ahead of MediumFrequencySearch, and only needs to narrow the
// search range rather than resolve the offset precisely; the fine
// estimate below refines it once a preamble is localized.
//
// Runs the continuous-phase oscillator model in reverse: phase slope
// recovery instead of phase synthesis.
func CoarseFrequencyOffset(samples []Sample, sampleRateHz float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	var acc Sample
	for i := 1; i < len(samples); i++ {
		acc += samples[i] * cmplxConj(samples[i-1])
	}
	if acc == 0 {
		return 0
	}
	phase := math.Atan2(imagPart(acc), realPart(acc))
	return phase * sampleRateHz / (2 * math.Pi)
}

func cmplxConj(x Sample) Sample  { return complex(realPart(x), -imagPart(x)) }
func realPart(x Sample) float64  { return real(x) }
func imagPart(x Sample) float64  { return imag(x) }

// FineFrequencyOffset refines a frequency estimate once a preamble segment
// has been localized, by averaging the per-symbol phase rotation between
// the received common segment and the known reference it was correlated
// against.
func FineFrequencyOffset(rx, ref []Sample, symbolRateHz float64) float64 {
	n := len(rx)
	if n > len(ref) {
		n = len(ref)
	}
	if n < 2 {
		return 0
	}
	// Average instantaneous rotation between consecutive per-symbol
	// rx*conj(ref) products; a residual carrier offset shows up as a
	// constant per-symbol phase advance in that product sequence.
	var phaseSum float64
	count := 0
	prev := rx[0] * cmplxConj(ref[0])
	for i := 1; i < n; i++ {
		cur := rx[i] * cmplxConj(ref[i])
		if prev == 0 {
			prev = cur
			continue
		}
		rot := cur * cmplxConj(prev)
		phaseSum += math.Atan2(imagPart(rot), realPart(rot))
		count++
		prev = cur
	}
	if count == 0 {
		return 0
	}
	avgRot := phaseSum / float64(count)
	return avgRot * symbolRateHz / (2 * math.Pi)
}

// mediumFrequencySearchOffsetsHz are the candidate corrections stage two
// checks around the stage-one coarse estimate, 50Hz apart, covering a
// +-100Hz capture range beyond whatever residual the coarse estimate left.
var mediumFrequencySearchOffsetsHz = []float64{-100, -50, 0, 50, 100}

// correctFrequency derotates symbols by a constant hz offset, a
// continuous-phase rotation applied sample-by-sample rather than via an
// NCO instance since it is evaluated once per candidate offset and
// discarded.
func correctFrequency(symbols []Sample, hz, symbolRateHz float64) []Sample {
	out := make([]Sample, len(symbols))
	deltaPhi := -2 * math.Pi * hz / symbolRateHz
	phase := 0.0
	for i, s := range symbols {
		out[i] = s * complex(math.Cos(phase), math.Sin(phase))
		phase = wrapPhase(phase + deltaPhi)
	}
	return out
}

// segmentedCorrelationScore averages the normalized correlation of each of
// the common reference's nine 32-symbol segments against the
// correspondingly-positioned window of symbols, assuming symbols begins at
// the same offset as commonReference. This is the 9x32-symbol parallel
// check a candidate frequency correction is scored against before stage
// three's fine estimate runs.
func segmentedCorrelationScore(symbols []Sample) float64 {
	n := len(commonReference)
	if len(symbols) < n {
		return 0
	}
	var sum float64
	segments := 0
	for i := 0; i+32 <= n; i += 32 {
		sum += normalizedCorrelation(symbols[i:i+32], commonReference[i:i+32])
		segments++
	}
	if segments == 0 {
		return 0
	}
	return sum / float64(segments)
}

// bestSegmentedScore slides the segmented 9x32-symbol score across every
// offset in symbols and returns the strongest value found, since the frame
// offset itself is not yet known at this stage.
func bestSegmentedScore(symbols []Sample) float64 {
	refLen := len(commonReference)
	var best float64
	for offset := 0; offset+refLen <= len(symbols); offset++ {
		if score := segmentedCorrelationScore(symbols[offset : offset+refLen]); score > best {
			best = score
		}
	}
	return best
}

// MediumFrequencySearch is stage two of acquisition: it tests each of
// mediumFrequencySearchOffsetsHz applied on top of coarseHz, scoring every
// candidate by the best segmented correlation found anywhere in symbols,
// and returns the best-scoring candidate's absolute frequency. This
// narrows a coarse, noisy delay-and-multiply estimate down to the range
// stage three's phase-rotation-averaging estimator can finish correcting.
func MediumFrequencySearch(symbols []Sample, coarseHz, symbolRateHz float64) float64 {
	best := coarseHz
	bestScore := -1.0
	for _, delta := range mediumFrequencySearchOffsetsHz {
		candidateHz := coarseHz + delta
		corrected := correctFrequency(symbols, candidateHz, symbolRateHz)
		if score := bestSegmentedScore(corrected); score > bestScore {
			bestScore = score
			best = candidateHz
		}
	}
	return best
}

// CorrelationResult is one candidate frame-timing hypothesis.
type CorrelationResult struct {
	Offset int
	Peak   float64 // normalized correlation magnitude, 0..1
}

// SearchPreambleTiming slides the common-segment reference across symbols
// and returns the first offset whose normalized correlation exceeds
// PreambleEarlyTerminationThreshold, a first-strong-peak policy chosen to
// minimize acquisition latency rather than search exhaustively for the
// global maximum. If no offset clears the
// threshold, the best candidate seen is returned with Peak below it, and
// the caller should treat that as a failed acquisition.
func SearchPreambleTiming(symbols []Sample) CorrelationResult {
	refLen := len(commonReference)
	var best CorrelationResult
	best.Peak = -1
	for offset := 0; offset+refLen <= len(symbols); offset++ {
		window := symbols[offset : offset+refLen]
		peak := normalizedCorrelation(window, commonReference)
		if peak > best.Peak {
			best = CorrelationResult{Offset: offset, Peak: peak}
		}
		if peak >= PreambleEarlyTerminationThreshold {
			return CorrelationResult{Offset: offset, Peak: peak}
		}
	}
	return best
}

func normalizedCorrelation(a, b []Sample) float64 {
	var num Sample
	var ea, eb float64
	for i := range a {
		num += a[i] * cmplxConj(b[i])
		ea += sqDist(a[i], 0)
		eb += sqDist(b[i], 0)
	}
	denom := math.Sqrt(ea * eb)
	if denom == 0 {
		return 0
	}
	return cmplxAbs(num) / denom
}

func cmplxAbs(x Sample) float64 {
	re, im := realPart(x), imagPart(x)
	return math.Sqrt(re*re + im*im)
}

// AcquisitionResult reports a complete preamble acquisition: the localized
// frame offset, refined frequency offset, and decoded mode/countdown.
type AcquisitionResult struct {
	Offset       int
	Peak         float64
	FreqOffsetHz float64
	Preamble     PreambleInfo
}

// Acquire searches symbols (a symbol-rate-sampled, SRRC-matched-filtered
// stream) for a preamble frame, decodes its mode-ID and countdown, and
// reports the residual frequency offset measured against the common
// segment. This is stage three of acquisition: the caller is expected to
// have already applied CoarseFrequencyOffset and MediumFrequencySearch's
// best candidate to symbols, so only a small residual (the fine
// estimator's own capture range) remains for FineFrequencyOffset to
// resolve.
func Acquire(symbols []Sample, symbolRateHz float64) (AcquisitionResult, error) {
	corr := SearchPreambleTiming(symbols)
	if corr.Peak < PreambleEarlyTerminationThreshold {
		return AcquisitionResult{}, ErrNotAcquired
	}
	if corr.Offset+PreambleFrameSymbols > len(symbols) {
		return AcquisitionResult{}, ErrNotAcquired
	}
	frame := symbols[corr.Offset : corr.Offset+PreambleFrameSymbols]
	freq := FineFrequencyOffset(frame[:PreambleCommonLen], commonReference, symbolRateHz)

	scr := NewProbeScrambler()
	info, err := DecodePreambleFrame(frame, scr)
	if err != nil {
		return AcquisitionResult{}, err
	}
	return AcquisitionResult{
		Offset:       corr.Offset,
		Peak:         corr.Peak,
		FreqOffsetHz: freq,
		Preamble:     info,
	}, nil
}
