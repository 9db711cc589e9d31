package modem

// walshPatterns holds the eight Walsh-like base patterns: each row of an
// order-8 Hadamard matrix (Sylvester construction), built once and tiled
// four times to produce the 32-symbol base pattern every preamble segment
// is built from. +1 maps to tribit 0 (0 deg), -1 to tribit 4 (180 deg),
// an all-BPSK building block that the probe scrambler then rotates onto
// the full 8-PSK constellation.
var walshPatterns = buildWalshPatterns()

func hadamard8() [8][8]int {
	var h [8][8]int
	h[0][0] = 1
	size := 1
	for size < 8 {
		for r := 0; r < size; r++ {
			for c := 0; c < size; c++ {
				v := h[r][c]
				h[r][c+size] = v
				h[r+size][c] = v
				h[r+size][c+size] = -v
			}
		}
		size *= 2
	}
	return h
}

func buildWalshPatterns() [8][32]Tribit {
	h := hadamard8()
	var patterns [8][32]Tribit
	for row := 0; row < 8; row++ {
		for i := 0; i < 32; i++ {
			if h[row][i%8] > 0 {
				patterns[row][i] = 0
			} else {
				patterns[row][i] = 4
			}
		}
	}
	return patterns
}

// genSegment emits numSymbols symbols for one preamble segment: the
// patternIdx'th Walsh base pattern (tiled every 32 positions), each symbol
// additively scrambled by the probe scrambler, mapped to 8-PSK.
func genSegment(patternIdx int, numSymbols int, scr *ProbeScrambler) []Sample {
	out := make([]Sample, numSymbols)
	for i := 0; i < numSymbols; i++ {
		base := walshPatterns[patternIdx][i%32]
		out[i] = MapTribit(ScrambleTribit(base, scr.Next()))
	}
	return out
}

// BuildPreambleFrame encodes one 480-symbol preamble frame: common (288) +
// mode (D1 x32, D2 x32) + count (countdown x3, 32 each) + zero (32).
func BuildPreambleFrame(mode Mode, countdown int, scr *ProbeScrambler) []Sample {
	out := make([]Sample, 0, PreambleFrameSymbols)
	for _, idx := range dSequence {
		out = append(out, genSegment(idx, 32, scr)...)
	}
	out = append(out, genSegment(mode.D1, 32, scr)...)
	out = append(out, genSegment(mode.D2, 32, scr)...)
	for i := 0; i < 3; i++ {
		out = append(out, genSegment(countdown&7, 32, scr)...)
	}
	out = append(out, genSegment(0, 32, scr)...)
	return out
}

// BuildPreamble encodes the full short (3-frame) or long (24-frame)
// preamble for mode, continuing scr from its current phase. The countdown
// segment runs num_frames-1 down to 0.
func BuildPreamble(mode Mode, scr *ProbeScrambler) []Sample {
	out := make([]Sample, 0, mode.PreambleSymbols())
	for f := 0; f < mode.PreambleFrames; f++ {
		countdown := mode.PreambleFrames - 1 - f
		out = append(out, BuildPreambleFrame(mode, countdown, scr)...)
	}
	return out
}

// scramblerValues draws n values from scr, advancing it by n. Precomputing
// the sequence lets the decoder try all 8 Walsh hypotheses against the
// same received block without re-running the scrambler per hypothesis.
func scramblerValues(scr *ProbeScrambler, n int) []Tribit {
	vals := make([]Tribit, n)
	for i := range vals {
		vals[i] = scr.Next()
	}
	return vals
}

// decodeSegmentMajority hard-demaps each received symbol to 8-PSK, then
// scores each of the 8 Walsh pattern hypotheses by how many positions
// agree with (pattern[i%segLen] + scrVals[i]) mod 8. It returns the
// winning index and its vote count out of len(symbols).
func decodeSegmentMajority(symbols []Sample, scrVals []Tribit, segLen int) (bestIdx, votes int) {
	best, bestVotes := -1, -1
	for idx := 0; idx < 8; idx++ {
		v := 0
		for i, sym := range symbols {
			expected := ScrambleTribit(walshPatterns[idx][i%segLen], scrVals[i])
			if HardDemapTribit(sym) == expected {
				v++
			}
		}
		if v > bestVotes {
			bestVotes = v
			best = idx
		}
	}
	return best, bestVotes
}

// majorityThreshold scales the normative 50-votes-out-of-96 confidence
// floor to a segment of length n.
func majorityThreshold(n int) int {
	t := (D1D2MajorityThreshold*n + 95) / 96 // ceil(50/96 * n)
	return t
}

// PreambleInfo is the decoded mode-identification and countdown result.
type PreambleInfo struct {
	D1, D2          int
	D1Votes, D2Votes int
	Mode            Mode
	ModeFound       bool
	Countdown       int
	CountVotes      int
	CountOK         bool
}

// DecodePreambleFrame decodes one already-localized 480-symbol preamble
// frame. scr must be positioned at the start of this frame (phase 0 for
// the very first frame of a transmission); it is advanced by exactly 480
// positions on return, leaving it correctly phased for the next frame or
// for the start of the data phase.
//
// Count-segment decoding is implemented but advisory: CountOK is
// reported, but callers (the frame engine) must not gate synchronization
// on it.
func DecodePreambleFrame(symbols []Sample, scr *ProbeScrambler) (PreambleInfo, error) {
	if len(symbols) != PreambleFrameSymbols {
		return PreambleInfo{}, ErrMalformedBlock
	}
	var info PreambleInfo

	_ = scramblerValues(scr, PreambleCommonLen) // common segment: consumed, not decoded here (acquisition already used it for timing/frequency)

	d1Vals := scramblerValues(scr, 32)
	info.D1, info.D1Votes = decodeSegmentMajority(symbols[288:320], d1Vals, 32)

	d2Vals := scramblerValues(scr, 32)
	info.D2, info.D2Votes = decodeSegmentMajority(symbols[320:352], d2Vals, 32)

	countVals := scramblerValues(scr, 96)
	info.Countdown, info.CountVotes = decodeSegmentMajority(symbols[352:448], countVals, 32)
	info.CountOK = info.CountVotes >= majorityThreshold(96)

	_ = scramblerValues(scr, PreambleZeroLen) // zero segment

	d1OK := info.D1Votes >= majorityThreshold(32)
	d2OK := info.D2Votes >= majorityThreshold(32)
	if m, ok := DetectMode(info.D1, info.D2); ok && d1OK && d2OK {
		info.Mode = m
		info.ModeFound = true
	}
	return info, nil
}
