package modem

// Transmitter runs the full TX pipeline: bit-pack (by the
// caller) -> scramble -> convolutional encode+flush -> bit repetition ->
// interleave -> map to symbols -> probe insertion -> preamble prepend ->
// SRRC pulse shaping -> carrier upconversion.
//
// A single Transmitter owns one continuously-advancing ProbeScrambler
// instance spanning the preamble and every data frame of a transmission:
// the offset after N symbols (preamble or data, probe or non-probe) is
// always (start+N) mod 32, so the instance must never be reset
// mid-transmission.
type Transmitter struct {
	mode Mode
	sps  int

	bitScr *BitScrambler
	probe  *ProbeScrambler
	il     *Interleaver

	pulse *FIRFilter
	nco   *NCO

	log *Logger
}

// NewTransmitter returns a transmitter for mode, pulse-shaping at sps
// samples per symbol and upconverting to CarrierHz at the given output
// sample rate (== sps * SymbolRateHz).
func NewTransmitter(mode Mode, sps int) *Transmitter {
	sampleRate := float64(sps * SymbolRateHz)
	taps := GenerateSRRC(SRRCRolloff, SRRCSpanSymbols, sps)
	for i := range taps {
		taps[i] *= float64(sps) // restore unity passband gain after zero-stuffing
	}
	return &Transmitter{
		mode:   mode,
		sps:    sps,
		bitScr: NewBitScrambler(),
		probe:  NewProbeScrambler(),
		il:     NewInterleaver(mode.Rect),
		pulse:  NewFIRFilter(taps),
		nco:    NewNCO(CarrierHz, sampleRate),
		log:    discardLogger,
	}
}

// SetLogger attaches l as the transmitter's diagnostic sink. A
// transmitter with no attached logger discards everything.
func (t *Transmitter) SetLogger(l *Logger) { t.log = l }

// repFactor returns the mode's bit-repetition count, floored at 1.
func repFactor(mode Mode) int {
	if mode.BitRepetition < 1 {
		return 1
	}
	return mode.BitRepetition
}

// codedLenPerBlock is floor(BlockSize/rep): the number of pre-repetition
// bits (Viterbi-coded for a coded mode, raw for an uncoded one) that fit
// in one interleaver block. Not every mode's (BlockSize, rep) pair
// divides evenly — notably the 75bps modes (BlockSize 90 or 720, rep 32)
// — so the repeated stream is zero-padded up to BlockSize and the
// receiver, knowing the same codedLenPerBlock, discards the same pad.
func codedLenPerBlock(mode Mode, il *Interleaver) int {
	return il.BlockSize() / repFactor(mode)
}

// payloadBitsPerBlock returns how many raw payload bits fit in one
// independently-framed interleaver block: codedLenPerBlock undone by the
// rate-1/2 code and its flush tail for a coded mode, or returned as-is
// for an uncoded mode (75bps, 4800bps).
func payloadBitsPerBlock(mode Mode, il *Interleaver) int {
	codedLen := codedLenPerBlock(mode, il)
	if !mode.Coded {
		return codedLen
	}
	return codedLen/2 - ViterbiFlushBits
}

// encodeDataPhase turns payload bits into the mode's data-phase symbol
// stream. Each interleaver block carries its own independently framed
// segment of the message (so the receiver can decode block by block
// without buffering the whole transmission): split payloadBits into
// payloadBitsPerBlock-sized chunks (the last zero-padded if short),
// scramble continuously across chunks, convolutionally encode and flush
// each chunk (coded modes only), repeat, zero-pad to the full interleaver
// block size, interleave, and map to tribits.
func (t *Transmitter) encodeDataPhase(payloadBits []bool) []Tribit {
	chunkLen := payloadBitsPerBlock(t.mode, t.il)
	if chunkLen <= 0 {
		InvariantViolation("mode interleaver block too small for one framed chunk")
	}
	rep := repFactor(t.mode)
	blockSize := t.il.BlockSize()

	bps := t.mode.Modulation.BitsPerSymbol()
	tribits := make([]Tribit, 0, len(payloadBits)/bps+1)

	for off := 0; off < len(payloadBits); off += chunkLen {
		end := off + chunkLen
		chunk := make([]bool, chunkLen)
		if end > len(payloadBits) {
			copy(chunk, payloadBits[off:])
		} else {
			copy(chunk, payloadBits[off:end])
		}

		scrambled := t.bitScr.ScrambleBits(chunk)
		var coded []bool
		if t.mode.Coded {
			coded = EncodeBits(scrambled)
		} else {
			coded = scrambled
		}

		repeated := make([]bool, 0, blockSize)
		for _, b := range coded {
			for i := 0; i < rep; i++ {
				repeated = append(repeated, b)
			}
		}
		if len(repeated) < blockSize {
			repeated = append(repeated, make([]bool, blockSize-len(repeated))...)
		}

		block := t.il.Interleave(repeated)
		for i := 0; i+bps <= len(block); i += bps {
			tribits = append(tribits, BitsToTribit(t.mode.Modulation, block[i:i+bps]))
		}
	}
	return tribits
}

// frameSymbols interleaves data tribits with probe symbols pattern by
// pattern (DataLen data symbols followed by ProbeLen probe symbols),
// applying the continuous probe/symbol scrambler to every symbol. Modes
// with no probes (ProbeLen==0) emit the data tribits unbroken.
func (t *Transmitter) frameSymbols(dataTribits []Tribit) []Sample {
	out := make([]Sample, 0, len(dataTribits)+len(dataTribits)/max1(t.mode.DataLen)*t.mode.ProbeLen)
	if !t.mode.HasProbes() {
		for _, tb := range dataTribits {
			out = append(out, MapTribit(ScrambleTribit(tb, t.probe.Next())))
		}
		return out
	}
	for i := 0; i < len(dataTribits); i += t.mode.DataLen {
		end := i + t.mode.DataLen
		if end > len(dataTribits) {
			end = len(dataTribits)
		}
		for _, tb := range dataTribits[i:end] {
			out = append(out, MapTribit(ScrambleTribit(tb, t.probe.Next())))
		}
		for p := 0; p < t.mode.ProbeLen; p++ {
			out = append(out, MapTribit(t.probe.Next()))
		}
	}
	return out
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// pulseShapeAndUpconvert zero-stuffs symbols to sps samples/symbol,
// applies the SRRC pulse-shaping filter, flushes the filter with
// SRRCSpanSymbols*sps zero samples to release its tail, and mixes the
// result onto CarrierHz.
func (t *Transmitter) pulseShapeAndUpconvert(symbols []Sample) []Sample {
	out := make([]Sample, 0, (len(symbols)+SRRCSpanSymbols)*t.sps)
	for _, sym := range symbols {
		out = append(out, t.pulse.Step(sym))
		for k := 1; k < t.sps; k++ {
			out = append(out, t.pulse.Step(0))
		}
	}
	for k := 0; k < SRRCSpanSymbols*t.sps; k++ {
		out = append(out, t.pulse.Step(0))
	}
	for i := range out {
		out[i] = t.nco.Mix(out[i])
	}
	return out
}

// Transmit encodes payloadBits (the user's packed data bits, MSB-first)
// into a complete waveform: preamble followed by the data phase, pulse
// shaped and upconverted to CarrierHz. It resets the bit scrambler, probe
// scrambler, pulse-shaping filter, and NCO phase first, so each call
// produces one independent transmission.
func (t *Transmitter) Transmit(payloadBits []bool) []Sample {
	t.log.Debug("transmit starting", "mode", t.mode.Name, "payloadBits", len(payloadBits))
	t.bitScr.Reset()
	t.probe.Reset()
	t.pulse.Reset()
	t.nco.Reset()

	preamble := BuildPreamble(t.mode, t.probe)
	data := t.encodeDataPhase(payloadBits)
	dataSymbols := t.frameSymbols(data)

	symbols := make([]Sample, 0, len(preamble)+len(dataSymbols))
	symbols = append(symbols, preamble...)
	symbols = append(symbols, dataSymbols...)

	return t.pulseShapeAndUpconvert(symbols)
}
