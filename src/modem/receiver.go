package modem

// constellationPoints returns the valid symbol points for mod, used by
// the equalizer/decision-feedback stages to make a nearest-point hard
// decision restricted to the mode's actual constellation subset.
func constellationPoints(mod Modulation) []Sample {
	switch mod {
	case BPSK:
		return []Sample{MapTribit(bpskIndices[0]), MapTribit(bpskIndices[1])}
	case QPSK:
		pts := make([]Sample, len(qpskIndices))
		for i, idx := range qpskIndices {
			pts[i] = MapTribit(idx)
		}
		return pts
	default:
		return PSK8Constellation[:]
	}
}

// combineRepetition sums and saturates the soft LLRs of each consecutive
// run of rep repeated-bit copies (the inverse of the transmitter's
// consecutive bit repetition, applied after deinterleaving restores
// pre-interleave order): summing LLRs of independent noisy observations
// of the same bit is the standard maximal-ratio soft combine.
func combineRepetition(bits []SoftBit, rep int) []SoftBit {
	if rep < 1 {
		rep = 1
	}
	n := len(bits) / rep
	out := make([]SoftBit, n)
	for i := 0; i < n; i++ {
		var sum float64
		for k := 0; k < rep; k++ {
			sum += float64(bits[i*rep+k])
		}
		out[i] = clampSoft(sum)
	}
	return out
}

// Receiver is the frame-synchronous receive pipeline: a state machine
// (SEARCHING -> ACQUIRING -> SYNCHRONIZED -> LOST) wrapped around matched
// filtering, symbol timing recovery, carrier tracking, channel
// estimation/equalization, and block FEC decoding.
//
// Built as an explicit-states, byte/frame-accumulation, best-effort
// delivery state machine in the same style as an HDLC/AX.25
// frame-synchronous bit-level decoder, generalized from HDLC framing to
// this waveform's preamble/probe/interleaver-block structure.
type Receiver struct {
	mode Mode
	sps  int

	matched      *FIRFilter
	timing       *TimingLoop
	carrier      CarrierTracker
	carrierCfg   CarrierConfig

	eqKind    EqualizerKind
	dfe       *DFE
	probeOnly *ProbeOnlyCompensator
	mlse      *MLSETrellis
	eqCfg     EqualizerConfig

	chanEst  *ChannelEstimator
	il       *Interleaver
	bitScr   *BitScrambler
	probeScr *ProbeScrambler
	viterbi  *ViterbiDecoder

	state                PipelineState
	settleRemaining      int // symbols left in the post-acquisition settle dwell
	consecutiveBadFrames int
	rawSymbolBuf         []Sample
	pendingBlock         []SoftBit
	outputBits           []bool
	quality              Quality

	log *Logger
}

// NewReceiver returns a receiver configured for mode, matched-filtering
// and timing-recovering an sps-oversampled input stream, using eqKind for
// data-symbol compensation. numFF/numFB/eqParam configure the DFE: for
// DFELMS, eqParam seeds both muFF and muFB with no leak (use
// NewReceiverWithCarrier plus an EqualizerConfig for independent step
// sizes and a leak coefficient); for DFERLS, eqParam is lambda. Carrier
// tracking uses a decision-directed PLL with default loop constants; use
// NewReceiverWithCarrier to select an EKF tracker or non-default loop
// constants.
func NewReceiver(mode Mode, sps int, eqKind EqualizerKind, numFF, numFB int, eqParam float64) *Receiver {
	return NewReceiverWithCarrier(mode, sps, LoopConfig{BandwidthNormalized: 0.01, Zeta: 0.707}, CarrierConfig{
		Kind: "pll",
		Loop: LoopConfig{BandwidthNormalized: 0.02, Zeta: 0.707},
	}, eqKind, EqualizerConfig{
		NumFF: numFF, NumFB: numFB,
		MuFF: eqParam, MuFB: eqParam, Param: eqParam,
	})
}

// NewReceiverWithCarrier is NewReceiver with explicit timing-loop,
// carrier-tracking, and equalizer configuration (see LoopConfig/
// CarrierConfig/EqualizerConfig): carrierCfg.Kind selects "pll" or "ekf"
// for the carrier tracker, and eqKind selects the compensation strategy
// eqCfg's tap counts and step sizes/lambda parameterize.
func NewReceiverWithCarrier(mode Mode, sps int, timingCfg LoopConfig, carrierCfg CarrierConfig, eqKind EqualizerKind, eqCfg EqualizerConfig) *Receiver {
	matchedTaps := GenerateSRRC(SRRCRolloff, SRRCSpanSymbols, sps)

	r := &Receiver{
		mode:       mode,
		sps:        sps,
		matched:    NewFIRFilter(matchedTaps),
		timing:     NewTimingLoop(float64(sps), timingCfg.BandwidthNormalized, timingCfg.Zeta),
		carrierCfg: carrierCfg,
		eqKind:     eqKind,
		eqCfg:      eqCfg,
		chanEst:    NewChannelEstimator(0.8),
		il:         NewInterleaver(mode.Rect),
		bitScr:     NewBitScrambler(),
		probeScr:   NewProbeScrambler(),
		viterbi:    NewViterbiDecoder(),
		state:      StateSearching,
		log:        discardLogger,
	}
	r.carrier = newCarrierTracker(carrierCfg)
	r.rebuildEqualizer()
	return r
}

// newCarrierTracker builds the CarrierTracker named by cfg.Kind, defaulting
// to a PLL for an unrecognized or zero-value kind.
func newCarrierTracker(cfg CarrierConfig) CarrierTracker {
	if cfg.Kind == "ekf" {
		return NewCarrierEKF(cfg.QPhase, cfg.QFreq, cfg.RMeas)
	}
	return NewCarrierPLL(cfg.Loop.BandwidthNormalized, cfg.Loop.Zeta)
}

// SetLogger attaches l as the receiver's diagnostic sink; state-machine
// transitions log at Debug, sync loss/format faults at Warn/Error. A
// receiver with no attached logger discards everything.
func (r *Receiver) SetLogger(l *Logger) { r.log = l }

func (r *Receiver) rebuildEqualizer() {
	switch r.eqKind {
	case DFELMS:
		r.dfe = NewDFELMS(r.eqCfg.NumFF, r.eqCfg.NumFB, r.eqCfg.MuFF, r.eqCfg.MuFB, r.eqCfg.Leak)
	case DFERLS:
		r.dfe = NewDFE(DFERLS, r.eqCfg.NumFF, r.eqCfg.NumFB, r.eqCfg.Param)
	case ProbeOnlyEqualizer:
		r.probeOnly = &ProbeOnlyCompensator{}
	case MLSEEqualizer:
		r.mlse = nil
	}
}

// State returns the receiver's current pipeline state.
func (r *Receiver) State() PipelineState { return r.state }

// Quality returns a snapshot of the current delivery-quality indicators.
func (r *Receiver) Quality() Quality {
	q := r.quality
	q.State = r.state
	return q
}

// TakeBits drains and returns all payload bits decoded so far.
func (r *Receiver) TakeBits() []bool {
	out := r.outputBits
	r.outputBits = nil
	return out
}

// Reset drops all synchronization state and returns the receiver to
// SEARCHING, as when the caller detects an unrecoverable loss of sync.
func (r *Receiver) Reset() {
	r.log.Warn("receiver reset, returning to SEARCHING", "previousState", r.state)
	r.state = StateSearching
	r.settleRemaining = 0
	r.consecutiveBadFrames = 0
	r.rawSymbolBuf = nil
	r.pendingBlock = nil
	r.chanEst.Reset()
	r.rebuildEqualizer()
	r.carrier = newCarrierTracker(r.carrierCfg)
}

// PushSamples feeds newly-received oversampled baseband samples into the
// pipeline: matched filter, symbol timing recovery, then the
// acquisition/data state machine.
func (r *Receiver) PushSamples(raw []Sample) {
	r.quality.SamplesSeen += uint64(len(raw))
	for _, x := range raw {
		y := r.matched.Step(x)
		if sym, ok := r.timing.Step(y); ok {
			r.rawSymbolBuf = append(r.rawSymbolBuf, sym)
			r.quality.SymbolsSeen++
		}
	}
	r.process()
}

// maxSearchBuffer bounds how much of rawSymbolBuf is retained while
// searching for a preamble, so a channel with no signal at all does not
// grow the buffer without limit.
const maxSearchBuffer = PreambleFrameSymbols * 6

func (r *Receiver) process() {
	switch r.state {
	case StateSearching:
		r.tryAcquire()
	case StateAcquiring, StateSynchronized:
		r.consumeData()
		if r.state == StateLost {
			r.recycleFromLoss()
		}
	case StateLost:
		r.recycleFromLoss()
	}
}

// recycleFromLoss performs the unconditional LOST -> SEARCHING transition:
// all synchronization state is dropped as in Reset, except that the raw
// symbols still buffered are kept, and a fresh acquisition attempt runs
// immediately against them, rather than waiting for the caller's next
// PushSamples call.
func (r *Receiver) recycleFromLoss() {
	r.log.Warn("sync lost, recycling to SEARCHING")
	r.pendingBlock = nil
	r.consecutiveBadFrames = 0
	r.settleRemaining = 0
	r.chanEst.Reset()
	r.rebuildEqualizer()
	r.carrier = newCarrierTracker(r.carrierCfg)
	r.state = StateSearching
	r.tryAcquire()
}

// checkSyncHealth evaluates whether a SYNCHRONIZED link should be
// declared LOST: SyncLossMaxConsecutiveBadFrames consecutive block decode
// failures, or a probe-estimated SNR below SyncLossSNRFloorDB. Either one
// means the link is no longer being demodulated reliably even if bits are
// still coming out the other end.
func (r *Receiver) checkSyncHealth() {
	if r.state != StateSynchronized {
		return
	}
	if r.consecutiveBadFrames >= SyncLossMaxConsecutiveBadFrames {
		r.log.Warn("sync lost: too many consecutive bad frames", "count", r.consecutiveBadFrames)
		r.state = StateLost
		return
	}
	if r.quality.ChannelValid && r.quality.SNRdB < SyncLossSNRFloorDB {
		r.log.Warn("sync lost: SNR below floor", "snrDB", r.quality.SNRdB, "floorDB", SyncLossSNRFloorDB)
		r.state = StateLost
	}
}

// tryAcquire runs the full three-stage acquisition search against
// rawSymbolBuf: a coarse delay-and-multiply frequency estimate, a medium
// 50Hz-spaced parallel-channel search that scores candidates by
// segmented preamble correlation, and finally Acquire's fine timing and
// residual-frequency search on the corrected buffer.
func (r *Receiver) tryAcquire() {
	if len(r.rawSymbolBuf) < PreambleFrameSymbols {
		return
	}

	coarseHz := CoarseFrequencyOffset(r.rawSymbolBuf, float64(SymbolRateHz))
	mediumHz := MediumFrequencySearch(r.rawSymbolBuf, coarseHz, float64(SymbolRateHz))
	corrected := correctFrequency(r.rawSymbolBuf, mediumHz, float64(SymbolRateHz))

	res, err := Acquire(corrected, float64(SymbolRateHz))
	if err != nil {
		if len(r.rawSymbolBuf) > maxSearchBuffer {
			r.rawSymbolBuf = r.rawSymbolBuf[len(r.rawSymbolBuf)-PreambleFrameSymbols:]
		}
		return
	}

	if res.Preamble.ModeFound && res.Preamble.Mode.Name != r.mode.Name {
		r.log.Debug("mode changed by preamble detection", "from", r.mode.Name, "to", res.Preamble.Mode.Name)
		r.mode = res.Preamble.Mode
		r.il = NewInterleaver(r.mode.Rect)
		r.rebuildEqualizer()
	}

	r.state = StateAcquiring
	totalFreqOffsetHz := mediumHz + res.FreqOffsetHz
	r.log.Debug("preamble acquired", "mode", r.mode.Name, "peak", res.Peak, "freqOffsetHz", totalFreqOffsetHz)
	r.rawSymbolBuf = r.rawSymbolBuf[res.Offset+PreambleFrameSymbols:]
	r.bitScr.Reset()
	r.probeScr.Reset()
	r.pendingBlock = nil
	r.chanEst.Reset()
	r.consecutiveBadFrames = 0
	r.settleRemaining = AcquisitionSettleSymbols

	r.quality.DetectedMode = r.mode.Name
	r.quality.FreqOffsetHz = totalFreqOffsetHz
	r.quality.ChannelValid = false

	r.consumeData()
}

// compensate runs the carrier-corrected, scrambler-derotated sample
// through the configured equalizer/compensator. desired, if non-nil, is
// the known training point (used for probe symbols).
func (r *Receiver) compensate(sample Sample, desired *Sample) Sample {
	switch r.eqKind {
	case DFELMS, DFERLS:
		out, _ := r.dfe.Step(sample, constellationPoints(r.mode.Modulation), desired)
		return out
	case ProbeOnlyEqualizer:
		r.probeOnly.SetEstimate(r.chanEst.Current())
		return r.probeOnly.Correct(sample)
	case MLSEEqualizer:
		// Data-symbol compensation for MLSE runs per-block in
		// decideMLSEBlock against the whole data window at once; probe
		// symbols pass through uncorrected here since they feed
		// chanEst.Update directly rather than being demapped.
		return sample
	default:
		return sample
	}
}

func (r *Receiver) consumeData() {
	patternLen := r.mode.PatternLen()
	if patternLen == 0 {
		r.consumeUnprobedData()
		return
	}
	knownProbe := MapTribit(0)
	for len(r.rawSymbolBuf) >= patternLen {
		pattern := r.rawSymbolBuf[:patternLen]
		r.rawSymbolBuf = r.rawSymbolBuf[patternLen:]

		dataSyms := pattern[:r.mode.DataLen]
		probeSyms := pattern[r.mode.DataLen:]

		corrected := make([]Sample, len(dataSyms))
		for i, sym := range dataSyms {
			scrVal := r.probeScr.Next()
			derot := sym * cmplxConj(MapTribit(scrVal))
			corrected[i] = r.carrier.Correct(derot)
		}
		r.emitDataBlock(corrected)

		rxProbe := make([]Sample, len(probeSyms))
		knownProbes := make([]Sample, len(probeSyms))
		for i, sym := range probeSyms {
			scrVal := r.probeScr.Next()
			derot := sym * cmplxConj(MapTribit(scrVal))
			cc := r.carrier.Correct(derot)
			eq := r.compensate(cc, &knownProbe)
			rxProbe[i] = eq
			knownProbes[i] = knownProbe
		}
		if len(probeSyms) > 0 {
			est := r.chanEst.Update(rxProbe, knownProbes)
			r.chanEst.SetFreqOffsetHz(r.carrier.FreqOffsetHz(float64(SymbolRateHz)))
			r.quality.ChannelValid = est.Valid
			r.quality.SNRdB = est.SNRdB
			r.quality.FreqOffsetHz = r.chanEst.Current().FreqOffsetHz
		}

		r.drainBlocks()
		r.checkSyncHealth()
		if r.state == StateLost {
			return
		}
	}
}

// emitDataBlock equalizes one pattern's worth of carrier-corrected data
// symbols and appends their soft bits to pendingBlock. MLSE runs trellis
// sequence estimation over the whole block at once; every other kind
// compensates and demaps symbol by symbol.
func (r *Receiver) emitDataBlock(dataSyms []Sample) {
	if r.eqKind == MLSEEqualizer {
		r.decideMLSEBlock(dataSyms)
		return
	}
	for _, cc := range dataSyms {
		eq := r.compensate(cc, nil)
		r.appendDataSymbol(eq)
	}
}

// decideMLSEBlock builds a fresh MLSETrellis from the current channel
// estimate's gain (a single-tap, flat-fading model, since no multi-tap
// delay-spread estimator exists to feed it more) and runs sequence
// estimation over dataSyms, appending each decided constellation point's
// soft bits.
func (r *Receiver) decideMLSEBlock(dataSyms []Sample) {
	taps := []Sample{complex(1, 0)}
	if est := r.chanEst.Current(); est.Valid && est.Gain != 0 {
		taps = []Sample{est.Gain}
	}
	points := constellationPoints(r.mode.Modulation)
	r.mlse = NewMLSETrellis(points, taps)
	for _, idx := range r.mlse.Decode(dataSyms) {
		r.appendDataSymbol(points[idx])
	}
}

// appendDataSymbol soft-demaps one equalized data symbol and appends it to
// pendingBlock, unless the receiver is still within its post-acquisition
// settle dwell, in which case the symbol is discarded and the dwell
// counter is advanced.
func (r *Receiver) appendDataSymbol(eq Sample) {
	if r.settleRemaining > 0 {
		r.settleRemaining--
		if r.settleRemaining == 0 {
			r.state = StateSynchronized
		}
		return
	}
	r.pendingBlock = append(r.pendingBlock, SoftDemap(r.mode.Modulation, eq)...)
}

// consumeUnprobedData handles the 75bps modes, which carry no probe
// symbols at all: every symbol is data, carrier-corrected and
// scrambler-derotated but not channel-equalized (there is no probe
// reference to estimate a channel gain from).
func (r *Receiver) consumeUnprobedData() {
	for len(r.rawSymbolBuf) > 0 {
		sym := r.rawSymbolBuf[0]
		r.rawSymbolBuf = r.rawSymbolBuf[1:]
		scrVal := r.probeScr.Next()
		derot := sym * cmplxConj(MapTribit(scrVal))
		cc := r.carrier.Correct(derot)
		r.appendDataSymbol(cc)
		r.drainBlocks()
		r.checkSyncHealth()
		if r.state == StateLost {
			return
		}
	}
}

// drainBlocks decodes every complete interleaver block currently buffered
// in pendingBlock.
func (r *Receiver) drainBlocks() {
	blockSize := r.il.BlockSize()
	rep := repFactor(r.mode)
	codedLen := codedLenPerBlock(r.mode, r.il)

	for len(r.pendingBlock) >= blockSize {
		block := r.pendingBlock[:blockSize]
		r.pendingBlock = r.pendingBlock[blockSize:]

		deinterleaved := r.il.DeinterleaveSoft(block)
		meaningful := deinterleaved[:codedLen*rep]
		combined := combineRepetition(meaningful, rep)

		var decodedBits []bool
		if r.mode.Coded {
			bits, err := r.viterbi.Decode(combined, true)
			if err != nil {
				r.log.Warn("block decode failed, dropping block", "mode", r.mode.Name, "error", err)
				r.consecutiveBadFrames++
				continue
			}
			decodedBits = bits
		} else {
			decodedBits = make([]bool, len(combined))
			for i, sb := range combined {
				decodedBits[i] = sb.HardBit()
			}
		}

		r.consecutiveBadFrames = 0
		payloadChunk := r.bitScr.ScrambleBits(decodedBits)
		r.outputBits = append(r.outputBits, payloadChunk...)
		r.quality.FramesDecoded++
		r.quality.BytesDelivered = uint64(len(r.outputBits) / 8)
	}
}
