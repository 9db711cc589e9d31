package modem

// Normative MIL-STD-188-110A Appendix C constants. These are the
// process-lifetime, never-mutated parameters of the waveform itself, as
// distinct from Config, which holds deployment-tunable loop parameters.
const (
	// SymbolRateHz is the fixed channel symbol rate for every mode.
	SymbolRateHz = 2400
	// CarrierHz is the nominal center frequency within the 3kHz channel.
	CarrierHz = 1800.0

	// SRRCRolloff and SRRCSpanSymbols parameterize the pulse-shaping
	// filter shared by TX and RX.
	SRRCRolloff     = 0.35
	SRRCSpanSymbols = 6

	// ViterbiConstraintLength (K=7) convolutional code, generator
	// polynomials in octal 133 and 171.
	ViterbiConstraintLength = 7
	ViterbiPolyA            = 0o133
	ViterbiPolyB            = 0o171
	ViterbiFlushBits         = 6
	ViterbiMinTraceback      = 5 * ViterbiConstraintLength

	// BitScramblerLen and BitScramblerInit describe the 1 + x^-6 + x^-7
	// bit scrambler (feedback taps at bit positions 6 and 7 of a 7-bit
	// shift register).
	BitScramblerLen  = 7
	BitScramblerInit = 0x7F // all-ones

	// ProbeScramblerPeriod is the period of the additive modulo-8 probe
	// sequence, shared by the preamble's base-pattern construction and the
	// data-phase probe symbols.
	ProbeScramblerPeriod = 32

	// PreambleFrameSymbols is the fixed length of one preamble frame.
	PreambleFrameSymbols = 480
	PreambleCommonLen    = 288
	PreambleModeLen      = 64
	PreambleCountLen     = 96
	PreambleZeroLen      = 32

	// Frame2400SDataLen/ProbeLen document the canonical 2400S frame:
	// 32 data + 16 probe = 48 symbols = 20ms.
	Frame2400SDataLen  = 32
	Frame2400SProbeLen = 16

	// PreambleEarlyTerminationThreshold is the "first strong peak"
	// correlation threshold (relative to segment power) used by the
	// preamble timing search. This value trades false-alarm rate against
	// jitter and is not re-derived per mode.
	PreambleEarlyTerminationThreshold = 0.80

	// D1D2MajorityThreshold is the preamble-segment confidence floor,
	// expressed as agreeing votes out of 96 symbols. majorityThreshold
	// scales it to the 32-symbol D1 and D2 segments (17 votes each) and
	// applies it unscaled to the 96-symbol count segment.
	D1D2MajorityThreshold = 50

	// AcquisitionSettleSymbols is the dwell period, in data symbols (probe
	// symbols are not counted), after a preamble frame is localized and before the receiver is
	// declared SYNCHRONIZED: carrier, timing, and equalizer loops are
	// driven by live symbols during this window, but the bits they
	// produce are discarded rather than delivered.
	AcquisitionSettleSymbols = 50

	// SyncLossMaxConsecutiveBadFrames is the number of consecutive block
	// decode failures that declares a SYNCHRONIZED link LOST.
	SyncLossMaxConsecutiveBadFrames = 5

	// SyncLossSNRFloorDB is the probe-estimated SNR below which a
	// SYNCHRONIZED link is declared LOST even while blocks are still
	// decoding cleanly, since the channel has degraded past what the
	// FEC's error margin can be trusted to cover.
	SyncLossSNRFloorDB = 2.0
)

// dSequence is the fixed 9-element base-pattern selector used to build the
// 288-symbol common preamble segment: nine 32-symbol base patterns chosen
// from the eight Walsh-like patterns.
var dSequence = [9]int{0, 1, 3, 0, 1, 3, 1, 2, 0}
