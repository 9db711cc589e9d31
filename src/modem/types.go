package modem

import "math/cmplx"

// Sample is a complex baseband sample. At the nominal 48kHz RX rate there
// are 20 samples per symbol (48000/2400); TX intermediate rates are
// arbitrary and carried explicitly alongside the sample stream.
type Sample = complex128

// Tribit is a 3-bit natural-binary symbol index in [0,8), the label prior
// to scrambler rotation.
type Tribit uint8

// SoftBit is a signed log-likelihood ratio in [-127,127]; positive means
// bit=1 is more likely. Zero means "erased" (no information).
type SoftBit int8

// HardBit extracts the MSB-style hard decision from a soft bit: true means
// bit=1.
func (s SoftBit) HardBit() bool { return s > 0 }

// Negate flips the sign of a soft bit, used when undoing a scrambler XOR:
// XORing a bit with 1 inverts both the hard decision and the LLR sign.
func (s SoftBit) Negate() SoftBit {
	if s == -128 {
		return 127
	}
	return -s
}

// ChannelEstimate is the per-probe-block channel state produced by the
// probe-aided channel estimator.
type ChannelEstimate struct {
	Gain          Sample  // complex channel gain H
	NoiseVariance float64 // sigma^2
	SNRdB         float64
	FreqOffsetHz  float64
	Valid         bool
}

// Amplitude returns |H|.
func (c ChannelEstimate) Amplitude() float64 { return cmplx.Abs(c.Gain) }

// PhaseRad returns arg(H) in radians.
func (c ChannelEstimate) PhaseRad() float64 { return cmplx.Phase(c.Gain) }

// PipelineState enumerates the receiver's frame-synchronous state machine
// positions.
type PipelineState int

const (
	StateSearching PipelineState = iota
	StateAcquiring
	StateSynchronized
	StateLost
)

func (s PipelineState) String() string {
	switch s {
	case StateSearching:
		return "SEARCHING"
	case StateAcquiring:
		return "ACQUIRING"
	case StateSynchronized:
		return "SYNCHRONIZED"
	case StateLost:
		return "LOST"
	default:
		return "UNKNOWN"
	}
}

// Quality is the caller-facing best-effort delivery indicator: bytes may
// be emitted even when SNR is poor, and the caller must consult Quality
// before trusting them.
type Quality struct {
	State          PipelineState
	SamplesSeen    uint64
	SymbolsSeen    uint64
	FramesDecoded  uint64
	BytesDelivered uint64
	SNRdB          float64
	ChannelValid   bool
	DetectedMode   string
	FreqOffsetHz   float64
}
