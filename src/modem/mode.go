// Package modem implements the MIL-STD-188-110A Appendix C serial-tone
// waveform: FEC/interleave/scramble/map chain, preamble, acquisition,
// tracking/equalization loops, and the frame-synchronous receiver and
// transmitter pipelines.
package modem

import "fmt"

// Modulation is the constellation a mode's data symbols are drawn from.
// Probe symbols are always 8-PSK regardless of the mode's data modulation.
type Modulation int

const (
	BPSK Modulation = iota
	QPSK
	PSK8
)

func (m Modulation) String() string {
	switch m {
	case BPSK:
		return "BPSK"
	case QPSK:
		return "QPSK"
	case PSK8:
		return "8PSK"
	default:
		return "unknown"
	}
}

// BitsPerSymbol returns the number of data bits carried per symbol for m.
func (m Modulation) BitsPerSymbol() int {
	switch m {
	case BPSK:
		return 1
	case QPSK:
		return 2
	case PSK8:
		return 3
	default:
		return 0
	}
}

// Interleave identifies the interleaver depth class of a mode.
type Interleave int

const (
	InterleaveNone Interleave = iota
	InterleaveShort
	InterleaveLong
	InterleaveVoice
)

func (i Interleave) String() string {
	switch i {
	case InterleaveNone:
		return "none"
	case InterleaveShort:
		return "short"
	case InterleaveLong:
		return "long"
	case InterleaveVoice:
		return "voice"
	default:
		return "unknown"
	}
}

// InterleaverRect describes the rows x cols write rectangle and the
// column-traversal increments used to read it back out. Rows and RowInc
// are coprime in every mode defined below (RowInc 0 reads as a plain
// transpose), so read-order is a bijection on the rows*cols-bit block.
type InterleaverRect struct {
	Rows, Cols     int
	RowInc, ColInc int
	BlockCountMod  int
}

// BlockSize is the number of bits in one interleaver block.
func (r InterleaverRect) BlockSize() int { return r.Rows * r.Cols }

// Mode is an immutable descriptor for one of the 16 standard
// MIL-STD-188-110A data rate / interleave combinations. Mode values are
// process-lifetime singletons; never mutate a Mode's fields.
type Mode struct {
	Name            string
	UserBitRate     int
	Modulation      Modulation
	BitRepetition   int
	Interleave      Interleave
	Rect            InterleaverRect
	DataLen         int // unknown_len: data symbols per frame pattern
	ProbeLen        int // known_len: probe symbols per frame pattern
	D1, D2          int
	PreambleFrames  int
	SymbolRateHz    int
	Coded           bool // false for the 75bps modes and the uncoded 4800bps mode
}

// PatternLen is DataLen+ProbeLen, the frame's data-phase pattern length in
// symbols (zero for the 75bps modes, which carry no probes).
func (m Mode) PatternLen() int { return m.DataLen + m.ProbeLen }

// PreambleSymbols is the total preamble length in symbols: 480 per frame.
func (m Mode) PreambleSymbols() int { return m.PreambleFrames * PreambleFrameSymbols }

// HasProbes reports whether the mode interleaves probe blocks into the
// data phase (all modes except the 75bps BPSK modes).
func (m Mode) HasProbes() bool { return m.ProbeLen > 0 }

// Modes is the closed set of 16 standard mode descriptors, keyed by name.
// Values mirror the MIL-STD-188-110A Appendix C mode table; interleaver
// rectangles, D1/D2, and probe lengths are normative and must not be
// adjusted per deployment.
var Modes = map[string]Mode{
	"M75NS": {
		Name: "M75NS", UserBitRate: 75, Modulation: BPSK, BitRepetition: 32,
		Interleave: InterleaveShort,
		Rect:       InterleaverRect{Rows: 10, Cols: 9, RowInc: 7, ColInc: 2, BlockCountMod: 45},
		DataLen: 0, ProbeLen: 0, D1: 0, D2: 0, PreambleFrames: 3, SymbolRateHz: 2400, Coded: false,
	},
	"M75NL": {
		Name: "M75NL", UserBitRate: 75, Modulation: BPSK, BitRepetition: 32,
		Interleave: InterleaveLong,
		Rect:       InterleaverRect{Rows: 20, Cols: 36, RowInc: 7, ColInc: 29, BlockCountMod: 360},
		DataLen: 0, ProbeLen: 0, D1: 0, D2: 0, PreambleFrames: 24, SymbolRateHz: 2400, Coded: false,
	},
	"M150S": {
		Name: "M150S", UserBitRate: 150, Modulation: BPSK, BitRepetition: 4,
		Interleave: InterleaveShort,
		Rect:       InterleaverRect{Rows: 40, Cols: 18, RowInc: 9, ColInc: 1, BlockCountMod: 36},
		DataLen: 20, ProbeLen: 20, D1: 7, D2: 4, PreambleFrames: 3, SymbolRateHz: 2400, Coded: true,
	},
	"M150L": {
		Name: "M150L", UserBitRate: 150, Modulation: BPSK, BitRepetition: 4,
		Interleave: InterleaveLong,
		Rect:       InterleaverRect{Rows: 40, Cols: 144, RowInc: 9, ColInc: 127, BlockCountMod: 288},
		DataLen: 20, ProbeLen: 20, D1: 5, D2: 4, PreambleFrames: 24, SymbolRateHz: 2400, Coded: true,
	},
	"M300S": {
		Name: "M300S", UserBitRate: 300, Modulation: BPSK, BitRepetition: 2,
		Interleave: InterleaveShort,
		Rect:       InterleaverRect{Rows: 40, Cols: 18, RowInc: 9, ColInc: 1, BlockCountMod: 36},
		DataLen: 20, ProbeLen: 20, D1: 6, D2: 7, PreambleFrames: 3, SymbolRateHz: 2400, Coded: true,
	},
	"M300L": {
		Name: "M300L", UserBitRate: 300, Modulation: BPSK, BitRepetition: 2,
		Interleave: InterleaveLong,
		Rect:       InterleaverRect{Rows: 40, Cols: 144, RowInc: 9, ColInc: 127, BlockCountMod: 288},
		DataLen: 20, ProbeLen: 20, D1: 4, D2: 7, PreambleFrames: 24, SymbolRateHz: 2400, Coded: true,
	},
	"M600S": {
		Name: "M600S", UserBitRate: 600, Modulation: BPSK, BitRepetition: 1,
		Interleave: InterleaveShort,
		Rect:       InterleaverRect{Rows: 40, Cols: 18, RowInc: 9, ColInc: 1, BlockCountMod: 36},
		DataLen: 20, ProbeLen: 20, D1: 6, D2: 6, PreambleFrames: 3, SymbolRateHz: 2400, Coded: true,
	},
	"M600L": {
		Name: "M600L", UserBitRate: 600, Modulation: BPSK, BitRepetition: 1,
		Interleave: InterleaveLong,
		Rect:       InterleaverRect{Rows: 40, Cols: 144, RowInc: 9, ColInc: 127, BlockCountMod: 288},
		DataLen: 20, ProbeLen: 20, D1: 4, D2: 6, PreambleFrames: 24, SymbolRateHz: 2400, Coded: true,
	},
	"M600V": {
		Name: "M600V", UserBitRate: 600, Modulation: BPSK, BitRepetition: 1,
		Interleave: InterleaveVoice,
		Rect:       InterleaverRect{Rows: 40, Cols: 18, RowInc: 9, ColInc: 1, BlockCountMod: 36},
		DataLen: 20, ProbeLen: 20, D1: 6, D2: 6, PreambleFrames: 3, SymbolRateHz: 2400, Coded: true,
	},
	"M1200S": {
		Name: "M1200S", UserBitRate: 1200, Modulation: QPSK, BitRepetition: 1,
		Interleave: InterleaveShort,
		Rect:       InterleaverRect{Rows: 40, Cols: 36, RowInc: 9, ColInc: 19, BlockCountMod: 36},
		DataLen: 20, ProbeLen: 20, D1: 6, D2: 5, PreambleFrames: 3, SymbolRateHz: 2400, Coded: true,
	},
	"M1200L": {
		Name: "M1200L", UserBitRate: 1200, Modulation: QPSK, BitRepetition: 1,
		Interleave: InterleaveLong,
		Rect:       InterleaverRect{Rows: 40, Cols: 288, RowInc: 9, ColInc: 271, BlockCountMod: 288},
		DataLen: 20, ProbeLen: 20, D1: 4, D2: 5, PreambleFrames: 24, SymbolRateHz: 2400, Coded: true,
	},
	"M1200V": {
		Name: "M1200V", UserBitRate: 1200, Modulation: QPSK, BitRepetition: 1,
		Interleave: InterleaveVoice,
		Rect:       InterleaverRect{Rows: 40, Cols: 36, RowInc: 9, ColInc: 19, BlockCountMod: 36},
		DataLen: 20, ProbeLen: 20, D1: 6, D2: 5, PreambleFrames: 3, SymbolRateHz: 2400, Coded: true,
	},
	"M2400S": {
		Name: "M2400S", UserBitRate: 2400, Modulation: PSK8, BitRepetition: 1,
		Interleave: InterleaveShort,
		Rect:       InterleaverRect{Rows: 40, Cols: 72, RowInc: 9, ColInc: 55, BlockCountMod: 30},
		DataLen: 32, ProbeLen: 16, D1: 6, D2: 4, PreambleFrames: 3, SymbolRateHz: 2400, Coded: true,
	},
	"M2400L": {
		Name: "M2400L", UserBitRate: 2400, Modulation: PSK8, BitRepetition: 1,
		Interleave: InterleaveLong,
		Rect:       InterleaverRect{Rows: 40, Cols: 576, RowInc: 9, ColInc: 559, BlockCountMod: 240},
		DataLen: 32, ProbeLen: 16, D1: 4, D2: 4, PreambleFrames: 24, SymbolRateHz: 2400, Coded: true,
	},
	"M2400V": {
		Name: "M2400V", UserBitRate: 2400, Modulation: PSK8, BitRepetition: 1,
		Interleave: InterleaveVoice,
		Rect:       InterleaverRect{Rows: 40, Cols: 72, RowInc: 0, ColInc: 0, BlockCountMod: 30},
		DataLen: 32, ProbeLen: 16, D1: 6, D2: 4, PreambleFrames: 3, SymbolRateHz: 2400, Coded: true,
	},
	"M4800S": {
		Name: "M4800S", UserBitRate: 4800, Modulation: PSK8, BitRepetition: 1,
		Interleave: InterleaveShort,
		Rect:       InterleaverRect{Rows: 40, Cols: 72, RowInc: 0, ColInc: 0, BlockCountMod: 30},
		DataLen: 32, ProbeLen: 16, D1: 7, D2: 6, PreambleFrames: 3, SymbolRateHz: 2400, Coded: false,
	},
}

// modeOrder lists mode names in the canonical table order, for callers
// that need a stable iteration (e.g. building a D1/D2 lookup table).
var modeOrder = []string{
	"M75NS", "M75NL", "M150S", "M150L", "M300S", "M300L",
	"M600S", "M600L", "M600V", "M1200S", "M1200L", "M1200V",
	"M2400S", "M2400L", "M2400V", "M4800S",
}

// ModeByName looks up a mode by its canonical name (e.g. "M2400S").
func ModeByName(name string) (Mode, error) {
	m, ok := Modes[name]
	if !ok {
		return Mode{}, fmt.Errorf("modem: unknown mode %q", name)
	}
	return m, nil
}

// DetectMode finds the mode whose D1/D2 mode-identification tribits match
// the pair decoded from a preamble's mode segment. The 75bps modes and the
// uncoded 4800bps mode are mutually distinguishable from every other row;
// where D1/D2 alone does not disambiguate short/long/voice (e.g. M600S vs
// M600V both carry D1=6,D2=6), the first match in canonical table order
// wins and the caller is expected to have the short/voice distinction from
// elsewhere (a configured default, or higher-layer protocol framing).
func DetectMode(d1, d2 int) (Mode, bool) {
	for _, name := range modeOrder {
		m := Modes[name]
		if m.D1 == d1 && m.D2 == d2 {
			return m, true
		}
	}
	return Mode{}, false
}
