// Package iosrc implements the external sample source/sink contracts:
// pulling complex baseband (or real, internally downconverted) samples
// from a file, sound card, or SDR front-end, and pushing transmit samples
// back out to a sound card.
//
// Built as a small buffered read/write interface hiding the specifics of
// the underlying transport (PortAudio/HackRF/file), with a periodic
// rate-report companion, adapted from a byte-oriented mono PCM
// device to a complex-sample stream.
package iosrc

import "github.com/n5dsp/m110a/src/modem"

// SourceType names the concrete backend behind a SampleSource, surfaced
// for diagnostics.
type SourceType int

const (
	SourceFile SourceType = iota
	SourceSoundcard
	SourceSDR
)

func (t SourceType) String() string {
	switch t {
	case SourceFile:
		return "file"
	case SourceSoundcard:
		return "soundcard"
	case SourceSDR:
		return "sdr"
	default:
		return "unknown"
	}
}

// SampleSource is the RX ingress contract: a consumer pulls
// complex baseband samples at the source's own SampleRate (which need not
// equal the pipeline's symbol-synchronous rate; a resampling source handles
// that conversion internally). Read returns the actual count read, which
// may be less than len(out); HasData reports whether further reads could
// still produce samples versus the source being permanently exhausted.
type SampleSource interface {
	Read(out []modem.Sample) (actual int, err error)
	SampleRate() float64
	HasData() bool
	Reset() error
	SourceType() SourceType
}

// SampleSink is the TX egress contract: a producer pushes complex baseband
// samples (at SampleRate) out to a device or file.
type SampleSink interface {
	Write(in []modem.Sample) error
	SampleRate() float64
	Close() error
}
