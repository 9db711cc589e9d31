package iosrc

import (
	"fmt"
	"io"
	"os"

	"github.com/n5dsp/m110a/src/modem"
)

// PCMSource reads raw 16-bit signed little-endian mono PCM and
// downconverts it from carrierHz to complex baseband using an NCO and
// low-pass filter, the way a sound-card front end performs its
// downconversion internally.
//
// Built around a continuous mixing oscillator feeding a low-pass before
// further processing, the same demod-input chain shape used by the live
// audio source, packaged here as a standalone file source rather than a
// live audio callback.
type PCMSource struct {
	f          *os.File
	path       string
	sampleRate float64
	carrierHz  float64
	nco        *modem.NCO
	lpf        *modem.FIRFilter
	eof        bool
}

// OpenPCMSource opens a raw PCM file at path, sampled at sampleRateHz, to be
// downconverted from carrierHz (the modulated passband tone's nominal
// center) to baseband.
func OpenPCMSource(path string, sampleRateHz, carrierHz float64) (*PCMSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("iosrc: opening %s: %w", path, err)
	}
	taps := modem.DesignLowpass(carrierHz/(sampleRateHz/2), 63)
	return &PCMSource{
		f: f, path: path, sampleRate: sampleRateHz, carrierHz: carrierHz,
		nco: modem.NewNCO(carrierHz, sampleRateHz),
		lpf: modem.NewFIRFilter(taps),
	}, nil
}

func (s *PCMSource) Read(out []modem.Sample) (int, error) {
	raw := make([]int16, len(out))
	n, err := readInt16LE(s.f, raw)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("iosrc: reading %s: %w", s.path, err)
	}
	if err == io.EOF || n == 0 {
		s.eof = true
	}
	for i := 0; i < n; i++ {
		mixed := s.nco.MixDown(complex(float64(raw[i])/32768, 0))
		out[i] = s.lpf.Step(mixed)
	}
	return n, nil
}

func (s *PCMSource) SampleRate() float64     { return s.sampleRate }
func (s *PCMSource) HasData() bool           { return !s.eof }
func (s *PCMSource) SourceType() SourceType  { return SourceFile }
func (s *PCMSource) Close() error            { return s.f.Close() }

func (s *PCMSource) Reset() error {
	s.eof = false
	s.nco.Reset()
	_, err := s.f.Seek(0, io.SeekStart)
	return err
}

// PCMSink upconverts complex baseband samples to carrierHz and writes raw
// 16-bit signed little-endian mono PCM.
type PCMSink struct {
	f          *os.File
	sampleRate float64
	nco        *modem.NCO
}

// CreatePCMSink creates path for raw PCM output at sampleRateHz, upconverted
// to carrierHz.
func CreatePCMSink(path string, sampleRateHz, carrierHz float64) (*PCMSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("iosrc: creating %s: %w", path, err)
	}
	return &PCMSink{f: f, sampleRate: sampleRateHz, nco: modem.NewNCO(carrierHz, sampleRateHz)}, nil
}

func (s *PCMSink) Write(in []modem.Sample) error {
	raw := make([]int16, len(in))
	for i, x := range in {
		raw[i] = clampInt16(real(s.nco.Mix(x)) * 32768)
	}
	if err := writeInt16LE(s.f, raw); err != nil {
		return fmt.Errorf("iosrc: writing PCM samples: %w", err)
	}
	return nil
}

func (s *PCMSink) SampleRate() float64 { return s.sampleRate }
func (s *PCMSink) Close() error        { return s.f.Close() }
