package iosrc

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/n5dsp/m110a/src/modem"
)

// iqrMagic is the fixed 4-byte magic at the head of every .iqr file.
const iqrMagic = "IQR1"

// iqrHeaderSize is the fixed header length: magic(4) +
// version(4) + sampleRate(8) + centerFreq(8) + bandwidthKHz(4) +
// gainReductionDB(4) + lnaState(4) + startTimeUnixUs(8) + sampleCount(8) +
// flags(4) + reserved(8) = 64.
const iqrHeaderSize = 64

// IQRHeader is the fixed 64-byte .iqr file header, carried
// alongside the sample stream for downstream tools that want the capture's
// RF metadata (center frequency, gain state, capture start time) without
// re-deriving it.
type IQRHeader struct {
	Version          uint32
	SampleRateHz     float64
	CenterFreqHz     float64
	BandwidthKHz     uint32
	GainReductionDB  int32
	LNAState         uint32
	StartTimeUnixUs  int64
	SampleCount      uint64
	Flags            uint32
}

func (h IQRHeader) marshal() [iqrHeaderSize]byte {
	var buf [iqrHeaderSize]byte
	copy(buf[0:4], iqrMagic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint64(buf[8:16], floatBits(h.SampleRateHz))
	binary.LittleEndian.PutUint64(buf[16:24], floatBits(h.CenterFreqHz))
	binary.LittleEndian.PutUint32(buf[24:28], h.BandwidthKHz)
	binary.LittleEndian.PutUint32(buf[28:32], uint32(h.GainReductionDB))
	binary.LittleEndian.PutUint32(buf[32:36], h.LNAState)
	binary.LittleEndian.PutUint64(buf[36:44], uint64(h.StartTimeUnixUs))
	binary.LittleEndian.PutUint64(buf[44:52], h.SampleCount)
	binary.LittleEndian.PutUint32(buf[52:56], h.Flags)
	// buf[56:64] reserved, left zero.
	return buf
}

func unmarshalIQRHeader(buf [iqrHeaderSize]byte) (IQRHeader, error) {
	if string(buf[0:4]) != iqrMagic {
		return IQRHeader{}, fmt.Errorf("%w: bad .iqr magic %q", modem.ErrFormatViolation, buf[0:4])
	}
	var h IQRHeader
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.SampleRateHz = bitsFloat(binary.LittleEndian.Uint64(buf[8:16]))
	h.CenterFreqHz = bitsFloat(binary.LittleEndian.Uint64(buf[16:24]))
	h.BandwidthKHz = binary.LittleEndian.Uint32(buf[24:28])
	h.GainReductionDB = int32(binary.LittleEndian.Uint32(buf[28:32]))
	h.LNAState = binary.LittleEndian.Uint32(buf[32:36])
	h.StartTimeUnixUs = int64(binary.LittleEndian.Uint64(buf[36:44]))
	h.SampleCount = binary.LittleEndian.Uint64(buf[44:52])
	h.Flags = binary.LittleEndian.Uint32(buf[52:56])
	return h, nil
}

// IQRSource reads interleaved int16 I/Q samples (normalized by /32768) from
// a .iqr file, implementing SampleSource.
type IQRSource struct {
	f      *os.File
	path   string
	Header IQRHeader
	eof    bool
}

// OpenIQRSource opens path and parses its header; the returned source is
// positioned at the first sample.
func OpenIQRSource(path string) (*IQRSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("iosrc: opening %s: %w", path, err)
	}
	var hdr [iqrHeaderSize]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("iosrc: reading .iqr header %s: %w", path, err)
	}
	h, err := unmarshalIQRHeader(hdr)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &IQRSource{f: f, path: path, Header: h}, nil
}

func (s *IQRSource) Read(out []modem.Sample) (int, error) {
	raw := make([]int16, 2*len(out))
	n, err := readInt16LE(s.f, raw)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("iosrc: reading %s: %w", s.path, err)
	}
	if err == io.EOF || n < 2 {
		s.eof = true
	}
	pairs := n / 2
	for i := 0; i < pairs; i++ {
		out[i] = complex(float64(raw[2*i])/32768, float64(raw[2*i+1])/32768)
	}
	return pairs, nil
}

func (s *IQRSource) SampleRate() float64 { return s.Header.SampleRateHz }
func (s *IQRSource) HasData() bool       { return !s.eof }
func (s *IQRSource) SourceType() SourceType { return SourceFile }

// Reset seeks back to the first sample, past the header.
func (s *IQRSource) Reset() error {
	s.eof = false
	_, err := s.f.Seek(iqrHeaderSize, io.SeekStart)
	return err
}

// Close closes the underlying file.
func (s *IQRSource) Close() error { return s.f.Close() }

// IQRSink writes a .iqr file: the header is written first with a
// placeholder sample count, then patched to the true count on Close.
type IQRSink struct {
	f       *os.File
	header  IQRHeader
	written uint64
}

// CreateIQRSink creates path and writes header (SampleCount is ignored and
// recomputed from the samples actually written).
func CreateIQRSink(path string, header IQRHeader) (*IQRSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("iosrc: creating %s: %w", path, err)
	}
	header.SampleCount = 0
	buf := header.marshal()
	if _, err := f.Write(buf[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("iosrc: writing .iqr header %s: %w", path, err)
	}
	return &IQRSink{f: f, header: header}, nil
}

func (s *IQRSink) Write(in []modem.Sample) error {
	raw := make([]int16, 2*len(in))
	for i, x := range in {
		raw[2*i] = clampInt16(real(x) * 32768)
		raw[2*i+1] = clampInt16(imag(x) * 32768)
	}
	if err := writeInt16LE(s.f, raw); err != nil {
		return fmt.Errorf("iosrc: writing samples: %w", err)
	}
	s.written += uint64(len(in))
	return nil
}

func (s *IQRSink) SampleRate() float64 { return s.header.SampleRateHz }

// Close patches the final sample count into the header and closes the file.
func (s *IQRSink) Close() error {
	s.header.SampleCount = s.written
	buf := s.header.marshal()
	if _, err := s.f.WriteAt(buf[:], 0); err != nil {
		s.f.Close()
		return fmt.Errorf("iosrc: patching .iqr header: %w", err)
	}
	return s.f.Close()
}
