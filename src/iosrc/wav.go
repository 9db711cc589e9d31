package iosrc

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/n5dsp/m110a/src/modem"
)

// wavFmt is the parsed content of a WAVE "fmt " chunk, restricted to the
// 8/16-bit PCM subset this source supports.
type wavFmt struct {
	audioFormat   uint16
	numChannels   uint16
	sampleRate    uint32
	bitsPerSample uint16
}

// readWAVHeader walks the RIFF chunk list of f until it finds "fmt " and
// "data", returning the parsed format and the byte offset/length of the PCM
// payload. Standard RIFF/WAVE chunks only; extended fmt chunks and
// non-PCM codecs are rejected as a format violation.
func readWAVHeader(f *os.File) (wavFmt, int64, int64, error) {
	var riffHdr [12]byte
	if _, err := io.ReadFull(f, riffHdr[:]); err != nil {
		return wavFmt{}, 0, 0, fmt.Errorf("%w: short RIFF header: %w", modem.ErrFormatViolation, err)
	}
	if string(riffHdr[0:4]) != "RIFF" || string(riffHdr[8:12]) != "WAVE" {
		return wavFmt{}, 0, 0, fmt.Errorf("%w: not a RIFF/WAVE file", modem.ErrFormatViolation)
	}

	var (
		format      wavFmt
		haveFmt     bool
		dataOffset  int64
		dataLen     int64
	)
	for {
		var chunkHdr [8]byte
		if _, err := io.ReadFull(f, chunkHdr[:]); err != nil {
			break
		}
		id := string(chunkHdr[0:4])
		size := int64(binary.LittleEndian.Uint32(chunkHdr[4:8]))

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(f, body); err != nil {
				return wavFmt{}, 0, 0, fmt.Errorf("%w: short fmt chunk: %w", modem.ErrFormatViolation, err)
			}
			format.audioFormat = binary.LittleEndian.Uint16(body[0:2])
			format.numChannels = binary.LittleEndian.Uint16(body[2:4])
			format.sampleRate = binary.LittleEndian.Uint32(body[4:8])
			format.bitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			haveFmt = true
		case "data":
			pos, err := f.Seek(0, io.SeekCurrent)
			if err != nil {
				return wavFmt{}, 0, 0, err
			}
			dataOffset, dataLen = pos, size
			if _, err := f.Seek(size+size%2, io.SeekCurrent); err != nil {
				return wavFmt{}, 0, 0, err
			}
		default:
			if _, err := f.Seek(size+size%2, io.SeekCurrent); err != nil {
				return wavFmt{}, 0, 0, err
			}
		}
		if haveFmt && dataLen > 0 {
			break
		}
	}
	if !haveFmt || dataLen == 0 {
		return wavFmt{}, 0, 0, fmt.Errorf("%w: missing fmt or data chunk", modem.ErrFormatViolation)
	}
	if format.audioFormat != 1 {
		return wavFmt{}, 0, 0, fmt.Errorf("%w: unsupported WAV codec %d, PCM only", modem.ErrFormatViolation, format.audioFormat)
	}
	if format.bitsPerSample != 8 && format.bitsPerSample != 16 {
		return wavFmt{}, 0, 0, fmt.Errorf("%w: unsupported WAV sample width %d bits", modem.ErrFormatViolation, format.bitsPerSample)
	}
	return format, dataOffset, dataLen, nil
}

// WAVSource reads 8- or 16-bit mono PCM from a WAV file and downconverts it
// from carrierHz the same way PCMSource does.
type WAVSource struct {
	f          *os.File
	path       string
	format     wavFmt
	dataOffset int64
	dataLen    int64
	remaining  int64
	nco        *modem.NCO
	lpf        *modem.FIRFilter
	eof        bool
}

// OpenWAVSource opens a WAV file at path, to be downconverted from
// carrierHz.
func OpenWAVSource(path string, carrierHz float64) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("iosrc: opening %s: %w", path, err)
	}
	format, offset, length, err := readWAVHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if format.numChannels != 1 {
		f.Close()
		return nil, fmt.Errorf("%w: WAV source must be mono, got %d channels", modem.ErrFormatViolation, format.numChannels)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	taps := modem.DesignLowpass(carrierHz/(float64(format.sampleRate)/2), 63)
	return &WAVSource{
		f: f, path: path, format: format, dataOffset: offset, dataLen: length, remaining: length,
		nco: modem.NewNCO(carrierHz, float64(format.sampleRate)),
		lpf: modem.NewFIRFilter(taps),
	}, nil
}

func (s *WAVSource) Read(out []modem.Sample) (int, error) {
	if s.format.bitsPerSample == 8 {
		return s.read8(out)
	}
	return s.read16(out)
}

func (s *WAVSource) read16(out []modem.Sample) (int, error) {
	want := len(out)
	if int64(want) > s.remaining/2 {
		want = int(s.remaining / 2)
	}
	raw := make([]int16, want)
	n, err := readInt16LE(s.f, raw)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("iosrc: reading %s: %w", s.path, err)
	}
	s.remaining -= int64(n) * 2
	if s.remaining <= 0 || n == 0 {
		s.eof = true
	}
	for i := 0; i < n; i++ {
		mixed := s.nco.MixDown(complex(float64(raw[i])/32768, 0))
		out[i] = s.lpf.Step(mixed)
	}
	return n, nil
}

func (s *WAVSource) read8(out []modem.Sample) (int, error) {
	want := len(out)
	if int64(want) > s.remaining {
		want = int(s.remaining)
	}
	raw := make([]byte, want)
	n, err := io.ReadFull(s.f, raw)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, fmt.Errorf("iosrc: reading %s: %w", s.path, err)
	}
	s.remaining -= int64(n)
	if s.remaining <= 0 || n == 0 {
		s.eof = true
	}
	for i := 0; i < n; i++ {
		// 8-bit WAV PCM is unsigned, centered at 128.
		mixed := s.nco.MixDown(complex((float64(raw[i])-128)/128, 0))
		out[i] = s.lpf.Step(mixed)
	}
	return n, nil
}

func (s *WAVSource) SampleRate() float64    { return float64(s.format.sampleRate) }
func (s *WAVSource) HasData() bool          { return !s.eof }
func (s *WAVSource) SourceType() SourceType { return SourceFile }
func (s *WAVSource) Close() error           { return s.f.Close() }

func (s *WAVSource) Reset() error {
	s.eof = false
	s.remaining = s.dataLen
	s.nco.Reset()
	_, err := s.f.Seek(s.dataOffset, io.SeekStart)
	return err
}

// WAVSink upconverts complex baseband samples to carrierHz and writes a
// 16-bit mono WAV file, patching the RIFF/data chunk sizes on Close.
type WAVSink struct {
	f          *os.File
	sampleRate uint32
	nco        *modem.NCO
	written    uint32
}

// CreateWAVSink creates path for 16-bit mono WAV output at sampleRateHz,
// upconverted to carrierHz.
func CreateWAVSink(path string, sampleRateHz uint32, carrierHz float64) (*WAVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("iosrc: creating %s: %w", path, err)
	}
	s := &WAVSink{f: f, sampleRate: sampleRateHz, nco: modem.NewNCO(carrierHz, float64(sampleRateHz))}
	if err := s.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *WAVSink) writeHeader() error {
	const byteRate = 0 // patched below via bitsPerSample*sampleRate/8
	var hdr [44]byte
	copy(hdr[0:4], "RIFF")
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:24], 1) // mono
	binary.LittleEndian.PutUint32(hdr[24:28], s.sampleRate)
	binary.LittleEndian.PutUint32(hdr[28:32], s.sampleRate*2)
	binary.LittleEndian.PutUint16(hdr[32:34], 2)
	binary.LittleEndian.PutUint16(hdr[34:36], 16)
	copy(hdr[36:40], "data")
	_ = byteRate
	_, err := s.f.Write(hdr[:])
	return err
}

func (s *WAVSink) Write(in []modem.Sample) error {
	raw := make([]int16, len(in))
	for i, x := range in {
		raw[i] = clampInt16(real(s.nco.Mix(x)) * 32768)
	}
	if err := writeInt16LE(s.f, raw); err != nil {
		return fmt.Errorf("iosrc: writing WAV samples: %w", err)
	}
	s.written += uint32(len(in))
	return nil
}

func (s *WAVSink) SampleRate() float64 { return float64(s.sampleRate) }

// Close patches the RIFF and data chunk sizes and closes the file.
func (s *WAVSink) Close() error {
	dataBytes := s.written * 2
	var sizes [8]byte
	binary.LittleEndian.PutUint32(sizes[0:4], 36+dataBytes)
	if _, err := s.f.WriteAt(sizes[0:4], 4); err != nil {
		s.f.Close()
		return err
	}
	binary.LittleEndian.PutUint32(sizes[4:8], dataBytes)
	if _, err := s.f.WriteAt(sizes[4:8], 40); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
