package iosrc

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/n5dsp/m110a/src/modem"
)

// PortAudioSource streams real mono audio from a sound card and
// downconverts it to complex baseband, mirroring PCMSource but pulling
// from a live callback instead of a file.
//
// Samples arrive on PortAudio's callback thread and are appended to a
// lock-guarded ring; Read drains that ring on the caller's thread. The
// downconversion NCO/filter are owned by the callback goroutine alone, so
// Read never touches them directly.
//
// Built on a buffered-device shape (inbuf/outbuf with separate read/write
// cursors) adapted from a blocking read syscall to a push-based PortAudio
// callback.
type PortAudioSource struct {
	stream     *portaudio.Stream
	sampleRate float64
	nco        *modem.NCO
	lpf        *modem.FIRFilter

	mu   sync.Mutex
	ring []modem.Sample

	log *modem.Logger

	statsInterval  time.Duration
	statsLastAt    time.Time
	statsSamples   int
}

// OpenPortAudioSource opens the system default input device at
// sampleRateHz, downconverting from carrierHz.
func OpenPortAudioSource(sampleRateHz, carrierHz float64) (*PortAudioSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("iosrc: portaudio init: %w", err)
	}
	s := &PortAudioSource{
		sampleRate:    sampleRateHz,
		nco:           modem.NewNCO(carrierHz, sampleRateHz),
		lpf:           modem.NewFIRFilter(modem.DesignLowpass(carrierHz/(sampleRateHz/2), 63)),
		log:           modem.NewLogger(os.Stderr, "iosrc", "info"),
		statsInterval: 100 * time.Second,
	}
	const framesPerBuffer = 512
	in := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRateHz, framesPerBuffer, in, func(inBuf []int16) {
		s.onSamples(inBuf)
	})
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("iosrc: opening input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("iosrc: starting input stream: %w", err)
	}
	s.stream = stream
	return s, nil
}

// SetLogger attaches l as the source's periodic rate-report sink.
func (s *PortAudioSource) SetLogger(l *modem.Logger) { s.log = l }

func (s *PortAudioSource) onSamples(in []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range in {
		mixed := s.nco.MixDown(complex(float64(v)/32768, 0))
		s.ring = append(s.ring, s.lpf.Step(mixed))
	}
	s.statsSamples += len(in)
	if s.statsLastAt.IsZero() {
		s.statsLastAt = time.Now()
	} else if time.Since(s.statsLastAt) >= s.statsInterval {
		rate := float64(s.statsSamples) / s.statsInterval.Seconds() / 1000
		s.log.Debug("audio input rate", "kHz", rate)
		s.statsLastAt = time.Now()
		s.statsSamples = 0
	}
}

func (s *PortAudioSource) Read(out []modem.Sample) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(out, s.ring)
	s.ring = s.ring[n:]
	return n, nil
}

func (s *PortAudioSource) SampleRate() float64     { return s.sampleRate }
func (s *PortAudioSource) HasData() bool           { return true }
func (s *PortAudioSource) SourceType() SourceType  { return SourceSoundcard }
func (s *PortAudioSource) Reset() error {
	s.mu.Lock()
	s.ring = nil
	s.mu.Unlock()
	s.nco.Reset()
	return nil
}

// Close stops the stream and releases the PortAudio backend.
func (s *PortAudioSource) Close() error {
	if err := s.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}

// PortAudioSink streams complex baseband samples to the system default
// output device, upconverted to carrierHz.
type PortAudioSink struct {
	stream     *portaudio.Stream
	sampleRate float64
	nco        *modem.NCO

	mu   sync.Mutex
	ring []modem.Sample
}

// OpenPortAudioSink opens the default output device at sampleRateHz,
// upconverting to carrierHz.
func OpenPortAudioSink(sampleRateHz, carrierHz float64) (*PortAudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("iosrc: portaudio init: %w", err)
	}
	s := &PortAudioSink{
		sampleRate: sampleRateHz,
		nco:        modem.NewNCO(carrierHz, sampleRateHz),
	}
	const framesPerBuffer = 512
	out := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, sampleRateHz, framesPerBuffer, out, func(outBuf []int16) {
		s.fill(outBuf)
	})
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("iosrc: opening output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("iosrc: starting output stream: %w", err)
	}
	s.stream = stream
	return s, nil
}

func (s *PortAudioSink) fill(out []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range out {
		if len(s.ring) == 0 {
			out[i] = 0
			continue
		}
		x := s.ring[0]
		s.ring = s.ring[1:]
		out[i] = clampInt16(real(s.nco.Mix(x)) * 32768)
	}
}

func (s *PortAudioSink) Write(in []modem.Sample) error {
	s.mu.Lock()
	s.ring = append(s.ring, in...)
	s.mu.Unlock()
	return nil
}

func (s *PortAudioSink) SampleRate() float64 { return s.sampleRate }

// Close does not wait for the ring to drain; callers drain it explicitly
// before closing if tail audio must be heard, and before turning PTT off.
func (s *PortAudioSink) Close() error {
	if err := s.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
