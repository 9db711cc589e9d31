package iosrc

import (
	"fmt"
	"sync"

	"github.com/samuel/go-hackrf/hackrf"

	"github.com/n5dsp/m110a/src/modem"
)

// HackRFSource pulls wideband 8-bit I/Q samples from a HackRF One and
// staged-decimates them down to the pipeline rate through modem's
// Decimator/LinearTrim chain, the SDR-front-end counterpart of
// PortAudioSource.
//
// Built on a callback-fed byte stream converted to the pipeline's native
// sample representation, the same shape as a UDP-SDR input path, adapted
// to the HackRF library's own streaming callback and native 8-bit I/Q
// pairs instead of UDP bytes and real audio.
type HackRFSource struct {
	dev *hackrf.Device

	pipelineRate float64
	decimator    *modem.Decimator
	trimRatio    float64

	mu  sync.Mutex
	ring []modem.Sample
}

// OpenHackRFSource opens the first HackRF device, tunes to centerFreqHz,
// and configures it to deliver sdrSampleRateHz raw I/Q, decimated down to
// pipelineRateHz for the caller.
func OpenHackRFSource(centerFreqHz, sdrSampleRateHz, pipelineRateHz float64) (*HackRFSource, error) {
	dev, err := hackrf.Open()
	if err != nil {
		return nil, fmt.Errorf("iosrc: opening HackRF: %w", err)
	}
	if err := dev.SetFreq(uint64(centerFreqHz)); err != nil {
		dev.Close()
		return nil, fmt.Errorf("iosrc: setting HackRF center frequency: %w", err)
	}
	if err := dev.SetSampleRate(sdrSampleRateHz); err != nil {
		dev.Close()
		return nil, fmt.Errorf("iosrc: setting HackRF sample rate: %w", err)
	}

	factor := int(sdrSampleRateHz / pipelineRateHz)
	if factor < 1 {
		factor = 1
	}
	s := &HackRFSource{
		dev:          dev,
		pipelineRate: pipelineRateHz,
		decimator:    modem.NewDecimator(factor),
		trimRatio:    pipelineRateHz / (sdrSampleRateHz / float64(factor)),
	}

	if err := dev.StartRX(func(buf []byte) error {
		s.onSamples(buf)
		return nil
	}); err != nil {
		dev.Close()
		return nil, fmt.Errorf("iosrc: starting HackRF RX: %w", err)
	}
	return s, nil
}

func (s *HackRFSource) onSamples(buf []byte) {
	raw := make([]modem.Sample, len(buf)/2)
	for i := range raw {
		// HackRF delivers signed 8-bit interleaved I/Q.
		i8 := int8(buf[2*i])
		q8 := int8(buf[2*i+1])
		raw[i] = complex(float64(i8)/128, float64(q8)/128)
	}
	decimated := s.decimator.Process(raw)
	trimmed := modem.LinearTrim(decimated, s.trimRatio)

	s.mu.Lock()
	s.ring = append(s.ring, trimmed...)
	s.mu.Unlock()
}

func (s *HackRFSource) Read(out []modem.Sample) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(out, s.ring)
	s.ring = s.ring[n:]
	return n, nil
}

func (s *HackRFSource) SampleRate() float64    { return s.pipelineRate }
func (s *HackRFSource) HasData() bool          { return true }
func (s *HackRFSource) SourceType() SourceType { return SourceSDR }

func (s *HackRFSource) Reset() error {
	s.mu.Lock()
	s.ring = nil
	s.mu.Unlock()
	return nil
}

// Close stops RX streaming and releases the device.
func (s *HackRFSource) Close() error {
	if err := s.dev.StopRX(); err != nil {
		return err
	}
	return s.dev.Close()
}
