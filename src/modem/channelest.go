package modem

import "math"

// ChannelEstimator derives a ChannelEstimate from each received probe
// block (the known_len symbols of a data-phase frame pattern) by
// comparing the received, descrambled probe symbols against the known
// transmitted probe sequence, then smooths the result across blocks with
// an exponential moving average.
//
// Follows the same running-average convention used elsewhere in the DSP
// chain, applied here to a complex gain estimate and a noise-power
// estimate instead of a scalar signal level.
type ChannelEstimator struct {
	alpha   float64 // EMA smoothing factor, 0..1 (closer to 1 = slower adaptation)
	current ChannelEstimate
}

// NewChannelEstimator returns an estimator with the given EMA smoothing
// factor.
func NewChannelEstimator(alpha float64) *ChannelEstimator {
	return &ChannelEstimator{alpha: alpha}
}

// Update computes a new channel estimate from one probe block (known
// transmitted probe symbols and their corresponding received samples,
// already carrier/timing corrected) and folds it into the running
// estimate via EMA. len(rx) must equal len(knownTx).
func (c *ChannelEstimator) Update(rx, knownTx []Sample) ChannelEstimate {
	if len(rx) != len(knownTx) || len(rx) == 0 {
		return c.current
	}
	var num Sample
	var denom float64
	for i := range rx {
		num += rx[i] * cmplxConj(knownTx[i])
		denom += sqDist(knownTx[i], 0)
	}
	gain := num / complex(denom, 0)

	var noiseAcc float64
	for i := range rx {
		pred := gain * knownTx[i]
		d := rx[i] - pred
		noiseAcc += sqDist(d, 0)
	}
	noiseVar := noiseAcc / float64(len(rx))

	sigPower := sqDist(gain, 0) * (denom / float64(len(rx)))
	var snrDB float64
	if noiseVar > 0 && sigPower > 0 {
		snrDB = 10 * math.Log10(sigPower/noiseVar)
	} else {
		snrDB = math.Inf(1)
	}

	fresh := ChannelEstimate{
		Gain:          gain,
		NoiseVariance: noiseVar,
		SNRdB:         snrDB,
		Valid:         true,
	}

	if !c.current.Valid {
		c.current = fresh
		return c.current
	}

	a := c.alpha
	c.current = ChannelEstimate{
		Gain:          complex(a, 0)*c.current.Gain + complex(1-a, 0)*fresh.Gain,
		NoiseVariance: a*c.current.NoiseVariance + (1-a)*fresh.NoiseVariance,
		SNRdB:         a*c.current.SNRdB + (1-a)*fresh.SNRdB,
		FreqOffsetHz:  c.current.FreqOffsetHz,
		Valid:         true,
	}
	return c.current
}

// SetFreqOffsetHz records a residual frequency offset measurement
// (typically from the carrier tracker) alongside the channel estimate so
// Quality reporting has a single source of truth.
func (c *ChannelEstimator) SetFreqOffsetHz(hz float64) { c.current.FreqOffsetHz = hz }

// Current returns the most recent smoothed estimate.
func (c *ChannelEstimator) Current() ChannelEstimate { return c.current }

// Reset clears the running estimate, used when the receiver drops sync
// and must not let a stale estimate leak into a new acquisition.
func (c *ChannelEstimator) Reset() { c.current = ChannelEstimate{} }
