package modem

import "math"

// CarrierTracker is the common interface of CarrierPLL and CarrierEKF: a
// decision-directed carrier-phase corrector the receiver can swap between
// without caring which estimation strategy backs it.
type CarrierTracker interface {
	Correct(sym Sample) Sample
	PhaseRad() float64
	FreqOffsetHz(symbolRateHz float64) float64
}

// CarrierPLL is a decision-directed second-order PI carrier tracking
// loop: each symbol's phase error is measured against the nearest
// constellation point (hard decision), then fed through the same PI
// structure as TimingLoop to drive an NCO-style phase/frequency
// correction applied to subsequent symbols.
//
// Built from a continuous NCO plus a PI loop filter in the style of
// TimingLoop, adapted from timing-error to phase-error feedback.
type CarrierPLL struct {
	phase, freq float64 // radians, radians/symbol
	kp, ki      float64
}

// NewCarrierPLL returns a decision-directed PLL with PI gains derived
// from loop bandwidth (normalized to symbol rate) and damping zeta.
func NewCarrierPLL(loopBandwidthNormalized, zeta float64) *CarrierPLL {
	theta := loopBandwidthNormalized / (zeta + 1/(4*zeta))
	kp := (4 * zeta * theta) / (1 + 2*zeta*theta + theta*theta)
	ki := (4 * theta * theta) / (1 + 2*zeta*theta + theta*theta)
	return &CarrierPLL{kp: kp, ki: ki}
}

// Correct derotates sym by the loop's current phase estimate, makes a
// hard 8-PSK decision against the corrected symbol, measures the phase
// error against that decision, and updates the loop state. It returns
// the derotated symbol for downstream demapping/equalization.
func (c *CarrierPLL) Correct(sym Sample) Sample {
	rot := complex(math.Cos(-c.phase), math.Sin(-c.phase))
	corrected := sym * rot

	decision := MapTribit(HardDemapTribit(corrected))
	errAngle := math.Atan2(imagPart(corrected*cmplxConj(decision)), realPart(corrected*cmplxConj(decision)))

	c.freq += c.ki * errAngle
	c.phase = wrapPhase(c.phase + c.kp*errAngle + c.freq)
	return corrected
}

// PhaseRad returns the loop's current phase estimate.
func (c *CarrierPLL) PhaseRad() float64 { return c.phase }

// FreqOffsetHz converts the loop's per-symbol frequency estimate
// (radians/symbol) to Hz at the given symbol rate.
func (c *CarrierPLL) FreqOffsetHz(symbolRateHz float64) float64 {
	return c.freq * symbolRateHz / (2 * math.Pi)
}

// carrierEKF2 is the 2-element state vector [phase, frequency] (both
// in radians / radians-per-symbol) tracked by CarrierEKF.
type carrierEKF2 = [2]float64

// CarrierEKF is an alternative carrier tracker: an extended Kalman filter
// over state [phase, freq] with a linear phase-accumulation process model
// and a decision-directed phase measurement, offered alongside
// CarrierPLL.
//
// Uses explicit process/measurement noise parameters and a predict/update
// split, adapted to the phase/frequency tracking model this waveform
// needs.
type CarrierEKF struct {
	state   carrierEKF2
	p       [2][2]float64 // error covariance
	qPhase  float64        // process noise, phase
	qFreq   float64        // process noise, frequency
	rMeas   float64        // measurement noise
}

// NewCarrierEKF returns an EKF with the given process noise (phase,
// frequency) and measurement noise variances.
func NewCarrierEKF(qPhase, qFreq, rMeas float64) *CarrierEKF {
	return &CarrierEKF{
		p:      [2][2]float64{{1, 0}, {0, 1}},
		qPhase: qPhase,
		qFreq:  qFreq,
		rMeas:  rMeas,
	}
}

// Correct predicts one symbol step, derotates sym by the predicted phase,
// measures the decision-directed phase error, and updates state/
// covariance with a scalar Kalman gain (the measurement model is linear
// in the small-error regime: measured phase error ~= true phase error).
func (e *CarrierEKF) Correct(sym Sample) Sample {
	// Predict.
	e.state[0] = wrapPhase(e.state[0] + e.state[1])
	e.p[0][0] += e.p[1][0] + e.p[0][1] + e.p[1][1] + e.qPhase
	e.p[0][1] += e.p[1][1]
	e.p[1][0] += e.p[1][1]
	e.p[1][1] += e.qFreq

	rot := complex(math.Cos(-e.state[0]), math.Sin(-e.state[0]))
	corrected := sym * rot
	decision := MapTribit(HardDemapTribit(corrected))
	z := math.Atan2(imagPart(corrected*cmplxConj(decision)), realPart(corrected*cmplxConj(decision)))

	s := e.p[0][0] + e.rMeas
	k0 := e.p[0][0] / s
	k1 := e.p[1][0] / s

	e.state[0] = wrapPhase(e.state[0] + k0*z)
	e.state[1] += k1 * z

	p00 := (1 - k0) * e.p[0][0]
	p01 := (1 - k0) * e.p[0][1]
	p10 := e.p[1][0] - k1*e.p[0][0]
	p11 := e.p[1][1] - k1*e.p[0][1]
	e.p[0][0], e.p[0][1], e.p[1][0], e.p[1][1] = p00, p01, p10, p11

	return corrected
}

// PhaseRad returns the filter's current phase estimate.
func (e *CarrierEKF) PhaseRad() float64 { return e.state[0] }

// FreqOffsetHz converts the filter's frequency state to Hz.
func (e *CarrierEKF) FreqOffsetHz(symbolRateHz float64) float64 {
	return e.state[1] * symbolRateHz / (2 * math.Pi)
}
