package modem

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"github.com/xylo04/goHamlib"
)

// Keyer keys and releases PTT (push-to-talk) around a transmission. Set(true)
// must complete before Transmit begins writing the preamble; Set(false) is
// called after the SRRC flush tail has drained: assert the line, transmit,
// release the line.
// The DSP core never holds a Keyer or acquires any lock on its behalf; a
// caller composes Keyer.Set calls around its own call to Transmit.
type Keyer interface {
	Set(tx bool) error
	Close() error
}

// NoneKeyer is a no-op Keyer for VOX operation or loopback testing, where
// there is no external rig to key.
//
// Configured explicitly, does nothing, and is the quiet default when no
// PTT backend is wired up.
type NoneKeyer struct{}

func (NoneKeyer) Set(tx bool) error { return nil }
func (NoneKeyer) Close() error      { return nil }

// HamlibKeyer keys PTT via CAT control through goHamlib, the Go binding
// for Hamlib's rig_set_ptt.
//
// Opens the rig by model number against a device path, then drives PTT
// on/off through the library's rig-state call rather than a raw serial
// line, with an AUTO-probe model option for rigs that support it.
type HamlibKeyer struct {
	rig *goHamlib.Rig
}

// NewHamlibKeyer opens rigModel (a goHamlib/Hamlib model constant, or the
// library's AUTO-probe sentinel) on device (a serial port path or
// host:port for rigctld), matching KeyerConfig.HamlibRigModel/HamlibDevice.
func NewHamlibKeyer(rigModel int, device string) (*HamlibKeyer, error) {
	rig := goHamlib.Rig{}
	rig.SetModel(rigModel)
	if err := rig.Open(device); err != nil {
		return nil, fmt.Errorf("modem: hamlib rig open on %s: %w", device, err)
	}
	return &HamlibKeyer{rig: &rig}, nil
}

// Set drives rig_set_ptt on (tx) or off.
func (k *HamlibKeyer) Set(tx bool) error {
	state := goHamlib.RigPttOff
	if tx {
		state = goHamlib.RigPttOn
	}
	if err := k.rig.SetPTT(goHamlib.RigVfoCurr, state); err != nil {
		return fmt.Errorf("modem: hamlib set_ptt: %w", err)
	}
	return nil
}

// Close releases PTT and closes the rig connection; PTT is always
// released before the port closes.
func (k *HamlibKeyer) Close() error {
	_ = k.Set(false)
	return k.rig.Close()
}

// GPIOKeyer keys PTT by driving a single GPIO line high/low through
// go-gpiocdev, the character-device successor to sysfs-based GPIO
// control.
//
// Requests the line as an output and sets its value directly through the
// gpiocdev ioctl-based API, defaulting to an initial off state.
type GPIOKeyer struct {
	line   *gpiocdev.Line
	invert bool
}

// NewGPIOKeyer requests line on chip (e.g. "/dev/gpiochip0") as an output,
// initially de-asserted. When invert is true, a logic low keys the
// transmitter.
func NewGPIOKeyer(chip string, line int, invert bool) (*GPIOKeyer, error) {
	initial := 0
	if invert {
		initial = 1
	}
	l, err := gpiocdev.RequestLine(chip, line, gpiocdev.AsOutput(initial))
	if err != nil {
		return nil, fmt.Errorf("modem: requesting gpio %s:%d: %w", chip, line, err)
	}
	return &GPIOKeyer{line: l, invert: invert}, nil
}

// Set drives the line high for tx, respecting invert.
func (k *GPIOKeyer) Set(tx bool) error {
	v := 0
	if tx {
		v = 1
	}
	if k.invert {
		v = 1 - v
	}
	if err := k.line.SetValue(v); err != nil {
		return fmt.Errorf("modem: setting gpio value: %w", err)
	}
	return nil
}

// Close de-asserts PTT and releases the line request.
func (k *GPIOKeyer) Close() error {
	_ = k.Set(false)
	return k.line.Close()
}

// TransmitKeyed keys key before calling t.Transmit and releases it once the
// pulse-shaped waveform (including the SRRC flush tail) has been produced,
// so the returned samples are exactly what should be written to the sink
// while key stays asserted. The Transmitter and the DSP core underneath it
// never see key or take any lock on its behalf; this function is the only
// place the two are composed.
func TransmitKeyed(t *Transmitter, key Keyer, payloadBits []bool) ([]Sample, error) {
	if err := key.Set(true); err != nil {
		return nil, fmt.Errorf("modem: keying ptt on: %w", err)
	}
	samples := t.Transmit(payloadBits)
	if err := key.Set(false); err != nil {
		return samples, fmt.Errorf("modem: keying ptt off: %w", err)
	}
	return samples, nil
}

// NewKeyer builds the Keyer named by cfg.Backend ("none", "hamlib", "gpio").
func (c Config) NewKeyer() (Keyer, error) {
	switch c.Keyer.Backend {
	case "", "none":
		return NoneKeyer{}, nil
	case "hamlib":
		return NewHamlibKeyer(c.Keyer.HamlibRigModel, c.Keyer.HamlibDevice)
	case "gpio":
		return NewGPIOKeyer(c.Keyer.GPIOChip, c.Keyer.GPIOLine, false)
	default:
		return nil, fmt.Errorf("%w: unknown keyer backend %q", ErrContradictoryConfig, c.Keyer.Backend)
	}
}
