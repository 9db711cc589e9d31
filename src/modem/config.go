package modem

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the single flat record carrying every deployment-tunable
// parameter of the pipeline: loop bandwidths and damping, equalizer taps
// and step sizes, channel-estimator smoothing, PTT backend selection, and
// logging. Normative waveform constants (symbol rate, carrier frequency,
// code polynomials, mode table) are never here — those live in
// constants.go and mode.go and are not deployment knobs.
//
// One struct populated from a data file or command-line switches, carried
// by value into the components that need it, never a builder with
// mutable setters.
type Config struct {
	Mode             string `yaml:"mode"`
	SamplesPerSymbol int    `yaml:"samples_per_symbol"`

	Timing  LoopConfig    `yaml:"timing_loop"`
	Carrier CarrierConfig `yaml:"carrier"`
	Equalizer EqualizerConfig `yaml:"equalizer"`

	ChannelEstimatorAlpha float64 `yaml:"channel_estimator_alpha"`
	TxAmplitude           float64 `yaml:"tx_amplitude"`

	Keyer KeyerConfig `yaml:"keyer"`
	Log   LogConfig   `yaml:"log"`
}

// LoopConfig parameterizes a second-order PI tracking loop (Gardner
// timing recovery or the carrier PLL): normalized loop bandwidth (as a
// fraction of the symbol rate) and damping factor.
type LoopConfig struct {
	BandwidthNormalized float64 `yaml:"bandwidth_normalized"`
	Zeta                float64 `yaml:"zeta"`
}

// CarrierConfig selects and parameterizes the carrier-recovery strategy:
// "pll" uses LoopConfig's bandwidth/zeta, "ekf" uses the three Kalman
// filter noise parameters instead.
type CarrierConfig struct {
	Kind  string  `yaml:"kind"` // "pll" or "ekf"
	Loop  LoopConfig `yaml:"loop"`
	QPhase float64 `yaml:"q_phase"`
	QFreq  float64 `yaml:"q_freq"`
	RMeas  float64 `yaml:"r_meas"`
}

// EqualizerConfig selects and parameterizes the data-symbol compensation
// strategy. Kind is one of "dfe_lms", "dfe_rls", "mlse", "probe_only".
// NumFF/NumFB size the DFE tap sets; MuFF/MuFB/Leak parameterize LMS
// adaptation (NewDFELMS); Param is the RLS forgetting factor lambda when
// Kind is "dfe_rls" and otherwise ignored.
type EqualizerConfig struct {
	Kind  string `yaml:"kind"`
	NumFF int    `yaml:"num_ff"`
	NumFB int    `yaml:"num_fb"`

	MuFF float64 `yaml:"mu_ff"`
	MuFB float64 `yaml:"mu_fb"`
	Leak float64 `yaml:"leak"`

	Param float64 `yaml:"param"`
}

// KeyerConfig selects the PTT backend: "none" (no keying, e.g. a loopback
// test), "hamlib" (CAT control via goHamlib), or "gpio" (a GPIO line via
// go-gpiocdev).
type KeyerConfig struct {
	Backend string `yaml:"backend"`

	HamlibRigModel int    `yaml:"hamlib_rig_model"`
	HamlibDevice   string `yaml:"hamlib_device"`

	GPIOChip string `yaml:"gpio_chip"`
	GPIOLine int    `yaml:"gpio_line"`
}

// LogConfig configures the process-wide logger handed to NewLogger.
type LogConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// DefaultConfig returns the conservative defaults this package ships: a
// short-interleave 2400bps mode, 8 samples/symbol, a decision-directed PLL
// with loop constants tuned for a slow HF channel, and an LMS DFE.
// Deployment-specific values (rig model, GPIO line) are left zero and must
// be set before a Keyer is constructed against them.
func DefaultConfig() Config {
	return Config{
		Mode:             "M2400S",
		SamplesPerSymbol: 8,
		Timing:           LoopConfig{BandwidthNormalized: 0.01, Zeta: 0.707},
		Carrier: CarrierConfig{
			Kind:  "pll",
			Loop:  LoopConfig{BandwidthNormalized: 0.02, Zeta: 0.707},
			QPhase: 1e-4, QFreq: 1e-6, RMeas: 1e-2,
		},
		Equalizer: EqualizerConfig{
			Kind: "dfe_lms", NumFF: 11, NumFB: 5,
			MuFF: 0.01, MuFB: 0.005, Leak: 0.0001,
			Param: 0.99,
		},
		ChannelEstimatorAlpha: 0.8,
		TxAmplitude:           0.8,
		Keyer:                 KeyerConfig{Backend: "none"},
		Log:                   LogConfig{Level: "info"},
	}
}

// LoadConfigFile reads and parses a YAML configuration file at path,
// starting from DefaultConfig so any field the file omits keeps its
// conservative default.
//
// Reads the whole file with os.Open/io.ReadAll and unmarshals it in one
// yaml.Unmarshal call; a deployment config is expected at one place the
// operator names explicitly, rather than searched for across a bundled
// data directory.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	fp, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("modem: opening config %s: %w", path, err)
	}
	defer fp.Close()

	data, err := io.ReadAll(fp)
	if err != nil {
		return Config{}, fmt.Errorf("modem: reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("modem: parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ResolveMode looks up the mode named by c.Mode.
func (c Config) ResolveMode() (Mode, error) {
	m, err := ModeByName(c.Mode)
	if err != nil {
		return Mode{}, fmt.Errorf("%w: %w", ErrUnknownMode, err)
	}
	return m, nil
}

// ResolveEqualizerKind maps c.Equalizer.Kind to an EqualizerKind.
func (c Config) ResolveEqualizerKind() (EqualizerKind, error) {
	switch c.Equalizer.Kind {
	case "dfe_lms":
		return DFELMS, nil
	case "dfe_rls":
		return DFERLS, nil
	case "mlse":
		return MLSEEqualizer, nil
	case "probe_only":
		return ProbeOnlyEqualizer, nil
	default:
		return 0, fmt.Errorf("%w: unknown equalizer kind %q", ErrContradictoryConfig, c.Equalizer.Kind)
	}
}

// NewReceiver builds a Receiver from c, resolving its mode name and
// equalizer kind first.
func (c Config) NewReceiver() (*Receiver, error) {
	mode, err := c.ResolveMode()
	if err != nil {
		return nil, err
	}
	eqKind, err := c.ResolveEqualizerKind()
	if err != nil {
		return nil, err
	}
	r := NewReceiverWithCarrier(mode, c.SamplesPerSymbol, c.Timing, c.Carrier, eqKind, c.Equalizer)
	r.chanEst = NewChannelEstimator(c.ChannelEstimatorAlpha)
	return r, nil
}

// NewTransmitter builds a Transmitter from c, resolving its mode name
// first.
func (c Config) NewTransmitter() (*Transmitter, error) {
	mode, err := c.ResolveMode()
	if err != nil {
		return nil, err
	}
	return NewTransmitter(mode, c.SamplesPerSymbol), nil
}
