package latency

import (
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"
)

// TimingConfig holds propagation delays for the gate types found in
// gate-level netlists. All values are in nanoseconds.
type TimingConfig struct {
	// BufDelay is the delay of a buffer (BUF, BUFF). Default: 0.5 ns.
	BufDelay float64 `json:"buf_delay"`

	// NotDelay is the delay of an inverter. Default: 0.5 ns.
	NotDelay float64 `json:"not_delay"`

	// AndDelay is the delay of a 2-input AND gate. Default: 1.0 ns.
	AndDelay float64 `json:"and_delay"`

	// NandDelay is the delay of a 2-input NAND gate. Default: 0.8 ns.
	NandDelay float64 `json:"nand_delay"`

	// OrDelay is the delay of a 2-input OR gate. Default: 1.0 ns.
	OrDelay float64 `json:"or_delay"`

	// NorDelay is the delay of a 2-input NOR gate. Default: 0.8 ns.
	NorDelay float64 `json:"nor_delay"`

	// XorDelay is the delay of a 2-input XOR gate. Default: 1.5 ns.
	XorDelay float64 `json:"xor_delay"`

	// XnorDelay is the delay of a 2-input XNOR gate. Default: 1.5 ns.
	XnorDelay float64 `json:"xnor_delay"`

	// FanInPenalty is added once for every input beyond the second.
	// Default: 0.25 ns.
	FanInPenalty float64 `json:"fan_in_penalty"`

	// Overrides maps additional or replaced gate types (upper case) to a
	// fixed delay that ignores FanInPenalty.
	Overrides map[string]float64 `json:"overrides,omitempty"`
}

// DefaultTimingConfig returns a TimingConfig with generic standard-cell
// delay estimates.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		BufDelay:     0.5,
		NotDelay:     0.5,
		AndDelay:     1.0,
		NandDelay:    0.8,
		OrDelay:      1.0,
		NorDelay:     0.8,
		XorDelay:     1.5,
		XnorDelay:    1.5,
		FanInPenalty: 0.25,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read timing config file")
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse timing config")
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize timing config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write timing config file")
	}

	return nil
}

// Validate checks that all gate delays are valid (> 0) and that overrides
// and the fan-in penalty are not negative.
func (c *TimingConfig) Validate() error {
	named := []struct {
		name  string
		value float64
	}{
		{"buf_delay", c.BufDelay},
		{"not_delay", c.NotDelay},
		{"and_delay", c.AndDelay},
		{"nand_delay", c.NandDelay},
		{"or_delay", c.OrDelay},
		{"nor_delay", c.NorDelay},
		{"xor_delay", c.XorDelay},
		{"xnor_delay", c.XnorDelay},
	}
	for _, n := range named {
		if !(n.value > 0) || math.IsInf(n.value, 0) {
			return errors.Errorf("%s must be > 0", n.name)
		}
	}
	if c.FanInPenalty < 0 || math.IsNaN(c.FanInPenalty) {
		return errors.New("fan_in_penalty must be >= 0")
	}
	for gate, d := range c.Overrides {
		if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return errors.Errorf("override for %s must be >= 0", gate)
		}
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	if c.Overrides != nil {
		clone.Overrides = make(map[string]float64, len(c.Overrides))
		for k, v := range c.Overrides {
			clone.Overrides[k] = v
		}
	}
	return &clone
}
