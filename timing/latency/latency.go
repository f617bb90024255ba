// Package latency provides gate propagation delay models used to annotate
// gate-level netlists that carry no timing information of their own.
//
// The delay values are generic standard-cell estimates and can be configured
// via TimingConfig.
package latency

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownGate is returned when no delay is known for a gate type.
var ErrUnknownGate = errors.New("unknown gate type")

// Table provides gate delay lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new delay table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new delay table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetDelay returns the propagation delay in nanoseconds from any input to
// the output of a gate of the given type with fanIn inputs. Gate types are
// matched case-insensitively.
func (t *Table) GetDelay(gateType string, fanIn int) (float64, error) {
	gate := strings.ToUpper(gateType)

	if d, ok := t.config.Overrides[gate]; ok {
		return d, nil
	}

	var base float64
	switch gate {
	case "BUF", "BUFF":
		base = t.config.BufDelay
	case "NOT", "INV":
		base = t.config.NotDelay
	case "AND":
		base = t.config.AndDelay
	case "NAND":
		base = t.config.NandDelay
	case "OR":
		base = t.config.OrDelay
	case "NOR":
		base = t.config.NorDelay
	case "XOR":
		base = t.config.XorDelay
	case "XNOR":
		base = t.config.XnorDelay
	default:
		return 0, errors.Wrap(ErrUnknownGate, gateType)
	}

	if fanIn > 2 {
		base += float64(fanIn-2) * t.config.FanInPenalty
	}
	return base, nil
}

// IsSequential returns true if the gate type is a one-cycle delay element.
// Sequential gates carry no combinational delay; they become register
// counts on wires.
func (t *Table) IsSequential(gateType string) bool {
	switch strings.ToUpper(gateType) {
	case "DFF", "REG":
		return true
	default:
		return false
	}
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
