// Package netlist describes timing-annotated circuits at the component level
// and lowers them to the circuit graph used for retiming.
//
// A Circuit is made of components, each declaring input and output pins and
// the pin-to-pin delays it was timed for, and wires connecting an output pin
// (or a circuit input port) to an input pin (or a circuit output port). Every
// wire carries a number of registers.
package netlist

import (
	"math"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"
)

// CurrentVersion is the format version written by this package.
const CurrentVersion = "1.0.0"

const supportedVersions = ">= 1.0.0, < 2.0.0"

var (
	// ErrMalformed is returned when a circuit breaks a structural rule.
	ErrMalformed = errors.New("malformed netlist")
	// ErrUnsupportedVersion is returned for format versions outside the
	// supported range.
	ErrUnsupportedVersion = errors.New("unsupported netlist version")
)

// PinRef names a pin. An empty Component refers to a circuit port.
type PinRef struct {
	Component string `json:"component,omitempty" yaml:"component,omitempty"`
	Pin       string `json:"pin" yaml:"pin"`
}

// IsPort reports whether p names a circuit port.
func (p PinRef) IsPort() bool {
	return p.Component == ""
}

func (p PinRef) String() string {
	if p.IsPort() {
		return p.Pin
	}
	return p.Component + "." + p.Pin
}

// Arc is a combinational path from input pin From to output pin To.
type Arc struct {
	From  string  `json:"from" yaml:"from"`
	To    string  `json:"to" yaml:"to"`
	Delay float64 `json:"delay" yaml:"delay"`
}

// Component is one instance of a functional element.
type Component struct {
	Name    string   `json:"name" yaml:"name"`
	Type    string   `json:"type,omitempty" yaml:"type,omitempty"`
	Inputs  []string `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Arcs    []Arc    `json:"arcs,omitempty" yaml:"arcs,omitempty"`
}

// Wire connects two pins through Registers registers.
type Wire struct {
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	From      PinRef `json:"from" yaml:"from"`
	To        PinRef `json:"to" yaml:"to"`
	Registers int    `json:"registers" yaml:"registers"`
}

// Circuit is a flattened timing-annotated netlist.
type Circuit struct {
	Version    string      `json:"version,omitempty" yaml:"version,omitempty"`
	Name       string      `json:"name,omitempty" yaml:"name,omitempty"`
	Unit       string      `json:"unit,omitempty" yaml:"unit,omitempty"`
	Inputs     []string    `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs    []string    `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Components []Component `json:"components" yaml:"components"`
	Wires      []Wire      `json:"wires" yaml:"wires"`
}

// Component returns the component with the given name.
func (c *Circuit) Component(name string) (*Component, bool) {
	for i := range c.Components {
		if c.Components[i].Name == name {
			return &c.Components[i], true
		}
	}
	return nil, false
}

// TotalRegisters returns the number of registers on all wires.
func (c *Circuit) TotalRegisters() int {
	total := 0
	for _, w := range c.Wires {
		total += w.Registers
	}
	return total
}

// Clone returns a deep copy of c.
func (c *Circuit) Clone() *Circuit {
	clone := *c
	clone.Inputs = append([]string(nil), c.Inputs...)
	clone.Outputs = append([]string(nil), c.Outputs...)
	clone.Components = make([]Component, len(c.Components))
	for i, comp := range c.Components {
		comp.Inputs = append([]string(nil), comp.Inputs...)
		comp.Outputs = append([]string(nil), comp.Outputs...)
		comp.Arcs = append([]Arc(nil), comp.Arcs...)
		clone.Components[i] = comp
	}
	clone.Wires = append([]Wire(nil), c.Wires...)
	return &clone
}

// CheckVersion verifies that c declares a supported format version. An empty
// version means the current one.
func (c *Circuit) CheckVersion() error {
	if c.Version == "" {
		return nil
	}

	v, err := semver.NewVersion(c.Version)
	if err != nil {
		return errors.Wrapf(ErrMalformed, "version %q: %v", c.Version, err)
	}

	constraint, err := semver.NewConstraint(supportedVersions)
	if err != nil {
		return errors.Wrap(err, "failed to parse version constraint")
	}
	if !constraint.Check(v) {
		return errors.Wrapf(ErrUnsupportedVersion, "%s (want %s)", v, supportedVersions)
	}
	return nil
}

type pinSets struct {
	inputs  map[string]bool
	outputs map[string]bool
}

// Validate checks c against the structural rules of a netlist.
func (c *Circuit) Validate() error {
	if err := c.CheckVersion(); err != nil {
		return err
	}

	ports := pinSets{inputs: map[string]bool{}, outputs: map[string]bool{}}
	for _, p := range c.Inputs {
		if err := addName(ports.inputs, p, "input port"); err != nil {
			return err
		}
	}
	for _, p := range c.Outputs {
		if ports.inputs[p] {
			return errors.Wrapf(ErrMalformed, "port %q is both input and output", p)
		}
		if err := addName(ports.outputs, p, "output port"); err != nil {
			return err
		}
	}

	comps := make(map[string]pinSets, len(c.Components))
	for _, comp := range c.Components {
		if comp.Name == "" {
			return errors.Wrap(ErrMalformed, "component without name")
		}
		if _, dup := comps[comp.Name]; dup {
			return errors.Wrapf(ErrMalformed, "duplicate component %q", comp.Name)
		}

		pins, err := comp.pins()
		if err != nil {
			return err
		}
		comps[comp.Name] = pins

		for _, arc := range comp.Arcs {
			if !pins.inputs[arc.From] || !pins.outputs[arc.To] {
				return errors.Wrapf(ErrMalformed, "component %q: arc %s -> %s uses undeclared pins",
					comp.Name, arc.From, arc.To)
			}
			if math.IsNaN(arc.Delay) || math.IsInf(arc.Delay, 0) || arc.Delay < 0 {
				return errors.Wrapf(ErrMalformed, "component %q: arc %s -> %s has delay %g",
					comp.Name, arc.From, arc.To, arc.Delay)
			}
		}
	}

	wireNames := map[string]bool{}
	driven := map[PinRef]bool{}
	for i, w := range c.Wires {
		if w.Name != "" {
			if err := addName(wireNames, w.Name, "wire"); err != nil {
				return err
			}
		}
		if w.Registers < 0 {
			return errors.Wrapf(ErrMalformed, "wire %d (%s -> %s) has %d registers",
				i, w.From, w.To, w.Registers)
		}
		if !resolves(w.From, ports.inputs, comps, false) {
			return errors.Wrapf(ErrMalformed, "wire %d: cannot resolve source %s", i, w.From)
		}
		if !resolves(w.To, ports.outputs, comps, true) {
			return errors.Wrapf(ErrMalformed, "wire %d: cannot resolve sink %s", i, w.To)
		}
		if driven[w.To] {
			return errors.Wrapf(ErrMalformed, "wire %d: %s has more than one driver", i, w.To)
		}
		driven[w.To] = true
	}

	return nil
}

func (comp *Component) pins() (pinSets, error) {
	pins := pinSets{inputs: map[string]bool{}, outputs: map[string]bool{}}
	for _, p := range comp.Inputs {
		if err := addName(pins.inputs, p, comp.Name+" input"); err != nil {
			return pins, err
		}
	}
	for _, p := range comp.Outputs {
		if pins.inputs[p] {
			return pins, errors.Wrapf(ErrMalformed, "component %q: pin %q is both input and output",
				comp.Name, p)
		}
		if err := addName(pins.outputs, p, comp.Name+" output"); err != nil {
			return pins, err
		}
	}
	return pins, nil
}

func addName(set map[string]bool, name, what string) error {
	if name == "" {
		return errors.Wrapf(ErrMalformed, "empty %s name", what)
	}
	if set[name] {
		return errors.Wrapf(ErrMalformed, "duplicate %s %q", what, name)
	}
	set[name] = true
	return nil
}

// resolves reports whether p names a port in ports or a pin of a component.
// sink selects component input pins, otherwise output pins.
func resolves(p PinRef, ports map[string]bool, comps map[string]pinSets, sink bool) bool {
	if p.IsPort() {
		return ports[p.Pin]
	}
	pins, ok := comps[p.Component]
	if !ok {
		return false
	}
	if sink {
		return pins.inputs[p.Pin]
	}
	return pins.outputs[p.Pin]
}
