package netlist

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/sarchlab/retime/timing/latency"
)

// Statements of an ISCAS'89 .bench file look like
//
//	INPUT(G0)
//	OUTPUT(G17)
//	G10 = NOR(G14, G11)
//	G5 = DFF(G10)
var (
	benchGateRE  = regexp.MustCompile(`^([\w.\[\]]+)\s*=\s*(\w+)\s*\(([^)]*)\)$`)
	benchInOutRE = regexp.MustCompile(`^(INPUT|OUTPUT)\s*\(\s*([\w.\[\]]+)\s*\)$`)
)

const benchOutputPin = "out"

func benchInputPin(i int) string {
	return "in" + strconv.Itoa(i)
}

type benchGate struct {
	line   int
	output string
	kind   string
	inputs []string
}

type benchSource struct {
	from PinRef
	regs int
}

// ReadBench reads an ISCAS'89 .bench netlist. Every gate other than a
// flip-flop becomes a component whose output pin is named "out" and whose
// input pins are "in0", "in1" and so on, with one arc per input delayed as
// table says. Flip-flops become registers on the wires they sit on.
func ReadBench(r io.Reader, name string, table *latency.Table) (*Circuit, error) {
	c := &Circuit{Version: CurrentVersion, Name: name, Unit: "ns"}

	var gates []benchGate
	drivers := map[string]int{}
	inputs := map[string]bool{}

	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := benchInOutRE.FindStringSubmatch(line); m != nil {
			if m[1] == "INPUT" {
				if _, dup := drivers[m[2]]; dup || inputs[m[2]] {
					return nil, errors.Wrapf(ErrMalformed, "line %d: %s driven twice", n, m[2])
				}
				inputs[m[2]] = true
				c.Inputs = append(c.Inputs, m[2])
			} else {
				c.Outputs = append(c.Outputs, m[2])
			}
			continue
		}

		m := benchGateRE.FindStringSubmatch(line)
		if m == nil {
			return nil, errors.Wrapf(ErrMalformed, "line %d: cannot parse %q", n, line)
		}
		if _, dup := drivers[m[1]]; dup || inputs[m[1]] {
			return nil, errors.Wrapf(ErrMalformed, "line %d: %s driven twice", n, m[1])
		}

		g := benchGate{line: n, output: m[1], kind: strings.ToUpper(m[2])}
		for _, arg := range strings.Split(m[3], ",") {
			if arg = strings.TrimSpace(arg); arg != "" {
				g.inputs = append(g.inputs, arg)
			}
		}
		if len(g.inputs) == 0 {
			return nil, errors.Wrapf(ErrMalformed, "line %d: gate %s has no inputs", n, g.output)
		}
		if table.IsSequential(g.kind) && len(g.inputs) != 1 {
			return nil, errors.Wrapf(ErrMalformed, "line %d: %s must have one input", n, g.kind)
		}

		drivers[g.output] = len(gates)
		gates = append(gates, g)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read bench netlist")
	}

	resolving := map[string]bool{}
	var resolve func(signal string) (benchSource, error)
	resolve = func(signal string) (benchSource, error) {
		if inputs[signal] {
			return benchSource{from: PinRef{Pin: signal}}, nil
		}
		idx, ok := drivers[signal]
		if !ok {
			return benchSource{}, errors.Wrapf(ErrMalformed, "signal %s is never driven", signal)
		}
		g := gates[idx]
		if !table.IsSequential(g.kind) {
			return benchSource{from: PinRef{Component: signal, Pin: benchOutputPin}}, nil
		}

		if resolving[signal] {
			return benchSource{}, errors.Wrapf(ErrMalformed, "flip-flop loop through %s", signal)
		}
		resolving[signal] = true
		defer delete(resolving, signal)

		src, err := resolve(g.inputs[0])
		if err != nil {
			return benchSource{}, err
		}
		src.regs++
		return src, nil
	}

	for _, g := range gates {
		if table.IsSequential(g.kind) {
			continue
		}

		delay, err := table.GetDelay(g.kind, len(g.inputs))
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", g.line)
		}

		comp := Component{
			Name:    g.output,
			Type:    g.kind,
			Outputs: []string{benchOutputPin},
		}
		for i, signal := range g.inputs {
			pin := benchInputPin(i)
			comp.Inputs = append(comp.Inputs, pin)
			comp.Arcs = append(comp.Arcs, Arc{From: pin, To: benchOutputPin, Delay: delay})

			src, err := resolve(signal)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", g.line)
			}
			c.Wires = append(c.Wires, Wire{
				Name:      signal + "->" + g.output + "." + pin,
				From:      src.from,
				To:        PinRef{Component: g.output, Pin: pin},
				Registers: src.regs,
			})
		}
		c.Components = append(c.Components, comp)
	}

	for _, out := range c.Outputs {
		src, err := resolve(out)
		if err != nil {
			return nil, errors.Wrapf(err, "output %s", out)
		}
		c.Wires = append(c.Wires, Wire{
			Name:      out + "->" + out,
			From:      src.from,
			To:        PinRef{Pin: out},
			Registers: src.regs,
		})
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
