package retime

import "github.com/sarchlab/akita/v4/sim"

// Frequency converts a clock period in nanoseconds into the clock frequency
// it allows. A non-positive period has no frequency limit and yields 0.
func Frequency(periodNS float64) sim.Freq {
	if periodNS <= 0 {
		return 0
	}
	return sim.Freq(1e9/periodNS) * sim.Hz
}

// MHz expresses f in megahertz.
func MHz(f sim.Freq) float64 {
	return float64(f / sim.MHz)
}
