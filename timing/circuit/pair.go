package circuit

// Pair is a (register count, delay) path weight. Pairs are ordered by
// register count ascending and, for equal register counts, by delay
// descending: the smaller pair is the path with fewer registers and, among
// those, the longer delay.
type Pair struct {
	Registers int
	Delay     float64
}

// Less reports whether p orders strictly before o.
func (p Pair) Less(o Pair) bool {
	if p.Registers != o.Registers {
		return p.Registers < o.Registers
	}
	return p.Delay > o.Delay
}

// Add returns the component-wise sum of p and o.
func (p Pair) Add(o Pair) Pair {
	return Pair{Registers: p.Registers + o.Registers, Delay: p.Delay + o.Delay}
}
