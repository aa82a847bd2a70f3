package enigma

import "fmt"

// Pair swaps two runes on the plugboard.
type Pair struct {
	A rune `json:"a" yaml:"a"`
	B rune `json:"b" yaml:"b"`
}

func (p Pair) String() string { return fmt.Sprintf("%c%c", p.A, p.B) }

// Plugboard is an involutive rune substitution. It is immutable once built.
type Plugboard struct {
	table map[rune]rune
	pairs []Pair
}

// NewPlugboard builds a plugboard over alpha from disjoint pairs. Both runes
// of a pair must be distinct members of the alphabet and no rune may appear
// in two pairs.
func NewPlugboard(alpha Alphabet, pairs []Pair) (*Plugboard, error) {
	pb := &Plugboard{table: make(map[rune]rune, 2*len(pairs))}
	for i, p := range pairs {
		param := fmt.Sprintf("plugboard[%d]", i)
		if !alpha.Contains(p.A) || !alpha.Contains(p.B) {
			return nil, keyErr(param, p, "symbols must lie in the alphabet %s", alpha)
		}
		if p.A == p.B {
			return nil, keyErr(param, p, "a symbol cannot be paired with itself")
		}
		if _, dup := pb.table[p.A]; dup {
			return nil, keyErr(param, p, "%q is already paired", p.A)
		}
		if _, dup := pb.table[p.B]; dup {
			return nil, keyErr(param, p, "%q is already paired", p.B)
		}
		pb.table[p.A] = p.B
		pb.table[p.B] = p.A
		pb.pairs = append(pb.pairs, p)
	}
	return pb, nil
}

// ParsePlugboard reads consecutive runes of s as pairs. A trailing unpaired
// rune is ignored.
func ParsePlugboard(s string) []Pair {
	runes := []rune(s)
	pairs := make([]Pair, 0, len(runes)/2)
	for i := 0; i+1 < len(runes); i += 2 {
		pairs = append(pairs, Pair{A: runes[i], B: runes[i+1]})
	}
	return pairs
}

// FormatPlugboard is the inverse of ParsePlugboard.
func FormatPlugboard(pairs []Pair) string {
	out := make([]rune, 0, 2*len(pairs))
	for _, p := range pairs {
		out = append(out, p.A, p.B)
	}
	return string(out)
}

// Substitute returns the partner of r, or r itself when it is unplugged.
func (pb *Plugboard) Substitute(r rune) rune {
	if pb == nil {
		return r
	}
	if v, ok := pb.table[r]; ok {
		return v
	}
	return r
}

// Pairs returns a copy of the configured pairs.
func (pb *Plugboard) Pairs() []Pair {
	if pb == nil {
		return nil
	}
	return append([]Pair(nil), pb.pairs...)
}
