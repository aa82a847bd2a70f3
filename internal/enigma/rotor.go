package enigma

// Rotor is a permutation of the index set {0..N-1} that can be stepped.
type Rotor interface {
	// Apply maps an input index to an output index.
	Apply(i int) int
	// Invert returns the input index that Apply maps to v. ok is false when
	// no such index exists.
	Invert(v int) (i int, ok bool)
	// Advance increments every output of the permutation by one, mod N.
	Advance()
	// Position is the rotor's current offset, the number of advances
	// applied to its initial wiring mod N.
	Position() int
	// Size is N.
	Size() int
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

// ShiftRotor is the cyclic-shift permutation wiring[i] = (start+i) mod N.
type ShiftRotor struct {
	start  int
	wiring []int
}

// NewShiftRotor returns a shift rotor of size n starting at start.
func NewShiftRotor(n, start int) *ShiftRotor {
	r := &ShiftRotor{start: start, wiring: make([]int, n)}
	for i := range r.wiring {
		r.wiring[i] = (start + i) % n
	}
	return r
}

func (r *ShiftRotor) Apply(i int) int { return r.wiring[i] }

// Invert computes the inverse arithmetically and confirms it against the
// materialised wiring.
func (r *ShiftRotor) Invert(v int) (int, bool) {
	n := len(r.wiring)
	if v < 0 || v >= n {
		return 0, false
	}
	i := mod(v-r.start, n)
	if r.wiring[i] != v {
		return 0, false
	}
	return i, true
}

func (r *ShiftRotor) Advance() {
	n := len(r.wiring)
	for i := range r.wiring {
		r.wiring[i] = (r.wiring[i] + 1) % n
	}
	r.start = (r.start + 1) % n
}

func (r *ShiftRotor) Position() int { return r.start }

func (r *ShiftRotor) Size() int { return len(r.wiring) }

// PermutationRotor wraps an arbitrary bijective wiring and keeps an inverse
// table alongside it.
type PermutationRotor struct {
	wiring  []int
	inverse []int
	steps   int
}

// NewPermutationRotor validates that wiring is a bijection on
// {0..len(wiring)-1} and returns a rotor over a copy of it.
func NewPermutationRotor(wiring []int) (*PermutationRotor, error) {
	n := len(wiring)
	if n < 2 {
		return nil, keyErr("wiring", n, "needs at least 2 entries")
	}
	r := &PermutationRotor{
		wiring:  make([]int, n),
		inverse: make([]int, n),
	}
	for i := range r.inverse {
		r.inverse[i] = -1
	}
	for i, v := range wiring {
		if v < 0 || v >= n {
			return nil, keyErr("wiring", v, "entry %d out of range [0,%d)", i, n)
		}
		if r.inverse[v] != -1 {
			return nil, keyErr("wiring", v, "entry %d repeats a value", i)
		}
		r.wiring[i] = v
		r.inverse[v] = i
	}
	return r, nil
}

func (r *PermutationRotor) Apply(i int) int { return r.wiring[i] }

func (r *PermutationRotor) Invert(v int) (int, bool) {
	if v < 0 || v >= len(r.inverse) {
		return 0, false
	}
	i := r.inverse[v]
	if i < 0 || r.wiring[i] != v {
		return 0, false
	}
	return i, true
}

func (r *PermutationRotor) Advance() {
	n := len(r.wiring)
	for i, v := range r.wiring {
		next := (v + 1) % n
		r.wiring[i] = next
		r.inverse[next] = i
	}
	r.steps = (r.steps + 1) % n
}

func (r *PermutationRotor) Position() int { return r.steps }

func (r *PermutationRotor) Size() int { return len(r.wiring) }
