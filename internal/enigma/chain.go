package enigma

// Chain is an ordered list of rotors with a round-robin advance cursor.
type Chain struct {
	rotors []Rotor
	cursor int
}

// NewChain composes rotors in the given order.
func NewChain(rotors ...Rotor) *Chain {
	return &Chain{rotors: rotors}
}

// Forward runs x through every rotor, first to last.
func (c *Chain) Forward(x int) int {
	for _, r := range c.rotors {
		x = r.Apply(x)
	}
	return x
}

// Backward inverts the chain, last rotor to first. ok is false when any
// rotor has no preimage for the running value.
func (c *Chain) Backward(y int) (int, bool) {
	for i := len(c.rotors) - 1; i >= 0; i-- {
		x, ok := c.rotors[i].Invert(y)
		if !ok {
			return 0, false
		}
		y = x
	}
	return y, true
}

// Step advances the rotor under the cursor and moves the cursor on. Rotors
// never carry into each other.
func (c *Chain) Step() {
	if len(c.rotors) == 0 {
		return
	}
	c.rotors[c.cursor].Advance()
	c.cursor = (c.cursor + 1) % len(c.rotors)
}

// Cursor is the index of the rotor that advances next.
func (c *Chain) Cursor() int { return c.cursor }

// Len returns the number of rotors.
func (c *Chain) Len() int { return len(c.rotors) }

// Positions reports each rotor's current offset.
func (c *Chain) Positions() []int {
	out := make([]int, len(c.rotors))
	for i, r := range c.rotors {
		out[i] = r.Position()
	}
	return out
}
