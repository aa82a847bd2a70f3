package enigma

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Direction selects the encode or decode path of an engine.
type Direction int

const (
	Encrypt Direction = iota
	Decrypt
)

func (d Direction) String() string {
	if d == Decrypt {
		return "decode"
	}
	return "encode"
}

// Engine owns a rotor chain and plugboard for the lifetime of one message.
type Engine struct {
	alpha     Alphabet
	chain     *Chain
	plugboard *Plugboard
	processed int
	passed    int
}

// New validates key and builds an engine with shift rotors at the key's
// offsets. Nothing is returned on failure.
func New(key Key) (*Engine, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	rotors := make([]Rotor, len(key.Offsets))
	for i, off := range key.Offsets {
		rotors[i] = NewShiftRotor(key.Alphabet.Size, off)
	}
	pb, err := NewPlugboard(key.Alphabet, key.Plugboard)
	if err != nil {
		return nil, err
	}
	return NewWithRotors(key.Alphabet, pb, rotors...)
}

// NewWithRotors builds an engine from caller supplied rotors. Every rotor
// must be a permutation of the alphabet's index set.
func NewWithRotors(alpha Alphabet, pb *Plugboard, rotors ...Rotor) (*Engine, error) {
	if err := alpha.Validate(); err != nil {
		return nil, err
	}
	if len(rotors) == 0 {
		return nil, keyErr("rotors", 0, "at least one rotor is required")
	}
	for i, r := range rotors {
		if r == nil {
			return nil, keyErr(fmt.Sprintf("rotors[%d]", i), nil, "rotor is nil")
		}
		if r.Size() != alpha.Size {
			return nil, keyErr(fmt.Sprintf("rotors[%d]", i), r.Size(), "size must equal the alphabet size %d", alpha.Size)
		}
	}
	return &Engine{alpha: alpha, chain: NewChain(rotors...), plugboard: pb}, nil
}

// Alphabet returns the engine's alphabet.
func (e *Engine) Alphabet() Alphabet { return e.alpha }

// EncodeRune transforms one rune. Out-of-alphabet runes pass through and do
// not step the rotors.
func (e *Engine) EncodeRune(r rune) rune {
	if !e.alpha.Contains(r) {
		e.passed++
		return r
	}
	x := e.alpha.Index(e.plugboard.Substitute(r))
	out := e.alpha.Symbol(e.chain.Forward(x))
	e.step()
	return out
}

// DecodeRune inverts EncodeRune for an engine at the same position. ok is
// false when the rotor chain has no preimage; the engine does not step in
// that case.
func (e *Engine) DecodeRune(r rune) (rune, bool) {
	if !e.alpha.Contains(r) {
		e.passed++
		return r, true
	}
	x, ok := e.chain.Backward(e.alpha.Index(r))
	if !ok {
		return r, false
	}
	out := e.plugboard.Substitute(e.alpha.Symbol(x))
	e.step()
	return out, true
}

func (e *Engine) step() {
	e.chain.Step()
	e.processed++
}

// Encode transforms every rune of s in order. Bytes that are not valid
// UTF-8 pass through unchanged.
func (e *Engine) Encode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			b.WriteByte(s[0])
			e.passed++
		} else {
			b.WriteRune(e.EncodeRune(r))
		}
		s = s[size:]
	}
	return b.String()
}

// Decode inverts Encode. On failure it returns the text decoded so far and
// a *DesyncError carrying the offset of the failing symbol, counting each
// invalid byte as one symbol.
func (e *Engine) Decode(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for pos := 0; len(s) > 0; pos++ {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			b.WriteByte(s[0])
			e.passed++
			s = s[1:]
			continue
		}
		d, ok := e.DecodeRune(r)
		if !ok {
			return b.String(), &DesyncError{Position: pos, Symbol: r}
		}
		b.WriteRune(d)
		s = s[size:]
	}
	return b.String(), nil
}

// Processed counts the in-alphabet runes consumed so far.
func (e *Engine) Processed() int { return e.processed }

// Passed counts the symbols copied through unchanged: out-of-alphabet runes
// and bytes that are not valid UTF-8.
func (e *Engine) Passed() int { return e.passed }

// Cursor is the index of the rotor that advances next.
func (e *Engine) Cursor() int { return e.chain.Cursor() }

// Positions reports every rotor's current offset.
func (e *Engine) Positions() []int { return e.chain.Positions() }
