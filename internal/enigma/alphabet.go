package enigma

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Alphabet is a contiguous range of runes [Base, Base+Size).
type Alphabet struct {
	Base rune `json:"base" yaml:"base"`
	Size int  `json:"size" yaml:"size"`
}

var (
	// Uppercase covers 'A'..'Z'.
	Uppercase = Alphabet{Base: 'A', Size: 26}
	// Extended covers '@'..'z'.
	Extended = Alphabet{Base: '@', Size: 59}
	// Printable covers every printable ASCII rune, ' '..'~'.
	Printable = Alphabet{Base: ' ', Size: 95}
)

var presets = map[string]Alphabet{
	"upper":     Uppercase,
	"extended":  Extended,
	"printable": Printable,
}

// Contains reports whether r belongs to the alphabet.
func (a Alphabet) Contains(r rune) bool {
	return r >= a.Base && int(r-a.Base) < a.Size
}

// Index converts an in-alphabet rune to its index.
func (a Alphabet) Index(r rune) int {
	return int(r - a.Base)
}

// Symbol converts an index back to its rune.
func (a Alphabet) Symbol(i int) rune {
	return a.Base + rune(i)
}

const (
	surrogateMin = 0xD800
	surrogateMax = 0xDFFF
)

// Validate checks that the alphabet can drive a rotor chain.
func (a Alphabet) Validate() error {
	if a.Base < 0 {
		return keyErr("alphabet.base", a.Base, "must not be negative")
	}
	if a.Size < 2 {
		return keyErr("alphabet.size", a.Size, "must be at least 2")
	}
	end := int64(a.Base) + int64(a.Size)
	if end > utf8.MaxRune+1 {
		return keyErr("alphabet.size", a.Size, "range exceeds the unicode code space")
	}
	if int64(a.Base) <= surrogateMax && end > surrogateMin {
		return keyErr("alphabet", a.String(), "range overlaps the surrogate block U+D800..U+DFFF")
	}
	return nil
}

// String returns the preset name when one matches, otherwise BASE:SIZE.
func (a Alphabet) String() string {
	for name, p := range presets {
		if p == a {
			return name
		}
	}
	return fmt.Sprintf("%d:%d", a.Base, a.Size)
}

// ParseAlphabet accepts a preset name (upper, extended, printable) or an
// explicit BASE:SIZE pair such as "32:95".
func ParseAlphabet(s string) (Alphabet, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Uppercase, nil
	}
	if a, ok := presets[s]; ok {
		return a, nil
	}
	base, size, ok := strings.Cut(s, ":")
	if !ok {
		return Alphabet{}, keyErr("alphabet", s, "unknown preset")
	}
	b, err := strconv.Atoi(strings.TrimSpace(base))
	if err != nil {
		return Alphabet{}, keyErr("alphabet.base", base, "not an integer")
	}
	if b < 0 || b > utf8.MaxRune {
		return Alphabet{}, keyErr("alphabet.base", b, "must lie in [0,%d]", utf8.MaxRune)
	}
	n, err := strconv.Atoi(strings.TrimSpace(size))
	if err != nil {
		return Alphabet{}, keyErr("alphabet.size", size, "not an integer")
	}
	a := Alphabet{Base: rune(b), Size: n}
	if err := a.Validate(); err != nil {
		return Alphabet{}, err
	}
	return a, nil
}
