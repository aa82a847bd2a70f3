package enigma

import (
	"fmt"
	"strconv"
	"strings"
)

// Key is the shared secret of an encode/decode session.
type Key struct {
	Alphabet  Alphabet `json:"alphabet" yaml:"alphabet"`
	Offsets   []int    `json:"offsets" yaml:"offsets"`
	Plugboard []Pair   `json:"plugboard,omitempty" yaml:"plugboard,omitempty"`
}

// Validate reports the first invalid parameter of k.
func (k Key) Validate() error {
	if err := k.Alphabet.Validate(); err != nil {
		return err
	}
	if len(k.Offsets) == 0 {
		return keyErr("offsets", k.Offsets, "at least one rotor is required")
	}
	for i, off := range k.Offsets {
		if off < 0 || off >= k.Alphabet.Size {
			return keyErr(fmt.Sprintf("offsets[%d]", i), off, "must lie in [0,%d)", k.Alphabet.Size)
		}
	}
	_, err := NewPlugboard(k.Alphabet, k.Plugboard)
	return err
}

// Rotors returns the rotor count.
func (k Key) Rotors() int { return len(k.Offsets) }

// ParseOffsets parses a comma separated offset list such as "5,12,1".
func ParseOffsets(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, keyErr("offsets", s, "empty")
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, keyErr(fmt.Sprintf("offsets[%d]", i), p, "not an integer")
		}
		out = append(out, v)
	}
	return out, nil
}

// FormatOffsets is the inverse of ParseOffsets.
func FormatOffsets(offsets []int) string {
	parts := make([]string, len(offsets))
	for i, v := range offsets {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
