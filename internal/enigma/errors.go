package enigma

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey reports key material that cannot build an engine.
	ErrInvalidKey = errors.New("invalid key")

	// ErrDesynchronized reports a decode that could not invert the rotor
	// chain, which happens when the decoding engine does not share the
	// encoder's key or position.
	ErrDesynchronized = errors.New("desynchronized key")
)

// KeyError identifies the key parameter that failed validation.
type KeyError struct {
	Param  string
	Value  any
	Reason string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("invalid key: %s=%v: %s", e.Param, e.Value, e.Reason)
}

func (e *KeyError) Unwrap() error { return ErrInvalidKey }

func keyErr(param string, value any, format string, args ...any) error {
	return &KeyError{Param: param, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// DesyncError reports the position of the rune whose inversion failed.
type DesyncError struct {
	Position int
	Symbol   rune
}

func (e *DesyncError) Error() string {
	return fmt.Sprintf("desynchronized key at position %d (symbol %q)", e.Position, e.Symbol)
}

func (e *DesyncError) Unwrap() error { return ErrDesynchronized }
