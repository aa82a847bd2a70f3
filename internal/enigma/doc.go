// Package enigma implements a stateful rotor substitution cipher with an
// optional plugboard.
//
// # Overview
//
// An Engine is built from a Key: an alphabet (a contiguous range of runes
// starting at Base), one initial offset per rotor and an optional list of
// plugboard pairs. Every in-alphabet rune is passed through the plugboard and
// the rotor chain, after which exactly one rotor advances. Runes outside the
// alphabet are copied through unchanged and leave the engine state untouched.
//
//	key := enigma.Key{
//	    Alphabet: enigma.Uppercase,
//	    Offsets:  []int{5, 12, 1},
//	}
//	enc, _ := enigma.New(key)
//	ciphertext := enc.Encode("BASILIAEDIEGOPRASEMPREJUNTOS")
//
//	dec, _ := enigma.New(key)
//	plaintext, err := dec.Decode(ciphertext)
//
// # State
//
// An Engine mutates itself on every in-alphabet rune, so a message must be
// decoded by a fresh engine built from the same key. Engines are not safe for
// concurrent use; build one per stream.
//
// This is a classical cipher. It provides no confidentiality against an
// attacker who knows the construction.
package enigma
