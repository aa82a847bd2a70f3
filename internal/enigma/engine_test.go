package enigma

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func mustEngine(t *testing.T, key Key) *Engine {
	t.Helper()
	e, err := New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestEncodeKnownCiphertext(t *testing.T) {
	key := Key{Alphabet: Uppercase, Offsets: []int{5, 12, 1}}
	const (
		plain  = "BASILIAEDIEGOPRASEMPREJUNTOS"
		cipher = "TTMDHFYDDJGJSUXHANWADRXJDKGL"
	)

	for run := 0; run < 3; run++ {
		if got := mustEngine(t, key).Encode(plain); got != cipher {
			t.Fatalf("run %d: expected %q, got %q", run, cipher, got)
		}
	}

	got, err := mustEngine(t, key).Decode(cipher)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != plain {
		t.Fatalf("expected %q, got %q", plain, got)
	}
}

func TestEncodeSteppingWithZeroOffsets(t *testing.T) {
	e := mustEngine(t, Key{Alphabet: Uppercase, Offsets: []int{0, 0, 0}})
	if got := e.Encode("HELLO"); got != "HFNOS" {
		t.Fatalf("expected HFNOS, got %q", got)
	}
	if e.Cursor() != 2 {
		t.Fatalf("expected cursor 2, got %d", e.Cursor())
	}
	want := []int{2, 2, 1}
	for i, p := range e.Positions() {
		if p != want[i] {
			t.Fatalf("rotor %d: expected position %d, got %d", i, want[i], p)
		}
	}
}

func TestPrintableControlPassthrough(t *testing.T) {
	key := Key{
		Alphabet:  Printable,
		Offsets:   []int{5, 25, 0, 12},
		Plugboard: []Pair{{A: 'a', B: '~'}},
	}
	plain := "ab\tc~\nhello, world!\x01\x1f end"
	cipher := mustEngine(t, key).Encode(plain)

	if len(cipher) != len(plain) {
		t.Fatalf("length changed: %d != %d", len(cipher), len(plain))
	}
	for i := 0; i < len(plain); i++ {
		if plain[i] < ' ' && cipher[i] != plain[i] {
			t.Fatalf("control byte %#x at %d became %#x", plain[i], i, cipher[i])
		}
	}
	if !strings.HasPrefix(cipher, "I.\t0/\n") {
		t.Fatalf("unexpected ciphertext prefix %q", cipher)
	}

	got, err := mustEngine(t, key).Decode(cipher)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != plain {
		t.Fatalf("round trip mismatch: %q != %q", got, plain)
	}
}

func TestRoundTripAcrossKeys(t *testing.T) {
	messages := []string{
		"",
		"A",
		"THE QUICK BROWN FOX JUMPS OVER THE LAZY DOG",
		"lower and UPPER with @[]^_` marks",
		"ünïcödé stays put: ✓",
		strings.Repeat("ZZZZ", 300),
	}
	keys := []Key{
		{Alphabet: Uppercase, Offsets: []int{5, 12, 1}},
		{Alphabet: Uppercase, Offsets: []int{25}, Plugboard: ParsePlugboard("AZBYCX")},
		{Alphabet: Extended, Offsets: []int{0, 58, 17, 3}, Plugboard: ParsePlugboard("az@_")},
		{Alphabet: Printable, Offsets: []int{5, 25, 0, 12}, Plugboard: ParsePlugboard("a~")},
		{Alphabet: Printable, Offsets: []int{94, 94, 94, 94, 94, 94}},
	}
	for _, key := range keys {
		for _, msg := range messages {
			cipher := mustEngine(t, key).Encode(msg)
			got, err := mustEngine(t, key).Decode(cipher)
			if err != nil {
				t.Fatalf("key %v: Decode: %v", key, err)
			}
			if got != msg {
				t.Fatalf("key %v: round trip mismatch for %q: got %q", key, msg, got)
			}
		}
	}
}

func TestPassthroughDoesNotStep(t *testing.T) {
	key := Key{Alphabet: Uppercase, Offsets: []int{3, 7, 11}}
	interleaved := mustEngine(t, key)
	plain := mustEngine(t, key)

	out := interleaved.Encode("a-B c.D!e?F")
	compact := plain.Encode("BDF")

	if interleaved.Processed() != 3 {
		t.Fatalf("expected 3 processed symbols, got %d", interleaved.Processed())
	}
	if interleaved.Cursor() != plain.Cursor() {
		t.Fatalf("cursor diverged: %d != %d", interleaved.Cursor(), plain.Cursor())
	}
	gotCipher := string([]byte{out[2], out[6], out[10]})
	if gotCipher != compact {
		t.Fatalf("expected %q at cipher positions, got %q", compact, gotCipher)
	}
	for _, i := range []int{0, 1, 3, 4, 5, 7, 8, 9} {
		if out[i] != "a-B c.D!e?F"[i] {
			t.Fatalf("position %d changed", i)
		}
	}
}

func TestSingleStepIsInjective(t *testing.T) {
	for _, alpha := range []Alphabet{Uppercase, Extended, Printable} {
		offsets := []int{alpha.Size - 1, 7, 0}
		seen := make(map[rune]rune, alpha.Size)
		for i := 0; i < alpha.Size; i++ {
			// A fresh engine per symbol keeps the state fixed.
			e := mustEngine(t, Key{Alphabet: alpha, Offsets: offsets})
			in := alpha.Symbol(i)
			out := e.EncodeRune(in)
			if prev, dup := seen[out]; dup {
				t.Fatalf("%s: %q and %q both encode to %q", alpha, prev, in, out)
			}
			seen[out] = in
		}
	}
}

func TestStateIsFunctionOfSymbolCount(t *testing.T) {
	key := Key{Alphabet: Uppercase, Offsets: []int{1, 2, 3}}
	a := mustEngine(t, key).Encode("AAAAAAAAAB")
	b := mustEngine(t, key).Encode("AAAAAAAAAC")
	if a[:9] != b[:9] {
		t.Fatalf("identical prefixes diverged: %q vs %q", a, b)
	}
	if a[9] == b[9] {
		t.Fatalf("different final symbols encoded identically")
	}
}

func TestNewRejectsInvalidKeys(t *testing.T) {
	tests := []struct {
		name  string
		key   Key
		param string
	}{
		{"no rotors", Key{Alphabet: Uppercase}, "offsets"},
		{"negative offset", Key{Alphabet: Uppercase, Offsets: []int{1, -1}}, "offsets[1]"},
		{"offset equal to size", Key{Alphabet: Uppercase, Offsets: []int{26}}, "offsets[0]"},
		{"tiny alphabet", Key{Alphabet: Alphabet{Base: 'A', Size: 1}, Offsets: []int{0}}, "alphabet.size"},
		{"overlapping pairs", Key{Alphabet: Uppercase, Offsets: []int{0}, Plugboard: ParsePlugboard("ABAC")}, "plugboard[1]"},
		{"self pair", Key{Alphabet: Uppercase, Offsets: []int{0}, Plugboard: ParsePlugboard("QQ")}, "plugboard[0]"},
		{"pair outside alphabet", Key{Alphabet: Uppercase, Offsets: []int{0}, Plugboard: ParsePlugboard("a~")}, "plugboard[0]"},
		{"surrogate range", Key{Alphabet: Alphabet{Base: 55200, Size: 200}, Offsets: []int{150, 0, 0}}, "alphabet"},
		{"surrogate base", Key{Alphabet: Alphabet{Base: 0xDFFF, Size: 2}, Offsets: []int{0}}, "alphabet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.key)
			if e != nil {
				t.Fatal("expected no engine on failure")
			}
			if !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("expected ErrInvalidKey, got %v", err)
			}
			var kerr *KeyError
			if !errors.As(err, &kerr) {
				t.Fatalf("expected *KeyError, got %T", err)
			}
			if kerr.Param != tt.param {
				t.Fatalf("expected param %q, got %q", tt.param, kerr.Param)
			}
		})
	}
}

// brokenRotor has no preimage for one value.
type brokenRotor struct {
	*ShiftRotor
	hole int
}

func (b brokenRotor) Invert(v int) (int, bool) {
	if v == b.hole {
		return 0, false
	}
	return b.ShiftRotor.Invert(v)
}

func TestDecodeReportsDesync(t *testing.T) {
	e, err := NewWithRotors(Uppercase, nil, NewShiftRotor(26, 0), brokenRotor{ShiftRotor: NewShiftRotor(26, 0), hole: Uppercase.Index('C')})
	if err != nil {
		t.Fatalf("NewWithRotors: %v", err)
	}
	out, err := e.Decode("AB-C")
	if !errors.Is(err, ErrDesynchronized) {
		t.Fatalf("expected ErrDesynchronized, got %v", err)
	}
	var derr *DesyncError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DesyncError, got %T", err)
	}
	if derr.Position != 3 || derr.Symbol != 'C' {
		t.Fatalf("unexpected desync detail %+v", derr)
	}
	if len([]rune(out)) != 3 || out[2] != '-' {
		t.Fatalf("expected 3 decoded runes before failure, got %q", out)
	}
	if e.Processed() != 2 {
		t.Fatalf("failed symbol must not step the engine, processed=%d", e.Processed())
	}
}

func TestAlphabetBesideSurrogatesRoundTrips(t *testing.T) {
	for _, alpha := range []Alphabet{{Base: 0xD800 - 26, Size: 26}, {Base: 0xE000, Size: 26}} {
		key := Key{Alphabet: alpha, Offsets: []int{3, 17, 9}}
		plain := string([]rune{alpha.Base, alpha.Base + 7, alpha.Base + 25, alpha.Base})
		cipher := mustEngine(t, key).Encode(plain)
		got, err := mustEngine(t, key).Decode(cipher)
		if err != nil {
			t.Fatalf("%v: Decode: %v", alpha, err)
		}
		if got != plain {
			t.Fatalf("%v: round trip mismatch %q != %q", alpha, got, plain)
		}
	}
}

func TestNewWithRotorsRejectsSizeMismatch(t *testing.T) {
	e, err := NewWithRotors(Uppercase, nil, NewShiftRotor(26, 0), NewShiftRotor(5, 0))
	if e != nil {
		t.Fatal("expected no engine on failure")
	}
	var kerr *KeyError
	if !errors.As(err, &kerr) || !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected *KeyError, got %v", err)
	}
	if kerr.Param != "rotors[1]" || kerr.Value != 5 {
		t.Fatalf("unexpected key error %+v", kerr)
	}

	perm, err := NewPermutationRotor([]int{1, 0, 2})
	if err != nil {
		t.Fatalf("NewPermutationRotor: %v", err)
	}
	if _, err := NewWithRotors(Uppercase, nil, perm); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey for a 3-entry rotor, got %v", err)
	}
}

func TestInvalidUTF8BytesPassThrough(t *testing.T) {
	key := Key{Alphabet: Uppercase, Offsets: []int{5, 12, 1}}
	plain := "AB\xffC\xc3"

	cipher := mustEngine(t, key).Encode(plain)
	if cipher != "SU\xffW\xc3" {
		t.Fatalf("unexpected ciphertext %q", cipher)
	}
	got, err := mustEngine(t, key).Decode(cipher)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != plain {
		t.Fatalf("round trip mismatch %q != %q", got, plain)
	}

	var streamed, back bytes.Buffer
	n, err := mustEngine(t, key).Transform(&streamed, strings.NewReader(plain), Encrypt)
	if err != nil {
		t.Fatalf("Transform encode: %v", err)
	}
	if int(n) != len(plain) || streamed.String() != cipher {
		t.Fatalf("stream encode gave %q (%d bytes)", streamed.String(), n)
	}
	if _, err := mustEngine(t, key).Transform(&back, &streamed, Decrypt); err != nil {
		t.Fatalf("Transform decode: %v", err)
	}
	if back.String() != plain {
		t.Fatalf("stream round trip mismatch %q", back.String())
	}
}

func TestReplacementCharacterIsOrdinaryPassthrough(t *testing.T) {
	key := Key{Alphabet: Uppercase, Offsets: []int{0, 0, 0}}
	e := mustEngine(t, key)
	if got := e.Encode("\uFFFDH"); got != "\uFFFDH" {
		t.Fatalf("unexpected output %q", got)
	}
	if e.Processed() != 1 || e.Passed() != 1 {
		t.Fatalf("expected one stepped and one passed symbol, got %d/%d", e.Processed(), e.Passed())
	}
}
