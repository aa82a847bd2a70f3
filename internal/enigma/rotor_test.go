package enigma

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestShiftRotorWiringAndAdvance(t *testing.T) {
	r := NewShiftRotor(5, 3)
	want := []int{3, 4, 0, 1, 2}
	for i, v := range want {
		if got := r.Apply(i); got != v {
			t.Fatalf("Apply(%d) = %d, want %d", i, got, v)
		}
		if inv, ok := r.Invert(v); !ok || inv != i {
			t.Fatalf("Invert(%d) = %d,%v want %d", v, inv, ok, i)
		}
	}
	r.Advance()
	if r.Position() != 4 || r.Apply(0) != 4 || r.Apply(1) != 0 {
		t.Fatalf("unexpected state after advance: pos=%d", r.Position())
	}
	for i := 0; i < 4; i++ {
		r.Advance()
	}
	if r.Position() != 3 {
		t.Fatalf("expected period 5, position %d", r.Position())
	}
	if _, ok := r.Invert(5); ok {
		t.Fatal("out-of-range value must not invert")
	}
}

func TestPermutationRotor(t *testing.T) {
	r, err := NewPermutationRotor([]int{2, 0, 3, 1})
	if err != nil {
		t.Fatalf("NewPermutationRotor: %v", err)
	}
	for i := 0; i < 4; i++ {
		v := r.Apply(i)
		if inv, ok := r.Invert(v); !ok || inv != i {
			t.Fatalf("Invert(Apply(%d)) = %d,%v", i, inv, ok)
		}
	}
	r.Advance()
	if got := r.Apply(0); got != 3 {
		t.Fatalf("expected every entry incremented, Apply(0)=%d", got)
	}
	if got := r.Apply(2); got != 0 {
		t.Fatalf("expected wrap to 0, Apply(2)=%d", got)
	}
	if inv, ok := r.Invert(0); !ok || inv != 2 {
		t.Fatalf("inverse table not refreshed: %d,%v", inv, ok)
	}

	for _, wiring := range [][]int{{0}, {0, 0}, {0, 2}, {1, -1}} {
		if _, err := NewPermutationRotor(wiring); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("wiring %v: expected ErrInvalidKey, got %v", wiring, err)
		}
	}
}

func TestPermutationRotorEngineRoundTrip(t *testing.T) {
	wiring := make([]int, Uppercase.Size)
	for i := range wiring {
		wiring[i] = (i*7 + 3) % Uppercase.Size
	}
	build := func() *Engine {
		r1, err := NewPermutationRotor(wiring)
		if err != nil {
			t.Fatalf("NewPermutationRotor: %v", err)
		}
		e, err := NewWithRotors(Uppercase, nil, r1, NewShiftRotor(Uppercase.Size, 9))
		if err != nil {
			t.Fatalf("NewWithRotors: %v", err)
		}
		return e
	}
	msg := "ATTACK AT DAWN, HOLD THE LINE"
	got, err := build().Decode(build().Encode(msg))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != msg {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestPlugboardInvolution(t *testing.T) {
	pairs := ParsePlugboard("AQBWCEX")
	if len(pairs) != 3 {
		t.Fatalf("expected trailing rune ignored, got %d pairs", len(pairs))
	}
	pb, err := NewPlugboard(Uppercase, pairs)
	if err != nil {
		t.Fatalf("NewPlugboard: %v", err)
	}
	for i := 0; i < Uppercase.Size; i++ {
		r := Uppercase.Symbol(i)
		if got := pb.Substitute(pb.Substitute(r)); got != r {
			t.Fatalf("substitute twice of %q = %q", r, got)
		}
	}
	if pb.Substitute('A') != 'Q' || pb.Substitute('Q') != 'A' || pb.Substitute('Z') != 'Z' {
		t.Fatal("unexpected substitution")
	}
	if FormatPlugboard(pb.Pairs()) != "AQBWCE" {
		t.Fatalf("unexpected format %q", FormatPlugboard(pb.Pairs()))
	}
	var nilBoard *Plugboard
	if nilBoard.Substitute('K') != 'K' {
		t.Fatal("nil plugboard must be identity")
	}
}

func TestParseAlphabet(t *testing.T) {
	tests := []struct {
		in   string
		want Alphabet
		err  bool
	}{
		{"", Uppercase, false},
		{"upper", Uppercase, false},
		{"Printable", Printable, false},
		{"extended", Extended, false},
		{"48:10", Alphabet{Base: '0', Size: 10}, false},
		{"48:1", Alphabet{}, true},
		{"digits", Alphabet{}, true},
		{"x:10", Alphabet{}, true},
		{"-1:26", Alphabet{}, true},
		{"4294967361:26", Alphabet{}, true},
		{"1114111:2", Alphabet{}, true},
		{"55200:200", Alphabet{}, true},
		{"55270:26", Alphabet{Base: 55270, Size: 26}, false},
		{"57344:26", Alphabet{Base: 57344, Size: 26}, false},
	}
	for _, tt := range tests {
		got, err := ParseAlphabet(tt.in)
		if tt.err {
			if !errors.Is(err, ErrInvalidKey) {
				t.Fatalf("%q: expected ErrInvalidKey, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%q: got %v, %v", tt.in, got, err)
		}
	}
	if Printable.String() != "printable" || (Alphabet{Base: 48, Size: 10}).String() != "48:10" {
		t.Fatal("unexpected alphabet names")
	}
}

func TestParseOffsets(t *testing.T) {
	got, err := ParseOffsets(" 5, 12,1 ")
	if err != nil {
		t.Fatalf("ParseOffsets: %v", err)
	}
	if FormatOffsets(got) != "5,12,1" {
		t.Fatalf("unexpected offsets %v", got)
	}
	if _, err := ParseOffsets("5,x"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestTransformStreams(t *testing.T) {
	key := Key{Alphabet: Printable, Offsets: []int{5, 25, 0, 12}, Plugboard: ParsePlugboard("a~")}
	plain := "line one\nline two\r\n\tindented ~ tilde"

	enc := mustEngine(t, key)
	var cipher bytes.Buffer
	n, err := enc.Transform(&cipher, strings.NewReader(plain), Encrypt)
	if err != nil {
		t.Fatalf("Transform encode: %v", err)
	}
	if int(n) != len(plain) {
		t.Fatalf("expected %d bytes written, got %d", len(plain), n)
	}
	if cipher.String() != mustEngine(t, key).Encode(plain) {
		t.Fatal("streaming and string encode disagree")
	}

	var out bytes.Buffer
	if _, err := mustEngine(t, key).Transform(&out, &cipher, Decrypt); err != nil {
		t.Fatalf("Transform decode: %v", err)
	}
	if out.String() != plain {
		t.Fatalf("round trip mismatch: %q", out.String())
	}
}
