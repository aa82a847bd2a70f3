package env

import (
	"fmt"
	"testing"
)

func TestLookup(t *testing.T) {
	want := "/tmp/keys"
	t.Setenv("ROTOR_KEYRING_DIR", want)

	got, ok := Lookup("ROTOR_KEYRING_DIR")
	if !ok {
		t.Fatalf("expected lookup to succeed")
	}
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestLookupLegacyWarnsOnce(t *testing.T) {
	ResetWarningsForTesting()
	var warnings []string
	restore := SetWarnLoggerForTesting(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})
	defer restore()

	t.Setenv("ENIGMA_SERVER_ADDR", " 127.0.0.1:7000 ")

	for i := 0; i < 3; i++ {
		if got := String("ROTOR_SERVER_ADDR"); got != "127.0.0.1:7000" {
			t.Fatalf("expected legacy value, got %q", got)
		}
	}
	if len(warnings) != 1 {
		t.Fatalf("expected a single warning, got %v", warnings)
	}
	if warnings[0] != "ENIGMA_SERVER_ADDR is deprecated; use ROTOR_SERVER_ADDR" {
		t.Fatalf("unexpected warning %q", warnings[0])
	}

	if _, ok := Lookup("OTHER_UNSET_VARIABLE"); ok {
		t.Fatal("unexpected value for unset variable")
	}
}
