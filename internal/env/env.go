// Package env reads ROTOR_* environment variables and honours their legacy
// ENIGMA_* spellings.
package env

import (
	"log"
	"os"
	"strings"
	"sync"
)

const (
	// Prefix is the current prefix of every environment variable.
	Prefix = "ROTOR_"
	// LegacyPrefix was used before the project rename.
	LegacyPrefix = "ENIGMA_"
)

var (
	warnLogger func(format string, args ...any) = log.Printf
	warnMu     sync.Mutex
	warnedKeys sync.Map
)

// Lookup returns the value of key. When key is unset and carries the ROTOR_
// prefix, the ENIGMA_ spelling is consulted and a deprecation warning is
// logged once per key.
func Lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	if !strings.HasPrefix(key, Prefix) {
		return "", false
	}
	oldKey := LegacyPrefix + strings.TrimPrefix(key, Prefix)
	if v, ok := os.LookupEnv(oldKey); ok {
		logDeprecated(oldKey, key)
		return v, true
	}
	return "", false
}

// String returns the trimmed value of key, or "" when unset.
func String(key string) string {
	v, _ := Lookup(key)
	return strings.TrimSpace(v)
}

func logDeprecated(oldKey, newKey string) {
	onceIface, _ := warnedKeys.LoadOrStore(oldKey, &sync.Once{})
	once := onceIface.(*sync.Once)
	once.Do(func() {
		warnMu.Lock()
		logger := warnLogger
		warnMu.Unlock()
		logger("%s is deprecated; use %s", oldKey, newKey)
	})
}

// ResetWarningsForTesting clears the cached once guards so tests can verify
// warning behaviour deterministically.
func ResetWarningsForTesting() {
	warnMu.Lock()
	warnedKeys = sync.Map{}
	warnMu.Unlock()
}

// SetWarnLoggerForTesting swaps the logger used for warnings. The returned
// function restores the previous logger and should be deferred in tests.
func SetWarnLoggerForTesting(fn func(format string, args ...any)) (restore func()) {
	warnMu.Lock()
	previous := warnLogger
	warnLogger = fn
	warnMu.Unlock()
	return func() {
		warnMu.Lock()
		warnLogger = previous
		warnMu.Unlock()
	}
}
