// Package updater replaces the running rotorctl binary with a signed
// release, either from a full artifact or a bsdiff delta, and can roll the
// swap back.
package updater

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/rotor/internal/env"
)

// Channel selects a release stream.
type Channel string

const (
	// Stable is the default release channel.
	Stable Channel = "stable"
	// Beta exposes prerelease builds.
	Beta Channel = "beta"
)

// ParseChannel normalises s, defaulting to Stable.
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return Stable, nil
	case Stable, Beta:
		return c, nil
	default:
		return "", fmt.Errorf("unknown channel %q", s)
	}
}

// State is the updater bookkeeping persisted between runs.
type State struct {
	Channel         Channel   `yaml:"channel"`
	CurrentVersion  string    `yaml:"current_version,omitempty"`
	PreviousVersion string    `yaml:"previous_version,omitempty"`
	BackupPath      string    `yaml:"backup_path,omitempty"`
	AppliedAt       time.Time `yaml:"applied_at,omitempty"`
}

// Store reads and writes State as YAML.
type Store struct {
	dir  string
	path string
	mu   sync.Mutex
}

// DefaultDir returns ROTOR_UPDATER_DIR when set, otherwise ~/.rotor/updater.
func DefaultDir() (string, error) {
	if dir := env.String("ROTOR_UPDATER_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".rotor", "updater"), nil
}

// NewStore creates a store in dir, or in DefaultDir when dir is empty.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure updater dir %s: %w", dir, err)
	}
	return &Store{dir: dir, path: filepath.Join(dir, "state.yaml")}, nil
}

// Dir returns the directory that backs the store.
func (s *Store) Dir() string { return s.dir }

// Load returns the saved state, or a Stable default when none exists.
// An unknown channel on disk is reset to Stable.
func (s *Store) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{Channel: Stable}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read updater state: %w", err)
	}
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse updater state: %w", err)
	}
	if st.Channel, err = ParseChannel(string(st.Channel)); err != nil {
		st.Channel = Stable
	}
	return st, nil
}

// Save writes st atomically.
func (s *Store) Save(st State) error {
	ch, err := ParseChannel(string(st.Channel))
	if err != nil {
		return err
	}
	st.Channel = ch

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode updater state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "state-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("persist updater state: %w", err)
	}
	return nil
}
