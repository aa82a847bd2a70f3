// Package keyring stores named rotor keys on disk so that both ends of a
// conversation can refer to the same key by name.
package keyring

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/RowanDark/rotor/internal/enigma"
)

var (
	// ErrProfileNotFound is returned for lookups of unknown profile names.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrInvalidProfile wraps schema validation failures.
	ErrInvalidProfile = errors.New("invalid profile")
)

const (
	fileExt         = ".yaml"
	maxFilenameStem = 200
)

// Profile is a named key.
type Profile struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name" validate:"required,max=64,excludesall=/\\"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty" validate:"max=512"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty" validate:"dive,required,max=32"`
	Alphabet    string   `yaml:"alphabet" json:"alphabet" validate:"required"`
	Offsets     []int    `yaml:"offsets" json:"offsets" validate:"required,min=1,dive,min=0"`
	Plugboard   string   `yaml:"plugboard,omitempty" json:"plugboard,omitempty"`
	CreatedAt   string   `yaml:"created_at" json:"created_at"`
	UpdatedAt   string   `yaml:"updated_at" json:"updated_at"`
}

// Key converts the profile to engine key material and validates it.
func (p *Profile) Key() (enigma.Key, error) {
	alpha, err := enigma.ParseAlphabet(p.Alphabet)
	if err != nil {
		return enigma.Key{}, err
	}
	key := enigma.Key{
		Alphabet:  alpha,
		Offsets:   append([]int(nil), p.Offsets...),
		Plugboard: enigma.ParsePlugboard(p.Plugboard),
	}
	if err := key.Validate(); err != nil {
		return enigma.Key{}, err
	}
	return key, nil
}

// FromKey builds an unsaved profile named name from key.
func FromKey(name string, key enigma.Key) *Profile {
	return &Profile{
		Name:      name,
		Alphabet:  key.Alphabet.String(),
		Offsets:   append([]int(nil), key.Offsets...),
		Plugboard: enigma.FormatPlugboard(key.Plugboard),
	}
}

// Manager handles storage and retrieval of profiles. An empty store path
// keeps profiles in memory only.
type Manager struct {
	profiles  map[string]*Profile
	files     map[string]string
	storePath string
	validate  *validator.Validate
	mu        sync.RWMutex
}

// NewManager creates a new profile manager
func NewManager(storePath string) *Manager {
	return &Manager{
		profiles:  make(map[string]*Profile),
		files:     make(map[string]string),
		storePath: storePath,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Save validates and stores a profile, assigning its id and timestamps.
func (m *Manager) Save(p *Profile) error {
	if p == nil {
		return errors.New("nil profile")
	}
	p.Name = strings.TrimSpace(p.Name)
	if err := m.validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	if _, err := p.Key(); err != nil {
		return fmt.Errorf("profile %s: %w", p.Name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	if existing, ok := m.profiles[p.Name]; ok {
		if p.ID == "" {
			p.ID = existing.ID
		}
		if p.CreatedAt == "" {
			p.CreatedAt = existing.CreatedAt
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt == "" {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if m.storePath != "" {
		if err := m.persist(p); err != nil {
			return err
		}
	}
	m.profiles[p.Name] = p
	return nil
}

// Get retrieves a profile by name
func (m *Manager) Get(name string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return p, nil
}

// Key resolves a profile name straight to its key.
func (m *Manager) Key(name string) (enigma.Key, error) {
	p, err := m.Get(name)
	if err != nil {
		return enigma.Key{}, err
	}
	return p.Key()
}

// List returns all profiles sorted by name.
func (m *Manager) List() []*Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of profiles.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.profiles)
}

// Delete removes a profile from memory and disk.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	if m.storePath != "" {
		if err := os.Remove(m.fileFor(name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete profile file: %w", err)
		}
	}
	delete(m.profiles, name)
	delete(m.files, name)
	return nil
}

// Load reads every profile file from the store path. Files that do not
// parse or hold an invalid key are reported as errors.
func (m *Manager) Load() error {
	if m.storePath == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.storePath, 0o700); err != nil {
		return fmt.Errorf("failed to create keyring directory: %w", err)
	}
	entries, err := os.ReadDir(m.storePath)
	if err != nil {
		return fmt.Errorf("failed to read keyring directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != fileExt {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.storePath, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read profile %s: %w", entry.Name(), err)
		}
		var p Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("failed to parse profile %s: %w", entry.Name(), err)
		}
		if err := m.validate.Struct(&p); err != nil {
			return fmt.Errorf("profile %s: %w: %w", entry.Name(), ErrInvalidProfile, err)
		}
		if _, err := p.Key(); err != nil {
			return fmt.Errorf("profile %s: %w", entry.Name(), err)
		}
		path := filepath.Join(m.storePath, entry.Name())
		if prev, ok := m.files[p.Name]; ok && prev != path {
			return fmt.Errorf("%w: name %q is stored in both %s and %s", ErrInvalidProfile, p.Name, filepath.Base(prev), entry.Name())
		}
		m.profiles[p.Name] = &p
		m.files[p.Name] = path
	}
	return nil
}

// Search finds profiles whose name, description or tags contain query,
// case-insensitively.
func (m *Manager) Search(query string) []*Profile {
	q := strings.ToLower(strings.TrimSpace(query))
	var results []*Profile
	for _, p := range m.List() {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
			results = append(results, p)
			continue
		}
		for _, tag := range p.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				results = append(results, p)
				break
			}
		}
	}
	return results
}

func (m *Manager) persist(p *Profile) error {
	if err := os.MkdirAll(m.storePath, 0o700); err != nil {
		return fmt.Errorf("failed to create keyring directory: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to serialize profile: %w", err)
	}
	path := filepath.Join(m.storePath, profileFilename(p.Name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write profile file: %w", err)
	}
	if prev, ok := m.files[p.Name]; ok && prev != path {
		if err := os.Remove(prev); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove previous profile file: %w", err)
		}
	}
	m.files[p.Name] = path
	return nil
}

func (m *Manager) fileFor(name string) string {
	if path, ok := m.files[name]; ok {
		return path
	}
	return filepath.Join(m.storePath, profileFilename(name))
}

// profileFilename maps a profile name to a distinct file name. Lowercase
// letters, digits and '-' are kept; every other byte becomes _xx in hex.
// Names whose encoding would be too long for a filesystem use a digest.
func profileFilename(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	if b.Len() > maxFilenameStem {
		sum := sha256.Sum256([]byte(name))
		return "_h" + hex.EncodeToString(sum[:]) + fileExt
	}
	return b.String() + fileExt
}
