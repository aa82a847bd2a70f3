package updater

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/RowanDark/rotor/internal/env"
)

// DefaultBaseURL serves release manifests under /<channel>/manifest.json.
const DefaultBaseURL = "https://releases.rotor.dev"

// releaseKey verifies production manifests. ROTOR_UPDATER_PUBLIC_KEY
// overrides it.
const releaseKey = "uSwfL+tx15Q1FQBoZysRWuFBBW58ZVihvLNq6JRxfM0="

// ErrBadSignature is returned when a manifest does not verify.
var ErrBadSignature = errors.New("manifest signature verification failed")

// Manifest lists the builds of one release.
type Manifest struct {
	Version string  `json:"version"`
	Channel Channel `json:"channel"`
	Notes   string  `json:"notes,omitempty"`
	Builds  []Build `json:"builds"`
}

// Build is the release for one platform.
type Build struct {
	OS    string   `json:"os"`
	Arch  string   `json:"arch"`
	Full  Artifact `json:"full"`
	Delta *Patch   `json:"delta,omitempty"`
}

// Artifact is a complete binary.
type Artifact struct {
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
}

// Patch is a bsdiff delta from a specific earlier version.
type Patch struct {
	From   string `json:"from"`
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
}

// Build returns the entry for goos/goarch.
func (m Manifest) Build(goos, goarch string) (Build, bool) {
	for _, b := range m.Builds {
		if strings.EqualFold(b.OS, goos) && strings.EqualFold(b.Arch, goarch) {
			return b, true
		}
	}
	return Build{}, false
}

// ParseManifest decodes and sanity checks manifest JSON.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if strings.TrimSpace(m.Version) == "" {
		return Manifest{}, errors.New("manifest missing version")
	}
	if len(m.Builds) == 0 {
		return Manifest{}, errors.New("manifest missing builds")
	}
	return m, nil
}

// PublicKey returns the manifest verification key.
func PublicKey() (ed25519.PublicKey, error) {
	encoded := releaseKey
	name := "release key"
	if override := env.String("ROTOR_UPDATER_PUBLIC_KEY"); override != "" {
		encoded, name = override, "ROTOR_UPDATER_PUBLIC_KEY"
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%s has invalid length %d", name, len(key))
	}
	return ed25519.PublicKey(key), nil
}

// VerifyManifest checks a base64 ed25519 signature over data.
func VerifyManifest(key ed25519.PublicKey, data, signature []byte) error {
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(signature)))
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature length %d", len(sig))
	}
	if !ed25519.Verify(key, data, sig) {
		return ErrBadSignature
	}
	return nil
}

func manifestURL(baseURL string, ch Channel) (string, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	u.Path = path.Join(u.Path, string(ch), "manifest.json")
	return u.String(), nil
}

func fetch(ctx context.Context, client *http.Client, target, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return nil, fmt.Errorf("download %s: unexpected status %d: %s", target, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return data, nil
}

func decodeChecksum(sum string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(sum))
	if err != nil {
		return nil, fmt.Errorf("decode checksum: %w", err)
	}
	if len(b) != sha256.Size {
		return nil, fmt.Errorf("checksum has %d bytes, want %d", len(b), sha256.Size)
	}
	return b, nil
}

// SignManifest encodes m and returns the JSON with its base64 signature.
func SignManifest(key ed25519.PrivateKey, m Manifest) (data, signature []byte, err error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, nil, fmt.Errorf("signing key has invalid length %d", len(key))
	}
	data, err = json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')
	sig := ed25519.Sign(key, data)
	return data, []byte(base64.StdEncoding.EncodeToString(sig)), nil
}

// FileSHA256 returns the hex sha256 of the file at path.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
