// Command build_manifests writes signed rotorctl release manifests from the
// channel descriptions in a config directory.
//
//	ROTOR_UPDATER_SIGNING_KEY=... go run ./hack/updater -config packaging/updater -out out/updater
package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/rotor/internal/env"
	"github.com/RowanDark/rotor/internal/updater"
)

type artifactInput struct {
	URL    string `yaml:"url"`
	Path   string `yaml:"path"`
	SHA256 string `yaml:"sha256"`
}

type patchInput struct {
	From   string `yaml:"from"`
	URL    string `yaml:"url"`
	Path   string `yaml:"path"`
	SHA256 string `yaml:"sha256"`
}

type buildInput struct {
	OS    string        `yaml:"os"`
	Arch  string        `yaml:"arch"`
	Full  artifactInput `yaml:"full"`
	Delta *patchInput   `yaml:"delta"`
}

type channelInput struct {
	Channel string       `yaml:"channel"`
	Version string       `yaml:"version"`
	Notes   string       `yaml:"notes"`
	Builds  []buildInput `yaml:"builds"`
}

func main() {
	configDir := flag.String("config", "packaging/updater", "channel configuration directory")
	outDir := flag.String("out", "out/updater", "output directory for manifests")
	flag.Parse()

	key, err := loadSigningKey()
	if err != nil {
		fatal(err)
	}

	configs, err := filepath.Glob(filepath.Join(*configDir, "*.yaml"))
	if err != nil {
		fatal(err)
	}
	sort.Strings(configs)
	if len(configs) == 0 {
		fatal(errors.New("no channel configuration files found"))
	}

	for _, file := range configs {
		if err := processChannel(file, *outDir, key); err != nil {
			fatal(fmt.Errorf("%s: %w", file, err))
		}
	}
}

func processChannel(path, outDir string, key ed25519.PrivateKey) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var input channelInput
	if err := yaml.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	channel, err := updater.ParseChannel(input.Channel)
	if err != nil {
		return err
	}
	if strings.TrimSpace(input.Version) == "" {
		return errors.New("version is required")
	}
	if len(input.Builds) == 0 {
		return errors.New("at least one build must be defined")
	}

	manifest := updater.Manifest{
		Version: strings.TrimSpace(input.Version),
		Channel: channel,
		Notes:   strings.TrimSpace(input.Notes),
	}
	baseDir := filepath.Dir(path)
	for i, build := range input.Builds {
		if strings.TrimSpace(build.OS) == "" || strings.TrimSpace(build.Arch) == "" {
			return fmt.Errorf("build %d missing os/arch", i)
		}
		full, err := resolveArtifact(build.Full, baseDir)
		if err != nil {
			return fmt.Errorf("build %d full artifact: %w", i, err)
		}
		var patch *updater.Patch
		if build.Delta != nil {
			if strings.TrimSpace(build.Delta.From) == "" {
				return fmt.Errorf("build %d delta: from is required", i)
			}
			art, err := resolveArtifact(artifactInput{URL: build.Delta.URL, Path: build.Delta.Path, SHA256: build.Delta.SHA256}, baseDir)
			if err != nil {
				return fmt.Errorf("build %d delta: %w", i, err)
			}
			patch = &updater.Patch{From: strings.TrimSpace(build.Delta.From), URL: art.URL, SHA256: art.SHA256}
		}
		manifest.Builds = append(manifest.Builds, updater.Build{
			OS:    strings.TrimSpace(build.OS),
			Arch:  strings.TrimSpace(build.Arch),
			Full:  full,
			Delta: patch,
		})
	}

	body, sig, err := updater.SignManifest(key, manifest)
	if err != nil {
		return err
	}
	manifestPath := filepath.Join(outDir, string(channel), "manifest.json")
	if err := os.MkdirAll(filepath.Dir(manifestPath), 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	if err := os.WriteFile(manifestPath, body, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath+".sig", sig, 0o644); err != nil {
		return fmt.Errorf("write signature: %w", err)
	}
	return nil
}

func resolveArtifact(in artifactInput, baseDir string) (updater.Artifact, error) {
	url := strings.TrimSpace(in.URL)
	if url == "" {
		return updater.Artifact{}, errors.New("artifact url is required")
	}
	sha := strings.TrimSpace(in.SHA256)
	if sha == "" {
		p := strings.TrimSpace(in.Path)
		if p == "" {
			return updater.Artifact{}, errors.New("artifact sha256 or path must be provided")
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		sum, err := updater.FileSHA256(p)
		if err != nil {
			return updater.Artifact{}, err
		}
		sha = sum
	}
	return updater.Artifact{URL: url, SHA256: sha}, nil
}

func loadSigningKey() (ed25519.PrivateKey, error) {
	raw := env.String("ROTOR_UPDATER_SIGNING_KEY")
	if raw == "" {
		return nil, errors.New("ROTOR_UPDATER_SIGNING_KEY is not set")
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode ROTOR_UPDATER_SIGNING_KEY: %w", err)
	}
	if len(decoded) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ROTOR_UPDATER_SIGNING_KEY has invalid length %d", len(decoded))
	}
	return ed25519.PrivateKey(decoded), nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
