package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RowanDark/rotor/internal/enigma"
	"github.com/RowanDark/rotor/internal/env"
)

// Config captures the rotor configuration resolved from defaults, optional
// files and environment overrides.
type Config struct {
	ServerAddr      string `yaml:"server_addr"`
	MetricsAddr     string `yaml:"metrics_addr"`
	KeyringDir      string `yaml:"keyring_dir"`
	AuditLog        string `yaml:"audit_log"`
	DefaultAlphabet string `yaml:"default_alphabet"`
	UpdateBaseURL   string `yaml:"update_base_url"`
}

// Default returns the built-in configuration.
func Default() Config {
	keyring := ".rotor/keys"
	if home, err := os.UserHomeDir(); err == nil {
		keyring = filepath.Join(home, ".rotor", "keys")
	}
	return Config{
		ServerAddr:      "127.0.0.1:7070",
		MetricsAddr:     "127.0.0.1:9091",
		KeyringDir:      keyring,
		AuditLog:        "",
		DefaultAlphabet: "upper",
		UpdateBaseURL:   "",
	}
}

// Load resolves the configuration using defaults, configuration files, and
// environment overrides. Files are read in this order, later ones winning:
//  1. ~/.rotor/config.yaml
//  2. ./rotor.yml
//
// Environment variables prefixed with ROTOR_ (or the legacy ENIGMA_) have the
// highest precedence.
func Load() (Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		if err := applyFile(&cfg, filepath.Join(home, ".rotor", "config.yaml")); err != nil {
			return Config{}, err
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("determine working directory: %w", err)
	}
	if err := applyFile(&cfg, filepath.Join(wd, "rotor.yml")); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail much later.
func (c Config) Validate() error {
	if _, err := enigma.ParseAlphabet(c.DefaultAlphabet); err != nil {
		return fmt.Errorf("default_alphabet: %w", err)
	}
	if strings.TrimSpace(c.KeyringDir) == "" {
		return errors.New("keyring_dir must not be empty")
	}
	return nil
}

// fileConfig mirrors Config with pointer fields so absent keys keep the
// values resolved so far.
type fileConfig struct {
	ServerAddr      *string `yaml:"server_addr"`
	MetricsAddr     *string `yaml:"metrics_addr"`
	KeyringDir      *string `yaml:"keyring_dir"`
	AuditLog        *string `yaml:"audit_log"`
	DefaultAlphabet *string `yaml:"default_alphabet"`
	UpdateBaseURL   *string `yaml:"update_base_url"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyFileConfig(cfg, data); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyFileConfig(cfg *Config, data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&cfg.ServerAddr, fc.ServerAddr)
	set(&cfg.MetricsAddr, fc.MetricsAddr)
	set(&cfg.KeyringDir, fc.KeyringDir)
	set(&cfg.AuditLog, fc.AuditLog)
	set(&cfg.DefaultAlphabet, fc.DefaultAlphabet)
	set(&cfg.UpdateBaseURL, fc.UpdateBaseURL)
	return nil
}

func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"ROTOR_SERVER_ADDR", &cfg.ServerAddr},
		{"ROTOR_METRICS_ADDR", &cfg.MetricsAddr},
		{"ROTOR_KEYRING_DIR", &cfg.KeyringDir},
		{"ROTOR_AUDIT_LOG", &cfg.AuditLog},
		{"ROTOR_ALPHABET", &cfg.DefaultAlphabet},
		{"ROTOR_UPDATE_BASE_URL", &cfg.UpdateBaseURL},
	}
	for _, o := range overrides {
		if val := env.String(o.key); val != "" {
			*o.dst = val
		}
	}
}
