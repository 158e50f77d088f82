package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/openpcli/pcli-setup/internal/envfile"
	"github.com/openpcli/pcli-setup/internal/messages"
)

// ErrConfigValidation is a sentinel that wraps config validation failures
// (as opposed to TOML syntax, filesystem, or other loading errors).
// Callers can use errors.Is(err, ErrConfigValidation) to distinguish
// validation problems from other LoadConfig failure modes.
var ErrConfigValidation = errors.New("config validation failed")

// LoadConfig reads a config.toml and validates it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf(messages.ConfigMissingFileFmt, path, err)
		}
		return nil, fmt.Errorf(messages.ConfigReadFailedFmt, path, err)
	}
	return ParseConfig(data, path)
}

// LoadConfigIfPresent reads path when it exists and falls back to the
// built-in defaults when it does not. A missing file is not an error;
// anything else is.
func LoadConfigIfPresent(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// ParseConfig parses and validates config TOML data from a source identifier.
// data is the TOML content; source is used in error messages. Fields the
// data leaves unset keep their defaults.
func ParseConfig(data []byte, source string) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf(messages.ConfigInvalidConfigFmt, source, err)
	}
	if err := decodeStrict(data); err != nil {
		return nil, fmt.Errorf("%w: "+messages.ConfigUnrecognizedKeysFmt+" "+messages.ConfigValidationGuidance, ErrConfigValidation, source, err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(source); err != nil {
		return nil, fmt.Errorf("%w: %w "+messages.ConfigValidationGuidance, ErrConfigValidation, err)
	}
	return &cfg, nil
}

// decodeStrict re-decodes the TOML data with strict unknown-field rejection.
// This catches keys that toml.Unmarshal silently ignores, usually typos.
func decodeStrict(data []byte) error {
	var cfg Config
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	return decoder.Decode(&cfg)
}

// ParseConfigLenient parses config TOML data without validation.
// Returns an error only on TOML syntax errors. Invalid fields are kept
// as-is, making this suitable for repair tools (doctor) that need to read
// partially valid configs.
func ParseConfigLenient(data []byte, source string) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf(messages.ConfigInvalidConfigFmt, source, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigLenient reads a config.toml without validation.
// Returns an error only on filesystem or TOML syntax errors.
func LoadConfigLenient(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf(messages.ConfigMissingFileFmt, path, err)
		}
		return nil, fmt.Errorf(messages.ConfigReadFailedFmt, path, err)
	}
	return ParseConfigLenient(data, path)
}

// applyDefaults fills fields the TOML data left unset with their defaults.
// Zero timeouts and caps count as unset so "0 means default" holds for
// numeric keys.
func applyDefaults(c *Config) {
	d := Default()
	if c.Module.Name == "" {
		c.Module.Name = d.Module.Name
	}
	if c.Module.Repository == "" {
		c.Module.Repository = d.Module.Repository
	}
	if c.Gallery.URL == "" {
		c.Gallery.URL = d.Gallery.URL
	}
	if c.Gallery.TimeoutSeconds == 0 {
		c.Gallery.TimeoutSeconds = d.Gallery.TimeoutSeconds
	}
	if c.Gallery.MaxDownloadMB == 0 {
		c.Gallery.MaxDownloadMB = d.Gallery.MaxDownloadMB
	}
	if c.Install.Scope == "" {
		c.Install.Scope = d.Install.Scope
	}
	if c.Install.Strategies == nil {
		c.Install.Strategies = d.Install.Strategies
	}
}

// LoadEnv reads a .env file and keeps only keys in the PCLI_ namespace.
func LoadEnv(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(messages.ConfigMissingEnvFileFmt, path, err)
	}

	env, err := envfile.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf(messages.ConfigInvalidEnvFileFmt, path, err)
	}
	return envfile.Filter(env, EnvPrefix), nil
}
