// Package config loads and validates the pcli-setup configuration.
//
// Configuration lives at <user-config-dir>/pcli-setup/config.toml and is
// optional: a missing file yields the built-in defaults. PCLI_* environment
// variables and command-line flags are overlaid on top of the loaded file,
// so every run ends up with one explicit Config value and nothing reads
// configuration globally at install time.
package config

import (
	"time"

	"github.com/openpcli/pcli-setup/internal/gallery"
	"github.com/openpcli/pcli-setup/internal/modpath"
)

// Install method names accepted in install.strategies.
const (
	// StrategyResourceClient installs through Install-PSResource (PSResourceGet).
	StrategyResourceClient = "resource-client"
	// StrategyLegacyClient installs through Install-Module (PowerShellGet).
	StrategyLegacyClient = "legacy-client"
	// StrategyManualCopy downloads from the gallery feed and places the tree itself.
	StrategyManualCopy = "manual-copy"
)

// DefaultModule is the module installed when none is configured.
const DefaultModule = "VMware.PowerCLI"

// DefaultRepository is the repository name both package clients register out of the box.
const DefaultRepository = "PSGallery"

const (
	defaultTimeoutSeconds = 30
	defaultMaxDownloadMB  = 200
)

// Config is the complete tool configuration.
type Config struct {
	Module  ModuleConfig  `toml:"module"`
	Gallery GalleryConfig `toml:"gallery"`
	Install InstallConfig `toml:"install"`
}

// ModuleConfig identifies what to install.
type ModuleConfig struct {
	// Name is the PowerShell module to install.
	Name string `toml:"name"`
	// Version pins an exact module version. Empty means latest stable.
	Version string `toml:"version"`
	// Repository is the repository name passed to the package clients.
	Repository string `toml:"repository"`
}

// GalleryConfig tunes the direct gallery feed used by the manual fallback.
type GalleryConfig struct {
	// URL is the NuGet v3 flat-container endpoint.
	URL string `toml:"url"`
	// TimeoutSeconds bounds each gallery HTTP request.
	TimeoutSeconds int `toml:"timeout_seconds"`
	// MaxDownloadMB caps the size of a downloaded package.
	MaxDownloadMB int `toml:"max_download_mb"`
}

// InstallConfig controls placement and install-method order.
type InstallConfig struct {
	// Scope selects the module root: CurrentUser or AllUsers.
	Scope string `toml:"scope"`
	// Dest overrides the scope-derived module root when set.
	Dest string `toml:"dest"`
	// Strategies is the install-method order. Earlier entries are tried first.
	Strategies []string `toml:"strategies"`
	// TrustRepository suppresses untrusted-repository prompts in the package clients.
	TrustRepository bool `toml:"trust_repository"`
	// DisableTelemetry opts out of the VMware CEIP after a successful install.
	DisableTelemetry bool `toml:"disable_telemetry"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Module: ModuleConfig{
			Name:       DefaultModule,
			Repository: DefaultRepository,
		},
		Gallery: GalleryConfig{
			URL:            gallery.DefaultBaseURL,
			TimeoutSeconds: defaultTimeoutSeconds,
			MaxDownloadMB:  defaultMaxDownloadMB,
		},
		Install: InstallConfig{
			Scope:      string(modpath.ScopeCurrentUser),
			Strategies: DefaultStrategies(),
		},
	}
}

// DefaultStrategies returns the built-in install-method order.
func DefaultStrategies() []string {
	return []string{StrategyResourceClient, StrategyLegacyClient, StrategyManualCopy}
}

// Timeout returns the per-request gallery timeout as a duration.
func (g GalleryConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// MaxDownloadBytes returns the download cap in bytes.
func (g GalleryConfig) MaxDownloadBytes() int64 {
	return int64(g.MaxDownloadMB) * 1024 * 1024
}

// ScopeValue parses the configured scope.
func (i InstallConfig) ScopeValue() (modpath.Scope, error) {
	return modpath.ParseScope(i.Scope)
}
