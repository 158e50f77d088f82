package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/modpath"
	"github.com/openpcli/pcli-setup/internal/version"
)

var validStrategies = map[string]struct{}{
	StrategyResourceClient: {},
	StrategyLegacyClient:   {},
	StrategyManualCopy:     {},
}

// Validate ensures the config is complete and consistent.
// source names the config origin in error messages.
func (c *Config) Validate(source string) error {
	if strings.TrimSpace(c.Module.Name) == "" {
		return fmt.Errorf(messages.ConfigModuleNameRequiredFmt, source)
	}
	if c.Module.Version != "" {
		if _, err := version.Normalize(c.Module.Version); err != nil {
			return fmt.Errorf(messages.ConfigInvalidVersionFmt, source, err)
		}
	}
	if strings.TrimSpace(c.Module.Repository) == "" {
		return fmt.Errorf(messages.ConfigRepositoryRequiredFmt, source)
	}

	if !isGalleryURL(c.Gallery.URL) {
		return fmt.Errorf(messages.ConfigInvalidGalleryURLFmt, source, c.Gallery.URL)
	}
	if c.Gallery.TimeoutSeconds <= 0 {
		return fmt.Errorf(messages.ConfigTimeoutNotPositiveFmt, source)
	}
	if c.Gallery.MaxDownloadMB <= 0 {
		return fmt.Errorf(messages.ConfigDownloadCapNotPositiveFmt, source)
	}

	if _, err := modpath.ParseScope(c.Install.Scope); err != nil {
		return fmt.Errorf(messages.ConfigInvalidScopeFmt, source, modpath.ScopeCurrentUser, modpath.ScopeAllUsers)
	}
	if len(c.Install.Strategies) == 0 {
		return fmt.Errorf(messages.ConfigEmptyStrategiesFmt, source)
	}
	seen := make(map[string]struct{}, len(c.Install.Strategies))
	for _, name := range c.Install.Strategies {
		if _, ok := validStrategies[name]; !ok {
			return fmt.Errorf(messages.ConfigUnknownStrategyFmt, source, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf(messages.ConfigDuplicateStrategyFmt, source, name)
		}
		seen[name] = struct{}{}
	}

	return nil
}

// WithDefaults returns a copy where fields that would fail validation are
// replaced by their defaults, leaving valid fields untouched. Repair tools
// use this to keep working against a partially valid config.
func (c *Config) WithDefaults() *Config {
	out := *c
	d := Default()
	if strings.TrimSpace(out.Module.Name) == "" {
		out.Module.Name = d.Module.Name
	}
	if out.Module.Version != "" {
		if _, err := version.Normalize(out.Module.Version); err != nil {
			out.Module.Version = ""
		}
	}
	if strings.TrimSpace(out.Module.Repository) == "" {
		out.Module.Repository = d.Module.Repository
	}
	if !isGalleryURL(out.Gallery.URL) {
		out.Gallery.URL = d.Gallery.URL
	}
	if out.Gallery.TimeoutSeconds <= 0 {
		out.Gallery.TimeoutSeconds = d.Gallery.TimeoutSeconds
	}
	if out.Gallery.MaxDownloadMB <= 0 {
		out.Gallery.MaxDownloadMB = d.Gallery.MaxDownloadMB
	}
	if _, err := modpath.ParseScope(out.Install.Scope); err != nil {
		out.Install.Scope = d.Install.Scope
	}
	out.Install.Strategies = sanitizeStrategies(out.Install.Strategies, d.Install.Strategies)
	return &out
}

// sanitizeStrategies drops unknown and duplicate entries, falling back to
// the default order when nothing valid remains.
func sanitizeStrategies(listed, fallback []string) []string {
	seen := make(map[string]struct{}, len(listed))
	var kept []string
	for _, name := range listed {
		if _, ok := validStrategies[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		kept = append(kept, name)
	}
	if len(kept) == 0 {
		return fallback
	}
	return kept
}

// isGalleryURL reports whether raw is an absolute http(s) URL.
func isGalleryURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
