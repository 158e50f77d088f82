// Package modpath resolves PowerShell module locations.
//
// A module root contains one directory per module, with one subdirectory per
// installed version holding the module files and its <Name>.psd1 manifest:
//
//	<root>/VMware.PowerCLI/13.2.1/VMware.PowerCLI.psd1
//
// The search path comes from PSModulePath; install destinations come from
// the requested scope or an explicit override.
package modpath

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/openpcli/pcli-setup/internal/messages"
	"github.com/openpcli/pcli-setup/internal/version"
)

// Scope selects who an install is for, mirroring the package clients'
// -Scope parameter.
type Scope string

const (
	// ScopeCurrentUser installs under the invoking user's module root.
	ScopeCurrentUser Scope = "CurrentUser"
	// ScopeAllUsers installs under the machine-wide module root.
	ScopeAllUsers Scope = "AllUsers"
)

const manifestExt = ".psd1"

var homeDirFunc = homedir.Dir

// ParseScope matches raw case-insensitively against the known scopes.
func ParseScope(raw string) (Scope, error) {
	switch {
	case strings.EqualFold(raw, string(ScopeCurrentUser)):
		return ScopeCurrentUser, nil
	case strings.EqualFold(raw, string(ScopeAllUsers)):
		return ScopeAllUsers, nil
	default:
		return "", fmt.Errorf(messages.ModpathUnknownScopeFmt, raw, ScopeCurrentUser, ScopeAllUsers)
	}
}

// Paths splits a PSModulePath value into cleaned, non-empty entries.
func Paths(psModulePath string) []string {
	var out []string
	for _, p := range filepath.SplitList(psModulePath) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}

// DefaultRoot returns the conventional module root for scope. PowerShell 7
// uses the same layout on Linux and macOS.
func DefaultRoot(scope Scope) (string, error) {
	switch scope {
	case ScopeCurrentUser:
		home, err := homeDirFunc()
		if err != nil {
			return "", fmt.Errorf(messages.ModpathHomeDirFmt, err)
		}
		return filepath.Join(home, ".local", "share", "powershell", "Modules"), nil
	case ScopeAllUsers:
		return filepath.Join("/usr", "local", "share", "powershell", "Modules"), nil
	default:
		return "", fmt.Errorf(messages.ModpathUnknownScopeFmt, scope, ScopeCurrentUser, ScopeAllUsers)
	}
}

// SearchRoots returns every root worth consulting for installed modules:
// the PSModulePath entries followed by both scope defaults, deduplicated in
// order.
func SearchRoots(psModulePath string) ([]string, error) {
	roots := Paths(psModulePath)
	for _, scope := range []Scope{ScopeCurrentUser, ScopeAllUsers} {
		root, err := DefaultRoot(scope)
		if err != nil {
			return nil, err
		}
		roots = append(roots, root)
	}
	seen := make(map[string]bool, len(roots))
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out, nil
}

// EnsureRoot creates root if missing and verifies it is a directory.
func EnsureRoot(root string) error {
	info, err := os.Stat(root)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf(messages.ModpathDestRootNotDirFmt, root)
		}
		return nil
	case os.IsNotExist(err):
		if err := os.MkdirAll(root, 0o755); err != nil {
			return fmt.Errorf(messages.ModpathCreateDestRootFmt, root, err)
		}
		return nil
	default:
		return fmt.Errorf(messages.ModpathDestRootStatFmt, root, err)
	}
}

// InstalledVersions lists the versions of module name installed under root,
// sorted ascending. Only version directories containing the module manifest
// count; directories that do not parse as versions are ignored.
func InstalledVersions(root, name string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf(messages.ModpathListVersionsFmt, name, err)
	}
	var versions []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := version.Normalize(e.Name()); err != nil {
			continue
		}
		if !HasManifest(filepath.Join(root, name, e.Name()), name) {
			continue
		}
		versions = append(versions, e.Name())
	}
	sort.Slice(versions, func(i, j int) bool {
		cmp, err := version.Compare(versions[i], versions[j])
		return err == nil && cmp < 0
	})
	return versions, nil
}

// Installed reports whether root holds version ver of module name, and the
// directory it occupies when present.
func Installed(root, name, ver string) (string, bool) {
	dir := filepath.Join(root, name, ver)
	if HasManifest(dir, name) {
		return dir, true
	}
	return "", false
}

// FindInstalled searches roots in order for version ver of module name.
func FindInstalled(roots []string, name, ver string) (string, bool) {
	for _, root := range roots {
		if dir, ok := Installed(root, name, ver); ok {
			return dir, true
		}
	}
	return "", false
}

// HasManifest reports whether dir contains the module manifest <name>.psd1.
// The comparison is case-insensitive to match PowerShell's own lookup.
func HasManifest(dir, name string) bool {
	_, ok := ManifestPath(dir, name)
	return ok
}

// ManifestPath returns the path of the module manifest <name>.psd1 inside
// dir, matching case-insensitively.
func ManifestPath(dir, name string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	want := name + manifestExt
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(e.Name(), want) {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}
