package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openpcli/pcli-setup/internal/messages"
)

const appDirName = "pcli-setup"

var (
	userConfigDir = os.UserConfigDir
	userCacheDir  = os.UserCacheDir
)

// Paths holds resolved locations for the config file and work directories.
type Paths struct {
	// Dir is the per-user config directory.
	Dir string
	// ConfigPath is the config.toml location inside Dir.
	ConfigPath string
	// EnvPath is the optional .env override file inside Dir.
	EnvPath string
	// CacheDir is the per-user cache directory.
	CacheDir string
	// StageDir is where downloaded packages are unpacked before placement.
	StageDir string
}

// DefaultPaths resolves the per-user config and cache locations.
// PCLI_CONFIG_DIR and PCLI_CACHE_DIR override the platform defaults.
func DefaultPaths() (Paths, error) {
	dir := strings.TrimSpace(os.Getenv(EnvConfigDir))
	if dir == "" {
		base, err := userConfigDir()
		if err != nil {
			return Paths{}, fmt.Errorf(messages.ConfigDirFmt, err)
		}
		dir = filepath.Join(base, appDirName)
	}

	cache := strings.TrimSpace(os.Getenv(EnvCacheDir))
	if cache == "" {
		base, err := userCacheDir()
		if err != nil {
			return Paths{}, fmt.Errorf(messages.ConfigCacheDirFmt, err)
		}
		cache = filepath.Join(base, appDirName)
	}

	return Paths{
		Dir:        dir,
		ConfigPath: filepath.Join(dir, "config.toml"),
		EnvPath:    filepath.Join(dir, ".env"),
		CacheDir:   cache,
		StageDir:   filepath.Join(cache, "stage"),
	}, nil
}
