package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/openpcli/pcli-setup/internal/messages"
)

// EnvPrefix is the namespace for environment overrides.
const EnvPrefix = "PCLI_"

// Environment variable names recognized as config overrides.
const (
	EnvModule           = "PCLI_MODULE"
	EnvModuleVersion    = "PCLI_MODULE_VERSION"
	EnvRepository       = "PCLI_REPOSITORY"
	EnvGalleryURL       = "PCLI_GALLERY_URL"
	EnvGalleryTimeout   = "PCLI_GALLERY_TIMEOUT_SECONDS"
	EnvMaxDownloadMB    = "PCLI_MAX_DOWNLOAD_MB"
	EnvScope            = "PCLI_SCOPE"
	EnvDest             = "PCLI_DEST"
	EnvTrustRepository  = "PCLI_TRUST_REPOSITORY"
	EnvDisableTelemetry = "PCLI_DISABLE_TELEMETRY"
	EnvConfigDir        = "PCLI_CONFIG_DIR"
	EnvCacheDir         = "PCLI_CACHE_DIR"
)

// ProcessEnv returns the PCLI_ keys from the process environment.
func ProcessEnv() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		env[key] = value
	}
	return env
}

// ApplyEnv overlays recognized PCLI_ overrides onto cfg. Unrecognized keys
// are ignored so unrelated PCLI_ variables cannot break a run. The caller
// re-validates afterwards.
func ApplyEnv(cfg *Config, env map[string]string) error {
	for key, value := range env {
		switch key {
		case EnvModule:
			cfg.Module.Name = value
		case EnvModuleVersion:
			cfg.Module.Version = value
		case EnvRepository:
			cfg.Module.Repository = value
		case EnvGalleryURL:
			cfg.Gallery.URL = value
		case EnvGalleryTimeout:
			n, err := parseEnvInt(key, value)
			if err != nil {
				return err
			}
			cfg.Gallery.TimeoutSeconds = n
		case EnvMaxDownloadMB:
			n, err := parseEnvInt(key, value)
			if err != nil {
				return err
			}
			cfg.Gallery.MaxDownloadMB = n
		case EnvScope:
			cfg.Install.Scope = value
		case EnvDest:
			cfg.Install.Dest = value
		case EnvTrustRepository:
			b, err := parseEnvBool(key, value)
			if err != nil {
				return err
			}
			cfg.Install.TrustRepository = b
		case EnvDisableTelemetry:
			b, err := parseEnvBool(key, value)
			if err != nil {
				return err
			}
			cfg.Install.DisableTelemetry = b
		}
	}
	return nil
}

func parseEnvBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf(messages.ConfigEnvInvalidBoolFmt, key, value)
	}
	return b, nil
}

func parseEnvInt(key, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf(messages.ConfigEnvInvalidIntFmt, key, value)
	}
	return n, nil
}
