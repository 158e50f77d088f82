package messages

// Config messages for configuration loading and validation.
const (
	// ConfigMissingFileFmt formats missing config file errors.
	ConfigMissingFileFmt    = "missing config file %s: %w"
	ConfigReadFailedFmt     = "read config %s: %w"
	ConfigInvalidConfigFmt  = "invalid config %s: %w"
	ConfigMissingEnvFileFmt = "missing env file %s: %w"
	ConfigInvalidEnvFileFmt = "invalid env file %s: %w"
	ConfigDirFmt            = "resolve user config dir: %w"
	ConfigCacheDirFmt       = "resolve user cache dir: %w"

	ConfigModuleNameRequiredFmt     = "%s: module.name is required"
	ConfigInvalidVersionFmt         = "%s: module.version: %v"
	ConfigRepositoryRequiredFmt     = "%s: module.repository is required"
	ConfigInvalidGalleryURLFmt      = "%s: gallery.url %q is not an absolute http(s) URL"
	ConfigTimeoutNotPositiveFmt     = "%s: gallery.timeout_seconds must be greater than zero"
	ConfigDownloadCapNotPositiveFmt = "%s: gallery.max_download_mb must be greater than zero"
	ConfigInvalidScopeFmt           = "%s: install.scope must be %s or %s"
	ConfigUnknownStrategyFmt        = "%s: install.strategies contains unknown method %q"
	ConfigDuplicateStrategyFmt      = "%s: install.strategies lists %q more than once"
	ConfigEmptyStrategiesFmt        = "%s: install.strategies must not be empty"
	ConfigUnrecognizedKeysFmt       = "%s: unrecognized config keys: %w"

	// ConfigValidationGuidance is appended to validation errors to direct users to repair tools.
	ConfigValidationGuidance = "(edit the file or run 'pcli-setup doctor' to diagnose)"

	// ConfigEnvInvalidBoolFmt formats boolean environment override errors.
	ConfigEnvInvalidBoolFmt = "environment override %s=%q is not a valid boolean"
	ConfigEnvInvalidIntFmt  = "environment override %s=%q is not a valid integer"
)
