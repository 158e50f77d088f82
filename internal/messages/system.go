package messages

// System messages for internal operations.
const (
	// VersionEmptyFmt indicates an empty version string.
	VersionEmptyFmt        = "empty version %q"
	VersionMalformedFmt    = "malformed version %q: segments must be non-negative integers"
	VersionSegmentCountFmt = "malformed version %q: expected %d to %d dot-separated segments"
	VersionNoneAvailable   = "no versions available"

	// FsutilCreateTempFileFmt formats temp file creation errors.
	FsutilCreateTempFileFmt = "create temp file for %s: %w"
	FsutilSetPermissionsFmt = "set permissions for %s: %w"
	FsutilWriteTempFileFmt  = "write temp file for %s: %w"
	FsutilSyncTempFileFmt   = "sync temp file for %s: %w"
	FsutilCloseTempFileFmt  = "close temp file for %s: %w"
	FsutilRenameTempFileFmt = "rename temp file for %s: %w"
	FsutilOpenForHashFmt    = "open %s: %w"
	FsutilHashFmt           = "hash %s: %w"
	FsutilWalkFmt           = "walk %s: %w"
	FsutilCreateDirFmt      = "create dir %s: %w"
	FsutilReadFileFmt       = "read %s: %w"

	// EnvfileLineErrorFmt formats envfile line errors.
	EnvfileLineErrorFmt            = "line %d: %w"
	EnvfileReadFailedFmt           = "failed to read env content: %w"
	EnvfileExpectedKeyValue        = "expected KEY=VALUE"
	EnvfileUnterminatedQuotedValue = "unterminated quoted value"
	EnvfileInvalidQuotedSuffix     = "invalid trailing characters after quoted value"

	// ProbePwshNotFound indicates no PowerShell interpreter on PATH.
	ProbePwshNotFound    = "pwsh not found on PATH"
	ProbeListClientsFmt  = "list package clients: %w"
	ProbeModulePathEmpty = "no module paths resolved"
	ProbeSystemRequired  = "probe system is required"

	// ModpathUnknownScopeFmt indicates an unrecognized install scope.
	ModpathUnknownScopeFmt   = "unknown scope %q (expected %s or %s)"
	ModpathHomeDirFmt        = "resolve home directory: %w"
	ModpathListVersionsFmt   = "list installed versions of %s: %w"
	ModpathOpenLockFmt       = "open lock %s: %w"
	ModpathLockFmt           = "lock %s: %w"
	ModpathLockTimeoutFmt    = "timed out waiting for lock on %s after %s"
	ModpathCreateDestRootFmt = "create module root %s: %w"
	ModpathDestRootNotDirFmt = "%s exists but is not a directory; move or remove it and retry"
	ModpathDestRootStatFmt   = "check %s: %w"
)
