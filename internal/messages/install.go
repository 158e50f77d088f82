package messages

// Messages for the resolution engine, install strategies, gallery client,
// and staged placement.
const (
	// ResolverNoCandidates indicates Resolve was called with an empty chain.
	ResolverNoCandidates     = "no install strategies to attempt"
	ResolverNoActionFmt      = "strategy %s has no action"
	ResolverNilStrategyFmt   = "strategy at position %d is nil"
	ResolverDuplicateNameFmt = "duplicate strategy name %q"
	ResolverCanceledFmt      = "resolution canceled: %w"
	ResolverErrFmt           = "%s: %s: %v"
	ResolverErrNoWrappedFmt  = "%s: %s"

	// StrategyUnknownFmt indicates an unrecognized strategy name in config.
	StrategyUnknownFmt            = "unknown strategy %q (expected one of: %s)"
	StrategyEmptyOrder            = "strategy order is empty"
	StrategyMissingDepFmt         = "strategy %s requires %s"
	StrategyClientMissingFmt      = "package client %s not present"
	StrategyRootNotWritableFmt    = "module root %s is not writable"
	StrategyDestUnsupported       = "package clients cannot target a custom destination"
	StrategyNetworkUnavailable    = "network unavailable"
	StrategyResolveVersionFmt     = "resolve version for %s: %w"
	StrategyDownloadFmt           = "download %s %s: %w"
	StrategyExtractFmt            = "extract %s %s: %w"
	StrategyPlaceFmt              = "place %s %s: %w"
	StrategyInstallViaFmt         = "install %s via %s: %w"
	StrategyVerifyInstalledFmt    = "verify %s %s after install: %w"
	StrategyInstalledNotVisible   = "module not visible under any module path after install"
	StrategyPwshMissing           = "pwsh interpreter not found"
	StrategyElevationRequired     = "AllUsers scope requires elevation"
	StrategyRollbackRemoveFailFmt = "remove %s: %w"

	// SourceRunnerRequired indicates a nil command runner dependency.
	SourceRunnerRequired        = "command runner is required"
	SourcePwshPathRequired      = "pwsh path is required"
	SourceModuleRequired        = "module name is required"
	SourceInstallFailedFmt      = "%s exited with code %d: %s"
	SourceInstallStartFmt       = "start %s: %w"
	SourceUnsupportedClientFmt  = "unsupported package client %q"
	SourceModuleNotFoundFmt     = "module %s not found in repository %s"
	SourceUntrustedRepoFmt      = "repository %s is untrusted; pass --trust-repository or trust it in PowerShell"
	SourceCEIPConfigureFailed   = "configure telemetry opt-out"
	SourceStderrTruncatedSuffix = " [truncated]"

	// GalleryBaseURLRequired indicates a gallery client without a base URL.
	GalleryBaseURLRequired     = "gallery base URL is required"
	GalleryRequestFmt          = "request %s: %w"
	GalleryUnexpectedStatusFmt = "request %s: unexpected status %s"
	GalleryPackageNotFoundFmt  = "package %s: %w"
	GalleryVersionNotFoundFmt  = "package %s has no version %s: %w"
	GalleryDecodeIndexFmt      = "decode version index for %s: %w"
	GalleryNoVersionsFmt       = "package %s has no listed versions"
	GalleryRateLimitedFmt      = "gallery rate limited (HTTP %d): %s"
	GalleryDownloadTooLargeFmt = "download %s: response too large (%d bytes > limit %d bytes)"
	GalleryCreateDirFmt        = "create download dir: %w"
	GalleryCreateTempFileFmt   = "create temp file: %w"
	GalleryTruncateTempFileFmt = "truncate temp file: %w"
	GalleryResetTempFileFmt    = "reset temp file offset: %w"
	GallerySyncTempFileFmt     = "sync temp file: %w"
	GalleryCloseTempFileFmt    = "close temp file: %w"
	GalleryRenameNupkgFmt      = "move package into place: %w"
	GalleryReadBodyFmt         = "read %s: %w"
	GalleryPingStatusFmt       = "gallery responded with status %s"
	GalleryDownloadTimeoutFmt  = "download %s: %w\n\nRemediation:\n  - Check your internet connection\n  - If behind a proxy, ensure HTTP_PROXY/HTTPS_PROXY are set\n  - Retry the command\n  - To skip network install methods entirely, pass --no-network"
	GalleryEmptyPackageName    = "package name is required"

	// StageRootRequired indicates a stager without a staging root.
	StageRootRequired         = "staging root is required"
	StageOpenArchiveFmt       = "open package archive %s: %w"
	StageEntryOutsideRootFmt  = "archive entry %q escapes extraction root"
	StageEntryTooLargeFmt     = "archive entry %q too large (%d bytes > limit %d bytes)"
	StageExtractEntryFmt      = "extract %s: %w"
	StageManifestMissingFmt   = "package %s contains no module manifest %s: %w"
	StageCreateDirFmt         = "create staging dir %s: %w"
	StageCleanFmt             = "clean staging dir %s: %w"
	StageMissingSourceFmt     = "staged tree %s missing: %w"
	StageDestConflictFmt      = "%s exists but is not a directory"
	StageCopyTreeFmt          = "copy module tree to %s: %w"
	StageStatDestFmt          = "stat %s: %w"
	StageCompareTreesFmt      = "compare %s with staged tree: %w"
	StagePartialWriteFmt      = "module tree at %s left incomplete after %d files: %v: %w"
	StagePromptRequired       = "overwrite prompt is not configured"
	StagePreviewCountsFmt     = "installed tree: %d files; replacement: %d files"
	StageSwapPrepareFmt       = "prepare swap dir for %s: %w"
	StageSwapBackupFmt        = "move %s aside: %w"
	StageSwapActivateFmt      = "activate new tree at %s: %w"
	StageSwapRestoredNote     = "previous tree restored"
	StageSwapRestoreFailedFmt = "restore previous tree at %s: %v"
)
